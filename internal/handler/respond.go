package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/toolshub/internal/rpc"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ok writes a successful envelope.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, rpc.OK(data))
}

// fail writes a business-rule rejection. It is still a 200: the request
// was understood and answered.
func fail(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, rpc.Fail(message))
}

func invalid(w http.ResponseWriter, message string, missing ...string) {
	writeJSON(w, http.StatusOK, rpc.Invalid(message, missing...))
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, rpc.Fail("An unexpected error occurred"))
}

// decode reads a JSON body into dst and validates it. An empty body is
// treated as {}. On failure the reply has already been written.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, rpc.Fail("invalid JSON"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, rpc.Fail("invalid request"))
			return false
		}
		message, missing := describe(verrs)
		invalid(w, message, missing...)
		return false
	}
	return true
}

// describe turns validator errors into one readable message plus the list
// of required fields that were missing.
func describe(verrs validator.ValidationErrors) (string, []string) {
	var (
		messages []string
		missing  []string
	)
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, "; "), missing
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, param)
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
