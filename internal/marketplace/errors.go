package marketplace

import (
	"context"
	"errors"

	"github.com/dukerupert/toolshub/internal/opstate"
)

// ErrUnexpected marks transport failures and anything else the backend did
// not explain. Its message is the only text shown to the user.
var ErrUnexpected = errors.New("unexpected error occurred")

var (
	ErrAssetNotFound          = errors.New("rented tool not found")
	ErrListingNotFound        = errors.New("listing not found")
	ErrConnectAccountRequired = errors.New("a validated Stripe account is required to create listings")
)

// ValidationError is detected before any request is issued.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// BusinessError is a success:false reply carrying a message meant for the
// user verbatim.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string { return e.Message }

// DomainValidationError is a typed validation fault raised by the backend,
// distinct from a plain business rejection.
type DomainValidationError struct {
	Message       string
	MissingFields []string
}

func (e *DomainValidationError) Error() string { return e.Message }

// UnexpectedError wraps a failure nobody explained. Error() never includes
// the cause; use errors.Unwrap or %+v style logging to see it.
type UnexpectedError struct {
	Op  string
	Err error
}

func (e *UnexpectedError) Error() string {
	if e.Op == "" {
		return "Unexpected error occurred"
	}
	return "Unexpected error occurred while " + e.Op
}

func (e *UnexpectedError) Unwrap() []error { return []error{ErrUnexpected, e.Err} }

// Title is the heading a client shows above the error message.
func Title(err error) string {
	var dve *DomainValidationError
	if errors.As(err, &dve) {
		return "Validation Error"
	}
	return "Error"
}

// classify passes through errors that already carry a user-facing meaning
// and wraps everything else as unexpected.
func classify(action string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve  *ValidationError
		be  *BusinessError
		dve *DomainValidationError
		ue  *UnexpectedError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &be), errors.As(err, &dve), errors.As(err, &ue):
		return err
	case errors.Is(err, opstate.ErrInFlight),
		errors.Is(err, context.Canceled),
		errors.Is(err, ErrAssetNotFound),
		errors.Is(err, ErrListingNotFound),
		errors.Is(err, ErrConnectAccountRequired):
		return err
	}
	return &UnexpectedError{Op: action, Err: err}
}
