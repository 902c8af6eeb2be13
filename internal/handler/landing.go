package handler

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/toolshub/internal/marketplace"
	"github.com/dukerupert/toolshub/internal/rpc"
)

const flashCookieName = "toolshub_flash"

//go:embed templates/*.html
var templateFS embed.FS

type LandingHandler struct {
	templates    *template.Template
	secureCookie bool
	logger       *slog.Logger
}

func NewLandingHandler(baseURL string, logger *slog.Logger) *LandingHandler {
	return &LandingHandler{
		templates:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
		secureCookie: strings.HasPrefix(baseURL, "https://"),
		logger:       logger.With("component", "landing"),
	}
}

// Page serves the marketplace landing page. When the URL carries redirect
// markers from Stripe, the outcome is parked in a one-shot flash cookie and
// the browser is sent to the same page without the markers, so a refresh
// never repeats the message.
func (h *LandingHandler) Page(w http.ResponseWriter, r *http.Request) {
	rec := marketplace.Reconcile(r.URL)
	if rec.Changed {
		if len(rec.Notifications) > 0 {
			h.setFlash(w, rec.Notifications)
		}
		if rec.SessionID != "" {
			h.logger.Debug("returned from checkout", "session_id", rec.SessionID)
		}
		http.Redirect(w, r, rec.CleanedURL, http.StatusSeeOther)
		return
	}

	notes := h.takeFlash(w, r)
	w.Header().Set("Cache-Control", "no-store")
	err := h.templates.ExecuteTemplate(w, "toolshub.html", map[string]any{
		"Notifications": notes,
		"APIPrefix":     rpc.PathPrefix,
		"WebSocketPath": "/toolshub/ws",
	})
	if err != nil {
		h.logger.Error("render landing page", "error", err)
	}
}

func (h *LandingHandler) setFlash(w http.ResponseWriter, notes []marketplace.Notification) {
	data, err := json.Marshal(notes)
	if err != nil {
		h.logger.Error("encode flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/toolshub",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash cookie. A damaged cookie is dropped.
func (h *LandingHandler) takeFlash(w http.ResponseWriter, r *http.Request) []marketplace.Notification {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/toolshub",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var notes []marketplace.Notification
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil
	}
	return notes
}
