package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/middleware"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
)

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		secureCookie: strings.HasPrefix(baseURL, "https://"),
		logger:       logger.With("component", "auth"),
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req rpc.SignupRequest
	if !decode(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		internalError(w)
		return
	}

	user, err := h.userStore.Create(strings.TrimSpace(req.Email), strings.TrimSpace(req.Name), string(hash))
	if errors.Is(err, store.ErrEmailTaken) {
		fail(w, "An account with this email already exists")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		internalError(w)
		return
	}

	token, started := h.startSession(w, user.ID)
	if !started {
		return
	}
	ok(w, rpc.SessionResponse{Token: token, User: *user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req rpc.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.userStore.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		internalError(w)
		return
	}
	// Same message for unknown email and wrong password.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		fail(w, "Invalid email or password")
		return
	}

	token, started := h.startSession(w, user.ID)
	if !started {
		return
	}
	ok(w, rpc.SessionResponse{Token: token, User: *user})
}

// startSession creates a session and sets its cookie. On failure the
// reply has already been written.
func (h *AuthHandler) startSession(w http.ResponseWriter, userID int64) (string, bool) {
	sess, err := h.sessionStore.Create(userID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		internalError(w)
		return "", false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess.Token, true
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.sessionStore.DeleteByToken(token); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get current user", "error", err)
		internalError(w)
		return
	}
	if user == nil {
		fail(w, "User not found")
		return
	}
	ok(w, user)
}
