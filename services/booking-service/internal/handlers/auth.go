package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/homefix/calbook/libs/auth"
	"github.com/homefix/calbook/libs/httpx"
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type AuthHandler struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

func NewAuthHandler(verifier TokenVerifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{verifier: verifier, logger: logger}
}

type authResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// Check handles GET /auth. Failures never echo token details. A key set
// outage is a 503, not a rejected token.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if errors.Is(err, auth.ErrTokenMissing) {
		httpx.WriteError(w, http.StatusUnauthorized, "Authorization header missing")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid user ID token")
		return
	}

	claims, err := h.verifier.Verify(r.Context(), token)
	if errors.Is(err, auth.ErrUnavailable) {
		h.logger.Error("id token keys unavailable", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		w.Header().Set("Retry-After", retryAfterSeconds)
		httpx.WriteError(w, http.StatusServiceUnavailable, "Authentication temporarily unavailable")
		return
	}
	if err != nil {
		h.logger.Info("id token rejected", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid user ID token")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authResponse{Message: "Authenticated user", UserID: claims.UserID()})
}
