package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"zylorb/internal/model"
)

type authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (model.Account, error)
}

type contextKey string

const accountContextKey contextKey = "account"

type AuthMiddleware struct {
	auth authenticator
}

func NewAuthMiddleware(auth authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth answers 401 when no bearer token is presented or its account is
// gone, and 403 when the token itself is malformed, forged or expired.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeErrorBody(w, http.StatusUnauthorized, "UNAUTHORIZED", "Access token required")
			return
		}

		account, err := m.auth.Authenticate(r.Context(), token)
		switch {
		case err == nil:
		case model.IsTokenError(err):
			writeErrorBody(w, http.StatusForbidden, "INVALID_TOKEN", "Invalid or expired token")
			return
		case errors.Is(err, model.ErrUnauthorized):
			writeErrorBody(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not found")
			return
		case errors.Is(err, model.ErrStoreUnavailable):
			slog.ErrorContext(r.Context(), "authenticate request", "error", err)
			writeErrorBody(w, http.StatusBadGateway, "STORE_UNAVAILABLE", "Account store unavailable")
			return
		default:
			slog.ErrorContext(r.Context(), "authenticate request", "error", err)
			writeErrorBody(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AccountFromContext(ctx context.Context) (model.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(model.Account)
	return account, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
