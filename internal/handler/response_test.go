package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zylorb/internal/model"
	"zylorb/pkg/apierror"
)

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierror.New("VALIDATION_ERROR", "All fields are required", "email", http.StatusBadRequest), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"validation", fmt.Errorf("x: %w", model.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate", model.ErrDuplicateAccount, http.StatusBadRequest, "DUPLICATE_ACCOUNT"},
		{"credentials", model.ErrInvalidCredentials, http.StatusBadRequest, "INVALID_CREDENTIALS"},
		{"malformed token", model.ErrTokenMalformed, http.StatusForbidden, "INVALID_TOKEN"},
		{"bad signature", model.ErrTokenBadSignature, http.StatusForbidden, "INVALID_TOKEN"},
		{"expired token", fmt.Errorf("validate: %w", model.ErrTokenExpired), http.StatusForbidden, "INVALID_TOKEN"},
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"rate limited", model.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"store", fmt.Errorf("login: find: %w", model.ErrStoreUnavailable), http.StatusBadGateway, "STORE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestTokenErrorsShareOneMessage(t *testing.T) {
	bodies := map[string]struct{}{}
	for _, err := range []error{model.ErrTokenMalformed, model.ErrTokenBadSignature, model.ErrTokenExpired} {
		rec := httptest.NewRecorder()
		writeError(rec, err)
		bodies[rec.Body.String()] = struct{}{}
	}
	assert.Len(t, bodies, 1)
}
