//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"zylorb/internal/app"
	"zylorb/internal/config"
)

// newServer runs the fully wired gateway on a real socket. With
// TEST_DATABASE_URL set the accounts live in Postgres, otherwise in memory.
func newServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:             "0",
		RequestTimeout:         10 * time.Second,
		JWTSecret:              "integration-secret",
		PasswordHasher:         "argon2id",
		StoreBackend:           config.BackendMemory,
		CORSOrigins:            []string{"*"},
		RateLimitWindow:        15 * time.Minute,
		RateLimitMax:           1000,
		RateLimitSweepInterval: time.Minute,
		AuthRateLimitRPM:       1000,
		LogFormat:              "json",
	}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		cfg.StoreBackend = config.BackendPostgres
		cfg.DatabaseURL = url
		cfg.DBMaxConns = 4
		cfg.DBMinConns = 1
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := app.New(cfg)
	require.NoError(t, err)

	t.Cleanup(a.Close)

	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return server
}

// uniqueUser returns credentials that cannot collide with earlier runs
// against the same database.
func uniqueUser() map[string]string {
	suffix := uuid.NewString()[:8]
	return map[string]string{
		"username": "user_" + suffix,
		"email":    "user_" + suffix + "@example.com",
		"password": "secret-" + suffix,
	}
}

func doJSON(t *testing.T, method string, url string, body any, token string) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
