package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zylorb/internal/model"
)

type fakeProbe struct {
	backend string
	err     error
}

func (p fakeProbe) Ping(context.Context) error { return p.err }
func (p fakeProbe) Backend() string            { return p.backend }

func TestHealth(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := map[string]struct {
		probe    fakeProbe
		database string
	}{
		"memory":           {fakeProbe{backend: "memory"}, "memory"},
		"postgres":         {fakeProbe{backend: "postgres"}, "postgres"},
		"postgres is down": {fakeProbe{backend: "postgres", err: errors.New("refused")}, "postgres (unreachable)"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewHealthHandler(tc.probe, "1.2.3")
			h.now = func() time.Time { return fixed }

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body model.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Server is running", body.Message)
			assert.Equal(t, "1.2.3", body.Version)
			assert.Equal(t, "2026-03-14T09:26:53Z", body.Timestamp)
			assert.Equal(t, tc.database, body.Database)
		})
	}
}
