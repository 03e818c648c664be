package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"zylorb/internal/model"
)

type storeProbe interface {
	Ping(ctx context.Context) error
	Backend() string
}

type HealthHandler struct {
	store   storeProbe
	version string
	now     func() time.Time
}

func NewHealthHandler(store storeProbe, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version, now: time.Now}
}

// Health always answers 200; the database field reports which backend is
// serving and whether it responded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	database := h.store.Backend()
	if err := h.store.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "health check: store unreachable", "backend", database, "error", err)
		database += " (unreachable)"
	}

	writeJSON(w, http.StatusOK, model.HealthResponse{
		Message:   "Server is running",
		Version:   h.version,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Database:  database,
	})
}
