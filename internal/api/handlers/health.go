package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	client   *client.Client
	sessions *session.Store
	logger   *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(c *client.Client, sessions *session.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		client:   c,
		sessions: sessions,
		logger:   log,
	}
}

// Healthz handles the liveness probe
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

// Readyz reports ready once the Remote Pull Runner API answers its own
// health check
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health, err := h.client.Health(ctx)
	if err != nil {
		h.logger.ErrorWithErr(err, "Backend health check failed")
		utils.WriteError(w, errors.New("SERVICE_UNAVAILABLE", "Backend unavailable", http.StatusServiceUnavailable))
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ready",
		"backend": health.Status,
	})
}
