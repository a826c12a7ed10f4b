package handler

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/workflow"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// SweepHandler exposes the orchestrator sweep to an external scheduler.
type SweepHandler struct {
	orchestrator *workflow.Orchestrator
	secret       string
	logger       *logger.Logger
}

// NewSweepHandler creates a new sweep handler.
func NewSweepHandler(orchestrator *workflow.Orchestrator, secret string, log *logger.Logger) *SweepHandler {
	return &SweepHandler{
		orchestrator: orchestrator,
		secret:       secret,
		logger:       log,
	}
}

// Run handles POST /internal/sweep, authenticated by a shared secret.
func (h *SweepHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeError(w, http.StatusServiceUnavailable, "sweep endpoint disabled")
		return
	}
	provided := r.Header.Get("X-Sweep-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid sweep secret")
		return
	}

	summary, err := h.orchestrator.Sweep(r.Context())
	if err != nil {
		h.logger.Error("sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
