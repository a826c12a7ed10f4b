// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/middleware"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/negotiation"
	"github.com/renewal-ai/renewal-engine/internal/offer"
	"github.com/renewal-ai/renewal-engine/internal/pricing"
	"github.com/renewal-ai/renewal-engine/internal/scoring"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/internal/workflow"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// RenewalHandler handles the renewal engine endpoints.
type RenewalHandler struct {
	scoring      *scoring.Service
	pricing      *pricing.Service
	dispatcher   *offer.Service
	negotiation  *negotiation.Service
	orchestrator *workflow.Orchestrator
	offers       store.OfferStore
	scores       store.ScoreStore
	logs         store.NegotiationLogStore
	logger       *logger.Logger
}

// NewRenewalHandler creates a new renewal handler.
func NewRenewalHandler(
	scoringSvc *scoring.Service,
	pricingSvc *pricing.Service,
	dispatcher *offer.Service,
	negotiationSvc *negotiation.Service,
	orchestrator *workflow.Orchestrator,
	offers store.OfferStore,
	scores store.ScoreStore,
	logs store.NegotiationLogStore,
	log *logger.Logger,
) *RenewalHandler {
	return &RenewalHandler{
		scoring:      scoringSvc,
		pricing:      pricingSvc,
		dispatcher:   dispatcher,
		negotiation:  negotiationSvc,
		orchestrator: orchestrator,
		offers:       offers,
		scores:       scores,
		logs:         logs,
		logger:       log,
	}
}

// Simulate handles POST /api/v1/leases/{id}/simulate
func (h *RenewalHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "id")

	var req model.SimulateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	score, err := h.scoring.Score(r.Context(), leaseID, req.MarketRent)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	market := scoring.MarketRentOrDefault(decimal.NewFromFloat(score.Inputs.CurrentRent), req.MarketRent)
	report, err := h.pricing.SimulateForScore(r.Context(), score, market)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":  score,
		"report": report,
	})
}

// Initiate handles POST /api/v1/leases/{id}/initiate
func (h *RenewalHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "id")

	var req model.InitiateRenewalRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	off, err := h.dispatcher.Initiate(r.Context(), leaseID, req.MarketRent, req.Terms)
	if err != nil {
		h.logger.WithLease(leaseID).Error("initiation failed", zap.Error(err))
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, off)
}

// Scenarios handles GET /api/v1/leases/{id}/scenarios
func (h *RenewalHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	leaseID := chi.URLParam(r, "id")

	scenarios, err := h.scores.Scenarios(r.Context(), leaseID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// GetOffer handles GET /api/v1/offers/{id}
func (h *RenewalHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	off, err := h.offers.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, off)
}

// Reply handles POST /api/v1/offers/{id}/reply
func (h *RenewalHandler) Reply(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")

	var req model.TenantReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.negotiation.HandleReply(r.Context(), offerID, req.Message)
	if err != nil {
		h.logger.WithOffer(offerID).Error("reply processing failed", zap.Error(err))
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Decision handles POST /api/v1/offers/{id}/decision
func (h *RenewalHandler) Decision(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")

	var req model.LandlordDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Decision.Valid() {
		writeError(w, http.StatusBadRequest, "decision must be accept, counter, reject or escalate")
		return
	}

	off, err := h.negotiation.HandleLandlordDecision(r.Context(), offerID, req.Decision, req.CounterRent)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, off)
}

// FollowUp handles POST /api/v1/offers/{id}/follow-up
func (h *RenewalHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")

	if err := h.orchestrator.FollowUp(r.Context(), offerID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "follow-up sent"})
}

// NegotiationLog handles GET /api/v1/leases/{id}/negotiation-log
func (h *RenewalHandler) NegotiationLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.LogsForLease(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
