package model

import (
	"github.com/shopspring/decimal"
)

// SimulateRequest is the request to score and simulate a lease on demand.
type SimulateRequest struct {
	MarketRent *decimal.Decimal `json:"market_rent,omitempty"`
}

// InitiateRenewalRequest is the request to start the renewal workflow for a lease.
type InitiateRenewalRequest struct {
	MarketRent *decimal.Decimal `json:"market_rent,omitempty"`
	Terms      *LandlordTerms   `json:"terms,omitempty"`
}

// TenantReplyRequest carries a raw occupant message against an offer.
type TenantReplyRequest struct {
	Message string `json:"message"`
}

// LandlordDecision is a landlord's manual call on an offer.
type LandlordDecision string

const (
	DecisionAccept   LandlordDecision = "accept"
	DecisionCounter  LandlordDecision = "counter"
	DecisionReject   LandlordDecision = "reject"
	DecisionEscalate LandlordDecision = "escalate"
)

// Valid reports whether the decision is one of the known values.
func (d LandlordDecision) Valid() bool {
	switch d {
	case DecisionAccept, DecisionCounter, DecisionReject, DecisionEscalate:
		return true
	}
	return false
}

// LandlordDecisionRequest is the request body for the decision endpoint.
type LandlordDecisionRequest struct {
	Decision    LandlordDecision `json:"decision"`
	CounterRent *decimal.Decimal `json:"counter_rent,omitempty"`
	Notes       string           `json:"notes,omitempty"`
}
