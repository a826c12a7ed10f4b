// Package drafting turns structured renewal parameters into occupant-facing
// text and classifies occupant replies. The LLM-backed drafter and the
// deterministic template drafter implement the same interface; Chain composes
// them so callers always get displayable content.
package drafting

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// ErrUnavailable is returned when the drafting collaborator fails or returns
// a malformed response. Callers recover via the template drafter.
var ErrUnavailable = errors.New("drafting collaborator unavailable")

// OfferRequest is the structured input for drafting a renewal proposal.
type OfferRequest struct {
	LeaseID                string
	TenantName             string
	Property               string
	LeaseStart             time.Time
	LeaseMonths            float64
	CurrentRent            decimal.Decimal
	MarketRent             decimal.Decimal
	RecommendedIncreasePct float64
	PaymentReliabilityPct  float64
	OpenMaintenanceCount   int
}

// Options derives the two renewal options proposed to the occupant: a
// 12-month term at the recommended increase and a 24-month loyalty rate at
// half a point less.
func (r OfferRequest) Options() (model.OfferOption, model.OfferOption) {
	inc12 := r.RecommendedIncreasePct
	inc24 := inc12 - 0.5
	if inc24 < 0 {
		inc24 = 0
	}

	rent12 := applyIncrease(r.CurrentRent, inc12)
	rent24 := applyIncrease(r.CurrentRent, inc24)

	optionA := model.OfferOption{
		Label:          "12-Month Renewal",
		MonthlyRent:    rent12,
		DurationMonths: 12,
		IncreasePct:    inc12,
	}
	optionB := model.OfferOption{
		Label:          "24-Month Renewal (Loyalty Rate)",
		MonthlyRent:    rent24,
		DurationMonths: 24,
		IncreasePct:    inc24,
	}
	return optionA, optionB
}

// NegotiationContext is the structured state handed to reply analysis.
type NegotiationContext struct {
	TenantName              string
	ProposedRent            decimal.Decimal
	OriginalRent            decimal.Decimal
	LeaseEnd                time.Time
	FloorRent               decimal.Decimal
	PreferredDurationMonths int
	Concessions             string
}

// Drafter produces proposal content and reply analyses.
type Drafter interface {
	// DraftOffer renders a renewal proposal from structured parameters.
	DraftOffer(ctx context.Context, req OfferRequest) (*model.OfferContent, error)

	// AnalyzeReply classifies one occupant message against a live offer.
	AnalyzeReply(ctx context.Context, nctx NegotiationContext, message string) (*model.ReplyAnalysis, error)
}

// ToneFor maps payment reliability to the voice used in drafted content.
func ToneFor(paymentReliabilityPct float64) string {
	switch {
	case paymentReliabilityPct >= 90:
		return "warm and appreciative"
	case paymentReliabilityPct >= 70:
		return "professional and friendly"
	default:
		return "firm and professional"
	}
}

func applyIncrease(rent decimal.Decimal, pct float64) decimal.Decimal {
	factor := decimal.NewFromFloat(1 + pct/100)
	return rent.Mul(factor).Round(2)
}
