package drafting

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// TemplateDrafter is the deterministic fallback drafter. It fills the same
// content structure from templates and classifies replies by keyword matching,
// so the engine keeps functioning when the LLM collaborator is down.
type TemplateDrafter struct{}

// NewTemplateDrafter creates the fallback drafter.
func NewTemplateDrafter() *TemplateDrafter {
	return &TemplateDrafter{}
}

// DraftOffer renders the proposal from fixed templates. It never fails.
func (t *TemplateDrafter) DraftOffer(_ context.Context, req OfferRequest) (*model.OfferContent, error) {
	optionA, optionB := req.Options()
	optionA.Highlights = []string{"Price certainty for 1 year", "Standard terms apply"}
	optionB.Highlights = []string{"Lower rate for longer commitment", "Priority maintenance response"}

	marketRent, _ := req.MarketRent.Float64()

	return &model.OfferContent{
		Subject:  fmt.Sprintf("Your Lease Renewal at %s", req.Property),
		Greeting: fmt.Sprintf("Dear %s,", req.TenantName),
		Body: fmt.Sprintf(
			"We hope you have been enjoying your time at %s. "+
				"Your tenancy is due to expire soon and we would love for you to renew.\n\n"+
				"We are pleased to offer you the following renewal options based on current market conditions.",
			req.Property),
		MarketJustification: fmt.Sprintf(
			"Local market rents are currently at €%.0f/month, and our proposed rate remains competitive.",
			marketRent),
		AppreciationNote: "We genuinely value you as a tenant and appreciate your reliability.",
		Options:          []model.OfferOption{optionA, optionB},
		CallToAction:     "Please reply to confirm your preferred option within 14 days.",
		Closing:          "Kind regards, Your Property Management Team",
		Tone:             ToneFor(req.PaymentReliabilityPct),
		Fallback:         true,
	}, nil
}

var (
	acceptingWords   = []string{"yes", "accept", "agree", "happy", "sounds good", "fine", "ok", "okay"}
	resistantWords   = []string{"no", "too high", "can't afford", "cant afford", "move", "leave", "reject", "not renewing"}
	negotiatingWords = []string{"lower", "less", "negotiate", "offer", "counter", "€", "euro"}
)

// AnalyzeReply classifies a message by keyword matching. It never fails.
func (t *TemplateDrafter) AnalyzeReply(_ context.Context, nctx NegotiationContext, message string) (*model.ReplyAnalysis, error) {
	msg := strings.ToLower(message)

	switch {
	case containsAny(msg, acceptingWords):
		return &model.ReplyAnalysis{
			Classification:        model.ClassAccepting,
			SentimentScore:        0.7,
			SentimentLabel:        "positive",
			NewRenewalProbability: 0.88,
			ResponseToTenant: "Wonderful! I'm so glad we've reached an agreement. " +
				"I'll prepare your renewal documents and send them over shortly. " +
				"Thank you for your continued tenancy!",
			ConcludeDeal: true,
			Urgency:      "low",
			Fallback:     true,
		}, nil

	case containsAny(msg, resistantWords):
		return &model.ReplyAnalysis{
			Classification:        model.ClassResistant,
			SentimentScore:        -0.6,
			SentimentLabel:        "negative",
			NewRenewalProbability: 0.10,
			ResponseToTenant: "Thank you for letting us know. We're sorry to see you go. " +
				"We'll begin the move-out process and someone will be in touch regarding the handover. " +
				"We hope we can welcome you back in the future!",
			TriggerRelisting: true,
			Urgency:          "high",
			Fallback:         true,
		}, nil

	case containsAny(msg, negotiatingWords):
		counter := nctx.ProposedRent.Mul(decimal.NewFromFloat(0.97)).Round(2)
		if counter.LessThan(nctx.FloorRent) {
			counter = nctx.FloorRent
		}
		counterF, _ := counter.Float64()
		return &model.ReplyAnalysis{
			Classification:        model.ClassNegotiating,
			SentimentScore:        0.0,
			SentimentLabel:        "neutral",
			NewRenewalProbability: 0.55,
			SuggestedCounterRent:  &counter,
			ResponseToTenant: fmt.Sprintf(
				"Thank you for your feedback. We've reviewed our position and can offer a revised rent of "+
					"€%.0f/month, which is the best we can do given current market conditions. "+
					"Would you like to proceed on this basis?", counterF),
			Urgency:  "medium",
			Fallback: true,
		}, nil

	default:
		return &model.ReplyAnalysis{
			Classification:        model.ClassUnclear,
			SentimentScore:        0.0,
			SentimentLabel:        "neutral",
			NewRenewalProbability: 0.50,
			ResponseToTenant: "Thank you for your message. Could you please clarify whether you'd like to " +
				"renew your lease? A simple 'yes' to renew or 'no' if you're planning to move out would " +
				"help us proceed.",
			Urgency:  "medium",
			Fallback: true,
		}, nil
	}
}

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
