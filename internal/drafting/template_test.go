package drafting

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

func testOfferRequest() OfferRequest {
	return OfferRequest{
		LeaseID:                "lease-1",
		TenantName:             "Maria Keller",
		Property:               "Hauptstraße 12, Berlin",
		LeaseStart:             time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		LeaseMonths:            24,
		CurrentRent:            decimal.NewFromInt(1000),
		MarketRent:             decimal.NewFromInt(1050),
		RecommendedIncreasePct: 4,
		PaymentReliabilityPct:  95,
	}
}

func testNegotiationContext() NegotiationContext {
	return NegotiationContext{
		TenantName:              "Maria Keller",
		ProposedRent:            decimal.NewFromInt(1040),
		OriginalRent:            decimal.NewFromInt(1000),
		LeaseEnd:                time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		FloorRent:               decimal.NewFromInt(1000),
		PreferredDurationMonths: 12,
	}
}

func TestTemplateDraftOffer(t *testing.T) {
	content, err := NewTemplateDrafter().DraftOffer(context.Background(), testOfferRequest())
	require.NoError(t, err)

	assert.True(t, content.Fallback)
	assert.NotEmpty(t, content.Subject)
	assert.NotEmpty(t, content.Body)
	assert.Equal(t, "warm and appreciative", content.Tone)

	require.Len(t, content.Options, 2)
	assert.Equal(t, 12, content.Options[0].DurationMonths)
	assert.Equal(t, 24, content.Options[1].DurationMonths)
	assert.True(t, content.Options[0].MonthlyRent.Equal(decimal.NewFromInt(1040)))
	assert.InDelta(t, 3.5, content.Options[1].IncreasePct, 1e-9)
}

func TestTemplateClassifiesAcceptance(t *testing.T) {
	analysis, err := NewTemplateDrafter().AnalyzeReply(context.Background(), testNegotiationContext(),
		"Yes, that sounds good to me!")
	require.NoError(t, err)

	assert.Equal(t, model.ClassAccepting, analysis.Classification)
	assert.True(t, analysis.ConcludeDeal)
	assert.False(t, analysis.TriggerRelisting)
	assert.True(t, analysis.Fallback)
	assert.NotEmpty(t, analysis.ResponseToTenant)
}

func TestTemplateClassifiesRefusal(t *testing.T) {
	analysis, err := NewTemplateDrafter().AnalyzeReply(context.Background(), testNegotiationContext(),
		"No, I'm moving out next month.")
	require.NoError(t, err)

	assert.Equal(t, model.ClassResistant, analysis.Classification)
	assert.True(t, analysis.TriggerRelisting)
	assert.False(t, analysis.ConcludeDeal)
	assert.Less(t, analysis.SentimentScore, 0.0)
}

func TestTemplateCountersAtNinetySevenPercent(t *testing.T) {
	nctx := testNegotiationContext()
	analysis, err := NewTemplateDrafter().AnalyzeReply(context.Background(), nctx,
		"Could you go a bit lower on the rent?")
	require.NoError(t, err)

	assert.Equal(t, model.ClassNegotiating, analysis.Classification)
	require.NotNil(t, analysis.SuggestedCounterRent)
	want := nctx.ProposedRent.Mul(decimal.NewFromFloat(0.97)).Round(2)
	assert.True(t, analysis.SuggestedCounterRent.Equal(want),
		"counter %s, want %s", analysis.SuggestedCounterRent, want)
}

func TestTemplateCounterClampsToFloor(t *testing.T) {
	nctx := testNegotiationContext()
	nctx.ProposedRent = decimal.NewFromInt(1010)
	nctx.FloorRent = decimal.NewFromInt(1005)

	analysis, err := NewTemplateDrafter().AnalyzeReply(context.Background(), nctx,
		"I'd like to negotiate the price")
	require.NoError(t, err)

	require.NotNil(t, analysis.SuggestedCounterRent)
	assert.True(t, analysis.SuggestedCounterRent.Equal(nctx.FloorRent))
}

func TestTemplateAsksForClarification(t *testing.T) {
	analysis, err := NewTemplateDrafter().AnalyzeReply(context.Background(), testNegotiationContext(),
		"Interesting. Let me think about it and talk to my partner.")
	require.NoError(t, err)

	assert.Equal(t, model.ClassUnclear, analysis.Classification)
	assert.Nil(t, analysis.SuggestedCounterRent)
	assert.False(t, analysis.ConcludeDeal)
	assert.False(t, analysis.TriggerRelisting)
}

func TestToneFor(t *testing.T) {
	assert.Equal(t, "warm and appreciative", ToneFor(95))
	assert.Equal(t, "professional and friendly", ToneFor(75))
	assert.Equal(t, "firm and professional", ToneFor(40))
}
