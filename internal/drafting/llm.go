package drafting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/llm"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/metrics"
)

// LLMDrafter asks an LLM for structured proposal content and reply analyses.
// Malformed responses are surfaced as ErrUnavailable so the caller can fall
// back to the template drafter.
type LLMDrafter struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewLLMDrafter creates an LLM-backed drafter. An empty model uses the
// provider's default.
func NewLLMDrafter(client llm.Client, model string, timeout time.Duration, log *logger.Logger) *LLMDrafter {
	return &LLMDrafter{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  log,
	}
}

// DraftOffer renders a renewal proposal from structured parameters.
func (d *LLMDrafter) DraftOffer(ctx context.Context, req OfferRequest) (*model.OfferContent, error) {
	start := time.Now()

	resp, err := d.complete(ctx, buildOfferPrompt(req), 1500, 0.4)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordDraft("offer", d.client.Name(), time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	var content model.OfferContent
	if err := decodeJSON(resp.Content, &content); err != nil {
		d.logger.Warn("offer draft was not valid JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(content.Options) == 0 || content.Body == "" {
		return nil, fmt.Errorf("%w: drafted offer is missing required sections", ErrUnavailable)
	}
	return &content, nil
}

// AnalyzeReply classifies one occupant message against a live offer.
func (d *LLMDrafter) AnalyzeReply(ctx context.Context, nctx NegotiationContext, message string) (*model.ReplyAnalysis, error) {
	start := time.Now()

	resp, err := d.complete(ctx, buildNegotiationPrompt(nctx, message), 800, 0.3)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	metrics.RecordDraft("analysis", d.client.Name(), time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	var analysis model.ReplyAnalysis
	if err := decodeJSON(resp.Content, &analysis); err != nil {
		d.logger.Warn("reply analysis was not valid JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := analysis.Validate(); err != nil {
		d.logger.Warn("reply analysis failed validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &analysis, nil
}

func (d *LLMDrafter) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (*llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return d.client.Complete(ctx, &llm.CompletionRequest{
		Model:       d.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
}

// decodeJSON parses an LLM response body, tolerating markdown code fences.
func decodeJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		parts := strings.SplitN(raw, "```", 3)
		if len(parts) >= 2 {
			raw = parts[1]
		}
		raw = strings.TrimPrefix(raw, "json")
		raw = strings.TrimSpace(raw)
	}
	return json.Unmarshal([]byte(raw), v)
}

func buildOfferPrompt(req OfferRequest) string {
	optionA, optionB := req.Options()
	tone := ToneFor(req.PaymentReliabilityPct)

	rent12, _ := optionA.MonthlyRent.Float64()
	rent24, _ := optionB.MonthlyRent.Float64()
	marketRent, _ := req.MarketRent.Float64()
	currentRent, _ := req.CurrentRent.Float64()

	vsMarketPct := 0.0
	if marketRent > 0 {
		vsMarketPct = (rent12 - marketRent) / marketRent * 100
	}

	var b strings.Builder
	b.WriteString("You are a professional property manager drafting a lease renewal proposal.\n\n")
	fmt.Fprintf(&b, "TENANT CONTEXT:\n")
	fmt.Fprintf(&b, "- Name: %s\n", req.TenantName)
	fmt.Fprintf(&b, "- Property: %s\n", req.Property)
	fmt.Fprintf(&b, "- Tenancy started: %s\n", req.LeaseStart.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Tenancy duration: %.0f months\n", req.LeaseMonths)
	fmt.Fprintf(&b, "- Current rent: €%.0f/month\n", currentRent)
	fmt.Fprintf(&b, "- Payment reliability: %.0f%% on-time payments\n", req.PaymentReliabilityPct)
	fmt.Fprintf(&b, "- Open maintenance tickets: %d\n\n", req.OpenMaintenanceCount)
	fmt.Fprintf(&b, "RENEWAL OPTIONS TO PROPOSE:\n")
	fmt.Fprintf(&b, "- Option A (12-month): €%.0f/month (+%.1f%% from current)\n", rent12, optionA.IncreasePct)
	fmt.Fprintf(&b, "- Option B (24-month): €%.0f/month (+%.1f%% from current, discount for longer commitment)\n\n", rent24, optionB.IncreasePct)
	fmt.Fprintf(&b, "MARKET DATA:\n")
	fmt.Fprintf(&b, "- Local market median rent: €%.0f/month\n", marketRent)
	fmt.Fprintf(&b, "- Your proposed rent vs market: %+.1f%%\n\n", vsMarketPct)
	fmt.Fprintf(&b, "TONE GUIDANCE:\n")
	fmt.Fprintf(&b, "- Tone: %s\n", tone)
	b.WriteString("- Always thank the tenant for their tenancy\n")
	b.WriteString("- Mention market data to justify any increase\n")
	b.WriteString("- Keep it under 300 words\n\n")
	b.WriteString(`Return ONLY valid JSON with this structure:
{
  "subject": "string",
  "greeting": "string",
  "body": "string (2-3 paragraphs, no HTML)",
  "market_justification": "string, 1 sentence citing market data",
  "appreciation_note": "string",
  "options": [
    {"label": "12-Month Renewal", "monthly_rent": ` + fmt.Sprintf("%.0f", rent12) + `, "duration_months": 12, "increase_pct": ` + fmt.Sprintf("%.1f", optionA.IncreasePct) + `, "highlights": ["string", "string"]},
    {"label": "24-Month Renewal (Loyalty Rate)", "monthly_rent": ` + fmt.Sprintf("%.0f", rent24) + `, "duration_months": 24, "increase_pct": ` + fmt.Sprintf("%.1f", optionB.IncreasePct) + `, "highlights": ["string", "string"]}
  ],
  "call_to_action": "string",
  "closing": "string",
  "tone": "` + tone + `"
}`)
	return b.String()
}

func buildNegotiationPrompt(nctx NegotiationContext, message string) string {
	proposed, _ := nctx.ProposedRent.Float64()
	original, _ := nctx.OriginalRent.Float64()
	floor, _ := nctx.FloorRent.Float64()

	increasePct := 0.0
	if original > 0 {
		increasePct = (proposed - original) / original * 100
	}

	concessions := "No special concessions available."
	if nctx.Concessions != "" {
		concessions = "Landlord is willing to offer: " + nctx.Concessions + "."
	}

	var b strings.Builder
	b.WriteString("You are an autonomous property management negotiation agent. You negotiate lease renewals on behalf of the landlord.\n\n")
	b.WriteString("LANDLORD'S NON-NEGOTIABLE TERMS:\n")
	fmt.Fprintf(&b, "- Minimum acceptable rent: €%.0f/month (NEVER agree below this)\n", floor)
	fmt.Fprintf(&b, "- Preferred lease duration: %d months\n", nctx.PreferredDurationMonths)
	fmt.Fprintf(&b, "- %s\n\n", concessions)
	b.WriteString("CURRENT SITUATION:\n")
	fmt.Fprintf(&b, "- Tenant: %s\n", nctx.TenantName)
	fmt.Fprintf(&b, "- Current rent: €%.0f/month\n", original)
	fmt.Fprintf(&b, "- Proposed renewal rent: €%.0f/month (+%.1f%%)\n", proposed, increasePct)
	fmt.Fprintf(&b, "- Lease expires: %s\n\n", nctx.LeaseEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "TENANT'S LATEST MESSAGE:\n%q\n\n", message)
	b.WriteString(`Your task: analyse the tenant's message and decide the best autonomous action. Return ONLY valid JSON:
{
  "sentiment_score": float between -1.0 and 1.0,
  "sentiment_label": "positive" | "neutral" | "negative",
  "classification": "accepting" | "negotiating" | "resistant" | "unclear",
  "classification_reasoning": "brief explanation",
  "new_renewal_probability": float 0.0-1.0,
  "suggested_counter_rent": float or null (must be >= ` + fmt.Sprintf("%.0f", floor) + ` if negotiating),
  "response_to_tenant": "The exact message to send to the tenant. Warm, professional, 2-3 sentences max.",
  "conclude_deal": boolean (true if tenant is accepting at or above floor rent),
  "trigger_relisting": boolean (true only if tenant is firmly refusing and there is no path to agreement),
  "escalate_to_landlord": boolean (true ONLY if the situation cannot be resolved autonomously),
  "escalation_reason": "string or null",
  "urgency": "low" | "medium" | "high"
}`)
	return b.String()
}
