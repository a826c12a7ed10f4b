package drafting

import (
	"context"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/metrics"
)

// Chain tries the primary drafter and falls back to the secondary when it
// fails. With the template drafter as secondary, Chain never returns an error.
type Chain struct {
	primary  Drafter
	fallback Drafter
	log      *logger.Logger
}

// NewChain composes a primary drafter with a fallback.
func NewChain(primary, fallback Drafter, log *logger.Logger) *Chain {
	return &Chain{primary: primary, fallback: fallback, log: log}
}

// DraftOffer renders a proposal, falling back to templates on failure.
func (c *Chain) DraftOffer(ctx context.Context, req OfferRequest) (*model.OfferContent, error) {
	content, err := c.primary.DraftOffer(ctx, req)
	if err == nil {
		return content, nil
	}

	c.log.WithLease(req.LeaseID).Warn("offer drafting failed, using template fallback", zap.Error(err))
	metrics.DraftFallbacks.WithLabelValues("draft_offer").Inc()

	content, ferr := c.fallback.DraftOffer(ctx, req)
	if ferr != nil {
		return nil, ferr
	}
	content.Fallback = true
	return content, nil
}

// AnalyzeReply classifies a message, falling back to keyword matching on failure.
func (c *Chain) AnalyzeReply(ctx context.Context, nctx NegotiationContext, message string) (*model.ReplyAnalysis, error) {
	analysis, err := c.primary.AnalyzeReply(ctx, nctx, message)
	if err == nil {
		return analysis, nil
	}

	c.log.Warn("reply analysis failed, using keyword fallback", zap.Error(err))
	metrics.DraftFallbacks.WithLabelValues("analyze_reply").Inc()

	analysis, ferr := c.fallback.AnalyzeReply(ctx, nctx, message)
	if ferr != nil {
		return nil, ferr
	}
	analysis.Fallback = true
	return analysis, nil
}
