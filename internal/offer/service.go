// Package offer turns a scored, priced lease into a dispatched renewal
// proposal with the landlord's terms embedded.
package offer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/drafting"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/pricing"
	"github.com/renewal-ai/renewal-engine/internal/scoring"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/metrics"
)

// Notifier records a landlord notification. Failures are the notifier's
// problem; the dispatcher treats it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, landlordID, leaseID string, category model.NotificationCategory, message string)
}

// Service is the offer dispatcher.
type Service struct {
	leases    store.LeaseStore
	offers    store.OfferStore
	scoring   *scoring.Service
	pricing   *pricing.Service
	drafter   drafting.Drafter
	messenger messaging.Messenger
	notifier  Notifier
	cfg       config.EngineConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewService wires the dispatcher.
func NewService(
	leases store.LeaseStore,
	offers store.OfferStore,
	scoringSvc *scoring.Service,
	pricingSvc *pricing.Service,
	drafter drafting.Drafter,
	messenger messaging.Messenger,
	notifier Notifier,
	cfg config.EngineConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		leases:    leases,
		offers:    offers,
		scoring:   scoringSvc,
		pricing:   pricingSvc,
		drafter:   drafter,
		messenger: messenger,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Initiate scores and prices the lease, drafts a proposal, persists it with
// the landlord's terms embedded, and dispatches it unless confidence is below
// the auto-send threshold. The proposed rent is raised to the floor before
// anything is stored.
func (s *Service) Initiate(ctx context.Context, leaseID string, marketRent *decimal.Decimal, terms *model.LandlordTerms) (*model.RenewalOffer, error) {
	lease, err := s.leases.Get(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if open, err := s.offers.OpenOffer(ctx, leaseID); err == nil && open != nil {
		return nil, fmt.Errorf("lease %s: %w", leaseID, store.ErrOpenOfferExists)
	}

	score, err := s.scoring.Score(ctx, leaseID, marketRent)
	if err != nil {
		return nil, err
	}
	market := scoring.MarketRentOrDefault(lease.MonthlyRent, marketRent)
	report, err := s.pricing.SimulateForScore(ctx, score, market)
	if err != nil {
		return nil, err
	}

	openTickets, err := s.leases.OpenMaintenanceCount(ctx, leaseID)
	if err != nil {
		return nil, err
	}

	reliability := score.Features.PaymentHistory * 100
	req := drafting.OfferRequest{
		LeaseID:                leaseID,
		TenantName:             tenantName(lease),
		Property:               propertyLabel(lease),
		LeaseStart:             lease.StartDate,
		LeaseMonths:            score.Inputs.LeaseMonths,
		CurrentRent:            lease.MonthlyRent,
		MarketRent:             market,
		RecommendedIncreasePct: report.Recommended.IncreasePct,
		PaymentReliabilityPct:  reliability,
		OpenMaintenanceCount:   int(openTickets),
	}

	content, err := s.drafter.DraftOffer(ctx, req)
	if err != nil {
		return nil, err
	}

	proposedRent := lease.MonthlyRent.
		Mul(decimal.NewFromFloat(1 + report.Recommended.IncreasePct/100)).
		Round(2)

	offerTerms := model.DefaultTerms(proposedRent)
	if terms != nil {
		if err := terms.Validate(); err != nil {
			return nil, err
		}
		offerTerms = *terms
	}
	if proposedRent.LessThan(offerTerms.FloorRent) {
		proposedRent = offerTerms.FloorRent
	}

	channel, destination := messaging.SelectChannel(lease.Tenant)
	requiresApproval := score.ConfidenceScore < s.cfg.MinConfidenceToAutoSend

	off := &model.RenewalOffer{
		LeaseID:          leaseID,
		ProposedRent:     proposedRent,
		DurationMonths:   offerTerms.PreferredDurationMonths,
		Channel:          channel,
		Content:          *content,
		Terms:            offerTerms,
		RequiresApproval: requiresApproval,
		Status:           model.OfferPending,
	}
	if err := s.offers.CreateOffer(ctx, off); err != nil {
		return nil, err
	}

	if err := s.leases.SetRenewalStatus(ctx, leaseID, model.RenewalPending); err != nil {
		s.log.WithLease(leaseID).Warn("failed to tag lease renewal status", zap.Error(err))
	}

	sent := false
	if !requiresApproval {
		err := s.messenger.Send(ctx, messaging.Message{
			LeaseID:     leaseID,
			Channel:     channel,
			Destination: destination,
			Subject:     content.Subject,
			Body:        RenderBody(content),
		})
		if err != nil {
			s.log.WithLease(leaseID).Warn("offer delivery failed, left unsent",
				zap.String("channel", string(channel)), zap.Error(err))
		} else {
			if err := s.offers.MarkSent(ctx, off.ID, s.now()); err != nil {
				return nil, err
			}
			now := s.now()
			off.SentAt = &now
			sent = true
		}
	}
	metrics.OffersDispatched.WithLabelValues(string(channel), fmt.Sprintf("%t", sent)).Inc()

	s.notifyInitiated(ctx, lease, off, score, report)

	s.log.WithLease(leaseID).WithOffer(off.ID).Info("renewal offer created",
		zap.String("proposed_rent", proposedRent.String()),
		zap.Float64("increase_pct", report.Recommended.IncreasePct),
		zap.Bool("sent", sent),
		zap.Bool("requires_approval", requiresApproval))

	return off, nil
}

func (s *Service) notifyInitiated(ctx context.Context, lease *model.Lease, off *model.RenewalOffer, score *model.RenewalScore, report *pricing.Report) {
	if lease.Unit == nil {
		return
	}
	msg := fmt.Sprintf(
		"Renewal initiated for %s: proposed rent €%s (%.1f%% increase), renewal probability %.0f%%.",
		propertyLabel(lease), off.ProposedRent.StringFixed(2),
		report.Recommended.IncreasePct, score.RenewalProbability*100)
	if off.RequiresApproval {
		msg += " Confidence is low; the offer is held for your approval before sending."
	}
	s.notifier.Notify(ctx, lease.Unit.LandlordID, lease.ID, model.NotifyRenewalInitiated, msg)
}

// RenderBody flattens drafted content into a single message body.
func RenderBody(c *model.OfferContent) string {
	var b strings.Builder
	if c.Greeting != "" {
		b.WriteString(c.Greeting + "\n\n")
	}
	b.WriteString(c.Body + "\n\n")
	for _, opt := range c.Options {
		fmt.Fprintf(&b, "• %s: €%s/month for %d months (%.1f%% change)\n",
			opt.Label, opt.MonthlyRent.StringFixed(2), opt.DurationMonths, opt.IncreasePct)
	}
	if c.MarketJustification != "" {
		b.WriteString("\n" + c.MarketJustification + "\n")
	}
	if c.AppreciationNote != "" {
		b.WriteString("\n" + c.AppreciationNote + "\n")
	}
	if c.CallToAction != "" {
		b.WriteString("\n" + c.CallToAction + "\n")
	}
	if c.Closing != "" {
		b.WriteString("\n" + c.Closing)
	}
	return b.String()
}

func tenantName(lease *model.Lease) string {
	if lease.Tenant != nil {
		return lease.Tenant.FullName
	}
	return "Tenant"
}

func propertyLabel(lease *model.Lease) string {
	if lease.Unit != nil {
		return lease.Unit.PropertyLabel()
	}
	return "your home"
}
