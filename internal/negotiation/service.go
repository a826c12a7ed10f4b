// Package negotiation is the autonomous state machine that processes occupant
// replies against a live offer within the landlord's guardrails.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/drafting"
	"github.com/renewal-ai/renewal-engine/internal/listing"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/offer"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/metrics"
)

// ErrOfferClosed is returned when a reply or decision targets a terminal offer.
var ErrOfferClosed = errors.New("offer is no longer open")

// holdingMessage is sent when a below-floor counter forces escalation. It
// must commit to nothing.
const holdingMessage = "Thank you for your message. Let me review your proposal with the property owner " +
	"and get back to you shortly with our best possible terms."

// TurnResult is the outcome of processing one occupant message.
type TurnResult struct {
	Offer     *model.RenewalOffer
	Analysis  *model.ReplyAnalysis
	LogEntry  *model.NegotiationLogEntry
	NewStatus model.OfferStatus
	ReplySent bool
	Escalated bool
}

// Service is the negotiation engine.
type Service struct {
	offers    store.OfferStore
	leases    store.LeaseStore
	logs      store.NegotiationLogStore
	feedback  store.FeedbackStore
	messages  store.MessageLogStore
	drafter   drafting.Drafter
	messenger messaging.Messenger
	relister  listing.Relister
	notifier  offer.Notifier
	log       *logger.Logger
	locks     *leaseLocks
	now       func() time.Time
}

// NewService wires the engine.
func NewService(
	offers store.OfferStore,
	leases store.LeaseStore,
	logs store.NegotiationLogStore,
	feedback store.FeedbackStore,
	messages store.MessageLogStore,
	drafter drafting.Drafter,
	messenger messaging.Messenger,
	relister listing.Relister,
	notifier offer.Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		offers:    offers,
		leases:    leases,
		logs:      logs,
		feedback:  feedback,
		messages:  messages,
		drafter:   drafter,
		messenger: messenger,
		relister:  relister,
		notifier:  notifier,
		log:       log,
		locks:     newLeaseLocks(),
		now:       time.Now,
	}
}

// HandleReply processes one inbound occupant message against an open offer.
// Turns for the same lease are serialized.
func (s *Service) HandleReply(ctx context.Context, offerID, message string) (*TurnResult, error) {
	off, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(off.LeaseID)
	defer unlock()

	// Reload under the lock; a concurrent turn may have advanced the offer.
	off, err = s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !off.Status.IsOpen() {
		return nil, fmt.Errorf("offer %s in status %s: %w", off.ID, off.Status, ErrOfferClosed)
	}

	if err := s.messages.AppendMessage(ctx, &model.MessageLog{
		LeaseID:   off.LeaseID,
		Direction: model.DirectionInbound,
		Body:      message,
	}); err != nil {
		return nil, err
	}

	analysis, err := s.drafter.AnalyzeReply(ctx, s.contextFor(off), message)
	if err != nil {
		return nil, err
	}

	escalated := s.enforceFloor(off, analysis)

	newStatus, counterRent := s.mapDecision(off, analysis)

	entry := &model.NegotiationLogEntry{
		OfferID:               off.ID,
		LeaseID:               off.LeaseID,
		TenantMessage:         message,
		SentimentScore:        analysis.SentimentScore,
		SentimentLabel:        analysis.SentimentLabel,
		Classification:        analysis.Classification,
		SuggestedResponse:     analysis.ResponseToTenant,
		SuggestedCounterRent:  analysis.SuggestedCounterRent,
		NewRenewalProbability: analysis.NewRenewalProbability,
		Analysis:              *analysis,
	}
	if err := s.logs.AppendLog(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.offers.UpdateNegotiation(ctx, off.ID, newStatus, s.now(), counterRent); err != nil {
		return nil, err
	}
	if counterRent != nil {
		off.ProposedRent = *counterRent
	}
	prevStatus := off.Status
	off.Status = newStatus

	if newStatus != prevStatus && !newStatus.IsOpen() {
		s.conclude(ctx, off)
	}
	if escalated || analysis.EscalateToLandlord {
		s.escalate(ctx, off, analysis, escalated)
	}
	if analysis.TriggerRelisting {
		if err := s.relister.Relist(ctx, off.LeaseID); err != nil {
			s.log.WithLease(off.LeaseID).Error("relist trigger failed", zap.Error(err))
		}
	}

	replySent := s.sendAutonomousReply(ctx, off, analysis)

	metrics.NegotiationTurns.WithLabelValues(string(analysis.Classification), string(newStatus)).Inc()
	s.log.WithLease(off.LeaseID).WithOffer(off.ID).Info("negotiation turn processed",
		zap.String("classification", string(analysis.Classification)),
		zap.String("status", string(newStatus)),
		zap.Bool("escalated", escalated || analysis.EscalateToLandlord),
		zap.Bool("fallback", analysis.Fallback))

	return &TurnResult{
		Offer:     off,
		Analysis:  analysis,
		LogEntry:  entry,
		NewStatus: newStatus,
		ReplySent: replySent,
		Escalated: escalated || analysis.EscalateToLandlord,
	}, nil
}

func (s *Service) contextFor(off *model.RenewalOffer) drafting.NegotiationContext {
	nctx := drafting.NegotiationContext{
		ProposedRent:            off.ProposedRent,
		FloorRent:               off.Terms.FloorRent,
		PreferredDurationMonths: off.Terms.PreferredDurationMonths,
		Concessions:             off.Terms.Concessions,
	}
	if off.Lease != nil {
		nctx.OriginalRent = off.Lease.MonthlyRent
		nctx.LeaseEnd = off.Lease.EndDate
		if off.Lease.Tenant != nil {
			nctx.TenantName = off.Lease.Tenant.FullName
		}
	}
	return nctx
}

// enforceFloor discards any counter below the embedded floor, forces an
// escalation and replaces the drafted reply with a neutral holding message.
// The engine must never commit, verbally or contractually, below the floor.
func (s *Service) enforceFloor(off *model.RenewalOffer, analysis *model.ReplyAnalysis) bool {
	if analysis.SuggestedCounterRent == nil {
		return false
	}
	if !analysis.SuggestedCounterRent.LessThan(off.Terms.FloorRent) {
		return false
	}

	s.log.WithLease(off.LeaseID).WithOffer(off.ID).Warn("counter below floor, forcing escalation",
		zap.String("counter", analysis.SuggestedCounterRent.String()),
		zap.String("floor", off.Terms.FloorRent.String()))

	analysis.SuggestedCounterRent = nil
	analysis.EscalateToLandlord = true
	if analysis.EscalationReason == "" {
		analysis.EscalationReason = "suggested counter below floor rent"
	}
	analysis.ConcludeDeal = false
	analysis.TriggerRelisting = false
	analysis.ResponseToTenant = holdingMessage
	return true
}

// mapDecision derives the next offer status and, for counters, the new
// proposed rent.
func (s *Service) mapDecision(off *model.RenewalOffer, analysis *model.ReplyAnalysis) (model.OfferStatus, *decimal.Decimal) {
	switch {
	case analysis.ConcludeDeal:
		return model.OfferAccepted, nil
	case analysis.TriggerRelisting:
		return model.OfferRejected, nil
	case analysis.Classification == model.ClassNegotiating && !analysis.EscalateToLandlord:
		var rent *decimal.Decimal
		if analysis.SuggestedCounterRent != nil && !analysis.SuggestedCounterRent.LessThan(off.Terms.FloorRent) {
			rent = analysis.SuggestedCounterRent
		}
		return model.OfferCountered, rent
	default:
		return off.Status, nil
	}
}

// conclude writes the outcome feedback row, tags the lease and notifies the
// landlord that the case is closed.
func (s *Service) conclude(ctx context.Context, off *model.RenewalOffer) {
	outcome := model.OutcomeChurned
	renewalStatus := model.RenewalNotRenewing
	category := model.NotifyConcludedFailed
	if off.Status == model.OfferAccepted {
		outcome = model.OutcomeRenewed
		renewalStatus = model.RenewalRenewing
		category = model.NotifyConcludedSuccess
	}

	fb := &model.OutcomeFeedback{
		LeaseID:            off.LeaseID,
		OfferID:            off.ID,
		IncreasePctOffered: s.offeredIncreasePct(off),
		Outcome:            outcome,
	}
	if outcome == model.OutcomeRenewed && off.Lease != nil && !off.Lease.MonthlyRent.IsZero() {
		accepted, _ := off.ProposedRent.Div(off.Lease.MonthlyRent).
			Sub(decimal.NewFromInt(1)).
			Mul(decimal.NewFromInt(100)).Float64()
		fb.IncreasePctAccepted = &accepted
	}
	if err := s.feedback.CreateFeedback(ctx, fb); err != nil {
		s.log.WithLease(off.LeaseID).Error("failed to write outcome feedback", zap.Error(err))
	}

	if err := s.leases.SetRenewalStatus(ctx, off.LeaseID, renewalStatus); err != nil {
		s.log.WithLease(off.LeaseID).Warn("failed to tag lease renewal status", zap.Error(err))
	}

	if off.Lease != nil && off.Lease.Unit != nil {
		msg := fmt.Sprintf("Renewal concluded for %s: tenant accepted €%s/month.",
			off.Lease.Unit.PropertyLabel(), off.ProposedRent.StringFixed(2))
		if outcome == model.OutcomeChurned {
			msg = fmt.Sprintf("Renewal concluded for %s: tenant is not renewing. The unit will be re-marketed.",
				off.Lease.Unit.PropertyLabel())
		}
		s.notifier.Notify(ctx, off.Lease.Unit.LandlordID, off.LeaseID, category, msg)
	}
}

func (s *Service) escalate(ctx context.Context, off *model.RenewalOffer, analysis *model.ReplyAnalysis, floorBreach bool) {
	reason := "model"
	if floorBreach {
		reason = "floor_breach"
	}
	metrics.Escalations.WithLabelValues(reason).Inc()

	if off.Lease == nil || off.Lease.Unit == nil {
		return
	}
	detail := analysis.EscalationReason
	if detail == "" {
		detail = "the negotiation needs your input"
	}
	msg := fmt.Sprintf("Negotiation for %s needs your attention: %s. Last tenant position: %s classification at €%s proposed.",
		off.Lease.Unit.PropertyLabel(), detail, analysis.Classification, off.ProposedRent.StringFixed(2))
	s.notifier.Notify(ctx, off.Lease.Unit.LandlordID, off.LeaseID, model.NotifyEscalation, msg)
}

// sendAutonomousReply delivers the drafted reply when the landlord granted
// autonomy and a reply plus a channel exist. The occupant only ever sees the
// drafted text.
func (s *Service) sendAutonomousReply(ctx context.Context, off *model.RenewalOffer, analysis *model.ReplyAnalysis) bool {
	if !off.Terms.AutoNegotiate || analysis.ResponseToTenant == "" {
		return false
	}
	_, destination := messaging.SelectChannel(tenantOf(off))
	if destination == "" && off.Channel != model.ChannelInApp {
		return false
	}

	err := s.messenger.Send(ctx, messaging.Message{
		LeaseID:     off.LeaseID,
		Channel:     off.Channel,
		Destination: destination,
		Body:        analysis.ResponseToTenant,
	})
	if err != nil {
		s.log.WithLease(off.LeaseID).Warn("autonomous reply delivery failed", zap.Error(err))
		return false
	}

	if err := s.messages.AppendMessage(ctx, &model.MessageLog{
		LeaseID:   off.LeaseID,
		Direction: model.DirectionOutbound,
		Body:      analysis.ResponseToTenant,
		Intent:    string(analysis.Classification),
	}); err != nil {
		s.log.WithLease(off.LeaseID).Warn("failed to log outbound reply", zap.Error(err))
	}
	return true
}

func (s *Service) offeredIncreasePct(off *model.RenewalOffer) float64 {
	if len(off.Content.Options) > 0 {
		return off.Content.Options[0].IncreasePct
	}
	if off.Lease == nil || off.Lease.MonthlyRent.IsZero() {
		return 0
	}
	pct, _ := off.ProposedRent.Div(off.Lease.MonthlyRent).
		Sub(decimal.NewFromInt(1)).
		Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

func tenantOf(off *model.RenewalOffer) *model.Tenant {
	if off.Lease == nil {
		return nil
	}
	return off.Lease.Tenant
}
