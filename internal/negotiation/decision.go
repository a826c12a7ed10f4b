package negotiation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/offer"
)

// ErrCounterBelowFloor is returned when a landlord counters under their own floor.
var ErrCounterBelowFloor = fmt.Errorf("counter rent is below the offer's floor rent")

// HandleLandlordDecision applies a landlord's verdict on an offer. Accepting
// an unsent held offer dispatches it instead of closing the deal.
func (s *Service) HandleLandlordDecision(ctx context.Context, offerID string, decision model.LandlordDecision, counterRent *decimal.Decimal) (*model.RenewalOffer, error) {
	off, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(off.LeaseID)
	defer unlock()

	off, err = s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !off.Status.IsOpen() {
		return nil, fmt.Errorf("offer %s in status %s: %w", off.ID, off.Status, ErrOfferClosed)
	}

	switch decision {
	case model.DecisionAccept:
		if off.SentAt == nil && off.RequiresApproval {
			return s.approveAndDispatch(ctx, off)
		}
		if err := s.offers.UpdateNegotiation(ctx, off.ID, model.OfferAccepted, s.now(), nil); err != nil {
			return nil, err
		}
		off.Status = model.OfferAccepted
		s.conclude(ctx, off)
		s.messageTenant(ctx, off, fmt.Sprintf(
			"Good news! Your renewal at €%s/month has been confirmed. We'll send the paperwork shortly.",
			off.ProposedRent.StringFixed(2)))

	case model.DecisionCounter:
		if counterRent == nil {
			return nil, fmt.Errorf("counter decision requires a counter rent")
		}
		if counterRent.LessThan(off.Terms.FloorRent) {
			return nil, fmt.Errorf("counter %s vs floor %s: %w",
				counterRent.StringFixed(2), off.Terms.FloorRent.StringFixed(2), ErrCounterBelowFloor)
		}
		if err := s.offers.UpdateNegotiation(ctx, off.ID, model.OfferCountered, s.now(), counterRent); err != nil {
			return nil, err
		}
		off.Status = model.OfferCountered
		off.ProposedRent = *counterRent
		s.messageTenant(ctx, off, fmt.Sprintf(
			"After reviewing your request, we can offer a revised rent of €%s/month. Would you like to proceed?",
			counterRent.StringFixed(2)))

	case model.DecisionReject:
		if err := s.offers.UpdateNegotiation(ctx, off.ID, model.OfferRejected, s.now(), nil); err != nil {
			return nil, err
		}
		off.Status = model.OfferRejected
		s.conclude(ctx, off)
		if err := s.relister.Relist(ctx, off.LeaseID); err != nil {
			s.log.WithLease(off.LeaseID).Error("relist trigger failed", zap.Error(err))
		}

	case model.DecisionEscalate:
		// Landlord is taking over manually; the offer stays where it is.

	default:
		return nil, fmt.Errorf("unknown landlord decision %q", decision)
	}

	if entry, err := s.logs.LatestLog(ctx, off.ID); err == nil {
		if err := s.logs.StampLandlordDecision(ctx, entry.ID, string(decision), s.now()); err != nil {
			s.log.WithOffer(off.ID).Warn("failed to stamp landlord decision", zap.Error(err))
		}
	}

	s.log.WithLease(off.LeaseID).WithOffer(off.ID).Info("landlord decision applied",
		zap.String("decision", string(decision)),
		zap.String("status", string(off.Status)))
	return off, nil
}

// approveAndDispatch sends a low-confidence offer the landlord has approved.
func (s *Service) approveAndDispatch(ctx context.Context, off *model.RenewalOffer) (*model.RenewalOffer, error) {
	_, destination := messaging.SelectChannel(tenantOf(off))
	err := s.messenger.Send(ctx, messaging.Message{
		LeaseID:     off.LeaseID,
		Channel:     off.Channel,
		Destination: destination,
		Subject:     off.Content.Subject,
		Body:        offer.RenderBody(&off.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch approved offer: %w", err)
	}
	if err := s.offers.MarkSent(ctx, off.ID, s.now()); err != nil {
		return nil, err
	}
	now := s.now()
	off.SentAt = &now

	s.log.WithLease(off.LeaseID).WithOffer(off.ID).Info("held offer approved and dispatched",
		zap.String("channel", string(off.Channel)))
	return off, nil
}

func (s *Service) messageTenant(ctx context.Context, off *model.RenewalOffer, body string) {
	_, destination := messaging.SelectChannel(tenantOf(off))
	err := s.messenger.Send(ctx, messaging.Message{
		LeaseID:     off.LeaseID,
		Channel:     off.Channel,
		Destination: destination,
		Body:        body,
	})
	if err != nil {
		s.log.WithLease(off.LeaseID).Warn("tenant notification failed", zap.Error(err))
		return
	}
	if err := s.messages.AppendMessage(ctx, &model.MessageLog{
		LeaseID:   off.LeaseID,
		Direction: model.DirectionOutbound,
		Body:      body,
		Intent:    "landlord_decision",
	}); err != nil {
		s.log.WithLease(off.LeaseID).Warn("failed to log outbound message", zap.Error(err))
	}
}
