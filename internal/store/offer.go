package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// CreateOffer persists a new offer after guarding against a second open offer
// for the same lease. The guard and the insert run in one transaction.
func (s *Store) CreateOffer(ctx context.Context, offer *model.RenewalOffer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.RenewalOffer{}).
			Where("lease_id = ? AND status IN ?", offer.LeaseID,
				[]model.OfferStatus{model.OfferPending, model.OfferCountered}).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("lease %s: %w", offer.LeaseID, ErrOpenOfferExists)
		}
		return tx.Create(offer).Error
	})
}

// GetOffer loads an offer with its lease, tenant and unit.
func (s *Store) GetOffer(ctx context.Context, id string) (*model.RenewalOffer, error) {
	var offer model.RenewalOffer
	err := s.db.WithContext(ctx).
		Preload("Lease").
		Preload("Lease.Unit").
		Preload("Lease.Tenant").
		First(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// OpenOffer returns the lease's open (pending or countered) offer, if any.
func (s *Store) OpenOffer(ctx context.Context, leaseID string) (*model.RenewalOffer, error) {
	var offer model.RenewalOffer
	err := s.db.WithContext(ctx).
		Where("lease_id = ? AND status IN ?", leaseID,
			[]model.OfferStatus{model.OfferPending, model.OfferCountered}).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("open offer for lease %s: %w", leaseID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// HasAnyOffer reports whether the lease ever had an offer, regardless of
// status. One proposal cycle per renewal window.
func (s *Store) HasAnyOffer(ctx context.Context, leaseID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.RenewalOffer{}).
		Where("lease_id = ?", leaseID).
		Count(&count).Error
	return count > 0, err
}

// MarkSent stamps the confirmed-delivery time on an offer.
func (s *Store) MarkSent(ctx context.Context, offerID string, at time.Time) error {
	return s.updateOffer(ctx, offerID, map[string]any{"sent_at": at})
}

// RecordFollowUp stamps a follow-up send and bumps the counter.
func (s *Store) RecordFollowUp(ctx context.Context, offerID string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.RenewalOffer{}).
		Where("id = ?", offerID).
		Updates(map[string]any{
			"follow_up_sent_at": at,
			"follow_up_count":   gorm.Expr("follow_up_count + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}
	return nil
}

// UpdateNegotiation applies the outcome of one negotiation turn: new status,
// response time and, for counters, the revised proposed rent. The status
// transition is validated inside the transaction against the current row.
func (s *Store) UpdateNegotiation(ctx context.Context, offerID string, status model.OfferStatus, respondedAt time.Time, proposedRent *decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RenewalOffer
		if err := tx.First(&current, "id = ?", offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
			}
			return err
		}
		if !current.Status.CanTransitionTo(status) {
			return fmt.Errorf("%s -> %s: %w", current.Status, status, ErrInvalidTransition)
		}
		updates := map[string]any{
			"status":       status,
			"responded_at": respondedAt,
		}
		if proposedRent != nil {
			if proposedRent.LessThan(current.Terms.FloorRent) {
				return fmt.Errorf("proposed rent %s below floor %s: %w",
					proposedRent, current.Terms.FloorRent, ErrInvalidTransition)
			}
			updates["proposed_rent"] = *proposedRent
		}
		return tx.Model(&model.RenewalOffer{}).Where("id = ?", offerID).Updates(updates).Error
	})
}

// SetStatus moves an offer to a new status, validating the transition.
func (s *Store) SetStatus(ctx context.Context, offerID string, status model.OfferStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RenewalOffer
		if err := tx.First(&current, "id = ?", offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
			}
			return err
		}
		if !current.Status.CanTransitionTo(status) {
			return fmt.Errorf("%s -> %s: %w", current.Status, status, ErrInvalidTransition)
		}
		return tx.Model(&model.RenewalOffer{}).Where("id = ?", offerID).Update("status", status).Error
	})
}

// SetProposedRent updates the proposal amount, enforcing the embedded floor.
func (s *Store) SetProposedRent(ctx context.Context, offerID string, rent decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RenewalOffer
		if err := tx.First(&current, "id = ?", offerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
			}
			return err
		}
		if rent.LessThan(current.Terms.FloorRent) {
			return fmt.Errorf("proposed rent %s below floor %s: %w",
				rent, current.Terms.FloorRent, ErrInvalidTransition)
		}
		return tx.Model(&model.RenewalOffer{}).Where("id = ?", offerID).Update("proposed_rent", rent).Error
	})
}

// FollowUpCandidates returns pending offers sent before the cutoff that have
// not yet received a follow-up.
func (s *Store) FollowUpCandidates(ctx context.Context, cutoff time.Time) ([]model.RenewalOffer, error) {
	var offers []model.RenewalOffer
	err := s.db.WithContext(ctx).
		Preload("Lease").
		Preload("Lease.Unit").
		Preload("Lease.Tenant").
		Where("status = ? AND sent_at IS NOT NULL AND sent_at <= ? AND follow_up_count = 0",
			model.OfferPending, cutoff).
		Find(&offers).Error
	return offers, err
}

// AutoListCandidates returns pending offers sent before the cutoff that have
// already been followed up at least once.
func (s *Store) AutoListCandidates(ctx context.Context, cutoff time.Time) ([]model.RenewalOffer, error) {
	var offers []model.RenewalOffer
	err := s.db.WithContext(ctx).
		Preload("Lease").
		Preload("Lease.Unit").
		Where("status = ? AND sent_at IS NOT NULL AND sent_at <= ? AND follow_up_count >= 1",
			model.OfferPending, cutoff).
		Find(&offers).Error
	return offers, err
}

func (s *Store) updateOffer(ctx context.Context, offerID string, updates map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&model.RenewalOffer{}).
		Where("id = ?", offerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("offer %s: %w", offerID, ErrNotFound)
	}
	return nil
}
