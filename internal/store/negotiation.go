package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// AppendLog adds one immutable entry to the negotiation transcript.
func (s *Store) AppendLog(ctx context.Context, entry *model.NegotiationLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// LogsForLease returns the ordered transcript for a lease.
func (s *Store) LogsForLease(ctx context.Context, leaseID string) ([]model.NegotiationLogEntry, error) {
	var entries []model.NegotiationLogEntry
	err := s.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("created_at asc").
		Find(&entries).Error
	return entries, err
}

// LatestLog returns the most recent transcript entry for an offer.
func (s *Store) LatestLog(ctx context.Context, offerID string) (*model.NegotiationLogEntry, error) {
	var entry model.NegotiationLogEntry
	err := s.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("negotiation log for offer %s: %w", offerID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// StampLandlordDecision records the landlord's manual call on a transcript
// entry. This is the only permitted mutation of a log row.
func (s *Store) StampLandlordDecision(ctx context.Context, entryID string, decision string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.NegotiationLogEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]any{
			"landlord_decision":    decision,
			"landlord_decision_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("log entry %s: %w", entryID, ErrNotFound)
	}
	return nil
}

// CreateFeedback writes the conclusion feedback row for a case.
func (s *Store) CreateFeedback(ctx context.Context, fb *model.OutcomeFeedback) error {
	return s.db.WithContext(ctx).Create(fb).Error
}

// CreateNotification queues a landlord notification.
func (s *Store) CreateNotification(ctx context.Context, n *model.LandlordNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// AppendMessage records one exchanged occupant message.
func (s *Store) AppendMessage(ctx context.Context, m *model.MessageLog) error {
	return s.db.WithContext(ctx).Create(m).Error
}
