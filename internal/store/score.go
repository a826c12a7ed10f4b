package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// CreateScore persists a new scoring snapshot.
func (s *Store) CreateScore(ctx context.Context, score *model.RenewalScore) error {
	return s.db.WithContext(ctx).Create(score).Error
}

// LatestScore returns the most recent score for a lease.
func (s *Store) LatestScore(ctx context.Context, leaseID string) (*model.RenewalScore, error) {
	var score model.RenewalScore
	err := s.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("created_at desc").
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("score for lease %s: %w", leaseID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// SetRecommendedIncrease writes the simulator's pick back onto a score row.
// This is the one mutable field on an otherwise immutable snapshot.
func (s *Store) SetRecommendedIncrease(ctx context.Context, scoreID string, pct float64) error {
	res := s.db.WithContext(ctx).
		Model(&model.RenewalScore{}).
		Where("id = ?", scoreID).
		Update("recommended_increase_pct", pct)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("score %s: %w", scoreID, ErrNotFound)
	}
	return nil
}

// ReplaceScenarios atomically swaps the scenario set for a lease. Exactly one
// scenario must be flagged recommended.
func (s *Store) ReplaceScenarios(ctx context.Context, leaseID string, scenarios []model.RenewalScenario) error {
	recommended := 0
	for _, sc := range scenarios {
		if sc.IsRecommended {
			recommended++
		}
	}
	if recommended != 1 {
		return fmt.Errorf("scenario batch must have exactly one recommended entry, got %d", recommended)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lease_id = ?", leaseID).Delete(&model.RenewalScenario{}).Error; err != nil {
			return err
		}
		return tx.Create(&scenarios).Error
	})
}

// Scenarios returns the current scenario set for a lease, lowest increase first.
func (s *Store) Scenarios(ctx context.Context, leaseID string) ([]model.RenewalScenario, error) {
	var scenarios []model.RenewalScenario
	err := s.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("increase_pct asc").
		Find(&scenarios).Error
	return scenarios, err
}
