package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/model"
)

// Get loads a lease with its unit and tenant.
func (s *Store) Get(ctx context.Context, id string) (*model.Lease, error) {
	var lease model.Lease
	err := s.db.WithContext(ctx).
		Preload("Unit").
		Preload("Tenant").
		First(&lease, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lease %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &lease, nil
}

// Payments returns a lease's payment history in due-date order.
func (s *Store) Payments(ctx context.Context, leaseID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := s.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("due_date asc").
		Find(&payments).Error
	return payments, err
}

// MaintenanceTickets returns all maintenance tickets raised on a lease.
func (s *Store) MaintenanceTickets(ctx context.Context, leaseID string) ([]model.MaintenanceTicket, error) {
	var tickets []model.MaintenanceTicket
	err := s.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Find(&tickets).Error
	return tickets, err
}

// OpenMaintenanceCount counts unresolved tickets on a lease.
func (s *Store) OpenMaintenanceCount(ctx context.Context, leaseID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.MaintenanceTicket{}).
		Where("lease_id = ? AND status IN ?", leaseID,
			[]model.TicketStatus{model.TicketStatusOpen, model.TicketStatusInProgress}).
		Count(&count).Error
	return count, err
}

// ActiveExpiringBetween returns active leases whose end date falls inside the
// given window.
func (s *Store) ActiveExpiringBetween(ctx context.Context, from, to time.Time) ([]model.Lease, error) {
	var leases []model.Lease
	err := s.db.WithContext(ctx).
		Preload("Unit").
		Preload("Tenant").
		Where("status = ? AND end_date >= ? AND end_date <= ?", model.LeaseStatusActive, from, to).
		Find(&leases).Error
	return leases, err
}

// SetRenewalStatus tags a lease's renewal progress.
func (s *Store) SetRenewalStatus(ctx context.Context, leaseID string, status model.RenewalStatus) error {
	res := s.db.WithContext(ctx).
		Model(&model.Lease{}).
		Where("id = ?", leaseID).
		Update("renewal_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("lease %s: %w", leaseID, ErrNotFound)
	}
	return nil
}
