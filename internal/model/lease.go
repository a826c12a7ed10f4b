// Package model defines the persisted entities and API types of the renewal engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaseStatus is the lifecycle status of a lease. The broader property system
// owns leases; the engine only reads them and tags renewal progress.
type LeaseStatus string

const (
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusEnded      LeaseStatus = "ended"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

// RenewalStatus tracks where a lease is in its renewal cycle.
type RenewalStatus string

const (
	RenewalNotStarted RenewalStatus = "not_started"
	RenewalPending    RenewalStatus = "pending"
	RenewalRenewing   RenewalStatus = "renewing"
	RenewalNotRenewing RenewalStatus = "not_renewing"
)

// Lease identifies a tenancy.
type Lease struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	UnitID        string          `gorm:"index;not null" json:"unit_id"`
	TenantID      string          `gorm:"index;not null" json:"tenant_id"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `gorm:"index" json:"end_date"`
	MonthlyRent   decimal.Decimal `gorm:"type:decimal(10,2)" json:"monthly_rent"`
	Status        LeaseStatus     `gorm:"index;default:active" json:"status"`
	RenewalStatus RenewalStatus   `gorm:"default:not_started" json:"renewal_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Unit   *Unit   `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// Months returns the tenancy length in months as of now, floored at one month.
func (l *Lease) Months(now time.Time) float64 {
	months := now.Sub(l.StartDate).Hours() / 24 / 30.44
	if months < 1 {
		return 1
	}
	return months
}

// Unit is the rental unit a lease applies to.
type Unit struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	LandlordID     string    `gorm:"index;not null" json:"landlord_id"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	UnitIdentifier string    `json:"unit_identifier"`
	CreatedAt      time.Time `json:"created_at"`
}

// PropertyLabel is the human-readable property reference used in drafted content.
func (u *Unit) PropertyLabel() string {
	if u.UnitIdentifier != "" {
		return u.UnitIdentifier
	}
	if u.City != "" {
		return u.Address + ", " + u.City
	}
	return u.Address
}

// Tenant is the occupant on a lease.
type Tenant struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	WhatsAppNumber string    `json:"whatsapp_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// PaymentStatus is the lifecycle status of a rent payment.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment is one rent payment record, ordered by due date.
type Payment struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	LeaseID   string          `gorm:"index;not null" json:"lease_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Status    PaymentStatus   `json:"status"`
	DueDate   time.Time       `json:"due_date"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaidOnTime reports whether the payment actually settled by its due date.
// Pending and failed payments never count as on time.
func (p *Payment) PaidOnTime() bool {
	return p.Status == PaymentStatusPaid && !p.IsLate()
}

// IsLate reports whether the payment settled after its due date.
// Unpaid or undated payments are not counted as late.
func (p *Payment) IsLate() bool {
	if p.PaidAt == nil {
		return false
	}
	return p.PaidAt.After(p.DueDate)
}

// DaysLate returns how many whole days past due the payment settled.
func (p *Payment) DaysLate() int {
	if !p.IsLate() {
		return 0
	}
	return int(p.PaidAt.Sub(p.DueDate).Hours() / 24)
}

// TicketStatus is the lifecycle status of a maintenance ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// MaintenanceTicket is a maintenance request raised against a lease.
type MaintenanceTicket struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	LeaseID   string       `gorm:"index;not null" json:"lease_id"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}
