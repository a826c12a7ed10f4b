package model

import (
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/google/uuid"
)

// FeatureScores is the normalized sub-score breakdown behind a renewal score.
// Every component is in [0,1].
type FeatureScores struct {
	PaymentHistory  float64 `json:"payment_history"`
	DaysLateAvg     float64 `json:"days_late_avg"`
	MaintenanceFreq float64 `json:"maintenance_freq"`
	LeaseDuration   float64 `json:"lease_duration"`
	MarketDelta     float64 `json:"market_delta"`
}

// ScoreInputs is the input snapshot persisted alongside a score for audit.
type ScoreInputs struct {
	PaymentCount     int           `json:"payment_count"`
	MaintenanceCount int           `json:"maintenance_count"`
	LeaseMonths      float64       `json:"lease_months"`
	CurrentRent      float64       `json:"current_rent"`
	MarketRent       float64       `json:"market_rent"`
	FeatureScores    FeatureScores `json:"feature_scores"`
}

// RenewalScore is one scoring snapshot for a lease. Rows are immutable apart
// from RecommendedIncreasePct, which the pricing simulator fills in; a newer
// row supersedes older ones but history is kept for audit.
type RenewalScore struct {
	ID                     string        `gorm:"primaryKey" json:"id"`
	LeaseID                string        `gorm:"index;not null" json:"lease_id"`
	RenewalProbability     float64       `json:"renewal_probability"`
	ChurnProbability       float64       `json:"churn_probability"`
	ConfidenceScore        float64       `json:"confidence_score"`
	RecommendedIncreasePct float64       `json:"recommended_increase_pct"`
	ProjectedRevenue12M    float64       `json:"projected_revenue_12m"`
	ProjectedRevenue24M    float64       `json:"projected_revenue_24m"`
	Features               FeatureScores `gorm:"serializer:json" json:"feature_scores"`
	Inputs                 ScoreInputs   `gorm:"serializer:json" json:"input_snapshot"`
	ModelVersion           string        `json:"model_version"`
	CreatedAt              time.Time     `json:"created_at"`
}

// Validate enforces the probability invariant at creation time.
func (s *RenewalScore) Validate() error {
	if math.Abs(s.RenewalProbability+s.ChurnProbability-1.0) > 1e-9 {
		return fmt.Errorf("renewal and churn probabilities must sum to 1.0, got %.4f",
			s.RenewalProbability+s.ChurnProbability)
	}
	if s.RenewalProbability < 0 || s.RenewalProbability > 1 {
		return fmt.Errorf("renewal probability out of range: %.4f", s.RenewalProbability)
	}
	if s.ConfidenceScore < 0 || s.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score out of range: %.4f", s.ConfidenceScore)
	}
	return nil
}

// BeforeCreate assigns a UUID and validates the invariants.
func (s *RenewalScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.Must(uuid.NewV7()).String()
	}
	return s.Validate()
}

// RiskLabel buckets a scenario's churn probability.
type RiskLabel string

const (
	RiskLow      RiskLabel = "low"
	RiskModerate RiskLabel = "moderate"
	RiskHigh     RiskLabel = "high"
)

// RenewalScenario is one simulated rent-increase step for a score. The full
// set for a lease is replaced on every simulation run.
type RenewalScenario struct {
	ID                          string    `gorm:"primaryKey" json:"id"`
	LeaseID                     string    `gorm:"index;not null" json:"lease_id"`
	ScoreID                     string    `gorm:"index" json:"renewal_score_id"`
	IncreasePct                 float64   `json:"increase_pct"`
	ProjectedRenewalProbability float64   `json:"projected_renewal_probability"`
	ProjectedRevenue12M         float64   `json:"projected_revenue_12m"`
	ProjectedRevenue24M         float64   `json:"projected_revenue_24m"`
	VacancyRisk                 float64   `json:"vacancy_risk"`
	TurnoverCostEstimate        float64   `json:"turnover_cost_estimate"`
	ExpectedValue               float64   `json:"expected_value"`
	RiskLabel                   RiskLabel `json:"risk_label"`
	IsRecommended               bool      `json:"is_recommended"`
	CreatedAt                   time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID.
func (s *RenewalScenario) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.Must(uuid.NewV7()).String()
	}
	return nil
}
