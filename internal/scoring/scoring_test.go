package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		WeightPaymentHistory:  0.30,
		WeightDaysLateAvg:     0.15,
		WeightMaintenanceFreq: 0.15,
		WeightLeaseDuration:   0.15,
		WeightMarketDelta:     0.25,
		BaseElasticity:        0.035,
		ModelVersion:          "weighted-v1",
	}
}

func paidOnTime(due time.Time) model.Payment {
	paid := due.Add(-24 * time.Hour)
	return model.Payment{Status: model.PaymentStatusPaid, DueDate: due, PaidAt: &paid}
}

func paidLate(due time.Time, daysLate int) model.Payment {
	paid := due.Add(time.Duration(daysLate) * 24 * time.Hour)
	return model.Payment{Status: model.PaymentStatusPaid, DueDate: due, PaidAt: &paid}
}

func unpaid(due time.Time, status model.PaymentStatus) model.Payment {
	return model.Payment{Status: status, DueDate: due}
}

func TestComputeReliableTenant(t *testing.T) {
	// 12/12 on-time payments, no tickets, 24 months tenure, rent below market.
	var payments []model.Payment
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		payments = append(payments, paidOnTime(base.AddDate(0, i, 0)))
	}

	result := Compute(Inputs{
		Payments:    payments,
		LeaseMonths: 24,
		CurrentRent: 1000,
		MarketRent:  1050,
	}, testEngineConfig())

	assert.Greater(t, result.RenewalProbability, 0.6)
	assert.InDelta(t, 1.0, result.RenewalProbability+result.ChurnProbability, 1e-9)
	assert.InDelta(t, 1.0, result.ConfidenceScore, 1e-9)
	assert.Equal(t, 1.0, result.Features.PaymentHistory)
	assert.Equal(t, 1.0, result.Features.DaysLateAvg)
}

func TestComputeSubScoreRanges(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []Inputs{
		{},
		{LeaseMonths: 0.5, CurrentRent: 2000, MarketRent: 1000},
		{LeaseMonths: 500, CurrentRent: 100, MarketRent: 5000},
		{
			Payments:    []model.Payment{paidLate(base, 90), paidLate(base.AddDate(0, 1, 0), 45)},
			Tickets:     make([]model.MaintenanceTicket, 40),
			LeaseMonths: 2,
			CurrentRent: 1000,
			MarketRent:  900,
		},
	}

	for _, in := range cases {
		result := Compute(in, testEngineConfig())
		for _, score := range []float64{
			result.Features.PaymentHistory,
			result.Features.DaysLateAvg,
			result.Features.MaintenanceFreq,
			result.Features.LeaseDuration,
			result.Features.MarketDelta,
		} {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
		assert.InDelta(t, 1.0, result.RenewalProbability+result.ChurnProbability, 1e-9)
		assert.GreaterOrEqual(t, result.RenewalProbability, 0.0)
		assert.LessOrEqual(t, result.RenewalProbability, 1.0)
	}
}

func TestPaymentHistoryCountsOnlySettledPayments(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// A tenant who never paid has the worst possible payment history.
	var delinquent []model.Payment
	for i := 0; i < 12; i++ {
		delinquent = append(delinquent, unpaid(base.AddDate(0, i, 0), model.PaymentStatusFailed))
	}
	result := Compute(Inputs{
		Payments:    delinquent,
		LeaseMonths: 12,
		CurrentRent: 1000,
		MarketRent:  1000,
	}, testEngineConfig())
	assert.Equal(t, 0.0, result.Features.PaymentHistory)

	// Two on time, one late, one still pending: 2/4.
	mixed := []model.Payment{
		paidOnTime(base),
		paidOnTime(base.AddDate(0, 1, 0)),
		paidLate(base.AddDate(0, 2, 0), 10),
		unpaid(base.AddDate(0, 3, 0), model.PaymentStatusPending),
	}
	result = Compute(Inputs{
		Payments:    mixed,
		LeaseMonths: 4,
		CurrentRent: 1000,
		MarketRent:  1000,
	}, testEngineConfig())
	assert.InDelta(t, 0.5, result.Features.PaymentHistory, 1e-9)
}

func TestComputeNoHistoryIsNeutral(t *testing.T) {
	result := Compute(Inputs{LeaseMonths: 1, CurrentRent: 1000, MarketRent: 1000}, testEngineConfig())

	assert.Equal(t, 0.5, result.Features.PaymentHistory)
	assert.Equal(t, 1.0, result.Features.DaysLateAvg)
	assert.InDelta(t, 0.4, result.ConfidenceScore, 1e-9)
}

func TestConfidenceGrowsWithHistory(t *testing.T) {
	assert.InDelta(t, 0.4, Confidence(0), 1e-9)
	assert.InDelta(t, 0.7, Confidence(6), 1e-9)
	assert.InDelta(t, 1.0, Confidence(12), 1e-9)
	assert.InDelta(t, 1.0, Confidence(36), 1e-9)
}

func TestMarketDeltaScoreClamping(t *testing.T) {
	// Far below market clamps to 1.0, far above clamps to 0.0.
	assert.InDelta(t, 1.0, marketDeltaScore(500, 1000), 1e-9)
	assert.InDelta(t, 0.0, marketDeltaScore(2000, 1000), 1e-9)
	// At parity the score is the midpoint.
	assert.InDelta(t, 0.5, marketDeltaScore(1000, 1000), 1e-9)
}

func TestDaysLateScoreAveragesLateOnly(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	payments := []model.Payment{
		paidOnTime(base),
		paidLate(base.AddDate(0, 1, 0), 15),
		paidLate(base.AddDate(0, 2, 0), 15),
	}
	// Average lateness of late payments is 15 days.
	assert.InDelta(t, 0.5, daysLateScore(payments), 1e-9)
}
