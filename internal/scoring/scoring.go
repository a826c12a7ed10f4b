// Package scoring computes renewal likelihood for a lease from its history.
// The model is a weighted sum of five normalized sub-scores; the weights are
// injected configuration and must sum to 1.0.
package scoring

import (
	"math"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
)

// Inputs is everything the model needs for one lease.
type Inputs struct {
	Payments    []model.Payment
	Tickets     []model.MaintenanceTicket
	LeaseMonths float64
	CurrentRent float64
	MarketRent  float64
}

// Result is a computed score before persistence.
type Result struct {
	RenewalProbability float64
	ChurnProbability   float64
	ConfidenceScore    float64
	Features           model.FeatureScores
}

// Compute runs the weighted model over the inputs. Pure, no I/O.
func Compute(in Inputs, cfg config.EngineConfig) Result {
	features := model.FeatureScores{
		PaymentHistory:  paymentHistoryScore(in.Payments),
		DaysLateAvg:     daysLateScore(in.Payments),
		MaintenanceFreq: maintenanceScore(len(in.Tickets), in.LeaseMonths),
		LeaseDuration:   durationScore(in.LeaseMonths),
		MarketDelta:     marketDeltaScore(in.CurrentRent, in.MarketRent),
	}

	prob := cfg.WeightPaymentHistory*features.PaymentHistory +
		cfg.WeightDaysLateAvg*features.DaysLateAvg +
		cfg.WeightMaintenanceFreq*features.MaintenanceFreq +
		cfg.WeightLeaseDuration*features.LeaseDuration +
		cfg.WeightMarketDelta*features.MarketDelta
	prob = clamp01(prob)

	return Result{
		RenewalProbability: prob,
		ChurnProbability:   1 - prob,
		ConfidenceScore:    Confidence(len(in.Payments)),
		Features:           features,
	}
}

// Confidence maps payment-history depth to model confidence. It floors at 0.4
// with no data and reaches 1.0 with a full year of payments.
func Confidence(paymentCount int) float64 {
	return 0.4 + 0.6*math.Min(1, float64(paymentCount)/12)
}

// paymentHistoryScore is the fraction of payments paid on time. Pending and
// failed payments count against the tenant. With no history the score is a
// neutral 0.5.
func paymentHistoryScore(payments []model.Payment) float64 {
	if len(payments) == 0 {
		return 0.5
	}
	onTime := 0
	for i := range payments {
		if payments[i].PaidOnTime() {
			onTime++
		}
	}
	return float64(onTime) / float64(len(payments))
}

// daysLateScore penalizes the average lateness of late payments, saturating
// at 30 days. A tenant who has never paid late scores 1.0.
func daysLateScore(payments []model.Payment) float64 {
	totalDays, late := 0, 0
	for i := range payments {
		if payments[i].IsLate() {
			totalDays += payments[i].DaysLate()
			late++
		}
	}
	if late == 0 {
		return 1.0
	}
	avg := float64(totalDays) / float64(late)
	return math.Max(0, 1-avg/30)
}

// maintenanceScore penalizes ticket frequency, saturating at three tickets
// per lease month.
func maintenanceScore(ticketCount int, leaseMonths float64) float64 {
	if leaseMonths < 1 {
		leaseMonths = 1
	}
	perMonth := float64(ticketCount) / leaseMonths
	return math.Max(0, 1-perMonth/3)
}

// durationScore rewards tenure, saturating at three years.
func durationScore(leaseMonths float64) float64 {
	return math.Min(1, leaseMonths/36)
}

// marketDeltaScore rewards tenants paying below market. The relative gap is
// clamped to ±15% and rescaled linearly onto [0,1].
func marketDeltaScore(currentRent, marketRent float64) float64 {
	if marketRent <= 0 {
		return 0.5
	}
	delta := (marketRent - currentRent) / marketRent
	if delta > 0.15 {
		delta = 0.15
	}
	if delta < -0.15 {
		delta = -0.15
	}
	return (delta + 0.15) / 0.30
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
