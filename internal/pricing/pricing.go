// Package pricing sweeps rent-increase percentages for a scored lease and
// finds the step that maximizes expected 12-month revenue.
package pricing

import (
	"math"
	"sort"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
)

// minElasticity keeps every price point costing some renewal probability even
// for tenants far below market.
const minElasticity = 0.01

// Inputs drives one simulation sweep. All figures are monthly unless noted.
type Inputs struct {
	BaseRenewalProbability float64
	CurrentRent            float64
	MarketRent             float64
}

// Scenario is one simulated increase step.
type Scenario struct {
	IncreasePct          float64
	NewRent              float64
	RenewalProbability   float64
	ChurnProbability     float64
	ExpectedValue        float64
	VacancyRisk          float64
	TurnoverCostEstimate float64
	RiskLabel            model.RiskLabel
	IsRecommended        bool
}

// Report summarizes a sweep for callers.
type Report struct {
	Scenarios   []Scenario
	Recommended Scenario
	WorstCase   Scenario

	// TopN are the best scenarios by expected value, best first.
	TopN []Scenario

	// RevenueDeltaVsNoIncrease is the recommended scenario's expected value
	// minus the zero-increase scenario's.
	RevenueDeltaVsNoIncrease float64

	// VacancyBreakevenMonths is how many months of the extra rent it takes to
	// recoup one turnover. Nil when the recommended increase is zero.
	VacancyBreakevenMonths *float64
}

// Elasticity is the renewal probability lost per percentage point of rent
// increase. Tenants paying below market are less price sensitive.
func Elasticity(base, marketDeltaPct float64) float64 {
	e := base * (1 - marketDeltaPct)
	if e < minElasticity {
		e = minElasticity
	}
	return e
}

// Simulate sweeps the configured increase range and marks the max expected
// value scenario recommended. Pure, no I/O.
func Simulate(in Inputs, cfg config.EngineConfig) Report {
	marketDelta := (in.MarketRent - in.CurrentRent) / math.Max(in.CurrentRent, 1)
	elasticity := Elasticity(cfg.BaseElasticity, marketDelta)
	turnoverCost := cfg.TurnoverCostFixed + cfg.TurnoverLettingFeeFactor*in.CurrentRent

	var scenarios []Scenario
	for pct := cfg.MinIncreasePct; pct <= cfg.MaxIncreasePct+1e-9; pct += cfg.IncreaseStep {
		newRent := in.CurrentRent * (1 + pct/100)
		prob := clamp01(in.BaseRenewalProbability - elasticity*pct)
		churn := 1 - prob

		ev := prob*newRent*12 +
			churn*(in.MarketRent*(12-cfg.AvgVacancyMonths)-turnoverCost)

		scenarios = append(scenarios, Scenario{
			IncreasePct:          pct,
			NewRent:              newRent,
			RenewalProbability:   prob,
			ChurnProbability:     churn,
			ExpectedValue:        ev,
			VacancyRisk:          churn * cfg.AvgVacancyMonths / 12,
			TurnoverCostEstimate: turnoverCost * churn,
			RiskLabel:            riskLabel(churn),
		})
	}

	best, worst := 0, 0
	for i := range scenarios {
		if scenarios[i].ExpectedValue > scenarios[best].ExpectedValue {
			best = i
		}
		if scenarios[i].ExpectedValue < scenarios[worst].ExpectedValue {
			worst = i
		}
	}
	scenarios[best].IsRecommended = true

	report := Report{
		Scenarios:                scenarios,
		Recommended:              scenarios[best],
		WorstCase:                scenarios[worst],
		TopN:                     topByExpectedValue(scenarios, cfg.TopNScenarios),
		RevenueDeltaVsNoIncrease: scenarios[best].ExpectedValue - scenarios[0].ExpectedValue,
	}

	if scenarios[best].IncreasePct > 0 {
		extraMonthly := scenarios[best].NewRent - in.CurrentRent
		if extraMonthly > 0 {
			breakeven := turnoverCost / extraMonthly
			report.VacancyBreakevenMonths = &breakeven
		}
	}
	return report
}

func topByExpectedValue(scenarios []Scenario, n int) []Scenario {
	if n <= 0 || n > len(scenarios) {
		n = len(scenarios)
	}
	sorted := make([]Scenario, len(scenarios))
	copy(sorted, scenarios)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExpectedValue > sorted[j].ExpectedValue
	})
	return sorted[:n]
}

func riskLabel(churn float64) model.RiskLabel {
	switch {
	case churn < 0.30:
		return model.RiskLow
	case churn < 0.60:
		return model.RiskModerate
	default:
		return model.RiskHigh
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
