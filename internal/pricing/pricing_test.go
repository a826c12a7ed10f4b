package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		BaseElasticity:           0.035,
		AvgVacancyMonths:         1.5,
		TurnoverCostFixed:        1500,
		TurnoverLettingFeeFactor: 0.5,
		MinIncreasePct:           0,
		MaxIncreasePct:           15,
		IncreaseStep:             1,
		TopNScenarios:            3,
	}
}

func TestSimulateTopNOrdering(t *testing.T) {
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.7,
		CurrentRent:            1000,
		MarketRent:             1100,
	}, testEngineConfig())

	assert.Len(t, report.TopN, 3)
	assert.Equal(t, report.Recommended.IncreasePct, report.TopN[0].IncreasePct)
	assert.GreaterOrEqual(t, report.TopN[0].ExpectedValue, report.TopN[1].ExpectedValue)
	assert.GreaterOrEqual(t, report.TopN[1].ExpectedValue, report.TopN[2].ExpectedValue)
}

func TestSimulateSweepAtMarketParity(t *testing.T) {
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.75,
		CurrentRent:            1000,
		MarketRent:             1000,
	}, testEngineConfig())

	assert.Len(t, report.Scenarios, 16)

	// The zero-increase scenario still carries a churn contribution.
	zero := report.Scenarios[0]
	assert.Equal(t, 0.0, zero.IncreasePct)
	assert.Greater(t, zero.ChurnProbability, 0.0)
	assert.Greater(t, zero.TurnoverCostEstimate, 0.0)

	// The recommendation lands strictly inside (0, 15].
	assert.Greater(t, report.Recommended.IncreasePct, 0.0)
	assert.LessOrEqual(t, report.Recommended.IncreasePct, 15.0)
}

func TestSimulateExactlyOneRecommended(t *testing.T) {
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.6,
		CurrentRent:            1200,
		MarketRent:             1300,
	}, testEngineConfig())

	recommended := 0
	var best Scenario
	for _, sc := range report.Scenarios {
		if sc.IsRecommended {
			recommended++
			best = sc
		}
	}
	assert.Equal(t, 1, recommended)

	for _, sc := range report.Scenarios {
		assert.LessOrEqual(t, sc.ExpectedValue, best.ExpectedValue)
	}
	assert.Equal(t, best.IncreasePct, report.Recommended.IncreasePct)
}

func TestSimulateIncreasePctStrictlyIncreasing(t *testing.T) {
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.8,
		CurrentRent:            900,
		MarketRent:             950,
	}, testEngineConfig())

	for i := 1; i < len(report.Scenarios); i++ {
		assert.Greater(t, report.Scenarios[i].IncreasePct, report.Scenarios[i-1].IncreasePct)
		// Raising the price never raises the renewal probability.
		assert.LessOrEqual(t, report.Scenarios[i].RenewalProbability, report.Scenarios[i-1].RenewalProbability)
	}
}

func TestSimulateElasticityBaselinesOnCurrentRent(t *testing.T) {
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.8,
		CurrentRent:            800,
		MarketRent:             1000,
	}, testEngineConfig())

	// The market gap is relative to the current rent: (1000-800)/800 = 0.25,
	// so each point of increase costs 0.035 * 0.75 of renewal probability.
	step := 0.035 * 0.75
	assert.InDelta(t, 0.8-step, report.Scenarios[1].RenewalProbability, 1e-9)
	assert.InDelta(t, 0.8-5*step, report.Scenarios[5].RenewalProbability, 1e-9)
}

func TestElasticityFloor(t *testing.T) {
	// A tenant paying far below market still loses some probability per step.
	assert.Equal(t, minElasticity, Elasticity(0.035, 5.0))
	assert.InDelta(t, 0.035, Elasticity(0.035, 0), 1e-9)
	assert.Greater(t, Elasticity(0.035, -0.10), 0.035)
}

func TestRiskLabels(t *testing.T) {
	assert.Equal(t, model.RiskLow, riskLabel(0.1))
	assert.Equal(t, model.RiskModerate, riskLabel(0.45))
	assert.Equal(t, model.RiskHigh, riskLabel(0.75))
}

func TestVacancyBreakeven(t *testing.T) {
	cfg := testEngineConfig()
	report := Simulate(Inputs{
		BaseRenewalProbability: 0.9,
		CurrentRent:            1000,
		MarketRent:             1100,
	}, cfg)

	if report.Recommended.IncreasePct > 0 {
		assert.NotNil(t, report.VacancyBreakevenMonths)
		extra := report.Recommended.NewRent - 1000
		turnover := cfg.TurnoverCostFixed + cfg.TurnoverLettingFeeFactor*1000
		assert.InDelta(t, turnover/extra, *report.VacancyBreakevenMonths, 1e-9)
	}

	// With a collapsed sweep range the only scenario is 0% and breakeven is undefined.
	cfg.MaxIncreasePct = 0
	flat := Simulate(Inputs{BaseRenewalProbability: 0.9, CurrentRent: 1000, MarketRent: 1000}, cfg)
	assert.Equal(t, 0.0, flat.Recommended.IncreasePct)
	assert.Nil(t, flat.VacancyBreakevenMonths)
	assert.Equal(t, 0.0, flat.RevenueDeltaVsNoIncrease)
}
