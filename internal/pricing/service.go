package pricing

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// Service persists simulation sweeps against a lease's latest score.
type Service struct {
	scores store.ScoreStore
	cfg    config.EngineConfig
	log    *logger.Logger
}

// NewService creates a pricing service.
func NewService(scores store.ScoreStore, cfg config.EngineConfig, log *logger.Logger) *Service {
	return &Service{scores: scores, cfg: cfg, log: log}
}

// SimulateForScore runs the sweep for a persisted score, replaces the lease's
// scenario set and writes the recommended increase back onto the score row.
func (s *Service) SimulateForScore(ctx context.Context, score *model.RenewalScore, marketRent decimal.Decimal) (*Report, error) {
	marketF, _ := marketRent.Float64()

	report := Simulate(Inputs{
		BaseRenewalProbability: score.RenewalProbability,
		CurrentRent:            score.Inputs.CurrentRent,
		MarketRent:             marketF,
	}, s.cfg)

	rows := make([]model.RenewalScenario, 0, len(report.Scenarios))
	for _, sc := range report.Scenarios {
		rows = append(rows, model.RenewalScenario{
			LeaseID:                     score.LeaseID,
			ScoreID:                     score.ID,
			IncreasePct:                 sc.IncreasePct,
			ProjectedRenewalProbability: sc.RenewalProbability,
			ProjectedRevenue12M:         sc.NewRent * 12 * sc.RenewalProbability,
			ProjectedRevenue24M:         sc.NewRent * 24 * sc.RenewalProbability,
			VacancyRisk:                 sc.VacancyRisk,
			TurnoverCostEstimate:        sc.TurnoverCostEstimate,
			ExpectedValue:               sc.ExpectedValue,
			RiskLabel:                   sc.RiskLabel,
			IsRecommended:               sc.IsRecommended,
		})
	}

	if err := s.scores.ReplaceScenarios(ctx, score.LeaseID, rows); err != nil {
		return nil, err
	}
	if err := s.scores.SetRecommendedIncrease(ctx, score.ID, report.Recommended.IncreasePct); err != nil {
		return nil, err
	}
	score.RecommendedIncreasePct = report.Recommended.IncreasePct

	s.log.WithLease(score.LeaseID).Info("pricing sweep complete",
		zap.Float64("recommended_increase_pct", report.Recommended.IncreasePct),
		zap.Float64("expected_value", report.Recommended.ExpectedValue),
		zap.String("risk", string(report.Recommended.RiskLabel)))

	return &report, nil
}
