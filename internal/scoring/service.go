package scoring

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

// Service loads lease history, runs the model and persists the score.
type Service struct {
	leases store.LeaseStore
	scores store.ScoreStore
	cfg    config.EngineConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewService creates a scoring service.
func NewService(leases store.LeaseStore, scores store.ScoreStore, cfg config.EngineConfig, log *logger.Logger) *Service {
	return &Service{
		leases: leases,
		scores: scores,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Score computes and persists a new RenewalScore for the lease. When the
// caller has no market-rent estimate a 5% premium over the current rent is
// assumed. Missing leases surface store.ErrNotFound with nothing written.
func (s *Service) Score(ctx context.Context, leaseID string, marketRent *decimal.Decimal) (*model.RenewalScore, error) {
	lease, err := s.leases.Get(ctx, leaseID)
	if err != nil {
		return nil, err
	}

	payments, err := s.leases.Payments(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.leases.MaintenanceTickets(ctx, leaseID)
	if err != nil {
		return nil, err
	}

	currentRent, _ := lease.MonthlyRent.Float64()
	market := MarketRentOrDefault(lease.MonthlyRent, marketRent)
	marketF, _ := market.Float64()

	in := Inputs{
		Payments:    payments,
		Tickets:     tickets,
		LeaseMonths: lease.Months(s.now()),
		CurrentRent: currentRent,
		MarketRent:  marketF,
	}
	result := Compute(in, s.cfg)

	score := &model.RenewalScore{
		LeaseID:            leaseID,
		RenewalProbability: result.RenewalProbability,
		ChurnProbability:   result.ChurnProbability,
		ConfidenceScore:    result.ConfidenceScore,
		// The renewed-annuity estimate; the simulator refines this per scenario.
		ProjectedRevenue12M: currentRent * 12 * result.RenewalProbability,
		ProjectedRevenue24M: currentRent * 24 * result.RenewalProbability,
		Features:            result.Features,
		Inputs: model.ScoreInputs{
			PaymentCount:     len(payments),
			MaintenanceCount: len(tickets),
			LeaseMonths:      in.LeaseMonths,
			CurrentRent:      currentRent,
			MarketRent:       marketF,
			FeatureScores:    result.Features,
		},
		ModelVersion: s.cfg.ModelVersion,
	}

	if err := s.scores.CreateScore(ctx, score); err != nil {
		return nil, err
	}

	s.log.WithLease(leaseID).Info("lease scored",
		zap.Float64("renewal_probability", score.RenewalProbability),
		zap.Float64("confidence", score.ConfidenceScore),
		zap.String("model_version", score.ModelVersion))

	return score, nil
}

// MarketRentOrDefault resolves the market rent estimate, assuming a 5% premium
// over the current rent when no external estimate is supplied.
func MarketRentOrDefault(currentRent decimal.Decimal, marketRent *decimal.Decimal) decimal.Decimal {
	if marketRent != nil && marketRent.GreaterThan(decimal.Zero) {
		return *marketRent
	}
	return currentRent.Mul(decimal.NewFromFloat(1.05)).Round(2)
}
