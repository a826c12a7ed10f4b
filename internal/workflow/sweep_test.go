package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/drafting"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/offer"
	"github.com/renewal-ai/renewal-engine/internal/pricing"
	"github.com/renewal-ai/renewal-engine/internal/scoring"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/internal/workflow"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

type fakeMessenger struct {
	mu   sync.Mutex
	sent []messaging.Message
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, msg messaging.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeRelister struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRelister) Relist(_ context.Context, leaseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, leaseID)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(_ context.Context, _, _ string, _ model.NotificationCategory, _ string) {}

func sweepEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		WeightPaymentHistory:         0.30,
		WeightDaysLateAvg:            0.15,
		WeightMaintenanceFreq:        0.15,
		WeightLeaseDuration:          0.15,
		WeightMarketDelta:            0.25,
		BaseElasticity:               0.035,
		AvgVacancyMonths:             1.5,
		TurnoverCostFixed:            1500,
		TurnoverLettingFeeFactor:     0.5,
		MinIncreasePct:               0,
		MaxIncreasePct:               15,
		IncreaseStep:                 1,
		TopNScenarios:                3,
		MinConfidenceToAutoSend:      0.65,
		FirstContactDaysBeforeExpiry: 90,
		InitiateWindowSlackDays:      5,
		FollowUpAfter:                7 * 24 * time.Hour,
		AutoListAfter:                14 * 24 * time.Hour,
		ModelVersion:                 "weighted-v1",
	}
}

type sweepFixture struct {
	store     *store.Store
	messenger *fakeMessenger
	relister  *fakeRelister
}

func setupSweep(t *testing.T) (*workflow.Orchestrator, *sweepFixture) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	st, err := store.New(db)
	require.NoError(t, err)

	cfg := sweepEngineConfig()
	log := logger.NewNop()
	fx := &sweepFixture{store: st, messenger: &fakeMessenger{}, relister: &fakeRelister{}}

	scoringSvc := scoring.NewService(st, st, cfg, log)
	pricingSvc := pricing.NewService(st, cfg, log)
	dispatcher := offer.NewService(st, st, scoringSvc, pricingSvc,
		drafting.NewTemplateDrafter(), fx.messenger, nopNotifier{}, cfg, log)

	orch := workflow.NewOrchestrator(st, st, dispatcher, fx.messenger, fx.relister, cfg, 2, log)
	return orch, fx
}

func seedSweepLease(t *testing.T, st *store.Store, endDate time.Time) *model.Lease {
	unit := &model.Unit{
		ID:             uuid.New().String(),
		LandlordID:     uuid.New().String(),
		Address:        "Torstraße 8",
		City:           "Berlin",
		UnitIdentifier: "Apt 9",
	}
	tenant := &model.Tenant{
		ID:             uuid.New().String(),
		FullName:       "Lena Hoffmann",
		WhatsAppNumber: "+491512345678",
	}
	lease := &model.Lease{
		ID:          uuid.New().String(),
		UnitID:      unit.ID,
		TenantID:    tenant.ID,
		StartDate:   endDate.AddDate(-2, 0, 0),
		EndDate:     endDate,
		MonthlyRent: decimal.NewFromInt(1000),
		Status:      model.LeaseStatusActive,
	}
	require.NoError(t, st.DB().Create(unit).Error)
	require.NoError(t, st.DB().Create(tenant).Error)
	require.NoError(t, st.DB().Create(lease).Error)

	// A year of on-time payments so the score clears the auto-send gate.
	for i := 0; i < 12; i++ {
		due := lease.StartDate.AddDate(0, i, 0)
		paid := due.Add(-24 * time.Hour)
		require.NoError(t, st.DB().Create(&model.Payment{
			ID:      uuid.New().String(),
			LeaseID: lease.ID,
			Amount:  lease.MonthlyRent,
			Status:  model.PaymentStatusPaid,
			DueDate: due,
			PaidAt:  &paid,
		}).Error)
	}
	return lease
}

func seedSentOffer(t *testing.T, st *store.Store, leaseID string, sentAgo time.Duration, followUps int) *model.RenewalOffer {
	off := &model.RenewalOffer{
		LeaseID:      leaseID,
		ProposedRent: decimal.NewFromInt(1050),
		Status:       model.OfferPending,
		Channel:      model.ChannelWhatsApp,
		Terms: model.LandlordTerms{
			FloorRent:               decimal.NewFromInt(1000),
			PreferredDurationMonths: 12,
			AutoNegotiate:           true,
		},
	}
	require.NoError(t, st.CreateOffer(context.Background(), off))
	require.NoError(t, st.MarkSent(context.Background(), off.ID, time.Now().Add(-sentAgo)))
	if followUps > 0 {
		require.NoError(t, st.DB().Model(off).Update("follow_up_count", followUps).Error)
	}
	return off
}

func TestSweepInitiatesLeasesEnteringWindow(t *testing.T) {
	orch, fx := setupSweep(t)
	ctx := context.Background()
	now := time.Now()

	inWindow := seedSweepLease(t, fx.store, now.AddDate(0, 0, 90))
	farOut := seedSweepLease(t, fx.store, now.AddDate(0, 0, 200))
	alreadyContacted := seedSweepLease(t, fx.store, now.AddDate(0, 0, 91))
	seedSentOffer(t, fx.store, alreadyContacted.ID, 24*time.Hour, 0)

	summary, err := orch.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, summary.Initiated, 1)
	assert.Equal(t, inWindow.ID, summary.Initiated[0])
	assert.Empty(t, summary.Errors)

	off, err := fx.store.OpenOffer(ctx, inWindow.ID)
	require.NoError(t, err)
	assert.NotNil(t, off.SentAt)
	assert.False(t, off.RequiresApproval)

	_, err = fx.store.OpenOffer(ctx, farOut.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSweepFollowsUpAndAutoLists(t *testing.T) {
	orch, fx := setupSweep(t)
	ctx := context.Background()
	now := time.Now()

	silent := seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, now.AddDate(0, 6, 0)).ID,
		8*24*time.Hour, 0)
	abandoned := seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, now.AddDate(0, 6, 0)).ID,
		15*24*time.Hour, 1)

	summary, err := orch.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, summary.FollowedUp, 1)
	assert.Equal(t, silent.ID, summary.FollowedUp[0])
	require.Len(t, summary.AutoListed, 1)
	assert.Equal(t, abandoned.ID, summary.AutoListed[0])

	reminded, err := fx.store.GetOffer(ctx, silent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reminded.FollowUpCount)
	assert.Equal(t, model.OfferPending, reminded.Status)

	expired, err := fx.store.GetOffer(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferExpired, expired.Status)
	require.Len(t, fx.relister.calls, 1)
	assert.Equal(t, abandoned.LeaseID, fx.relister.calls[0])

	lease, err := fx.store.Get(ctx, abandoned.LeaseID)
	require.NoError(t, err)
	assert.Equal(t, model.RenewalNotRenewing, lease.RenewalStatus)

	// The reminder goes out on the offer's own channel.
	require.Len(t, fx.messenger.sent, 1)
	assert.Equal(t, model.ChannelWhatsApp, fx.messenger.sent[0].Channel)
	assert.Contains(t, fx.messenger.sent[0].Body, "1050.00")
}

func TestSweepIsIdempotent(t *testing.T) {
	orch, fx := setupSweep(t)
	ctx := context.Background()
	now := time.Now()

	seedSweepLease(t, fx.store, now.AddDate(0, 0, 90))
	seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, now.AddDate(0, 6, 0)).ID,
		8*24*time.Hour, 0)

	first, err := orch.Sweep(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Initiated, 1)
	assert.Len(t, first.FollowedUp, 1)
	assert.Empty(t, first.Errors)

	second, err := orch.Sweep(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Initiated)
	assert.Empty(t, second.FollowedUp)
	assert.Empty(t, second.AutoListed)
	assert.Empty(t, second.Errors)
}

func TestSweepRecordsFailuresWithoutAborting(t *testing.T) {
	orch, fx := setupSweep(t)
	ctx := context.Background()
	now := time.Now()

	failing := seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, now.AddDate(0, 6, 0)).ID,
		8*24*time.Hour, 0)
	abandoned := seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, now.AddDate(0, 6, 0)).ID,
		15*24*time.Hour, 1)
	fx.messenger.err = errors.New("gateway unavailable")

	summary, err := orch.Sweep(ctx)
	require.NoError(t, err)

	require.Len(t, summary.Errors, 1)
	assert.Equal(t, failing.LeaseID, summary.Errors[0].LeaseID)
	assert.Equal(t, "follow_up", summary.Errors[0].Stage)
	assert.Empty(t, summary.FollowedUp)

	// The failed reminder left no trace, so the next sweep retries it.
	got, err := fx.store.GetOffer(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FollowUpCount)

	// The auto-list branch does not depend on the messenger and still ran.
	require.Len(t, summary.AutoListed, 1)
	assert.Equal(t, abandoned.ID, summary.AutoListed[0])
}

func TestManualFollowUp(t *testing.T) {
	orch, fx := setupSweep(t)
	ctx := context.Background()

	off := seedSentOffer(t, fx.store, seedSweepLease(t, fx.store, time.Now().AddDate(0, 6, 0)).ID,
		24*time.Hour, 0)

	require.NoError(t, orch.FollowUp(ctx, off.ID))
	got, err := fx.store.GetOffer(ctx, off.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FollowUpCount)

	require.NoError(t, fx.store.SetStatus(ctx, off.ID, model.OfferAccepted))
	assert.Error(t, orch.FollowUp(ctx, off.ID))
}
