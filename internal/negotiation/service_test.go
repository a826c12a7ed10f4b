package negotiation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/renewal-ai/renewal-engine/internal/drafting"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/negotiation"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
)

type scriptedDrafter struct {
	analysis model.ReplyAnalysis
}

func (d *scriptedDrafter) DraftOffer(_ context.Context, _ drafting.OfferRequest) (*model.OfferContent, error) {
	return &model.OfferContent{Subject: "Renewal", Body: "offer"}, nil
}

func (d *scriptedDrafter) AnalyzeReply(_ context.Context, _ drafting.NegotiationContext, _ string) (*model.ReplyAnalysis, error) {
	a := d.analysis
	return &a, nil
}

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

type notice struct {
	category model.NotificationCategory
	message  string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(_ context.Context, _, _ string, category model.NotificationCategory, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{category: category, message: message})
}

func (n *fakeNotifier) categories() []model.NotificationCategory {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NotificationCategory, 0, len(n.notices))
	for _, ntc := range n.notices {
		out = append(out, ntc.category)
	}
	return out
}

type fixture struct {
	store     *store.Store
	messenger *fakeMessenger
	relister  *fakeRelister
	notifier  *fakeNotifier
	lease     *model.Lease
	offer     *model.RenewalOffer
}

func setup(t *testing.T, drafter drafting.Drafter, terms model.LandlordTerms) (*negotiation.Service, *fixture) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	st, err := store.New(db)
	require.NoError(t, err)

	unit := &model.Unit{
		ID:             uuid.New().String(),
		LandlordID:     uuid.New().String(),
		Address:        "Linienstraße 40",
		City:           "Berlin",
		UnitIdentifier: "Apt 2A",
	}
	tenant := &model.Tenant{
		ID:             uuid.New().String(),
		FullName:       "Jonas Weber",
		Email:          "jonas@example.com",
		WhatsAppNumber: "+491607654321",
	}
	lease := &model.Lease{
		ID:          uuid.New().String(),
		UnitID:      unit.ID,
		TenantID:    tenant.ID,
		StartDate:   time.Now().AddDate(-2, 0, 0),
		EndDate:     time.Now().AddDate(0, 3, 0),
		MonthlyRent: decimal.NewFromInt(1000),
		Status:      model.LeaseStatusActive,
	}
	require.NoError(t, st.DB().Create(unit).Error)
	require.NoError(t, st.DB().Create(tenant).Error)
	require.NoError(t, st.DB().Create(lease).Error)

	off := &model.RenewalOffer{
		LeaseID:      lease.ID,
		ProposedRent: decimal.NewFromInt(1050),
		Status:       model.OfferPending,
		Channel:      model.ChannelWhatsApp,
		Terms:        terms,
		Content: model.OfferContent{
			Subject: "Your lease renewal",
			Options: []model.OfferOption{{
				Label:          "12-month renewal",
				MonthlyRent:    decimal.NewFromInt(1050),
				DurationMonths: 12,
				IncreasePct:    5,
			}},
		},
	}
	require.NoError(t, st.CreateOffer(context.Background(), off))
	sentAt := time.Now().Add(-24 * time.Hour)
	require.NoError(t, st.MarkSent(context.Background(), off.ID, sentAt))

	fx := &fixture{
		store:     st,
		messenger: &fakeMessenger{},
		relister:  &fakeRelister{},
		notifier:  &fakeNotifier{},
		lease:     lease,
		offer:     off,
	}
	svc := negotiation.NewService(st, st, st, st, st, drafter,
		fx.messenger, fx.relister, fx.notifier, logger.NewNop())
	return svc, fx
}

func autonomousTerms() model.LandlordTerms {
	return model.LandlordTerms{
		FloorRent:               decimal.NewFromInt(950),
		PreferredDurationMonths: 12,
		AutoNegotiate:           true,
	}
}

func TestHandleReplyRefusalTriggersRelist(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())
	ctx := context.Background()

	res, err := svc.HandleReply(ctx, fx.offer.ID, "No, I'm moving out at the end of the lease.")
	require.NoError(t, err)

	assert.Equal(t, model.ClassResistant, res.Analysis.Classification)
	assert.Equal(t, model.OfferRejected, res.NewStatus)
	assert.True(t, res.Analysis.TriggerRelisting)
	require.Len(t, fx.relister.calls, 1)
	assert.Equal(t, fx.lease.ID, fx.relister.calls[0])

	var fb model.OutcomeFeedback
	require.NoError(t, fx.store.DB().First(&fb, "lease_id = ?", fx.lease.ID).Error)
	assert.Equal(t, model.OutcomeChurned, fb.Outcome)
	assert.Nil(t, fb.IncreasePctAccepted)

	lease, err := fx.store.Get(ctx, fx.lease.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RenewalNotRenewing, lease.RenewalStatus)

	assert.Contains(t, fx.notifier.categories(), model.NotifyConcludedFailed)
}

func TestHandleReplyBelowFloorCounterForcesEscalation(t *testing.T) {
	counter := decimal.NewFromInt(900)
	drafter := &scriptedDrafter{analysis: model.ReplyAnalysis{
		SentimentScore:        0.1,
		SentimentLabel:        "neutral",
		Classification:        model.ClassNegotiating,
		NewRenewalProbability: 0.55,
		SuggestedCounterRent:  &counter,
		ResponseToTenant:      "How about €900?",
	}}
	svc, fx := setup(t, drafter, autonomousTerms())
	ctx := context.Background()

	res, err := svc.HandleReply(ctx, fx.offer.ID, "Could you do 900?")
	require.NoError(t, err)

	assert.True(t, res.Escalated)
	assert.Nil(t, res.Analysis.SuggestedCounterRent)
	assert.Nil(t, res.LogEntry.SuggestedCounterRent)
	assert.Equal(t, model.OfferPending, res.NewStatus)
	assert.NotEqual(t, "How about €900?", res.Analysis.ResponseToTenant)

	// The stored proposal never moves below the floor.
	got, err := fx.store.GetOffer(ctx, fx.offer.ID)
	require.NoError(t, err)
	assert.True(t, got.ProposedRent.Equal(decimal.NewFromInt(1050)))
	assert.Equal(t, model.OfferPending, got.Status)

	assert.Contains(t, fx.notifier.categories(), model.NotifyEscalation)
	assert.NotContains(t, fx.notifier.categories(), model.NotifyConcludedFailed)
	assert.Empty(t, fx.relister.calls)
}

func TestHandleReplyBelowFloorNeverCommits(t *testing.T) {
	for _, cents := range []int64{0, 1, 500, 949, 94999} {
		counter := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
		drafter := &scriptedDrafter{analysis: model.ReplyAnalysis{
			SentimentScore:        0,
			SentimentLabel:        "neutral",
			Classification:        model.ClassNegotiating,
			NewRenewalProbability: 0.5,
			SuggestedCounterRent:  &counter,
			ResponseToTenant:      "Counter offer",
			ConcludeDeal:          true,
		}}
		svc, fx := setup(t, drafter, autonomousTerms())

		res, err := svc.HandleReply(context.Background(), fx.offer.ID, "lower please")
		require.NoError(t, err)
		assert.True(t, res.Escalated, "counter %s must escalate", counter)
		assert.Nil(t, res.Analysis.SuggestedCounterRent)
		assert.False(t, res.Analysis.ConcludeDeal)
		assert.Equal(t, model.OfferPending, res.NewStatus)
	}
}

func TestHandleReplyNegotiatingCounterAboveFloor(t *testing.T) {
	counter := decimal.NewFromInt(1020)
	drafter := &scriptedDrafter{analysis: model.ReplyAnalysis{
		SentimentScore:        0,
		SentimentLabel:        "neutral",
		Classification:        model.ClassNegotiating,
		NewRenewalProbability: 0.55,
		SuggestedCounterRent:  &counter,
		ResponseToTenant:      "We can meet you at €1020.",
	}}
	svc, fx := setup(t, drafter, autonomousTerms())
	ctx := context.Background()

	res, err := svc.HandleReply(ctx, fx.offer.ID, "Any flexibility on the rent?")
	require.NoError(t, err)

	assert.Equal(t, model.OfferCountered, res.NewStatus)
	assert.False(t, res.Escalated)
	assert.True(t, res.ReplySent)

	got, err := fx.store.GetOffer(ctx, fx.offer.ID)
	require.NoError(t, err)
	assert.True(t, got.ProposedRent.Equal(counter))

	// Routine negotiating turns stay quiet toward the landlord.
	assert.Empty(t, fx.notifier.categories())
	assert.Empty(t, fx.relister.calls)
}

func TestHandleReplyAcceptanceConcludes(t *testing.T) {
	drafter := &scriptedDrafter{analysis: model.ReplyAnalysis{
		SentimentScore:        0.7,
		SentimentLabel:        "positive",
		Classification:        model.ClassAccepting,
		NewRenewalProbability: 0.88,
		ResponseToTenant:      "Wonderful, we'll prepare the paperwork.",
		ConcludeDeal:          true,
	}}
	svc, fx := setup(t, drafter, autonomousTerms())
	ctx := context.Background()

	res, err := svc.HandleReply(ctx, fx.offer.ID, "Sounds good, I'll take it.")
	require.NoError(t, err)
	assert.Equal(t, model.OfferAccepted, res.NewStatus)

	var fb model.OutcomeFeedback
	require.NoError(t, fx.store.DB().First(&fb, "lease_id = ?", fx.lease.ID).Error)
	assert.Equal(t, model.OutcomeRenewed, fb.Outcome)
	assert.Equal(t, 5.0, fb.IncreasePctOffered)
	require.NotNil(t, fb.IncreasePctAccepted)
	assert.InDelta(t, 5.0, *fb.IncreasePctAccepted, 1e-9)

	lease, err := fx.store.Get(ctx, fx.lease.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RenewalRenewing, lease.RenewalStatus)
	assert.Contains(t, fx.notifier.categories(), model.NotifyConcludedSuccess)

	// A concluded offer accepts no further replies.
	_, err = svc.HandleReply(ctx, fx.offer.ID, "actually wait")
	assert.ErrorIs(t, err, negotiation.ErrOfferClosed)
}

func TestHandleReplyWithoutAutonomySendsNothing(t *testing.T) {
	terms := autonomousTerms()
	terms.AutoNegotiate = false
	svc, fx := setup(t, drafting.NewTemplateDrafter(), terms)

	res, err := svc.HandleReply(context.Background(), fx.offer.ID, "Could you go a bit lower?")
	require.NoError(t, err)

	assert.False(t, res.ReplySent)
	assert.Empty(t, fx.messenger.sent)
}

func TestHandleReplyLogsConversation(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())
	ctx := context.Background()

	_, err := svc.HandleReply(ctx, fx.offer.ID, "Could you go a bit lower on the rent?")
	require.NoError(t, err)

	var msgs []model.MessageLog
	require.NoError(t, fx.store.DB().Where("lease_id = ?", fx.lease.ID).Order("created_at").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, "Could you go a bit lower on the rent?", msgs[0].Body)
	assert.Equal(t, model.DirectionOutbound, msgs[1].Direction)

	logs, err := fx.store.LogsForLease(ctx, fx.lease.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ClassNegotiating, logs[0].Classification)
}

func TestLandlordDecisionAccept(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())
	ctx := context.Background()

	off, err := svc.HandleLandlordDecision(ctx, fx.offer.ID, model.DecisionAccept, nil)
	require.NoError(t, err)
	assert.Equal(t, model.OfferAccepted, off.Status)

	assert.Contains(t, fx.notifier.categories(), model.NotifyConcludedSuccess)
	require.Len(t, fx.messenger.sent, 1)
	assert.Contains(t, fx.messenger.sent[0].Body, "1050.00")
}

func TestLandlordDecisionCounterBelowFloorRejected(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())
	ctx := context.Background()

	below := decimal.NewFromInt(900)
	_, err := svc.HandleLandlordDecision(ctx, fx.offer.ID, model.DecisionCounter, &below)
	assert.ErrorIs(t, err, negotiation.ErrCounterBelowFloor)

	ok := decimal.NewFromInt(1000)
	off, err := svc.HandleLandlordDecision(ctx, fx.offer.ID, model.DecisionCounter, &ok)
	require.NoError(t, err)
	assert.Equal(t, model.OfferCountered, off.Status)
	assert.True(t, off.ProposedRent.Equal(ok))
	require.Len(t, fx.messenger.sent, 1)
	assert.Contains(t, fx.messenger.sent[0].Body, "1000.00")
}

func TestLandlordDecisionRejectRelists(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())

	off, err := svc.HandleLandlordDecision(context.Background(), fx.offer.ID, model.DecisionReject, nil)
	require.NoError(t, err)
	assert.Equal(t, model.OfferRejected, off.Status)
	require.Len(t, fx.relister.calls, 1)
	assert.Contains(t, fx.notifier.categories(), model.NotifyConcludedFailed)
}

func TestLandlordDecisionDispatchesHeldOffer(t *testing.T) {
	svc, fx := setup(t, drafting.NewTemplateDrafter(), autonomousTerms())
	ctx := context.Background()

	// Rewind the fixture to a held, never-sent offer.
	require.NoError(t, fx.store.DB().Model(&model.RenewalOffer{}).
		Where("id = ?", fx.offer.ID).
		Updates(map[string]any{"sent_at": nil, "requires_approval": true}).Error)

	off, err := svc.HandleLandlordDecision(ctx, fx.offer.ID, model.DecisionAccept, nil)
	require.NoError(t, err)

	// Approval dispatches the offer rather than closing the deal.
	assert.Equal(t, model.OfferPending, off.Status)
	require.NotNil(t, off.SentAt)
	require.Len(t, fx.messenger.sent, 1)
	assert.Equal(t, "Your lease renewal", fx.messenger.sent[0].Subject)

	got, err := fx.store.GetOffer(ctx, fx.offer.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.SentAt)
	assert.Empty(t, fx.notifier.categories())
}
