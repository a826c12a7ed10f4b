// Package workflow is the time-driven orchestrator: one idempotent sweep that
// initiates renewals entering the contact window, reminds silent tenants and
// re-lists units past the patience threshold.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/renewal-ai/renewal-engine/internal/config"
	"github.com/renewal-ai/renewal-engine/internal/listing"
	"github.com/renewal-ai/renewal-engine/internal/messaging"
	"github.com/renewal-ai/renewal-engine/internal/model"
	"github.com/renewal-ai/renewal-engine/internal/offer"
	"github.com/renewal-ai/renewal-engine/internal/store"
	"github.com/renewal-ai/renewal-engine/pkg/logger"
	"github.com/renewal-ai/renewal-engine/pkg/metrics"
)

// SweepError records one lease's failure without aborting the batch.
type SweepError struct {
	LeaseID string `json:"lease_id"`
	Stage   string `json:"stage"` // initiate | follow_up | auto_list
	Error   string `json:"error"`
}

// Summary reports what one sweep did.
type Summary struct {
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Initiated  []string     `json:"initiated"`
	FollowedUp []string     `json:"followed_up"`
	AutoListed []string     `json:"auto_listed"`
	Errors     []SweepError `json:"errors"`
}

// Orchestrator runs the sweep.
type Orchestrator struct {
	leases    store.LeaseStore
	offers    store.OfferStore
	dispatch  *offer.Service
	messenger messaging.Messenger
	relister  listing.Relister
	cfg       config.EngineConfig
	workers   int
	log       *logger.Logger
	now       func() time.Time
}

// NewOrchestrator wires the sweep. workers bounds per-lease concurrency in
// the initiation branch.
func NewOrchestrator(
	leases store.LeaseStore,
	offers store.OfferStore,
	dispatch *offer.Service,
	messenger messaging.Messenger,
	relister listing.Relister,
	cfg config.EngineConfig,
	workers int,
	log *logger.Logger,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		leases:    leases,
		offers:    offers,
		dispatch:  dispatch,
		messenger: messenger,
		relister:  relister,
		cfg:       cfg,
		workers:   workers,
		log:       log,
		now:       time.Now,
	}
}

// Sweep runs all three branches once. Re-running immediately is a no-op: the
// offer-existence, follow-up-count and status guards make every branch
// idempotent. Per-lease failures are recorded and do not abort the batch.
func (o *Orchestrator) Sweep(ctx context.Context) (*Summary, error) {
	metrics.SweepRuns.Inc()
	now := o.now()
	summary := &Summary{
		StartedAt:  now,
		Initiated:  []string{},
		FollowedUp: []string{},
		AutoListed: []string{},
		Errors:     []SweepError{},
	}

	if err := o.initiateBranch(ctx, now, summary); err != nil {
		return nil, err
	}
	if err := o.followUpBranch(ctx, now, summary); err != nil {
		return nil, err
	}
	if err := o.autoListBranch(ctx, now, summary); err != nil {
		return nil, err
	}

	summary.FinishedAt = o.now()
	o.log.Info("sweep complete",
		zap.Int("initiated", len(summary.Initiated)),
		zap.Int("followed_up", len(summary.FollowedUp)),
		zap.Int("auto_listed", len(summary.AutoListed)),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

// initiateBranch starts renewals for active leases whose end date falls inside
// the contact window and that have never had an offer. Lease work runs on a
// bounded pool since each initiation blocks on drafting and delivery I/O.
func (o *Orchestrator) initiateBranch(ctx context.Context, now time.Time, summary *Summary) error {
	center := now.AddDate(0, 0, o.cfg.FirstContactDaysBeforeExpiry)
	slack := time.Duration(o.cfg.InitiateWindowSlackDays) * 24 * time.Hour
	from, to := center.Add(-slack), center.Add(slack)

	leases, err := o.leases.ActiveExpiringBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list expiring leases: %w", err)
	}

	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := range leases {
		lease := leases[i]
		if ctx.Err() != nil {
			break
		}

		// Any prior offer, whatever its status, suppresses re-initiation:
		// one proposal cycle per renewal window.
		has, err := o.offers.HasAnyOffer(ctx, lease.ID)
		if err != nil {
			o.recordError(summary, &mu, lease.ID, "initiate", err)
			continue
		}
		if has {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := o.dispatch.Initiate(ctx, lease.ID, nil, nil); err != nil {
				o.recordError(summary, &mu, lease.ID, "initiate", err)
				return
			}
			mu.Lock()
			summary.Initiated = append(summary.Initiated, lease.ID)
			mu.Unlock()
			metrics.SweepActions.WithLabelValues("initiated").Inc()
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// followUpBranch reminds tenants who have been silent past the threshold.
// Exactly one follow-up is ever sent per offer.
func (o *Orchestrator) followUpBranch(ctx context.Context, now time.Time, summary *Summary) error {
	cutoff := now.Add(-o.cfg.FollowUpAfter)
	offers, err := o.offers.FollowUpCandidates(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list follow-up candidates: %w", err)
	}

	for i := range offers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		off := offers[i]
		if err := o.sendFollowUp(ctx, &off); err != nil {
			o.recordError(summary, nil, off.LeaseID, "follow_up", err)
			continue
		}
		summary.FollowedUp = append(summary.FollowedUp, off.ID)
		metrics.SweepActions.WithLabelValues("followed_up").Inc()
	}
	return nil
}

// autoListBranch gives up on offers silent past the longer threshold: the
// unit goes back to market and the offer expires.
func (o *Orchestrator) autoListBranch(ctx context.Context, now time.Time, summary *Summary) error {
	cutoff := now.Add(-o.cfg.AutoListAfter)
	offers, err := o.offers.AutoListCandidates(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list auto-list candidates: %w", err)
	}

	for i := range offers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		off := offers[i]

		if err := o.relister.Relist(ctx, off.LeaseID); err != nil {
			o.recordError(summary, nil, off.LeaseID, "auto_list", err)
			continue
		}
		if err := o.offers.SetStatus(ctx, off.ID, model.OfferExpired); err != nil {
			o.recordError(summary, nil, off.LeaseID, "auto_list", err)
			continue
		}
		if err := o.leases.SetRenewalStatus(ctx, off.LeaseID, model.RenewalNotRenewing); err != nil {
			o.log.WithLease(off.LeaseID).Warn("failed to tag lease renewal status", zap.Error(err))
		}
		summary.AutoListed = append(summary.AutoListed, off.ID)
		metrics.SweepActions.WithLabelValues("auto_listed").Inc()
	}
	return nil
}

// FollowUp sends a manual reminder for one offer, outside the sweep cadence.
func (o *Orchestrator) FollowUp(ctx context.Context, offerID string) error {
	off, err := o.offers.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if off.Status != model.OfferPending {
		return fmt.Errorf("offer %s is %s: %w", off.ID, off.Status, store.ErrInvalidTransition)
	}
	if off.SentAt == nil {
		return fmt.Errorf("offer %s has not been sent yet", off.ID)
	}
	return o.sendFollowUp(ctx, off)
}

func (o *Orchestrator) sendFollowUp(ctx context.Context, off *model.RenewalOffer) error {
	var tenant *model.Tenant
	tenantName := "there"
	if off.Lease != nil && off.Lease.Tenant != nil {
		tenant = off.Lease.Tenant
		tenantName = tenant.FullName
	}
	_, destination := messaging.SelectChannel(tenant)

	body := fmt.Sprintf(
		"Hi %s, just following up on the renewal offer we sent you. "+
			"We'd love to hear your thoughts. If you have any questions about the proposed terms "+
			"(€%s/month), just reply here.",
		tenantName, off.ProposedRent.StringFixed(2))

	err := o.messenger.Send(ctx, messaging.Message{
		LeaseID:     off.LeaseID,
		Channel:     off.Channel,
		Destination: destination,
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("send follow-up: %w", err)
	}
	if err := o.offers.RecordFollowUp(ctx, off.ID, o.now()); err != nil {
		return err
	}

	o.log.WithLease(off.LeaseID).WithOffer(off.ID).Info("follow-up sent",
		zap.String("channel", string(off.Channel)))
	return nil
}

func (o *Orchestrator) recordError(summary *Summary, mu *sync.Mutex, leaseID, stage string, err error) {
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	o.log.WithLease(leaseID).Error("sweep step failed",
		zap.String("stage", stage), zap.Error(err))
	summary.Errors = append(summary.Errors, SweepError{LeaseID: leaseID, Stage: stage, Error: err.Error()})
	metrics.SweepActions.WithLabelValues("errored").Inc()
}
