package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/loomhq/loom/internal/connector"
	"github.com/loomhq/loom/internal/domain/activity"
	"github.com/loomhq/loom/internal/domain/credential"
	"github.com/loomhq/loom/internal/domain/decision"
	"github.com/loomhq/loom/internal/domain/reconcile"
	"github.com/loomhq/loom/internal/domain/source"
	"github.com/loomhq/loom/internal/domain/workitem"
	"github.com/loomhq/loom/internal/repository"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrNotEligible means the tenant's subscription no longer permits runs.
	ErrNotEligible = errors.New("tenant not eligible for scheduled runs")

	// ErrTierLocked means the tenant's tier does not unlock the source.
	ErrTierLocked = errors.New("source locked behind a higher tier")
)

// Ingestor is the scheduler's view of the activity service.
type Ingestor interface {
	Ingest(ctx context.Context, tenantID string, src source.Source, items []activity.Item) ([]activity.Item, error)
}

// CredentialSource yields opened credentials for fetches.
type CredentialSource interface {
	Get(ctx context.Context, tenantID string, src source.Source) (*credential.Credential, error)
}

// Engine is the scheduler's view of the reconciliation engine.
type Engine interface {
	Reconcile(ctx context.Context, tenantID string) (reconcile.Summary, error)
	BuildDigest(ctx context.Context, tenantID string, kind reconcile.DigestKind) (*decision.Decision, error)
}

// DecisionApplier executes a single pending decision.
type DecisionApplier interface {
	Apply(ctx context.Context, tenantID, decisionID string) error
}

// Options configures schedules and concurrency.
type Options struct {
	SyncSchedule         string
	DailyDigestSchedule  string
	WeeklyDigestSchedule string
	MaxConcurrentRuns    int64
	LeaseTTL             time.Duration
}

// SyncReport summarizes one sync run for a tenant/source pair.
type SyncReport struct {
	Fetched   int
	Ingested  int
	Mirrored  int
	Recorded  int
	Applied   int
	NewCursor string
}

// Scheduler drives periodic per-tenant sync and digest runs. Each run is
// scoped to one tenant/source pair, guarded by a lease, and bounded by a
// shared concurrency semaphore.
type Scheduler struct {
	tenants     repository.TenantRepository
	credentials CredentialSource
	cursors     repository.CursorRepository
	activities  Ingestor
	items       repository.WorkItemRepository
	leases      repository.LeaseRepository
	engine      Engine
	applier     DecisionApplier
	connectors  connector.Registry
	opts        Options
	sem         *semaphore.Weighted
	cron        *cron.Cron
	logger      *slog.Logger
}

// New creates a Scheduler.
func New(
	tenants repository.TenantRepository,
	credentials CredentialSource,
	cursors repository.CursorRepository,
	activities Ingestor,
	items repository.WorkItemRepository,
	leases repository.LeaseRepository,
	engine Engine,
	applier DecisionApplier,
	connectors connector.Registry,
	opts Options,
	logger *slog.Logger,
) *Scheduler {
	if opts.SyncSchedule == "" {
		opts.SyncSchedule = "@hourly"
	}
	if opts.DailyDigestSchedule == "" {
		opts.DailyDigestSchedule = "0 9 * * *"
	}
	if opts.WeeklyDigestSchedule == "" {
		opts.WeeklyDigestSchedule = "0 9 * * MON"
	}
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 4
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 10 * time.Minute
	}
	return &Scheduler{
		tenants:     tenants,
		credentials: credentials,
		cursors:     cursors,
		activities:  activities,
		items:       items,
		leases:      leases,
		engine:      engine,
		applier:     applier,
		connectors:  connectors,
		opts:        opts,
		sem:         semaphore.NewWeighted(opts.MaxConcurrentRuns),
		logger:      logger,
	}
}

// Start registers the cron entries and begins running them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.opts.SyncSchedule, func() { s.SyncAll(ctx) }); err != nil {
		return fmt.Errorf("registering sync schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(s.opts.DailyDigestSchedule, func() { s.DigestAll(ctx, reconcile.DigestDaily) }); err != nil {
		return fmt.Errorf("registering daily digest schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(s.opts.WeeklyDigestSchedule, func() { s.DigestAll(ctx, reconcile.DigestWeekly) }); err != nil {
		return fmt.Errorf("registering weekly digest schedule: %w", err)
	}

	s.cron.Start()
	if s.logger != nil {
		s.logger.Info("scheduler started",
			"sync", s.opts.SyncSchedule,
			"daily_digest", s.opts.DailyDigestSchedule,
			"weekly_digest", s.opts.WeeklyDigestSchedule)
	}
	return nil
}

// Stop halts the cron and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// SyncAll runs one sync cycle over every eligible tenant and every
// connected source their tier unlocks.
func (s *Scheduler) SyncAll(ctx context.Context) {
	tenants, err := s.tenants.ListEligible(ctx, time.Now())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("listing eligible tenants", "error", err)
		}
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ten := range tenants {
		for src := range s.connectors {
			ten, src := ten, src
			g.Go(func() error {
				if err := s.sem.Acquire(ctx, 1); err != nil {
					return err
				}
				defer s.sem.Release(1)

				_, err := s.RunSync(ctx, ten.ID, src)
				switch {
				case err == nil:
				case errors.Is(err, ErrTierLocked),
					errors.Is(err, credential.ErrNotConnected),
					errors.Is(err, repository.ErrLeaseHeld):
					// Expected per-tenant conditions; the cycle goes on.
					if s.logger != nil {
						s.logger.Debug("skipping sync", "tenant", ten.ID, "source", src, "reason", err)
					}
				default:
					if s.logger != nil {
						s.logger.Error("sync failed", "tenant", ten.ID, "source", src, "error", err)
					}
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

// RunSync executes the full pipeline for one tenant/source pair: gates,
// lease, fetch, ingest, mirror, cursor advance, reconcile, auto-apply.
func (s *Scheduler) RunSync(ctx context.Context, tenantID string, src source.Source) (*SyncReport, error) {
	ten, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading tenant: %w", err)
	}
	if !ten.Eligible(time.Now()) {
		return nil, fmt.Errorf("tenant %s (%s): %w", ten.ID, ten.Status, ErrNotEligible)
	}
	if !ten.TierAllows(src) {
		return nil, fmt.Errorf("tenant %s tier %s, source %s: %w", ten.ID, ten.Tier, src, ErrTierLocked)
	}

	conn, err := s.connectors.Get(src)
	if err != nil {
		return nil, err
	}

	// Each run holds the lease under its own identity so an overlapping
	// trigger in the same process is refused like one from anywhere else.
	holder := uuid.NewString()
	if err := s.leases.Acquire(ctx, tenantID, src, holder, s.opts.LeaseTTL); err != nil {
		return nil, fmt.Errorf("acquiring run lease: %w", err)
	}
	defer func() {
		if err := s.leases.Release(context.WithoutCancel(ctx), tenantID, src, holder); err != nil && s.logger != nil {
			s.logger.Warn("releasing run lease", "tenant", tenantID, "source", src, "error", err)
		}
	}()

	cred, err := s.credentials.Get(ctx, tenantID, src)
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	cursor := ""
	if c, err := s.cursors.Get(ctx, tenantID, src); err == nil {
		cursor = c.Watermark
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	result, err := backoff.Retry(ctx, func() (*connector.FetchResult, error) {
		res, err := conn.FetchSince(ctx, cred.Token, cursor)
		if err != nil {
			if connector.IsTransient(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return res, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", src, err)
	}

	report := &SyncReport{Fetched: len(result.Activity), NewCursor: result.NewCursor}

	inserted, err := s.activities.Ingest(ctx, tenantID, src, result.Activity)
	if err != nil {
		return nil, fmt.Errorf("ingesting activity: %w", err)
	}
	report.Ingested = len(inserted)

	if len(result.Items) > 0 {
		mirrored := make([]workitem.WorkItem, len(result.Items))
		for i, item := range result.Items {
			item.TenantID = tenantID
			mirrored[i] = item
		}
		if err := s.items.Upsert(ctx, tenantID, mirrored); err != nil {
			return nil, fmt.Errorf("mirroring work items: %w", err)
		}
		report.Mirrored = len(mirrored)
	}

	if result.NewCursor != "" && result.NewCursor != cursor {
		err := s.cursors.Advance(ctx, tenantID, src, result.NewCursor)
		if errors.Is(err, repository.ErrStaleCursor) {
			// Another run got further; everything here was idempotent.
			if s.logger != nil {
				s.logger.Warn("cursor already ahead", "tenant", tenantID, "source", src)
			}
		} else if err != nil {
			return nil, fmt.Errorf("advancing cursor: %w", err)
		}
	}

	summary, err := s.engine.Reconcile(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}
	report.Recorded = len(summary.Recorded)

	for _, d := range summary.Recorded {
		if !d.AutoApply {
			continue
		}
		if err := s.applier.Apply(ctx, tenantID, d.ID); err != nil {
			if s.logger != nil {
				s.logger.Warn("auto-apply failed", "tenant", tenantID, "decision", d.ID, "error", err)
			}
			continue
		}
		report.Applied++
	}

	if s.logger != nil {
		s.logger.Info("sync complete",
			"tenant", tenantID, "source", src,
			"fetched", report.Fetched, "ingested", report.Ingested,
			"recorded", report.Recorded, "applied", report.Applied)
	}
	return report, nil
}

// DigestAll posts the digest for every eligible tenant.
func (s *Scheduler) DigestAll(ctx context.Context, kind reconcile.DigestKind) {
	tenants, err := s.tenants.ListEligible(ctx, time.Now())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("listing eligible tenants", "error", err)
		}
		return
	}

	for _, ten := range tenants {
		if err := s.RunDigest(ctx, ten.ID, kind); err != nil && s.logger != nil {
			s.logger.Warn("digest failed", "tenant", ten.ID, "kind", kind, "error", err)
		}
	}
}

// RunDigest builds and posts one digest for a tenant.
func (s *Scheduler) RunDigest(ctx context.Context, tenantID string, kind reconcile.DigestKind) error {
	ten, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("loading tenant: %w", err)
	}
	if !ten.Eligible(time.Now()) {
		return fmt.Errorf("tenant %s (%s): %w", ten.ID, ten.Status, ErrNotEligible)
	}

	d, err := s.engine.BuildDigest(ctx, tenantID, kind)
	if err != nil {
		return fmt.Errorf("building digest: %w", err)
	}

	if err := s.applier.Apply(ctx, tenantID, d.ID); err != nil {
		return fmt.Errorf("posting digest: %w", err)
	}
	return nil
}
