package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
	"github.com/nishchith-m1015/campaign-sync/pkg/events"
	"github.com/nishchith-m1015/campaign-sync/pkg/lock"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/otelhelper"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// SweepLockKey names the advisory lock that keeps sweeps from overlapping
// across process instances.
const SweepLockKey = "campaign-sync:sweep"

const defaultSweepLockTTL = 4 * time.Minute

// SweepResult aggregates one reconciliation pass.
type SweepResult struct {
	Checked    int   `json:"checked"`
	Updated    int   `json:"updated"`
	Errored    int   `json:"errored"`
	DurationMs int64 `json:"duration_ms"`

	// Skipped means another instance held the sweep lock; nothing ran.
	Skipped bool `json:"skipped"`
}

// Sweeper is the drift-correcting fallback pass. It polls the engine for
// every linked campaign and rewrites stale remote_status values, bounding
// the staleness window to the sweep interval.
//
// Sweep writes deliberately stay outside the version protocol: the sweeper
// records observations of remote truth, so losing a race against a
// concurrent toggle is self-correcting on the next pass.
type Sweeper struct {
	persistence persistence.Persistence
	engine      automation.Client
	locker      lock.Locker
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
	lockTTL     time.Duration
}

// NewSweeper creates a reconciliation sweeper. lockTTL bounds how long a
// crashed sweep can block the next one; zero selects the default.
func NewSweeper(
	persistence persistence.Persistence,
	engine automation.Client,
	locker lock.Locker,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
	lockTTL time.Duration,
) *Sweeper {
	if lockTTL <= 0 {
		lockTTL = defaultSweepLockTTL
	}

	return &Sweeper{
		persistence: persistence,
		engine:      engine,
		locker:      locker,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("service", "sweeper"),
		lockTTL:     lockTTL,
	}
}

// Sweep runs one reconciliation pass over every linked campaign. Sweeps are
// best-effort: a failure on one campaign is counted and the pass continues.
// Returns a skipped result when another instance holds the sweep lock.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	if s.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, s.tracer, "sweeper.sweep")
		defer span.End()
	}

	started := time.Now()

	release, acquired, err := s.locker.Acquire(ctx, SweepLockKey, s.lockTTL)
	if err != nil {
		return nil, NewServiceError("Sweep", "LOCK_FAILED", "failed to acquire sweep lock", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if !acquired {
		s.logger.InfoContext(ctx, "sweep already running elsewhere, skipping")

		return &SweepResult{Skipped: true}, nil
	}

	defer func() {
		err := release(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to release sweep lock", "error", err)
		}
	}()

	campaigns, err := s.persistence.CampaignRepository().ListLinked(ctx)
	if err != nil {
		return nil, NewServiceError("Sweep", "STORAGE_FAILED", "failed to list linked campaigns", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	result := &SweepResult{}

	for _, campaign := range campaigns {
		result.Checked++

		updated, err := s.reconcile(ctx, campaign)
		if err != nil {
			result.Errored++

			s.logger.ErrorContext(ctx, "failed to reconcile campaign",
				"campaign_id", campaign.ID,
				"workflow_id", *campaign.RemoteWorkflowID,
				"error", err)

			continue
		}

		if updated {
			result.Updated++
		}
	}

	result.DurationMs = time.Since(started).Milliseconds()

	s.logger.InfoContext(ctx, "sweep finished",
		"checked", result.Checked,
		"updated", result.Updated,
		"errored", result.Errored,
		"duration_ms", result.DurationMs)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("campaignsync.sweep.checked", result.Checked),
			attribute.Int("campaignsync.sweep.updated", result.Updated),
			attribute.Int("campaignsync.sweep.errored", result.Errored),
		)
	}

	return result, nil
}

// reconcile observes one campaign's remote state and corrects drift. A
// panic in the engine client or store is contained to this campaign.
func (s *Sweeper) reconcile(ctx context.Context, campaign *models.Campaign) (updated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reconciling campaign %s: %v", campaign.ID, r)
		}
	}()

	state, remoteErr := s.engine.GetStatus(ctx, *campaign.RemoteWorkflowID)
	if remoteErr != nil {
		// Redundant error marks are skipped so a long engine outage does
		// not rewrite the same rows every pass.
		if campaign.RemoteStatus == models.RemoteStatusError || campaign.RemoteStatus == models.RemoteStatusUnknown {
			return false, nil
		}

		s.logger.WarnContext(ctx, "engine observation failed, marking campaign",
			"campaign_id", campaign.ID,
			"workflow_id", *campaign.RemoteWorkflowID,
			"not_found", automation.IsNotFound(remoteErr),
			"error", remoteErr)

		return s.writeObservation(ctx, campaign, models.RemoteStatusError)
	}

	observed := models.RemoteStatusFromActive(state.Active)
	if observed == campaign.RemoteStatus {
		return false, nil
	}

	return s.writeObservation(ctx, campaign, observed)
}

// ApplyObservation records a remote state pushed by the engine's callback.
// Like the sweep it only corrects drift: an observation matching the stored
// remote_status writes nothing.
func (s *Sweeper) ApplyObservation(ctx context.Context, workflowID string, active bool) (*models.Campaign, error) {
	campaign, err := s.persistence.CampaignRepository().GetByRemoteWorkflowID(ctx, workflowID)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return nil, NewServiceError("ApplyObservation", "CAMPAIGN_NOT_FOUND", "no campaign linked to workflow "+workflowID, ErrCampaignNotFound)
		}

		return nil, NewServiceError("ApplyObservation", "STORAGE_FAILED", "failed to resolve workflow", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	observed := models.RemoteStatusFromActive(active)
	if observed == campaign.RemoteStatus {
		return campaign, nil
	}

	_, err = s.writeObservation(ctx, campaign, observed)
	if err != nil {
		return nil, NewServiceError("ApplyObservation", "STORAGE_FAILED", "failed to record observation", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	return campaign, nil
}

// writeObservation persists a remote_status correction without touching
// version and publishes the drift event.
func (s *Sweeper) writeObservation(ctx context.Context, campaign *models.Campaign, observed models.RemoteStatus) (bool, error) {
	now := time.Now().UTC()

	err := s.persistence.CampaignRepository().UpdateRemoteStatus(ctx, campaign.ID, observed, now)
	if err != nil {
		return false, err
	}

	previous := campaign.RemoteStatus
	campaign.RemoteStatus = observed
	campaign.LastSyncAt = &now

	publishEvent(ctx, s.publisher, s.logger, campaign.ID, events.CampaignDriftCorrected{
		BaseEvent: events.BaseEvent{
			ID:          uuid.New().String(),
			Type:        events.CampaignDriftCorrectedEvent,
			Timestamp:   now,
			CampaignID:  campaign.ID,
			WorkspaceID: campaign.WorkspaceID,
		},
		PreviousStatus: previous,
		ObservedStatus: observed,
	})

	return true, nil
}
