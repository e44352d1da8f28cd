package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
	"github.com/nishchith-m1015/campaign-sync/pkg/events"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/otelhelper"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// Toggle handles operator activate/deactivate requests. No campaign lock is
// held across the engine call; the conditional write on version is the only
// ordering mechanism, so two concurrent toggles race to the write and the
// loser gets a conflict instead of silently overwriting.
type Toggle struct {
	persistence persistence.Persistence
	authorizer  authorization.Authorizer
	engine      automation.Client
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewToggle creates a toggle service. A nil engine selects degraded mode:
// toggles apply locally only and remote_status stays stale until the next
// reconciliation sweep.
func NewToggle(
	persistence persistence.Persistence,
	authorizer authorization.Authorizer,
	engine automation.Client,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Toggle {
	return &Toggle{
		persistence: persistence,
		authorizer:  authorizer,
		engine:      engine,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("service", "toggle"),
	}
}

// Toggle transitions a campaign between paused and active, asserting the
// matching state on the linked remote workflow.
//
// Repeated requests for a state the campaign already holds are no-ops: no
// engine call, no version bump. A remote failure marks remote_status error
// and surfaces to the caller, because a toggle is explicit operator intent
// that must be confirmed, never silently degraded.
func (t *Toggle) Toggle(ctx context.Context, campaignID string, action models.ToggleAction, userID string) (*models.Campaign, error) {
	if t.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, t.tracer, "toggle.campaign",
			attribute.String(otelhelper.CampaignIDKey, campaignID),
			attribute.String(otelhelper.ActionKey, string(action)),
		)
		defer span.End()
	}

	if !action.Valid() {
		return nil, t.fail(ctx, NewServiceError("Toggle", "INVALID_ACTION", fmt.Sprintf("unknown action %q", action), ErrInvalidAction))
	}

	campaign, err := t.persistence.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return nil, t.fail(ctx, NewServiceError("Toggle", "CAMPAIGN_NOT_FOUND", "campaign "+campaignID+" not found", ErrCampaignNotFound))
		}

		return nil, t.fail(ctx, NewServiceError("Toggle", "STORAGE_FAILED", "failed to load campaign", fmt.Errorf("%w: %w", ErrStorage, err)))
	}

	err = t.authorize(ctx, userID, campaign.WorkspaceID)
	if err != nil {
		return nil, t.fail(ctx, err)
	}

	if !campaign.Linked() {
		return nil, t.fail(ctx, NewServiceError("Toggle", "NOT_LINKED", "campaign "+campaignID+" has no linked remote workflow", ErrWorkflowNotLinked))
	}

	readVersion := campaign.Version
	targetRemote := action.TargetRemoteStatus()

	// Idempotency short-circuit: retried requests for the current state
	// must not touch the engine or advance the version.
	if campaign.RemoteStatus == targetRemote {
		t.logger.DebugContext(ctx, "toggle is a no-op",
			"campaign_id", campaignID,
			"action", action)

		return campaign, nil
	}

	resolvedRemote := campaign.RemoteStatus
	syncedAt := campaign.LastSyncAt
	now := time.Now().UTC()

	if t.engine == nil {
		t.logger.WarnContext(ctx, "automation engine not configured, applying local state only",
			"campaign_id", campaignID,
			"action", action)
	} else {
		state, err := t.engine.SetActive(ctx, *campaign.RemoteWorkflowID, action == models.ToggleActionActivate)
		if err != nil {
			t.markRemoteError(ctx, campaignID, now)

			return nil, t.fail(ctx, NewServiceError("Toggle", "REMOTE_FAILED", "automation engine rejected the toggle", fmt.Errorf("%w: %w", ErrRemoteCallFailed, err)))
		}

		// The engine's reported state, not the requested one, is what
		// gets persisted.
		resolvedRemote = models.RemoteStatusFromActive(state.Active)
		syncedAt = &now
	}

	campaign.Status = action.TargetCampaignStatus()
	campaign.RemoteStatus = resolvedRemote
	campaign.LastSyncAt = syncedAt

	err = t.persistence.CampaignRepository().Update(ctx, campaign, readVersion)
	if err != nil {
		if persistence.IsVersionConflict(err) {
			return nil, t.fail(ctx, NewServiceError("Toggle", "VERSION_CONFLICT", "campaign was modified concurrently", ErrVersionConflict))
		}

		if persistence.IsCampaignNotFound(err) {
			return nil, t.fail(ctx, NewServiceError("Toggle", "CAMPAIGN_NOT_FOUND", "campaign "+campaignID+" not found", ErrCampaignNotFound))
		}

		return nil, t.fail(ctx, NewServiceError("Toggle", "STORAGE_FAILED", "failed to write campaign", fmt.Errorf("%w: %w", ErrStorage, err)))
	}

	t.logger.InfoContext(ctx, "campaign toggled",
		"campaign_id", campaignID,
		"action", action,
		"status", campaign.Status,
		"remote_status", campaign.RemoteStatus,
		"version", campaign.Version)

	t.publishToggled(ctx, campaign, action)

	return campaign, nil
}

// authorize allows workspace members and anyone acting on the default
// workspace.
func (t *Toggle) authorize(ctx context.Context, userID, workspaceID string) error {
	if workspaceID == authorization.DefaultWorkspaceID {
		return nil
	}

	access, err := t.authorizer.HasWorkspaceAccess(ctx, userID, workspaceID)
	if err != nil {
		return NewServiceError("Toggle", "AUTH_CHECK_FAILED", "authorization check failed", fmt.Errorf("%w: %w", ErrPermissionDenied, err))
	}

	if !access.CanWrite {
		return NewServiceError("Toggle", "PERMISSION_DENIED", "caller is not a member of workspace "+workspaceID, ErrPermissionDenied)
	}

	return nil
}

// markRemoteError records that the last engine observation failed. A failed
// record is logged only; the remote failure is what the caller sees.
func (t *Toggle) markRemoteError(ctx context.Context, campaignID string, now time.Time) {
	err := t.persistence.CampaignRepository().UpdateRemoteStatus(ctx, campaignID, models.RemoteStatusError, now)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to mark remote status error",
			"campaign_id", campaignID,
			"error", err)
	}
}

func (t *Toggle) publishToggled(ctx context.Context, campaign *models.Campaign, action models.ToggleAction) {
	base := events.BaseEvent{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		CampaignID:  campaign.ID,
		WorkspaceID: campaign.WorkspaceID,
	}

	var event eventbus.Event

	if action == models.ToggleActionActivate {
		base.Type = events.CampaignActivatedEvent
		event = events.CampaignActivated{
			BaseEvent:        base,
			RemoteWorkflowID: *campaign.RemoteWorkflowID,
			Version:          campaign.Version,
		}
	} else {
		base.Type = events.CampaignDeactivatedEvent
		event = events.CampaignDeactivated{
			BaseEvent:        base,
			RemoteWorkflowID: *campaign.RemoteWorkflowID,
			Version:          campaign.Version,
		}
	}

	publishEvent(ctx, t.publisher, t.logger, campaign.ID, event)
}

func (t *Toggle) fail(ctx context.Context, err error) error {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		otelhelper.SetError(span, err)
	}

	return err
}
