package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/eventbus"
	"github.com/nishchith-m1015/campaign-sync/pkg/events"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// Provisioning drives campaign creation. The synchronous part writes the
// campaign row and the four-step audit trail atomically; the remote steps
// (clone, webhook, activate) run afterwards through RunSteps so a slow
// engine never blocks the creation request.
type Provisioning struct {
	persistence persistence.Persistence
	authorizer  authorization.Authorizer
	engine      automation.Client
	publisher   eventbus.EventPublisher
	callbackURL string
	logger      *slog.Logger
}

// NewProvisioning creates a provisioning service. callbackURL is the public
// URL the engine pushes workflow status changes to; empty skips callback
// registration.
func NewProvisioning(
	persistence persistence.Persistence,
	authorizer authorization.Authorizer,
	engine automation.Client,
	publisher eventbus.EventPublisher,
	callbackURL string,
	logger *slog.Logger,
) *Provisioning {
	return &Provisioning{
		persistence: persistence,
		authorizer:  authorizer,
		engine:      engine,
		publisher:   publisher,
		callbackURL: callbackURL,
		logger:      logger.With("service", "provisioning"),
	}
}

// ProvisionRequest is the input for a campaign creation.
type ProvisionRequest struct {
	Name        string
	Description string
	TemplateID  string
	WorkspaceID string
	UserID      string
}

// ProvisionResult identifies the created campaign and its provisioning
// attempt. Clients poll the provision ID for step progress.
type ProvisionResult struct {
	CampaignID  string `json:"campaign_id"`
	ProvisionID string `json:"provision_id"`
}

// Provision validates and authorizes the request, then writes the campaign
// row plus step rows as one unit and returns. It never calls the engine.
func (p *Provisioning) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewServiceError("Provision", "NAME_REQUIRED", "campaign name is required", ErrNameRequired)
	}

	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, NewServiceError("Provision", "WORKSPACE_REQUIRED", "workspace ID is required", ErrWorkspaceRequired)
	}

	access, err := p.authorizer.HasWorkspaceAccess(ctx, req.UserID, req.WorkspaceID)
	if err != nil {
		return nil, NewServiceError("Provision", "AUTH_CHECK_FAILED", "authorization check failed", fmt.Errorf("%w: %w", ErrPermissionDenied, err))
	}

	if !access.CanWrite {
		return nil, NewServiceError("Provision", "PERMISSION_DENIED", "caller cannot write to workspace "+req.WorkspaceID, ErrPermissionDenied)
	}

	now := time.Now().UTC()
	campaignID := uuid.New().String()
	provisionID := uuid.New().String()

	campaign := &models.Campaign{
		ID:           campaignID,
		WorkspaceID:  req.WorkspaceID,
		Name:         req.Name,
		Description:  req.Description,
		TemplateID:   req.TemplateID,
		Status:       models.CampaignStatusPaused,
		RemoteStatus: models.RemoteStatusUnknown,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	steps := models.NewProvisioningSteps(provisionID, campaignID, now)

	err = p.persistence.CampaignRepository().CreateWithSteps(ctx, campaign, steps)
	if err != nil {
		return nil, NewServiceError("Provision", "STORAGE_FAILED", "failed to create campaign", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	p.logger.InfoContext(ctx, "campaign provisioned",
		"campaign_id", campaignID,
		"provision_id", provisionID,
		"workspace_id", req.WorkspaceID)

	publishEvent(ctx, p.publisher, p.logger, campaignID, events.CampaignProvisioned{
		BaseEvent: events.BaseEvent{
			ID:          uuid.New().String(),
			Type:        events.CampaignProvisionedEvent,
			Timestamp:   now,
			CampaignID:  campaignID,
			WorkspaceID: req.WorkspaceID,
		},
		ProvisionID: provisionID,
	})

	return &ProvisionResult{CampaignID: campaignID, ProvisionID: provisionID}, nil
}

// Status returns the poll view for one provisioning attempt.
func (p *Provisioning) Status(ctx context.Context, provisionID string) (*models.ProvisionStatus, error) {
	steps, err := p.persistence.ProvisioningRepository().StepsByProvisionID(ctx, provisionID)
	if err != nil {
		if persistence.IsProvisionNotFound(err) {
			return nil, NewServiceError("Status", "PROVISION_NOT_FOUND", "provision "+provisionID+" not found", ErrProvisionNotFound)
		}

		return nil, NewServiceError("Status", "STORAGE_FAILED", "failed to load provisioning steps", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if len(steps) == 0 {
		return nil, NewServiceError("Status", "PROVISION_NOT_FOUND", "provision "+provisionID+" not found", ErrProvisionNotFound)
	}

	return models.NewProvisionStatus(provisionID, steps[0].CampaignID, steps), nil
}

// StatusByCampaign returns the poll view for a campaign's current
// provisioning attempt.
func (p *Provisioning) StatusByCampaign(ctx context.Context, campaignID string) (*models.ProvisionStatus, error) {
	_, err := p.persistence.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return nil, NewServiceError("StatusByCampaign", "CAMPAIGN_NOT_FOUND", "campaign "+campaignID+" not found", ErrCampaignNotFound)
		}

		return nil, NewServiceError("StatusByCampaign", "STORAGE_FAILED", "failed to load campaign", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	steps, err := p.persistence.ProvisioningRepository().StepsByCampaignID(ctx, campaignID)
	if err != nil {
		if persistence.IsProvisionNotFound(err) {
			return nil, NewServiceError("StatusByCampaign", "PROVISION_NOT_FOUND", "no provisioning attempt for campaign "+campaignID, ErrProvisionNotFound)
		}

		return nil, NewServiceError("StatusByCampaign", "STORAGE_FAILED", "failed to load provisioning steps", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if len(steps) == 0 {
		return nil, NewServiceError("StatusByCampaign", "PROVISION_NOT_FOUND", "no provisioning attempt for campaign "+campaignID, ErrProvisionNotFound)
	}

	return models.NewProvisionStatus(steps[0].ProvisionID, campaignID, steps), nil
}

// RunSteps executes the remote provisioning steps for one campaign. It is
// resumable: already-done steps are skipped, so re-running after a partial
// failure picks up where the last attempt stopped. The first failing step
// is marked error and stops the run.
func (p *Provisioning) RunSteps(ctx context.Context, campaignID, provisionID string) error {
	if p.engine == nil {
		return NewServiceError("RunSteps", "ENGINE_UNCONFIGURED", "automation engine not configured", ErrRemoteCallFailed)
	}

	campaign, err := p.persistence.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return NewServiceError("RunSteps", "CAMPAIGN_NOT_FOUND", "campaign "+campaignID+" not found", ErrCampaignNotFound)
		}

		return NewServiceError("RunSteps", "STORAGE_FAILED", "failed to load campaign", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	steps, err := p.persistence.ProvisioningRepository().StepsByProvisionID(ctx, provisionID)
	if err != nil {
		if persistence.IsProvisionNotFound(err) {
			return NewServiceError("RunSteps", "PROVISION_NOT_FOUND", "provision "+provisionID+" not found", ErrProvisionNotFound)
		}

		return NewServiceError("RunSteps", "STORAGE_FAILED", "failed to load provisioning steps", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	if len(steps) == 0 {
		return NewServiceError("RunSteps", "PROVISION_NOT_FOUND", "provision "+provisionID+" not found", ErrProvisionNotFound)
	}

	byName := make(map[models.StepName]*models.ProvisioningStep, len(steps))
	for _, step := range steps {
		byName[step.StepName] = step
	}

	for _, name := range models.ProvisioningStepOrder {
		step, ok := byName[name]
		if !ok || step.Status == models.StepStatusDone {
			continue
		}

		err = p.runStep(ctx, campaign, step)
		if err != nil {
			p.markStep(ctx, campaign, step, models.StepStatusError, err.Error())

			return NewServiceError("RunSteps", "STEP_FAILED", fmt.Sprintf("step %s failed", name), fmt.Errorf("%w: %w", ErrRemoteCallFailed, err))
		}

		p.markStep(ctx, campaign, step, models.StepStatusDone, "")
	}

	return nil
}

func (p *Provisioning) runStep(ctx context.Context, campaign *models.Campaign, step *models.ProvisioningStep) error {
	switch step.StepName {
	case models.StepDB:
		// Written together with the campaign row; nothing left to do.
		return nil
	case models.StepRemoteClone:
		return p.cloneWorkflow(ctx, campaign)
	case models.StepWebhook:
		return p.registerCallback(ctx, campaign)
	case models.StepActivate:
		return p.activate(ctx, campaign)
	default:
		return fmt.Errorf("unknown provisioning step %q", step.StepName)
	}
}

func (p *Provisioning) cloneWorkflow(ctx context.Context, campaign *models.Campaign) error {
	if campaign.Linked() {
		return nil
	}

	workflowID, err := p.engine.Clone(ctx, campaign.TemplateID)
	if err != nil {
		return err
	}

	err = p.persistence.CampaignRepository().SetRemoteWorkflowID(ctx, campaign.ID, workflowID)
	if err != nil {
		return err
	}

	campaign.RemoteWorkflowID = &workflowID

	return nil
}

func (p *Provisioning) registerCallback(ctx context.Context, campaign *models.Campaign) error {
	if !campaign.Linked() {
		return fmt.Errorf("campaign %s has no linked workflow", campaign.ID)
	}

	if p.callbackURL == "" {
		p.logger.WarnContext(ctx, "no callback URL configured, skipping callback registration",
			"campaign_id", campaign.ID)

		return nil
	}

	return p.engine.RegisterCallback(ctx, *campaign.RemoteWorkflowID, p.callbackURL)
}

func (p *Provisioning) activate(ctx context.Context, campaign *models.Campaign) error {
	if !campaign.Linked() {
		return fmt.Errorf("campaign %s has no linked workflow", campaign.ID)
	}

	state, err := p.engine.SetActive(ctx, *campaign.RemoteWorkflowID, true)
	if err != nil {
		return err
	}

	now := time.Now().UTC()

	campaign.Status = models.CampaignStatusActive
	campaign.RemoteStatus = models.RemoteStatusFromActive(state.Active)
	campaign.LastSyncAt = &now

	return p.persistence.CampaignRepository().Update(ctx, campaign, campaign.Version)
}

// markStep records a step transition; a failed record is logged but does
// not override the step's own outcome.
func (p *Provisioning) markStep(ctx context.Context, campaign *models.Campaign, step *models.ProvisioningStep, status models.StepStatus, detail string) {
	step.Status = status
	step.ErrorDetail = detail
	step.UpdatedAt = time.Now().UTC()

	err := p.persistence.ProvisioningRepository().UpdateStep(ctx, step.ProvisionID, step.StepName, status, detail)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to record provisioning step transition",
			"provision_id", step.ProvisionID,
			"step", step.StepName,
			"status", status,
			"error", err)
	}

	publishEvent(ctx, p.publisher, p.logger, step.CampaignID, events.ProvisionStepCompleted{
		BaseEvent: events.BaseEvent{
			ID:          uuid.New().String(),
			Type:        events.ProvisionStepCompletedEvent,
			Timestamp:   step.UpdatedAt,
			CampaignID:  step.CampaignID,
			WorkspaceID: campaign.WorkspaceID,
		},
		ProvisionID: step.ProvisionID,
		StepName:    step.StepName,
		Status:      status,
		ErrorDetail: detail,
	})
}
