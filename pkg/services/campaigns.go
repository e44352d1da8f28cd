package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// Campaigns serves the read side of the API. Reads never touch version.
type Campaigns struct {
	persistence persistence.Persistence
	authorizer  authorization.Authorizer
	logger      *slog.Logger
}

// NewCampaigns creates a campaign read service.
func NewCampaigns(persistence persistence.Persistence, authorizer authorization.Authorizer, logger *slog.Logger) *Campaigns {
	return &Campaigns{
		persistence: persistence,
		authorizer:  authorizer,
		logger:      logger.With("service", "campaigns"),
	}
}

// HealthCheck reports the storage layer's health.
func (c *Campaigns) HealthCheck(ctx context.Context) (string, bool) {
	if c.persistence == nil {
		return "persistence layer not initialized", false
	}

	err := c.persistence.HealthCheck(ctx)
	if err != nil {
		return "persistence layer is unhealthy: " + err.Error(), false
	}

	return "persistence layer is healthy", true
}

// Get returns one campaign, subject to workspace read access.
func (c *Campaigns) Get(ctx context.Context, campaignID, userID string) (*models.Campaign, error) {
	campaign, err := c.persistence.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			return nil, NewServiceError("Get", "CAMPAIGN_NOT_FOUND", "campaign "+campaignID+" not found", ErrCampaignNotFound)
		}

		return nil, NewServiceError("Get", "STORAGE_FAILED", "failed to load campaign", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	err = c.authorizeRead(ctx, userID, campaign.WorkspaceID)
	if err != nil {
		return nil, err
	}

	return campaign, nil
}

// List returns all campaigns in a workspace, newest first.
func (c *Campaigns) List(ctx context.Context, workspaceID, userID string) ([]*models.Campaign, error) {
	if workspaceID == "" {
		return nil, NewServiceError("List", "WORKSPACE_REQUIRED", "workspace ID is required", ErrWorkspaceRequired)
	}

	err := c.authorizeRead(ctx, userID, workspaceID)
	if err != nil {
		return nil, err
	}

	campaigns, err := c.persistence.CampaignRepository().ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, NewServiceError("List", "STORAGE_FAILED", "failed to list campaigns", fmt.Errorf("%w: %w", ErrStorage, err))
	}

	return campaigns, nil
}

func (c *Campaigns) authorizeRead(ctx context.Context, userID, workspaceID string) error {
	if workspaceID == authorization.DefaultWorkspaceID {
		return nil
	}

	access, err := c.authorizer.HasWorkspaceAccess(ctx, userID, workspaceID)
	if err != nil {
		return NewServiceError("authorizeRead", "AUTH_CHECK_FAILED", "authorization check failed", fmt.Errorf("%w: %w", ErrPermissionDenied, err))
	}

	if !access.CanRead {
		return NewServiceError("authorizeRead", "PERMISSION_DENIED", "caller cannot read workspace "+workspaceID, ErrPermissionDenied)
	}

	return nil
}
