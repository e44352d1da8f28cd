// Package persistence provides the data storage abstraction for campaigns
// and provisioning steps.
package persistence

import (
	"context"
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
)

// Persistence is the storage layer entry point. Implementations bundle the
// per-entity repositories over one backing store.
type Persistence interface {
	CampaignRepository() CampaignRepository
	ProvisioningRepository() ProvisioningRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// CampaignRepository is the access pattern for campaign rows.
//
// Update is the conditional-write primitive: it compares the stored version
// against expectedVersion and persists the row with version+1 only on
// match, returning ErrVersionConflict otherwise. It is the only write the
// toggle flow uses, so no campaign lock is ever held across a remote call.
//
// UpdateRemoteStatus writes remote_status and last_sync_at without touching
// version. It exists for observation-only writers (the reconciliation sweep
// and the engine callback), which deliberately stay outside the version
// protocol.
type CampaignRepository interface {
	// CreateWithSteps writes the campaign row and its provisioning step
	// rows as one atomic unit. Either all rows land or none do.
	CreateWithSteps(ctx context.Context, campaign *models.Campaign, steps []*models.ProvisioningStep) error

	GetByID(ctx context.Context, id string) (*models.Campaign, error)

	// GetByRemoteWorkflowID resolves an engine workflow back to its
	// campaign. Used by the engine's status-push callback.
	GetByRemoteWorkflowID(ctx context.Context, workflowID string) (*models.Campaign, error)

	ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Campaign, error)

	// ListLinked returns every campaign with a non-null remote workflow,
	// across all workspaces. This is the sweep's working set.
	ListLinked(ctx context.Context) ([]*models.Campaign, error)

	Update(ctx context.Context, campaign *models.Campaign, expectedVersion int64) error
	UpdateRemoteStatus(ctx context.Context, id string, status models.RemoteStatus, syncedAt time.Time) error

	// SetRemoteWorkflowID links the campaign to its cloned workflow. Set
	// once by provisioning; implementations reject re-linking.
	SetRemoteWorkflowID(ctx context.Context, id, workflowID string) error
}

// ProvisioningRepository is the access pattern for the append-only
// provisioning step log.
type ProvisioningRepository interface {
	StepsByProvisionID(ctx context.Context, provisionID string) ([]*models.ProvisioningStep, error)
	StepsByCampaignID(ctx context.Context, campaignID string) ([]*models.ProvisioningStep, error)
	UpdateStep(ctx context.Context, provisionID string, name models.StepName, status models.StepStatus, errorDetail string) error
}
