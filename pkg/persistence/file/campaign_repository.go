package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// CampaignRepository stores one JSON document per campaign under
// <root>/campaigns/.
type CampaignRepository struct {
	persistence *Persistence
}

func (r *CampaignRepository) dir() string {
	return filepath.Join(r.persistence.root, "campaigns")
}

func (r *CampaignRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

// CreateWithSteps writes the campaign document and the provisioning step
// document. On step-write failure the campaign document is removed so a
// failed provision leaves nothing behind.
func (r *CampaignRepository) CreateWithSteps(_ context.Context, campaign *models.Campaign, steps []*models.ProvisioningStep) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	if _, err := os.Stat(r.path(campaign.ID)); err == nil {
		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, persistence.ErrCampaignAlreadyExists)
	}

	err := r.write(campaign)
	if err != nil {
		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, err)
	}

	err = r.persistence.provisioningRepo.write(steps)
	if err != nil {
		_ = os.Remove(r.path(campaign.ID))

		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, err)
	}

	return nil
}

// GetByID returns a campaign by its ID.
func (r *CampaignRepository) GetByID(_ context.Context, id string) (*models.Campaign, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	return r.read(id)
}

// GetByRemoteWorkflowID returns the campaign linked to a remote workflow.
func (r *CampaignRepository) GetByRemoteWorkflowID(_ context.Context, workflowID string) (*models.Campaign, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	for _, campaign := range all {
		if campaign.Linked() && *campaign.RemoteWorkflowID == workflowID {
			return campaign, nil
		}
	}

	return nil, persistence.NewCampaignError("GetByRemoteWorkflowID", workflowID, persistence.ErrCampaignNotFound)
}

// ListByWorkspace returns all campaigns owned by a workspace, newest first.
func (r *CampaignRepository) ListByWorkspace(_ context.Context, workspaceID string) ([]*models.Campaign, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	campaigns := make([]*models.Campaign, 0)

	for _, campaign := range all {
		if campaign.WorkspaceID == workspaceID {
			campaigns = append(campaigns, campaign)
		}
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.After(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

// ListLinked returns all campaigns with a linked remote workflow.
func (r *CampaignRepository) ListLinked(_ context.Context) ([]*models.Campaign, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	all, err := r.readAll()
	if err != nil {
		return nil, err
	}

	campaigns := make([]*models.Campaign, 0)

	for _, campaign := range all {
		if campaign.Linked() {
			campaigns = append(campaigns, campaign)
		}
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}

// Update performs the compare-and-swap on version under the store lock.
func (r *CampaignRepository) Update(_ context.Context, campaign *models.Campaign, expectedVersion int64) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	stored, err := r.read(campaign.ID)
	if err != nil {
		return err
	}

	if stored.Version != expectedVersion {
		return persistence.NewCampaignError("Update", campaign.ID, persistence.ErrVersionConflict)
	}

	stored.Name = campaign.Name
	stored.Description = campaign.Description
	stored.Status = campaign.Status
	stored.RemoteStatus = campaign.RemoteStatus
	stored.LastSyncAt = campaign.LastSyncAt
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.Now().UTC()

	err = r.write(stored)
	if err != nil {
		return persistence.NewCampaignError("Update", campaign.ID, err)
	}

	campaign.Version = stored.Version
	campaign.UpdatedAt = stored.UpdatedAt

	return nil
}

// UpdateRemoteStatus writes remote_status and last_sync_at without
// touching version.
func (r *CampaignRepository) UpdateRemoteStatus(_ context.Context, id string, status models.RemoteStatus, syncedAt time.Time) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	stored, err := r.read(id)
	if err != nil {
		return err
	}

	stored.RemoteStatus = status
	stored.LastSyncAt = &syncedAt
	stored.UpdatedAt = time.Now().UTC()

	err = r.write(stored)
	if err != nil {
		return persistence.NewCampaignError("UpdateRemoteStatus", id, err)
	}

	return nil
}

// SetRemoteWorkflowID links the campaign to its cloned workflow, set-once.
func (r *CampaignRepository) SetRemoteWorkflowID(_ context.Context, id, workflowID string) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	stored, err := r.read(id)
	if err != nil {
		return err
	}

	if stored.Linked() {
		return persistence.NewCampaignError("SetRemoteWorkflowID", id, persistence.ErrWorkflowAlreadyLinked)
	}

	stored.RemoteWorkflowID = &workflowID
	stored.UpdatedAt = time.Now().UTC()

	err = r.write(stored)
	if err != nil {
		return persistence.NewCampaignError("SetRemoteWorkflowID", id, err)
	}

	return nil
}

func (r *CampaignRepository) read(id string) (*models.Campaign, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewCampaignError("read", id, persistence.ErrCampaignNotFound)
		}

		return nil, persistence.NewCampaignError("read", id, err)
	}

	var campaign models.Campaign

	err = json.Unmarshal(data, &campaign)
	if err != nil {
		return nil, persistence.NewCampaignError("read", id, fmt.Errorf("failed to decode campaign: %w", err))
	}

	return &campaign, nil
}

func (r *CampaignRepository) readAll() ([]*models.Campaign, error) {
	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.Campaign{}, nil
		}

		return nil, fmt.Errorf("failed to read campaigns directory: %w", err)
	}

	campaigns := make([]*models.Campaign, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		campaign, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}

func (r *CampaignRepository) write(campaign *models.Campaign) error {
	err := os.MkdirAll(r.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create campaigns directory: %w", err)
	}

	data, err := json.MarshalIndent(campaign, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode campaign: %w", err)
	}

	err = os.WriteFile(r.path(campaign.ID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write campaign file: %w", err)
	}

	return nil
}
