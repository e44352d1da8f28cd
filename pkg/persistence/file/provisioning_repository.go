package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// ProvisioningRepository stores the step rows of one provisioning attempt
// as a single JSON document under <root>/provisions/.
type ProvisioningRepository struct {
	persistence *Persistence
}

func (r *ProvisioningRepository) dir() string {
	return filepath.Join(r.persistence.root, "provisions")
}

func (r *ProvisioningRepository) path(provisionID string) string {
	return filepath.Join(r.dir(), provisionID+".json")
}

// StepsByProvisionID returns all step rows for one provisioning attempt.
func (r *ProvisioningRepository) StepsByProvisionID(_ context.Context, provisionID string) ([]*models.ProvisioningStep, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	return r.read(provisionID)
}

// StepsByCampaignID scans provisioning documents for the campaign's attempt.
func (r *ProvisioningRepository) StepsByCampaignID(_ context.Context, campaignID string) ([]*models.ProvisioningStep, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.ProvisionError{Op: "StepsByCampaignID", ProvisionID: campaignID, Err: persistence.ErrProvisionNotFound}
		}

		return nil, fmt.Errorf("failed to read provisions directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		steps, err := r.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if len(steps) > 0 && steps[0].CampaignID == campaignID {
			return steps, nil
		}
	}

	return nil, &persistence.ProvisionError{Op: "StepsByCampaignID", ProvisionID: campaignID, Err: persistence.ErrProvisionNotFound}
}

// UpdateStep transitions one step's status.
func (r *ProvisioningRepository) UpdateStep(_ context.Context, provisionID string, name models.StepName, status models.StepStatus, errorDetail string) error {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	steps, err := r.read(provisionID)
	if err != nil {
		return err
	}

	for _, step := range steps {
		if step.StepName == name {
			step.Status = status
			step.ErrorDetail = errorDetail
			step.UpdatedAt = time.Now().UTC()

			return r.write(steps)
		}
	}

	return &persistence.ProvisionError{Op: "UpdateStep", ProvisionID: provisionID, StepName: string(name), Err: persistence.ErrStepNotFound}
}

func (r *ProvisioningRepository) read(provisionID string) ([]*models.ProvisioningStep, error) {
	data, err := os.ReadFile(r.path(provisionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.ProvisionError{Op: "read", ProvisionID: provisionID, Err: persistence.ErrProvisionNotFound}
		}

		return nil, &persistence.ProvisionError{Op: "read", ProvisionID: provisionID, Err: err}
	}

	var steps []*models.ProvisioningStep

	err = json.Unmarshal(data, &steps)
	if err != nil {
		return nil, &persistence.ProvisionError{Op: "read", ProvisionID: provisionID, Err: fmt.Errorf("failed to decode steps: %w", err)}
	}

	return steps, nil
}

// write persists the full step set of one provision. Caller holds the lock.
func (r *ProvisioningRepository) write(steps []*models.ProvisioningStep) error {
	if len(steps) == 0 {
		return nil
	}

	err := os.MkdirAll(r.dir(), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create provisions directory: %w", err)
	}

	data, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	err = os.WriteFile(r.path(steps[0].ProvisionID), data, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write provision file: %w", err)
	}

	return nil
}
