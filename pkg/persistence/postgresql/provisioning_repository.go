package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// ProvisioningRepository handles provisioning-step database operations.
// Step rows are created by CampaignRepository.CreateWithSteps; this
// repository only reads them and advances their status.
type ProvisioningRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewProvisioningRepository creates a new provisioning repository.
func NewProvisioningRepository(db *sql.DB, logger *slog.Logger) *ProvisioningRepository {
	return &ProvisioningRepository{db: db, logger: logger}
}

const stepColumns = `
			provision_id
		  , campaign_id
		  , step_name
		  , status
		  , error_detail
		  , created_at
		  , updated_at
`

// StepsByProvisionID returns all step rows for one provisioning attempt.
func (r *ProvisioningRepository) StepsByProvisionID(ctx context.Context, provisionID string) ([]*models.ProvisioningStep, error) {
	query := `
		SELECT` + stepColumns + `
		FROM provisioning_steps
		WHERE provision_id = $1
		ORDER BY created_at
	`

	steps, err := r.collectSteps(ctx, provisionID, query)
	if err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		return nil, &persistence.ProvisionError{Op: "StepsByProvisionID", ProvisionID: provisionID, Err: persistence.ErrProvisionNotFound}
	}

	return steps, nil
}

// StepsByCampaignID returns the step rows of the campaign's provisioning
// attempt. A campaign has exactly one active provision at a time.
func (r *ProvisioningRepository) StepsByCampaignID(ctx context.Context, campaignID string) ([]*models.ProvisioningStep, error) {
	query := `
		SELECT` + stepColumns + `
		FROM provisioning_steps
		WHERE campaign_id = $1
		ORDER BY created_at
	`

	steps, err := r.collectSteps(ctx, campaignID, query)
	if err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		return nil, &persistence.ProvisionError{Op: "StepsByCampaignID", ProvisionID: campaignID, Err: persistence.ErrProvisionNotFound}
	}

	return steps, nil
}

// UpdateStep transitions one step's status, recording error detail when the
// step failed and clearing it otherwise.
func (r *ProvisioningRepository) UpdateStep(ctx context.Context, provisionID string, name models.StepName, status models.StepStatus, errorDetail string) error {
	query := `
		UPDATE provisioning_steps
		SET
			status = $1
		  , error_detail = $2
		  , updated_at = $3
		WHERE provision_id = $4 AND step_name = $5
	`

	result, err := r.db.ExecContext(ctx, query, status, nullableString(errorDetail), time.Now().UTC(), provisionID, name)
	if err != nil {
		return &persistence.ProvisionError{Op: "UpdateStep", ProvisionID: provisionID, StepName: string(name), Err: fmt.Errorf("failed to update step: %w", err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &persistence.ProvisionError{Op: "UpdateStep", ProvisionID: provisionID, StepName: string(name), Err: fmt.Errorf("failed to read affected rows: %w", err)}
	}

	if affected == 0 {
		return &persistence.ProvisionError{Op: "UpdateStep", ProvisionID: provisionID, StepName: string(name), Err: persistence.ErrStepNotFound}
	}

	return nil
}

func (r *ProvisioningRepository) collectSteps(ctx context.Context, arg, query string) ([]*models.ProvisioningStep, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query provisioning steps: %w", err)
	}

	defer func(ctx context.Context, r *ProvisioningRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	steps := make([]*models.ProvisioningStep, 0)

	for rows.Next() {
		var (
			step        models.ProvisioningStep
			errorDetail sql.NullString
		)

		err := rows.Scan(
			&step.ProvisionID,
			&step.CampaignID,
			&step.StepName,
			&step.Status,
			&errorDetail,
			&step.CreatedAt,
			&step.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provisioning step: %w", err)
		}

		step.ErrorDetail = errorDetail.String

		steps = append(steps, &step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating provisioning steps: %w", err)
	}

	return steps, nil
}
