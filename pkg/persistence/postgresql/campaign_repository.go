package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// CampaignRepository handles campaign-related database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

const campaignColumns = `
			id
		  , workspace_id
		  , name
		  , description
		  , template_id
		  , status
		  , remote_workflow_id
		  , remote_status
		  , last_sync_at
		  , version
		  , created_at
		  , updated_at
`

// CreateWithSteps writes the campaign row and its provisioning step rows in
// a single transaction.
func (r *CampaignRepository) CreateWithSteps(ctx context.Context, campaign *models.Campaign, steps []*models.ProvisioningStep) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	insertCampaign := `
		INSERT INTO campaigns (
			id
		  , workspace_id
		  , name
		  , description
		  , template_id
		  , status
		  , remote_workflow_id
		  , remote_status
		  , last_sync_at
		  , version
		  , created_at
		  , updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = transaction.ExecContext(ctx, insertCampaign,
		campaign.ID,
		campaign.WorkspaceID,
		campaign.Name,
		campaign.Description,
		campaign.TemplateID,
		campaign.Status,
		campaign.RemoteWorkflowID,
		campaign.RemoteStatus,
		campaign.LastSyncAt,
		campaign.Version,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, fmt.Errorf("failed to insert campaign: %w", err))
	}

	insertStep := `
		INSERT INTO provisioning_steps (
			provision_id
		  , campaign_id
		  , step_name
		  , status
		  , error_detail
		  , created_at
		  , updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, step := range steps {
		_, err = transaction.ExecContext(ctx, insertStep,
			step.ProvisionID,
			step.CampaignID,
			step.StepName,
			step.Status,
			nullableString(step.ErrorDetail),
			step.CreatedAt,
			step.UpdatedAt,
		)
		if err != nil {
			_ = transaction.Rollback()

			return persistence.NewCampaignError("CreateWithSteps", campaign.ID, fmt.Errorf("failed to insert step %s: %w", step.StepName, err))
		}
	}

	err = transaction.Commit()
	if err != nil {
		return persistence.NewCampaignError("CreateWithSteps", campaign.ID, fmt.Errorf("failed to commit: %w", err))
	}

	return nil
}

// GetByID returns a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `
		SELECT` + campaignColumns + `
		FROM campaigns
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
		}

		return nil, persistence.NewCampaignError("GetByID", id, fmt.Errorf("failed to scan campaign: %w", err))
	}

	return campaign, nil
}

// GetByRemoteWorkflowID returns the campaign linked to a remote workflow.
func (r *CampaignRepository) GetByRemoteWorkflowID(ctx context.Context, workflowID string) (*models.Campaign, error) {
	query := `
		SELECT` + campaignColumns + `
		FROM campaigns
		WHERE remote_workflow_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, workflowID)

	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByRemoteWorkflowID", workflowID, persistence.ErrCampaignNotFound)
		}

		return nil, persistence.NewCampaignError("GetByRemoteWorkflowID", workflowID, fmt.Errorf("failed to scan campaign: %w", err))
	}

	return campaign, nil
}

// ListByWorkspace returns all campaigns owned by a workspace, newest first.
func (r *CampaignRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Campaign, error) {
	query := `
		SELECT` + campaignColumns + `
		FROM campaigns
		WHERE workspace_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	return r.collectCampaigns(ctx, rows)
}

// ListLinked returns all campaigns with a linked remote workflow, across
// every workspace. This is the reconciliation sweep's working set.
func (r *CampaignRepository) ListLinked(ctx context.Context) ([]*models.Campaign, error) {
	query := `
		SELECT` + campaignColumns + `
		FROM campaigns
		WHERE remote_workflow_id IS NOT NULL
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked campaigns: %w", err)
	}

	return r.collectCampaigns(ctx, rows)
}

// Update persists status, remote_status and last_sync_at conditioned on the
// stored version matching expectedVersion, bumping version by one. Zero
// affected rows means another writer won the race.
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign, expectedVersion int64) error {
	query := `
		UPDATE campaigns
		SET
			name = $1
		  , description = $2
		  , status = $3
		  , remote_status = $4
		  , last_sync_at = $5
		  , version = version + 1
		  , updated_at = $6
		WHERE id = $7 AND version = $8
	`

	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		campaign.Name,
		campaign.Description,
		campaign.Status,
		campaign.RemoteStatus,
		campaign.LastSyncAt,
		now,
		campaign.ID,
		expectedVersion,
	)
	if err != nil {
		return persistence.NewCampaignError("Update", campaign.ID, fmt.Errorf("failed to update campaign: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("Update", campaign.ID, fmt.Errorf("failed to read affected rows: %w", err))
	}

	if affected == 0 {
		exists, err := r.exists(ctx, campaign.ID)
		if err != nil {
			return persistence.NewCampaignError("Update", campaign.ID, err)
		}

		if !exists {
			return persistence.NewCampaignError("Update", campaign.ID, persistence.ErrCampaignNotFound)
		}

		return persistence.NewCampaignError("Update", campaign.ID, persistence.ErrVersionConflict)
	}

	campaign.Version = expectedVersion + 1
	campaign.UpdatedAt = now

	return nil
}

// UpdateRemoteStatus writes remote_status and last_sync_at without bumping
// version. Used by observation-only writers (sweep, engine callback).
func (r *CampaignRepository) UpdateRemoteStatus(ctx context.Context, id string, status models.RemoteStatus, syncedAt time.Time) error {
	query := `
		UPDATE campaigns
		SET
			remote_status = $1
		  , last_sync_at = $2
		  , updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, status, syncedAt, time.Now().UTC(), id)
	if err != nil {
		return persistence.NewCampaignError("UpdateRemoteStatus", id, fmt.Errorf("failed to update remote status: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("UpdateRemoteStatus", id, fmt.Errorf("failed to read affected rows: %w", err))
	}

	if affected == 0 {
		return persistence.NewCampaignError("UpdateRemoteStatus", id, persistence.ErrCampaignNotFound)
	}

	return nil
}

// SetRemoteWorkflowID links the campaign to its cloned remote workflow. The
// WHERE clause enforces set-once semantics.
func (r *CampaignRepository) SetRemoteWorkflowID(ctx context.Context, id, workflowID string) error {
	query := `
		UPDATE campaigns
		SET
			remote_workflow_id = $1
		  , updated_at = $2
		WHERE id = $3 AND remote_workflow_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, workflowID, time.Now().UTC(), id)
	if err != nil {
		return persistence.NewCampaignError("SetRemoteWorkflowID", id, fmt.Errorf("failed to link workflow: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCampaignError("SetRemoteWorkflowID", id, fmt.Errorf("failed to read affected rows: %w", err))
	}

	if affected == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return persistence.NewCampaignError("SetRemoteWorkflowID", id, err)
		}

		if !exists {
			return persistence.NewCampaignError("SetRemoteWorkflowID", id, persistence.ErrCampaignNotFound)
		}

		return persistence.NewCampaignError("SetRemoteWorkflowID", id, persistence.ErrWorkflowAlreadyLinked)
	}

	return nil
}

func (r *CampaignRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check campaign existence: %w", err)
	}

	return exists, nil
}

func (r *CampaignRepository) collectCampaigns(ctx context.Context, rows *sql.Rows) ([]*models.Campaign, error) {
	defer func(ctx context.Context, r *CampaignRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCampaign(row scannable) (*models.Campaign, error) {
	var (
		campaign         models.Campaign
		remoteWorkflowID sql.NullString
		lastSyncAt       sql.NullTime
	)

	err := row.Scan(
		&campaign.ID,
		&campaign.WorkspaceID,
		&campaign.Name,
		&campaign.Description,
		&campaign.TemplateID,
		&campaign.Status,
		&remoteWorkflowID,
		&campaign.RemoteStatus,
		&lastSyncAt,
		&campaign.Version,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if remoteWorkflowID.Valid {
		campaign.RemoteWorkflowID = &remoteWorkflowID.String
	}

	if lastSyncAt.Valid {
		syncedAt := lastSyncAt.Time
		campaign.LastSyncAt = &syncedAt
	}

	return &campaign, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
