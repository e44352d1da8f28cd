package services

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/mocks"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func newProvisioningService(t *testing.T, engine automation.Client) (*Provisioning, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	authorizer := &authorization.StaticAuthorizer{AllowAll: true}

	return NewProvisioning(persistence, authorizer, engine, nil, "https://sync.example.com/callbacks/automation", testLogger()), persistence
}

func TestProvisioning_Provision(t *testing.T) {
	service, persistence := newProvisioningService(t, nil)

	result, err := service.Provision(t.Context(), ProvisionRequest{
		Name:        "Q1 Outreach",
		Description: "First quarter outreach",
		TemplateID:  "tpl-1",
		WorkspaceID: "ws1",
		UserID:      "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.CampaignID)
	assert.NotEmpty(t, result.ProvisionID)

	campaign, err := persistence.CampaignRepository().GetByID(t.Context(), result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPaused, campaign.Status)
	assert.Equal(t, models.RemoteStatusUnknown, campaign.RemoteStatus)
	assert.Equal(t, int64(1), campaign.Version)
	assert.Nil(t, campaign.RemoteWorkflowID)
	assert.Equal(t, "tpl-1", campaign.TemplateID)

	status, err := service.Status(t.Context(), result.ProvisionID)
	require.NoError(t, err)
	require.Len(t, status.Steps, 4)
	assert.False(t, status.IsComplete)
	assert.False(t, status.HasError)
	assert.Equal(t, models.StepDB, status.Steps[0].StepName)
	assert.Equal(t, models.StepStatusDone, status.Steps[0].Status)

	for _, step := range status.Steps[1:] {
		assert.Equal(t, models.StepStatusPending, step.Status)
	}
}

func TestProvisioning_Provision_Validation(t *testing.T) {
	service, _ := newProvisioningService(t, nil)

	tests := []struct {
		name    string
		request ProvisionRequest
		wantErr error
	}{
		{
			name:    "missing name",
			request: ProvisionRequest{WorkspaceID: "ws1", UserID: "user-1"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "blank name",
			request: ProvisionRequest{Name: "   ", WorkspaceID: "ws1", UserID: "user-1"},
			wantErr: ErrNameRequired,
		},
		{
			name:    "missing workspace",
			request: ProvisionRequest{Name: "Q1 Outreach", UserID: "user-1"},
			wantErr: ErrWorkspaceRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Provision(t.Context(), tt.request)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
			assert.Nil(t, result)
		})
	}
}

func TestProvisioning_Provision_PermissionDenied(t *testing.T) {
	persistence := file.NewPersistence(t.TempDir())
	authorizer := &authorization.StaticAuthorizer{
		Memberships: map[string][]string{"user-1": {"ws1"}},
	}
	service := NewProvisioning(persistence, authorizer, nil, nil, "", testLogger())

	result, err := service.Provision(t.Context(), ProvisionRequest{
		Name:        "Q1 Outreach",
		WorkspaceID: "ws-other",
		UserID:      "user-1",
	})
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, IsPermissionError(err))
	assert.Nil(t, result)
}

func TestProvisioning_Status_NotFound(t *testing.T) {
	service, _ := newProvisioningService(t, nil)

	status, err := service.Status(t.Context(), "missing-provision")
	require.ErrorIs(t, err, ErrProvisionNotFound)
	assert.True(t, IsNotFoundError(err))
	assert.Nil(t, status)
}

func TestProvisioning_StatusByCampaign(t *testing.T) {
	service, _ := newProvisioningService(t, nil)

	result, err := service.Provision(t.Context(), ProvisionRequest{
		Name:        "Q1 Outreach",
		WorkspaceID: "ws1",
		UserID:      "user-1",
	})
	require.NoError(t, err)

	status, err := service.StatusByCampaign(t.Context(), result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, result.ProvisionID, status.ProvisionID)
	assert.Len(t, status.Steps, 4)

	_, err = service.StatusByCampaign(t.Context(), "missing-campaign")
	require.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestProvisioning_RunSteps(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	service, persistence := newProvisioningService(t, engine)

	result, err := service.Provision(t.Context(), ProvisionRequest{
		Name:        "Q1 Outreach",
		TemplateID:  "tpl-1",
		WorkspaceID: "ws1",
		UserID:      "user-1",
	})
	require.NoError(t, err)

	engine.On("Clone", mock.Anything, "tpl-1").Return("wf-1", nil)
	engine.On("RegisterCallback", mock.Anything, "wf-1", "https://sync.example.com/callbacks/automation").Return(nil)
	engine.On("SetActive", mock.Anything, "wf-1", true).Return(&automation.WorkflowState{ID: "wf-1", Active: true}, nil)

	err = service.RunSteps(t.Context(), result.CampaignID, result.ProvisionID)
	require.NoError(t, err)

	campaign, err := persistence.CampaignRepository().GetByID(t.Context(), result.CampaignID)
	require.NoError(t, err)
	require.NotNil(t, campaign.RemoteWorkflowID)
	assert.Equal(t, "wf-1", *campaign.RemoteWorkflowID)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
	assert.Equal(t, models.RemoteStatusActive, campaign.RemoteStatus)
	assert.Equal(t, int64(2), campaign.Version)
	require.NotNil(t, campaign.LastSyncAt)
	assert.WithinDuration(t, time.Now().UTC(), *campaign.LastSyncAt, time.Minute)

	status, err := service.Status(t.Context(), result.ProvisionID)
	require.NoError(t, err)
	assert.True(t, status.IsComplete)
	assert.False(t, status.HasError)

	engine.AssertExpectations(t)
}

func TestProvisioning_RunSteps_ResumesAfterFailure(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	service, persistence := newProvisioningService(t, engine)

	result, err := service.Provision(t.Context(), ProvisionRequest{
		Name:        "Q1 Outreach",
		TemplateID:  "tpl-1",
		WorkspaceID: "ws1",
		UserID:      "user-1",
	})
	require.NoError(t, err)

	engine.On("Clone", mock.Anything, "tpl-1").Return("", errors.New("engine overloaded")).Once()

	err = service.RunSteps(t.Context(), result.CampaignID, result.ProvisionID)
	require.ErrorIs(t, err, ErrRemoteCallFailed)

	status, err := service.Status(t.Context(), result.ProvisionID)
	require.NoError(t, err)
	assert.True(t, status.HasError)
	assert.False(t, status.IsComplete)

	for _, step := range status.Steps {
		switch step.StepName {
		case models.StepRemoteClone:
			assert.Equal(t, models.StepStatusError, step.Status)
			assert.Contains(t, step.ErrorDetail, "engine overloaded")
		case models.StepWebhook, models.StepActivate:
			assert.Equal(t, models.StepStatusPending, step.Status)
		case models.StepDB:
			assert.Equal(t, models.StepStatusDone, step.Status)
		}
	}

	engine.On("Clone", mock.Anything, "tpl-1").Return("wf-1", nil)
	engine.On("RegisterCallback", mock.Anything, "wf-1", mock.Anything).Return(nil)
	engine.On("SetActive", mock.Anything, "wf-1", true).Return(&automation.WorkflowState{ID: "wf-1", Active: true}, nil)

	err = service.RunSteps(t.Context(), result.CampaignID, result.ProvisionID)
	require.NoError(t, err)

	status, err = service.Status(t.Context(), result.ProvisionID)
	require.NoError(t, err)
	assert.True(t, status.IsComplete)
	assert.False(t, status.HasError)

	campaign, err := persistence.CampaignRepository().GetByID(t.Context(), result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, campaign.Status)
}
