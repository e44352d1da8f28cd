package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
	"github.com/nishchith-m1015/campaign-sync/pkg/lock"
	"github.com/nishchith-m1015/campaign-sync/pkg/mocks"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/file"
)

func newSweeper(t *testing.T, engine automation.Client, locker lock.Locker) (*Sweeper, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	return NewSweeper(persistence, engine, locker, nil, nil, testLogger(), 0), persistence
}

func seedLinkedCampaign(t *testing.T, persistence *file.Persistence, workflowID string, remoteStatus models.RemoteStatus) *models.Campaign {
	t.Helper()

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:               uuid.New().String(),
		WorkspaceID:      "ws1",
		Name:             "Swept Campaign " + workflowID,
		Status:           models.CampaignStatusActive,
		RemoteWorkflowID: &workflowID,
		RemoteStatus:     remoteStatus,
		Version:          2,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	require.NoError(t, persistence.CampaignRepository().CreateWithSteps(t.Context(), campaign, nil))

	return campaign
}

func TestSweeper_Sweep_CorrectsDrift(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, nil)
	campaign := seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)

	engine.On("GetStatus", mock.Anything, "wf-1").Return(&automation.WorkflowState{ID: "wf-1", Active: true}, nil)

	result, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Errored)
	assert.False(t, result.Skipped)

	stored, err := persistence.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusActive, stored.RemoteStatus)
	assert.Equal(t, int64(2), stored.Version)
	require.NotNil(t, stored.LastSyncAt)

	// A second pass with no further drift writes nothing.
	result, err = sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 0, result.Updated)
}

func TestSweeper_Sweep_RemoteFailureMarksError(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, nil)
	campaign := seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusActive)

	engine.On("GetStatus", mock.Anything, "wf-1").Return(nil, &automation.RemoteError{
		Op:         "GetStatus",
		WorkflowID: "wf-1",
		StatusCode: 404,
		Err:        automation.ErrWorkflowNotFound,
	})

	result, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	stored, err := persistence.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusError, stored.RemoteStatus)
	assert.Equal(t, int64(2), stored.Version)

	// Already marked: the next failing pass skips the redundant write.
	result, err = sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errored)
}

func TestSweeper_Sweep_IsolatesFailures(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, nil)

	first := seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)
	seedLinkedCampaign(t, persistence, "wf-2", models.RemoteStatusInactive)
	third := seedLinkedCampaign(t, persistence, "wf-3", models.RemoteStatusInactive)

	engine.On("GetStatus", mock.Anything, "wf-1").Return(&automation.WorkflowState{ID: "wf-1", Active: true}, nil)
	engine.On("GetStatus", mock.Anything, "wf-2").Run(func(_ mock.Arguments) {
		panic("engine client broke")
	}).Return(nil, errors.New("unreachable"))
	engine.On("GetStatus", mock.Anything, "wf-3").Return(&automation.WorkflowState{ID: "wf-3", Active: true}, nil)

	result, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Errored)

	for _, campaign := range []*models.Campaign{first, third} {
		stored, err := persistence.CampaignRepository().GetByID(t.Context(), campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RemoteStatusActive, stored.RemoteStatus)
	}
}

func TestSweeper_Sweep_SkipsWhenLockHeld(t *testing.T) {
	locker := lock.NewLocalLocker()

	_, acquired, err := locker.Acquire(t.Context(), SweepLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, locker)
	seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)

	result, err := sweeper.Sweep(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, result.Checked)

	engine.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}

func TestSweeper_ApplyObservation(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, nil)
	campaign := seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)

	updated, err := sweeper.ApplyObservation(t.Context(), "wf-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusActive, updated.RemoteStatus)

	stored, err := persistence.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusActive, stored.RemoteStatus)
	assert.Equal(t, int64(2), stored.Version)
}

func TestSweeper_ApplyObservation_NoDrift(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, persistence := newSweeper(t, engine, nil)
	campaign := seedLinkedCampaign(t, persistence, "wf-1", models.RemoteStatusActive)

	updated, err := sweeper.ApplyObservation(t.Context(), "wf-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusActive, updated.RemoteStatus)

	stored, err := persistence.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastSyncAt)
}

func TestSweeper_ApplyObservation_UnknownWorkflow(t *testing.T) {
	engine := &mocks.MockAutomationClient{}
	sweeper, _ := newSweeper(t, engine, nil)

	updated, err := sweeper.ApplyObservation(t.Context(), "wf-missing", true)
	require.ErrorIs(t, err, ErrCampaignNotFound)
	assert.Nil(t, updated)
}
