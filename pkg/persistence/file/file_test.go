package file_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/file"
)

func newCampaign(t *testing.T) (*models.Campaign, []*models.ProvisioningStep) {
	t.Helper()

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:           uuid.NewString(),
		WorkspaceID:  "ws1",
		Name:         "Q1 Outreach",
		Description:  "First quarter outreach sequence",
		Status:       models.CampaignStatusPaused,
		RemoteStatus: models.RemoteStatusUnknown,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return campaign, models.NewProvisioningSteps(uuid.NewString(), campaign.ID, now)
}

func TestCreateWithSteps_RoundTrip(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)

	err := p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps)
	require.NoError(t, err)

	fetched, err := p.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.Name, fetched.Name)
	assert.Equal(t, models.CampaignStatusPaused, fetched.Status)
	assert.Equal(t, models.RemoteStatusUnknown, fetched.RemoteStatus)
	assert.EqualValues(t, 1, fetched.Version)

	stored, err := p.ProvisioningRepository().StepsByProvisionID(t.Context(), steps[0].ProvisionID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestCreateWithSteps_DuplicateID(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)

	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	err := p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps)
	assert.ErrorIs(t, err, persistence.ErrCampaignAlreadyExists)
}

func TestGetByID_NotFound(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	_, err := p.CampaignRepository().GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsCampaignNotFound(err))
}

func TestUpdate_VersionConflict(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	campaign.Status = models.CampaignStatusActive

	err := p.CampaignRepository().Update(t.Context(), campaign, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, campaign.Version)

	// A second writer that read version 1 loses the race.
	stale := *campaign
	err = p.CampaignRepository().Update(t.Context(), &stale, 1)
	assert.True(t, persistence.IsVersionConflict(err))

	fetched, err := p.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetched.Version, "version advances by exactly one")
}

func TestUpdateRemoteStatus_NoVersionBump(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	syncedAt := time.Now().UTC()
	err := p.CampaignRepository().UpdateRemoteStatus(t.Context(), campaign.ID, models.RemoteStatusActive, syncedAt)
	require.NoError(t, err)

	fetched, err := p.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RemoteStatusActive, fetched.RemoteStatus)
	assert.EqualValues(t, 1, fetched.Version)
	require.NotNil(t, fetched.LastSyncAt)
	assert.WithinDuration(t, syncedAt, *fetched.LastSyncAt, time.Second)
}

func TestSetRemoteWorkflowID_SetOnce(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	require.NoError(t, p.CampaignRepository().SetRemoteWorkflowID(t.Context(), campaign.ID, "wf1"))

	err := p.CampaignRepository().SetRemoteWorkflowID(t.Context(), campaign.ID, "wf2")
	assert.ErrorIs(t, err, persistence.ErrWorkflowAlreadyLinked)

	fetched, err := p.CampaignRepository().GetByID(t.Context(), campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.RemoteWorkflowID)
	assert.Equal(t, "wf1", *fetched.RemoteWorkflowID)
}

func TestListLinked(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	linked, linkedSteps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), linked, linkedSteps))
	require.NoError(t, p.CampaignRepository().SetRemoteWorkflowID(t.Context(), linked.ID, "wf1"))

	unlinked, unlinkedSteps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), unlinked, unlinkedSteps))

	campaigns, err := p.CampaignRepository().ListLinked(t.Context())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, linked.ID, campaigns[0].ID)
}

func TestListByWorkspace(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	first, firstSteps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), first, firstSteps))

	other, otherSteps := newCampaign(t)
	other.WorkspaceID = "ws2"
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), other, otherSteps))

	campaigns, err := p.CampaignRepository().ListByWorkspace(t.Context(), "ws1")
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, first.ID, campaigns[0].ID)
}

func TestUpdateStep(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	provisionID := steps[0].ProvisionID

	err := p.ProvisioningRepository().UpdateStep(t.Context(), provisionID, models.StepRemoteClone, models.StepStatusDone, "")
	require.NoError(t, err)

	err = p.ProvisioningRepository().UpdateStep(t.Context(), provisionID, models.StepWebhook, models.StepStatusError, "registration refused")
	require.NoError(t, err)

	stored, err := p.ProvisioningRepository().StepsByProvisionID(t.Context(), provisionID)
	require.NoError(t, err)

	status := models.NewProvisionStatus(provisionID, campaign.ID, stored)
	assert.False(t, status.IsComplete)
	assert.True(t, status.HasError)

	err = p.ProvisioningRepository().UpdateStep(t.Context(), provisionID, models.StepName("unknown"), models.StepStatusDone, "")
	assert.ErrorIs(t, err, persistence.ErrStepNotFound)
}

func TestStepsByCampaignID(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	campaign, steps := newCampaign(t)
	require.NoError(t, p.CampaignRepository().CreateWithSteps(t.Context(), campaign, steps))

	stored, err := p.ProvisioningRepository().StepsByCampaignID(t.Context(), campaign.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	_, err = p.ProvisioningRepository().StepsByCampaignID(t.Context(), "missing")
	assert.True(t, persistence.IsProvisionNotFound(err))
}
