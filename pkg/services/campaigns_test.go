package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishchith-m1015/campaign-sync/pkg/authorization"
	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/persistence/file"
)

func newCampaignsService(t *testing.T) (*Campaigns, *file.Persistence) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	authorizer := &authorization.StaticAuthorizer{
		Memberships: map[string][]string{"user-1": {"ws1"}},
	}

	return NewCampaigns(persistence, authorizer, testLogger()), persistence
}

func TestCampaigns_GetAndList(t *testing.T) {
	service, persistence := newCampaignsService(t)
	campaign := seedToggleCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)

	fetched, err := service.Get(t.Context(), campaign.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, campaign.ID, fetched.ID)
	assert.Equal(t, campaign.Name, fetched.Name)

	listed, err := service.List(t.Context(), "ws1", "user-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, campaign.ID, listed[0].ID)
}

func TestCampaigns_Get_NotFound(t *testing.T) {
	service, _ := newCampaignsService(t)

	fetched, err := service.Get(t.Context(), "missing", "user-1")
	require.ErrorIs(t, err, ErrCampaignNotFound)
	assert.Nil(t, fetched)
}

func TestCampaigns_PermissionDenied(t *testing.T) {
	service, persistence := newCampaignsService(t)
	campaign := seedToggleCampaign(t, persistence, "wf-1", models.RemoteStatusInactive)

	_, err := service.Get(t.Context(), campaign.ID, "outsider")
	require.ErrorIs(t, err, ErrPermissionDenied)

	_, err = service.List(t.Context(), "ws1", "outsider")
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCampaigns_List_MissingWorkspace(t *testing.T) {
	service, _ := newCampaignsService(t)

	_, err := service.List(t.Context(), "", "user-1")
	require.ErrorIs(t, err, ErrWorkspaceRequired)
	assert.True(t, IsValidationError(err))
}
