package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvisioningSteps(t *testing.T) {
	now := time.Now().UTC()
	steps := NewProvisioningSteps("prov-1", "camp-1", now)

	require.Len(t, steps, 4)

	assert.Equal(t, StepDB, steps[0].StepName)
	assert.Equal(t, StepStatusDone, steps[0].Status)

	for _, step := range steps[1:] {
		assert.Equal(t, StepStatusPending, step.Status, "step %s should start pending", step.StepName)
	}

	for _, step := range steps {
		assert.Equal(t, "prov-1", step.ProvisionID)
		assert.Equal(t, "camp-1", step.CampaignID)
	}
}

func TestNewProvisionStatus_Flags(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name         string
		mutate       func([]*ProvisioningStep)
		wantComplete bool
		wantError    bool
	}{
		{
			name:         "fresh attempt is neither complete nor errored",
			mutate:       func([]*ProvisioningStep) {},
			wantComplete: false,
			wantError:    false,
		},
		{
			name: "all done is complete",
			mutate: func(steps []*ProvisioningStep) {
				for _, step := range steps {
					step.Status = StepStatusDone
				}
			},
			wantComplete: true,
			wantError:    false,
		},
		{
			name: "one errored step flags the attempt",
			mutate: func(steps []*ProvisioningStep) {
				steps[2].Status = StepStatusError
				steps[2].ErrorDetail = "webhook registration refused"
			},
			wantComplete: false,
			wantError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := NewProvisioningSteps("prov-1", "camp-1", now)
			tt.mutate(steps)

			status := NewProvisionStatus("prov-1", "camp-1", steps)
			assert.Equal(t, tt.wantComplete, status.IsComplete)
			assert.Equal(t, tt.wantError, status.HasError)
		})
	}
}

func TestNewProvisionStatus_OrdersSteps(t *testing.T) {
	now := time.Now().UTC()
	steps := NewProvisioningSteps("prov-1", "camp-1", now)

	// Shuffle: reverse the slice before deriving the status view.
	shuffled := []*ProvisioningStep{steps[3], steps[1], steps[0], steps[2]}

	status := NewProvisionStatus("prov-1", "camp-1", shuffled)

	require.Len(t, status.Steps, 4)

	for i, name := range ProvisioningStepOrder {
		assert.Equal(t, name, status.Steps[i].StepName)
	}
}

func TestToggleAction(t *testing.T) {
	assert.True(t, ToggleActionActivate.Valid())
	assert.True(t, ToggleActionDeactivate.Valid())
	assert.False(t, ToggleAction("pause").Valid())

	assert.Equal(t, RemoteStatusActive, ToggleActionActivate.TargetRemoteStatus())
	assert.Equal(t, RemoteStatusInactive, ToggleActionDeactivate.TargetRemoteStatus())
	assert.Equal(t, CampaignStatusActive, ToggleActionActivate.TargetCampaignStatus())
	assert.Equal(t, CampaignStatusPaused, ToggleActionDeactivate.TargetCampaignStatus())
}

func TestCampaignLinked(t *testing.T) {
	campaign := &Campaign{}
	assert.False(t, campaign.Linked())

	empty := ""
	campaign.RemoteWorkflowID = &empty
	assert.False(t, campaign.Linked())

	wf := "wf-123"
	campaign.RemoteWorkflowID = &wf
	assert.True(t, campaign.Linked())
}

func TestRemoteStatusFromActive(t *testing.T) {
	assert.Equal(t, RemoteStatusActive, RemoteStatusFromActive(true))
	assert.Equal(t, RemoteStatusInactive, RemoteStatusFromActive(false))
}
