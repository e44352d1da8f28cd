package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignError_WrapsSentinel(t *testing.T) {
	err := NewCampaignError("Update", "camp-1", ErrVersionConflict)

	assert.True(t, errors.Is(err, ErrVersionConflict))
	assert.True(t, IsVersionConflict(err))
	assert.False(t, IsCampaignNotFound(err))
	assert.Contains(t, err.Error(), "camp-1")
	assert.Contains(t, err.Error(), "Update")
}

func TestCampaignError_UnwrapChain(t *testing.T) {
	inner := fmt.Errorf("query failed: %w", ErrCampaignNotFound)
	err := NewCampaignError("GetByID", "camp-2", inner)

	assert.True(t, IsCampaignNotFound(err))
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestProvisionError_Message(t *testing.T) {
	err := &ProvisionError{Op: "UpdateStep", ProvisionID: "prov-1", StepName: "webhook", Err: ErrStepNotFound}

	assert.True(t, errors.Is(err, ErrStepNotFound))
	assert.Contains(t, err.Error(), "webhook")

	noStep := &ProvisionError{Op: "Steps", ProvisionID: "prov-1", Err: ErrProvisionNotFound}
	assert.True(t, IsProvisionNotFound(noStep))
	assert.NotContains(t, noStep.Error(), "step ")
}
