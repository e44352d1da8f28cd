package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrations_CampaignSchema(t *testing.T) {
	migration, exists := migrations()[1]
	assert.True(t, exists, "Migration version 1 should exist")

	assert.Contains(t, migration, "CREATE TABLE campaigns")
	assert.Contains(t, migration, "CREATE TABLE provisioning_steps")

	// Version is the optimistic-concurrency token and must default to 1.
	assert.Contains(t, migration, "version BIGINT NOT NULL DEFAULT 1")

	// Status enums are closed sets at the schema level too.
	assert.Contains(t, migration, "status IN ('paused', 'active', 'completed')")
	assert.Contains(t, migration, "remote_status IN ('active', 'inactive', 'unknown', 'error')")
	assert.Contains(t, migration, "step_name IN ('db', 'remote_clone', 'webhook', 'activate')")

	requiredIndexes := []string{
		"idx_campaigns_workspace_id",
		"idx_campaigns_remote_workflow_id",
		"idx_provisioning_steps_campaign_id",
	}

	for _, index := range requiredIndexes {
		assert.Contains(t, migration, index, "Migration should contain index: %s", index)
	}
}
