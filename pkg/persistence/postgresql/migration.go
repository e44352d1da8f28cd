package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create campaigns table
			CREATE TABLE campaigns (
				id UUID PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				template_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('paused', 'active', 'completed')),
				remote_workflow_id VARCHAR(255),
				remote_status VARCHAR(50) NOT NULL CHECK (remote_status IN ('active', 'inactive', 'unknown', 'error')),
				last_sync_at TIMESTAMP WITH TIME ZONE,
				version BIGINT NOT NULL DEFAULT 1,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_campaigns_workspace_id ON campaigns(workspace_id);
			CREATE INDEX idx_campaigns_status ON campaigns(status);
			CREATE INDEX idx_campaigns_remote_workflow_id ON campaigns(remote_workflow_id);
			CREATE INDEX idx_campaigns_created_at ON campaigns(created_at);

			-- Create provisioning_steps table (append-only audit trail)
			CREATE TABLE provisioning_steps (
				provision_id UUID NOT NULL,
				campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
				step_name VARCHAR(50) NOT NULL CHECK (step_name IN ('db', 'remote_clone', 'webhook', 'activate')),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'done', 'error')),
				error_detail TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (provision_id, step_name)
			);

			CREATE INDEX idx_provisioning_steps_campaign_id ON provisioning_steps(campaign_id);
			CREATE INDEX idx_provisioning_steps_status ON provisioning_steps(status);
		`,
	}
}
