// Package models defines the core domain models for campaign provisioning and synchronization.
package models

import "time"

// CampaignStatus represents the local lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusPaused    CampaignStatus = "paused"    // Created or deactivated, not sending
	CampaignStatusActive    CampaignStatus = "active"    // Running in the automation engine
	CampaignStatusCompleted CampaignStatus = "completed" // Finished, terminal
)

// RemoteStatus is the last state of the linked workflow observed in the
// automation engine. It is written by the toggle flow and by the
// reconciliation sweep, never by clients directly.
type RemoteStatus string

const (
	RemoteStatusActive   RemoteStatus = "active"
	RemoteStatusInactive RemoteStatus = "inactive"
	RemoteStatusUnknown  RemoteStatus = "unknown" // Never observed yet
	RemoteStatusError    RemoteStatus = "error"   // Last observation attempt failed
)

// ToggleAction is an operator request to change a campaign's running state.
type ToggleAction string

const (
	ToggleActionActivate   ToggleAction = "activate"
	ToggleActionDeactivate ToggleAction = "deactivate"
)

// Campaign is the local record of a marketing campaign. The automation
// engine holds a second representation (the workflow); Version is the
// optimistic-concurrency token guarding all status writes, and RemoteStatus
// plus LastSyncAt record the last agreement between the two.
type Campaign struct {
	ID               string         `json:"id"`
	WorkspaceID      string         `json:"workspace_id" validate:"required"`
	Name             string         `json:"name"         validate:"required"`
	Description      string         `json:"description"`
	TemplateID       string         `json:"template_id,omitempty"`
	Status           CampaignStatus `json:"status"`
	RemoteWorkflowID *string        `json:"remote_workflow_id,omitempty"`
	RemoteStatus     RemoteStatus   `json:"remote_status"`
	LastSyncAt       *time.Time     `json:"last_sync_at,omitempty"`
	Version          int64          `json:"version"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Linked reports whether provisioning has attached a remote workflow.
// Campaigns without a linked workflow cannot be toggled.
func (c *Campaign) Linked() bool {
	return c.RemoteWorkflowID != nil && *c.RemoteWorkflowID != ""
}

// TargetRemoteStatus maps a toggle action to the remote state it asserts.
func (a ToggleAction) TargetRemoteStatus() RemoteStatus {
	if a == ToggleActionActivate {
		return RemoteStatusActive
	}

	return RemoteStatusInactive
}

// TargetCampaignStatus maps a toggle action to the local lifecycle state.
func (a ToggleAction) TargetCampaignStatus() CampaignStatus {
	if a == ToggleActionActivate {
		return CampaignStatusActive
	}

	return CampaignStatusPaused
}

// Valid reports whether the action is one of the two supported toggles.
func (a ToggleAction) Valid() bool {
	return a == ToggleActionActivate || a == ToggleActionDeactivate
}

// RemoteStatusFromActive converts the engine's reported boolean into the
// stored enum. The engine response, not the requested state, is what gets
// persisted.
func RemoteStatusFromActive(active bool) RemoteStatus {
	if active {
		return RemoteStatusActive
	}

	return RemoteStatusInactive
}
