// Package events defines event types for campaign lifecycle notifications.
// Events are best-effort: publishers log failures and continue.
package events

import (
	"time"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
)

type EventType string

// Topic is the single topic all campaign events are published to.
const Topic = "campaignsync.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CampaignProvisionedEvent    EventType = "campaign.provisioned"
	CampaignActivatedEvent      EventType = "campaign.activated"
	CampaignDeactivatedEvent    EventType = "campaign.deactivated"
	CampaignDriftCorrectedEvent EventType = "campaign.drift_corrected"
	ProvisionStepCompletedEvent EventType = "provision.step.completed"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	CampaignID  string    `json:"campaign_id"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
}

// CampaignProvisioned is published when the provisioning orchestrator has
// written the campaign row and step log.
type CampaignProvisioned struct {
	BaseEvent

	ProvisionID string `json:"provision_id"`
}

func (e CampaignProvisioned) GetType() EventType {
	return CampaignProvisionedEvent
}

// CampaignActivated is published after a successful activate toggle.
type CampaignActivated struct {
	BaseEvent

	RemoteWorkflowID string `json:"remote_workflow_id"`
	Version          int64  `json:"version"`
}

func (e CampaignActivated) GetType() EventType {
	return CampaignActivatedEvent
}

// CampaignDeactivated is published after a successful deactivate toggle.
type CampaignDeactivated struct {
	BaseEvent

	RemoteWorkflowID string `json:"remote_workflow_id"`
	Version          int64  `json:"version"`
}

func (e CampaignDeactivated) GetType() EventType {
	return CampaignDeactivatedEvent
}

// CampaignDriftCorrected is published when a sweep or callback observation
// rewrote a stale remote_status.
type CampaignDriftCorrected struct {
	BaseEvent

	PreviousStatus models.RemoteStatus `json:"previous_status"`
	ObservedStatus models.RemoteStatus `json:"observed_status"`
}

func (e CampaignDriftCorrected) GetType() EventType {
	return CampaignDriftCorrectedEvent
}

// ProvisionStepCompleted is published as the provisioning worker finishes
// each step, successfully or not.
type ProvisionStepCompleted struct {
	BaseEvent

	ProvisionID string            `json:"provision_id"`
	StepName    models.StepName   `json:"step_name"`
	Status      models.StepStatus `json:"status"`
	ErrorDetail string            `json:"error_detail,omitempty"`
}

func (e ProvisionStepCompleted) GetType() EventType {
	return ProvisionStepCompletedEvent
}
