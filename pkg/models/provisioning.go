package models

import "time"

// StepName identifies one step of the provisioning sequence. Steps are
// ordered; ProvisioningStepOrder is the canonical sequence.
type StepName string

const (
	StepDB          StepName = "db"           // Campaign row written
	StepRemoteClone StepName = "remote_clone" // Workflow cloned in the automation engine
	StepWebhook     StepName = "webhook"      // Callback endpoint registered on the workflow
	StepActivate    StepName = "activate"     // Workflow switched on
)

// ProvisioningStepOrder lists the provisioning steps in execution order.
var ProvisioningStepOrder = []StepName{StepDB, StepRemoteClone, StepWebhook, StepActivate}

// StepStatus is the state of a single provisioning step.
type StepStatus string

const (
	StepStatusPending StepStatus = "pending"
	StepStatusDone    StepStatus = "done"
	StepStatusError   StepStatus = "error"
)

// ProvisioningStep is one row of the append-only provisioning audit trail.
// All four rows for a provision are created together; they are updated as
// the asynchronous worker completes each action and are never deleted.
type ProvisioningStep struct {
	ProvisionID string     `json:"provision_id"`
	CampaignID  string     `json:"campaign_id"`
	StepName    StepName   `json:"step_name"`
	Status      StepStatus `json:"status"`
	ErrorDetail string     `json:"error_detail,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProvisionStatus is the poll view over one provisioning attempt: the
// ordered step rows plus flags derived from them.
type ProvisionStatus struct {
	ProvisionID string              `json:"provision_id"`
	CampaignID  string              `json:"campaign_id"`
	Steps       []*ProvisioningStep `json:"steps"`
	IsComplete  bool                `json:"is_complete"`
	HasError    bool                `json:"has_error"`
}

// NewProvisionStatus orders steps canonically and derives the completion
// flags. Steps with unknown names keep their relative order after the
// known ones.
func NewProvisionStatus(provisionID, campaignID string, steps []*ProvisioningStep) *ProvisionStatus {
	ordered := make([]*ProvisioningStep, 0, len(steps))

	for _, name := range ProvisioningStepOrder {
		for _, step := range steps {
			if step.StepName == name {
				ordered = append(ordered, step)
			}
		}
	}

	for _, step := range steps {
		if !knownStep(step.StepName) {
			ordered = append(ordered, step)
		}
	}

	status := &ProvisionStatus{
		ProvisionID: provisionID,
		CampaignID:  campaignID,
		Steps:       ordered,
		IsComplete:  len(ordered) > 0,
	}

	for _, step := range ordered {
		if step.Status != StepStatusDone {
			status.IsComplete = false
		}

		if step.Status == StepStatusError {
			status.HasError = true
		}
	}

	return status
}

func knownStep(name StepName) bool {
	for _, known := range ProvisioningStepOrder {
		if name == known {
			return true
		}
	}

	return false
}

// NewProvisioningSteps builds the four step rows for a fresh provisioning
// attempt. The db step is pre-marked done because the campaign row is
// written in the same unit of work.
func NewProvisioningSteps(provisionID, campaignID string, now time.Time) []*ProvisioningStep {
	steps := make([]*ProvisioningStep, 0, len(ProvisioningStepOrder))

	for _, name := range ProvisioningStepOrder {
		status := StepStatusPending
		if name == StepDB {
			status = StepStatusDone
		}

		steps = append(steps, &ProvisioningStep{
			ProvisionID: provisionID,
			CampaignID:  campaignID,
			StepName:    name,
			Status:      status,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return steps
}
