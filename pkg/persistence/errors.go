// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrProvisionNotFound indicates no provisioning steps exist for the given provision ID.
	ErrProvisionNotFound = errors.New("provision not found")

	// ErrStepNotFound indicates the named step does not exist for the provision.
	ErrStepNotFound = errors.New("provisioning step not found")

	// ErrVersionConflict indicates a conditional write lost the race:
	// the stored version no longer matches the version the writer read.
	ErrVersionConflict = errors.New("campaign version conflict")

	// ErrCampaignAlreadyExists indicates a campaign with the same identifier already exists.
	ErrCampaignAlreadyExists = errors.New("campaign already exists")

	// ErrWorkflowAlreadyLinked indicates the campaign already carries a
	// remote workflow ID; the link is set once and immutable thereafter.
	ErrWorkflowAlreadyLinked = errors.New("campaign already linked to a remote workflow")
)

// CampaignError wraps campaign-related storage errors with operation context.
type CampaignError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Update")
	CampaignID string // Campaign ID if applicable
	Err        error  // Underlying error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign storage error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{
		Op:         op,
		CampaignID: campaignID,
		Err:        err,
	}
}

// ProvisionError wraps provisioning-step storage errors with operation context.
type ProvisionError struct {
	Op          string
	ProvisionID string
	StepName    string
	Err         error
}

func (e *ProvisionError) Error() string {
	if e.StepName != "" {
		return fmt.Sprintf("%s operation failed for step %s of provision %s: %v", e.Op, e.StepName, e.ProvisionID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for provision %s: %v", e.Op, e.ProvisionID, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

func (e *ProvisionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsCampaignNotFound checks if an error indicates a missing campaign.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsProvisionNotFound checks if an error indicates a missing provision.
func IsProvisionNotFound(err error) bool {
	return errors.Is(err, ErrProvisionNotFound)
}

// IsVersionConflict checks if an error indicates a lost conditional write.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
