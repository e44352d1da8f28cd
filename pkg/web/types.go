// Package web provides HTTP request and response types for the campaign API.
package web

// ProvisionCampaignRequest represents the request body for creating a new campaign.
type ProvisionCampaignRequest struct {
	Name        string `json:"name"                  validate:"required,min=1"`
	Description string `json:"description,omitempty"`
	TemplateID  string `json:"template_id,omitempty"`
	WorkspaceID string `json:"workspace_id"          validate:"required"`
}

// ToggleCampaignRequest represents the request body for toggling a campaign.
type ToggleCampaignRequest struct {
	Action string `json:"action" validate:"required,oneof=activate deactivate"`
}

// AutomationCallbackRequest is the payload the automation engine pushes
// when a workflow's state changes. Validated against callbackSchema before
// decoding.
type AutomationCallbackRequest struct {
	WorkflowID string `json:"workflow_id"`
	Active     bool   `json:"active"`
}

// callbackSchema is the JSON Schema for engine status pushes.
var callbackSchema = map[string]any{
	"type":     "object",
	"required": []any{"workflow_id", "active"},
	"properties": map[string]any{
		"workflow_id": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"active": map[string]any{
			"type": "boolean",
		},
	},
	"additionalProperties": true,
}
