// Package web provides HTTP handlers and REST API endpoints for campaign
// provisioning and synchronization.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/xeipuuv/gojsonschema"

	"github.com/nishchith-m1015/campaign-sync/pkg/models"
	"github.com/nishchith-m1015/campaign-sync/pkg/services"
)

// UserIDHeader carries the caller identity resolved by the auth gateway in
// front of this service.
const UserIDHeader = "X-User-Id"

// ReconcileTokenHeader and CallbackTokenHeader carry the shared secrets
// guarding the machine-facing endpoints.
const (
	ReconcileTokenHeader = "X-Reconcile-Token"
	CallbackTokenHeader  = "X-Callback-Token"
)

type APIHandlers struct {
	campaignService     *services.Campaigns
	provisioningService *services.Provisioning
	toggleService       *services.Toggle
	sweeperService      *services.Sweeper
	validator           *validator.Validate
	reconcileToken      string
	callbackToken       string
}

func NewAPIHandlers(
	campaignService *services.Campaigns,
	provisioningService *services.Provisioning,
	toggleService *services.Toggle,
	sweeperService *services.Sweeper,
	validator *validator.Validate,
	reconcileToken string,
	callbackToken string,
) *APIHandlers {
	return &APIHandlers{
		campaignService:     campaignService,
		provisioningService: provisioningService,
		toggleService:       toggleService,
		sweeperService:      sweeperService,
		validator:           validator,
		reconcileToken:      reconcileToken,
		callbackToken:       callbackToken,
	}
}

// ProvisionCampaign creates a campaign and its provisioning step log. The
// remote steps run asynchronously; clients poll the provisioning status.
func (h *APIHandlers) ProvisionCampaign(c fiber.Ctx) error {
	userID, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+UserIDHeader+" header")
	}

	var req ProvisionCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.provisioningService.Provision(c.Context(), services.ProvisionRequest{
		Name:        req.Name,
		Description: req.Description,
		TemplateID:  req.TemplateID,
		WorkspaceID: req.WorkspaceID,
		UserID:      userID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetCampaigns lists the campaigns of one workspace.
func (h *APIHandlers) GetCampaigns(c fiber.Ctx) error {
	userID, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+UserIDHeader+" header")
	}

	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id query parameter is required")
	}

	campaigns, err := h.campaignService.List(c.Context(), workspaceID, userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"campaigns":    campaigns,
		"total_count":  len(campaigns),
		"workspace_id": workspaceID,
	})
}

// GetCampaign fetches one campaign.
func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	userID, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+UserIDHeader+" header")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	campaign, err := h.campaignService.Get(c.Context(), id, userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

// ToggleCampaign activates or deactivates a campaign.
func (h *APIHandlers) ToggleCampaign(c fiber.Ctx) error {
	userID, ok := h.identity(c)
	if !ok {
		return unauthorized(c, "missing "+UserIDHeader+" header")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	var req ToggleCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaign, err := h.toggleService.Toggle(c.Context(), id, models.ToggleAction(req.Action), userID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

// GetCampaignProvisioning returns the step rows and derived flags for a
// campaign's provisioning attempt.
func (h *APIHandlers) GetCampaignProvisioning(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Campaign ID is required")
	}

	status, err := h.provisioningService.StatusByCampaign(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

// GetProvision returns the step rows for one provision ID.
func (h *APIHandlers) GetProvision(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Provision ID is required")
	}

	status, err := h.provisioningService.Status(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

// Reconcile triggers a sweep. Guarded by the shared reconcile token so the
// scheduler, not arbitrary clients, drives reconciliation.
func (h *APIHandlers) Reconcile(c fiber.Ctx) error {
	if !h.tokenMatches(c, ReconcileTokenHeader, h.reconcileToken) {
		return unauthorized(c, "missing or invalid reconcile token")
	}

	result, err := h.sweeperService.Sweep(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

// AutomationCallback receives workflow state pushes from the engine and
// applies them as drift observations.
func (h *APIHandlers) AutomationCallback(c fiber.Ctx) error {
	if !h.tokenMatches(c, CallbackTokenHeader, h.callbackToken) {
		return unauthorized(c, "missing or invalid callback token")
	}

	body := c.Body()

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(callbackSchema), gojsonschema.NewBytesLoader(body))
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return badRequest(c, "Invalid callback payload: "+strings.Join(details, "; "))
	}

	var req AutomationCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	campaign, err := h.sweeperService.ApplyObservation(c.Context(), req.WorkflowID, req.Active)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"campaign_id":   campaign.ID,
		"remote_status": campaign.RemoteStatus,
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.campaignService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Campaign Sync API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Campaign Sync API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// identity resolves the caller from the gateway-set header. Requests with
// no identity are rejected before any service work.
func (h *APIHandlers) identity(c fiber.Ctx) (string, bool) {
	userID := c.Get(UserIDHeader)

	return userID, userID != ""
}

// tokenMatches compares the shared secret from header or query in constant
// time. An empty configured token disables the endpoint entirely.
func (h *APIHandlers) tokenMatches(c fiber.Ctx, header, expected string) bool {
	if expected == "" {
		return false
	}

	presented := c.Get(header)
	if presented == "" {
		presented = c.Query("token")
	}

	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
