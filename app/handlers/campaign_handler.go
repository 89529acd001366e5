// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/app/middleware"
	businessflow "github.com/amirphl/Raijin/business_flow"
	"github.com/amirphl/Raijin/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	ScheduleCampaign(c fiber.Ctx) error
	CancelSchedule(c fiber.Ctx) error
	LaunchCampaign(c fiber.Ctx) error
	PreviewAudience(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	ListDispatchItems(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	launchFlow   businessflow.LaunchFlow
	validator    *validator.Validate
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, launchFlow businessflow.LaunchFlow) *CampaignHandler {
	handler := &CampaignHandler{
		campaignFlow: campaignFlow,
		launchFlow:   launchFlow,
		validator:    validator.New(),
	}

	// Setup custom validations
	handler.setupCustomValidations()

	return handler
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new campaign with an audience filter and a template or A/B variants
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - tenant not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Get authenticated tenant ID from context
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}
	req.TenantID = tenantID

	// Call business logic with proper context
	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		// Handle specific business errors
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		if businessflow.IsTenantInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant is inactive", "TENANT_INACTIVE", nil)
		}
		if businessflow.IsTemplateNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Message template not found", "TEMPLATE_NOT_FOUND", nil)
		}
		if businessflow.IsTemplateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template is required when no variants are given", "TEMPLATE_REQUIRED", nil)
		}
		if businessflow.IsTemplateConflictsVariant(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Template and variants are mutually exclusive", "TEMPLATE_CONFLICTS_VARIANTS", nil)
		}
		if businessflow.IsVariantsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "A/B campaigns require at least two variants", "VARIANTS_REQUIRED", nil)
		}
		if businessflow.IsTooManyVariants(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Too many variants", "TOO_MANY_VARIANTS", nil)
		}
		if businessflow.IsDuplicateVariantLetter(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Duplicate variant letter", "DUPLICATE_VARIANT_LETTER", nil)
		}
		if businessflow.IsInvalidVariantLetter(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid variant letter", "INVALID_VARIANT_LETTER", nil)
		}
		if businessflow.IsInvalidSplitPercent(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Split percent must be greater than zero", "INVALID_SPLIT_PERCENT", nil)
		}
		if businessflow.IsSplitTotalExceeded(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Variant split percentages exceed 100", "SPLIT_TOTAL_EXCEEDED", nil)
		}
		if businessflow.IsScheduleTimeInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time must be in the future", "SCHEDULE_TIME_IN_PAST", nil)
		}

		log.Println("Campaign creation failed", err)
		// Handle generic business errors
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	// Successful campaign creation
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", fiber.Map{
		"message":    result.Message,
		"uuid":       result.UUID,
		"status":     result.Status,
		"created_at": result.CreatedAt,
	})
}

// ScheduleCampaign arms a draft campaign for the scheduler sweep
// @Summary Schedule Campaign
// @Description Arm a draft campaign to launch automatically at the given time
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.ScheduleCampaignRequest true "Schedule data"
// @Success 200 {object} dto.APIResponse{data=dto.ScheduleCampaignResponse} "Campaign scheduled successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another tenant"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not in draft state"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/schedule [post]
func (h *CampaignHandler) ScheduleCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ScheduleCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}
	req.TenantID = tenantID

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ScheduleCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/schedule"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another tenant", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotDraft(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only draft campaigns can be scheduled", "CAMPAIGN_NOT_DRAFT", nil)
		}
		if businessflow.IsScheduleTimeNotPresent(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time is required", "SCHEDULE_TIME_NOT_PRESENT", nil)
		}
		if businessflow.IsScheduleTimeInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Schedule time must be in the future", "SCHEDULE_TIME_IN_PAST", nil)
		}

		log.Println("Campaign scheduling failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign scheduling failed", "CAMPAIGN_SCHEDULE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign scheduled successfully", fiber.Map{
		"message":      result.Message,
		"status":       result.Status,
		"scheduled_at": result.ScheduledAt,
	})
}

// CancelSchedule returns a scheduled campaign to draft before it fires
// @Summary Cancel Campaign Schedule
// @Description Return a scheduled campaign to draft before the scheduler claims it
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CancelScheduleResponse} "Schedule cancelled"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another tenant"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not scheduled"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/cancel-schedule [post]
func (h *CampaignHandler) CancelSchedule(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := &dto.CancelScheduleRequest{UUID: campaignUUID, TenantID: tenantID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CancelSchedule(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/cancel-schedule"), req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another tenant", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotScheduled(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not scheduled", "CAMPAIGN_NOT_SCHEDULED", nil)
		}

		log.Println("Campaign schedule cancellation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign schedule cancellation failed", "CAMPAIGN_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign schedule cancelled", fiber.Map{
		"message": result.Message,
		"status":  result.Status,
	})
}

// LaunchCampaign launches a draft campaign immediately
// @Summary Launch Campaign
// @Description Resolve the audience and enqueue a send job per matched contact
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.LaunchCampaignResponse} "Campaign launched"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another tenant"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 409 {object} dto.APIResponse "Campaign is not in draft state or already claimed"
// @Failure 422 {object} dto.APIResponse "Audience filter matches no contacts"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/launch [post]
func (h *CampaignHandler) LaunchCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := &dto.LaunchCampaignRequest{UUID: campaignUUID, TenantID: tenantID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// A launch fans out per-recipient work, so give it more room than the
	// default request timeout.
	result, err := h.launchFlow.LaunchCampaign(h.createRequestContextWithTimeout(c, "/api/v1/campaigns/"+campaignUUID+"/launch", 5*time.Minute), req, metadata)
	if err != nil {
		middleware.RecordCampaignLaunch("interactive", "failure")

		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another tenant", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotDraft(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only draft campaigns can be launched directly", "CAMPAIGN_NOT_DRAFT", nil)
		}
		if businessflow.IsCampaignAlreadyClaimed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign was claimed by another launcher", "CAMPAIGN_ALREADY_CLAIMED", nil)
		}
		if businessflow.IsEmptyAudience(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Audience filter matches no contacts", "EMPTY_AUDIENCE", nil)
		}

		log.Println("Campaign launch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign launch failed", "CAMPAIGN_LAUNCH_FAILED", nil)
	}

	middleware.RecordCampaignLaunch("interactive", "success")

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign launched successfully", fiber.Map{
		"message":      result.Message,
		"status":       result.Status,
		"total_count":  result.TotalCount,
		"queued_count": result.QueuedCount,
		"failed_count": result.FailedCount,
	})
}

// PreviewAudience counts the contacts an audience filter would match
// @Summary Preview Audience
// @Description Count the contacts a filter would match using the same predicate the launcher uses
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.PreviewAudienceRequest true "Audience filter"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewAudienceResponse} "Audience counted"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized - tenant not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/preview-audience [post]
func (h *CampaignHandler) PreviewAudience(c fiber.Ctx) error {
	var req dto.PreviewAudienceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}
	req.TenantID = tenantID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.PreviewAudience(h.createRequestContext(c, "/api/v1/campaigns/preview-audience"), &req, metadata)
	if err != nil {
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		if businessflow.IsTenantInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant is inactive", "TENANT_INACTIVE", nil)
		}

		log.Println("Audience preview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Audience preview failed", "AUDIENCE_PREVIEW_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Audience preview retrieved", fiber.Map{
		"message": result.Message,
		"count":   result.Count,
		"cached":  result.Cached,
	})
}

// GetCampaign returns one campaign with its variants and counters
// @Summary Get Campaign
// @Description Retrieve one campaign by UUID including variants and dispatch counters
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetCampaignResponse}
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another tenant"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := &dto.GetCampaignRequest{UUID: campaignUUID, TenantID: tenantID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID), req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another tenant", "CAMPAIGN_ACCESS_DENIED", nil)
		}

		log.Println("Get campaign failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns returns the tenant's campaigns with filters and pagination
// @Summary List Campaigns
// @Description Retrieve the authenticated tenant's campaigns with pagination, ordering, and filters
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(20)
// @Param orderby query string false "Order by (newest|oldest)" default(newest)
// @Param name query string false "Filter by name (exact)"
// @Param status query string false "Filter by status (draft|scheduled|processing|completed|failed)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	// Parse query params
	pageStr := c.Query("page", "1")
	limitStr := c.Query("limit", "20")
	page := 1
	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	orderby := c.Query("orderby", "newest")
	name := c.Query("name")
	status := c.Query("status")

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	// Build request DTO
	var filter *dto.ListCampaignsFilter
	if name != "" || status != "" {
		filter = &dto.ListCampaignsFilter{}
		if name != "" {
			filter.Name = &name
		}
		if status != "" {
			filter.Status = &status
		}
	}
	req := &dto.ListCampaignsRequest{
		TenantID: tenantID,
		Page:     page,
		Limit:    limit,
		OrderBy:  orderby,
		Filter:   filter,
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), req, metadata)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", nil)
		}

		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", fiber.Map{
		"message":    result.Message,
		"items":      result.Items,
		"pagination": result.Pagination,
	})
}

// ListDispatchItems returns a paginated slice of a campaign's per-recipient ledger
// @Summary List Dispatch Items
// @Description Retrieve a campaign's per-recipient dispatch ledger with pagination and status filter
// @Tags Campaigns
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page (max 100)" default(20)
// @Param status query string false "Filter by status (queued|sent|delivered|failed)"
// @Success 200 {object} dto.APIResponse{data=dto.ListDispatchItemsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign belongs to another tenant"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/items [get]
func (h *CampaignHandler) ListDispatchItems(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	pageStr := c.Query("page", "1")
	limitStr := c.Query("limit", "20")
	page := 1
	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := &dto.ListDispatchItemsRequest{
		CampaignUUID: campaignUUID,
		TenantID:     tenantID,
		Page:         page,
		Limit:        limit,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListDispatchItems(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/items"), req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another tenant", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", "INVALID_PAGINATION", nil)
		}

		log.Println("List dispatch items failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list dispatch items", "LIST_DISPATCH_ITEMS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch items retrieved successfully", fiber.Map{
		"message":    result.Message,
		"items":      result.Items,
		"pagination": result.Pagination,
	})
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *CampaignHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	// Create context with custom timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}

// setupCustomValidations sets up custom validation rules
func (h *CampaignHandler) setupCustomValidations() {
	// Add custom validation rules if needed
	// Example: h.validator.RegisterValidation("custom_rule", customValidationFunc)
}
