package dto

import (
	"time"
)

// AudienceFilterDTO mirrors the contact targeting predicate stored on a campaign
type AudienceFilterDTO struct {
	Tags                []string `json:"tags,omitempty"`
	Location            *string  `json:"location,omitempty"`
	Country             *string  `json:"country,omitempty"`
	LastInteractionDays *int     `json:"last_interaction_days,omitempty" validate:"omitempty,gt=0"`
}

// VariantDTO represents one A/B variant on create and read paths
type VariantDTO struct {
	Letter       string  `json:"letter" validate:"required,oneof=A B C"`
	TemplateID   uint    `json:"template_id" validate:"required"`
	SplitPercent float64 `json:"split_percent" validate:"required,gt=0,lte=100"`
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	TenantID       uint               `json:"-"`
	Name           string             `json:"name" validate:"required,min=1,max=255"`
	TemplateID     *uint              `json:"template_id,omitempty"`
	Filter         *AudienceFilterDTO `json:"filter,omitempty"`
	Variants       []VariantDTO       `json:"variants,omitempty" validate:"omitempty,max=3,dive"`
	RecurrenceType *string            `json:"recurrence_type,omitempty" validate:"omitempty,oneof=none daily weekly monthly"`
	ScheduledAt    *time.Time         `json:"scheduled_at,omitempty"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ScheduleCampaignRequest represents the request to schedule a draft campaign
type ScheduleCampaignRequest struct {
	UUID           string     `json:"-"`
	TenantID       uint       `json:"-"`
	ScheduledAt    *time.Time `json:"scheduled_at" validate:"required"`
	RecurrenceType *string    `json:"recurrence_type,omitempty" validate:"omitempty,oneof=none daily weekly monthly"`
}

// ScheduleCampaignResponse represents the response to schedule a campaign
type ScheduleCampaignResponse struct {
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// CancelScheduleRequest represents the request to return a scheduled campaign to draft
type CancelScheduleRequest struct {
	UUID     string `json:"-"`
	TenantID uint   `json:"-"`
}

// CancelScheduleResponse represents the response to cancel a schedule
type CancelScheduleResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// LaunchCampaignRequest represents the request to launch a draft campaign immediately
type LaunchCampaignRequest struct {
	UUID     string `json:"-"`
	TenantID uint   `json:"-"`
}

// LaunchCampaignResponse represents the response to launch a campaign
type LaunchCampaignResponse struct {
	Message     string `json:"message"`
	Status      string `json:"status"`
	TotalCount  int64  `json:"total_count"`
	QueuedCount int64  `json:"queued_count"`
	FailedCount int64  `json:"failed_count"`
}

// PreviewAudienceRequest represents the request to count the audience for a filter
type PreviewAudienceRequest struct {
	TenantID uint               `json:"-"`
	Filter   *AudienceFilterDTO `json:"filter,omitempty"`
}

// PreviewAudienceResponse represents the response with the matched contact count
type PreviewAudienceResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
	Cached  bool   `json:"cached"`
}

// GetCampaignRequest represents the request to get an existing campaign
type GetCampaignRequest struct {
	UUID     string `json:"-"`
	TenantID uint   `json:"-"`
}

// GetCampaignResponse represents the campaign specification in responses
type GetCampaignResponse struct {
	UUID            string             `json:"uuid"`
	Name            string             `json:"name"`
	Status          string             `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
	TemplateID      *uint              `json:"template_id,omitempty"`
	ABEnabled       bool               `json:"ab_enabled"`
	Filter          *AudienceFilterDTO `json:"filter,omitempty"`
	Variants        []VariantDTO       `json:"variants,omitempty"`
	RecurrenceType  string             `json:"recurrence_type"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty"`
	LastRunAt       *time.Time         `json:"last_run_at,omitempty"`
	TotalCount      int64              `json:"total_count"`
	SentCount       int64              `json:"sent_count"`
	FailedCount     int64              `json:"failed_count"`
	ReadCount       int64              `json:"read_count"`
	ResponseCount   int64              `json:"response_count"`
	ConversionCount int64              `json:"conversion_count"`
}

// ListCampaignsFilter represents filter criteria for listing campaigns in request layer
type ListCampaignsFilter struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled processing completed failed"`
}

// ListCampaignsRequest represents a paginated list request for tenant campaigns
type ListCampaignsRequest struct {
	TenantID uint                 `json:"-"`
	Page     int                  `json:"page"`
	Limit    int                  `json:"limit"`
	OrderBy  string               `json:"orderby"` // newest, oldest
	Filter   *ListCampaignsFilter `json:"filter,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Message    string                `json:"message"`
	Items      []GetCampaignResponse `json:"items"`
	Pagination PaginationInfo        `json:"pagination"`
}

// DispatchItemDTO represents one ledger entry in item listings
type DispatchItemDTO struct {
	ID            uint       `json:"id"`
	ContactID     uint       `json:"contact_id"`
	Status        string     `json:"status"`
	VariantLetter *string    `json:"variant_letter,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	QueuedAt      *time.Time `json:"queued_at,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	RespondedAt   *time.Time `json:"responded_at,omitempty"`
}

// ListDispatchItemsRequest represents a paginated list request for a campaign's ledger
type ListDispatchItemsRequest struct {
	CampaignUUID string  `json:"-"`
	TenantID     uint    `json:"-"`
	Page         int     `json:"page"`
	Limit        int     `json:"limit"`
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=queued sent delivered failed"`
}

// ListDispatchItemsResponse represents a paginated list of dispatch items
type ListDispatchItemsResponse struct {
	Message    string            `json:"message"`
	Items      []DispatchItemDTO `json:"items"`
	Pagination PaginationInfo    `json:"pagination"`
}
