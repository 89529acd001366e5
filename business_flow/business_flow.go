// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/amirphl/Raijin/app/dto"
	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToTargetFilter converts the request layer filter into the model predicate
func ToTargetFilter(f *dto.AudienceFilterDTO) models.TargetFilter {
	if f == nil {
		return models.TargetFilter{}
	}
	return models.TargetFilter{
		Tags:                f.Tags,
		Location:            f.Location,
		Country:             f.Country,
		LastInteractionDays: f.LastInteractionDays,
	}
}

// ToAudienceFilterDTO converts the stored predicate back into its request layer shape
func ToAudienceFilterDTO(f models.TargetFilter) *dto.AudienceFilterDTO {
	if f.IsEmpty() {
		return nil
	}
	return &dto.AudienceFilterDTO{
		Tags:                f.Tags,
		Location:            f.Location,
		Country:             f.Country,
		LastInteractionDays: f.LastInteractionDays,
	}
}

// ToGetCampaignResponse converts a campaign model into its response shape
func ToGetCampaignResponse(c *models.Campaign) dto.GetCampaignResponse {
	resp := dto.GetCampaignResponse{
		UUID:            c.UUID.String(),
		Name:            c.Name,
		Status:          c.Status.String(),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		TemplateID:      c.TemplateID,
		ABEnabled:       c.ABEnabled,
		Filter:          ToAudienceFilterDTO(c.Filter),
		RecurrenceType:  c.RecurrenceType.String(),
		ScheduledAt:     c.ScheduledAt,
		LastRunAt:       c.LastRunAt,
		TotalCount:      c.TotalCount,
		SentCount:       c.SentCount,
		FailedCount:     c.FailedCount,
		ReadCount:       c.ReadCount,
		ResponseCount:   c.ResponseCount,
		ConversionCount: c.ConversionCount,
	}

	for _, v := range c.Variants {
		resp.Variants = append(resp.Variants, dto.VariantDTO{
			Letter:       v.Letter,
			TemplateID:   v.TemplateID,
			SplitPercent: v.SplitPercent,
		})
	}

	return resp
}

// ToDispatchItemDTO converts a ledger row into its response shape
func ToDispatchItemDTO(item *models.DispatchItem) dto.DispatchItemDTO {
	return dto.DispatchItemDTO{
		ID:            item.ID,
		ContactID:     item.ContactID,
		Status:        item.Status.String(),
		VariantLetter: item.VariantLetter,
		FailureReason: item.FailureReason,
		QueuedAt:      utils.ToPtr(item.QueuedAt),
		SentAt:        item.SentAt,
		ReadAt:        item.ReadAt,
		RespondedAt:   item.RespondedAt,
	}
}
