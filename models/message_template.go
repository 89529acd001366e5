package models

import (
	"time"
)

// MessageTemplate is a provider-approved message template. The dispatch
// engine only reads templates when building job payloads; creation and
// Meta-syntax validation live elsewhere.
type MessageTemplate struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"not null;uniqueIndex:uk_templates_tenant_name_lang,priority:1;index:idx_templates_tenant_id" json:"tenant_id"`
	Name           string    `gorm:"size:255;not null;uniqueIndex:uk_templates_tenant_name_lang,priority:2" json:"name"`
	Language       string    `gorm:"size:10;not null;default:'en';uniqueIndex:uk_templates_tenant_name_lang,priority:3" json:"language"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	HeaderMediaURL *string   `gorm:"size:2048" json:"header_media_url,omitempty"`
	CreatedAt      time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
}

// TableName returns the table name for the model
func (MessageTemplate) TableName() string {
	return "message_templates"
}

// MessageTemplateFilter represents filter criteria for template queries
type MessageTemplateFilter struct {
	ID       *uint   `json:"id,omitempty"`
	TenantID *uint   `json:"tenant_id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Language *string `json:"language,omitempty"`
}
