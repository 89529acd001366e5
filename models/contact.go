package models

import (
	"time"

	"github.com/lib/pq"
)

// Contact represents a tenant-scoped WhatsApp contact used for campaign
// targeting. Tags are stored as a PostgreSQL TEXT[] column with a GIN index.
// The dispatch engine only ever reads contacts; opted-out contacts are never
// eligible recipients.
type Contact struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	TenantID          uint           `gorm:"not null;uniqueIndex:uk_contacts_tenant_phone,priority:1;index:idx_contacts_tenant_id" json:"tenant_id"`
	Phone             string         `gorm:"size:20;not null;uniqueIndex:uk_contacts_tenant_phone,priority:2" json:"phone"`
	Name              string         `gorm:"size:255" json:"name"`
	Tags              pq.StringArray `gorm:"type:text[];index:idx_contacts_tags_gin,using:gin" json:"tags"`
	Location          *string        `gorm:"size:255" json:"location,omitempty"`
	Country           *string        `gorm:"size:2" json:"country,omitempty"`
	LastInteractionAt *time.Time     `gorm:"index:idx_contacts_last_interaction_at" json:"last_interaction_at,omitempty"`
	OptedOut          bool           `gorm:"not null;default:false;index:idx_contacts_opted_out" json:"opted_out"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID       *uint   `json:"id,omitempty"`
	TenantID *uint   `json:"tenant_id,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	OptedOut *bool   `json:"opted_out,omitempty"`
}
