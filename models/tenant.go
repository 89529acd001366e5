package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a business workspace on the platform. Every campaign, contact,
// and template belongs to exactly one tenant.
type Tenant struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tenants_uuid" json:"uuid"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	PhoneNumberID string    `gorm:"size:64;not null" json:"phone_number_id"`
	APIKey        string    `gorm:"size:64;not null;uniqueIndex:uk_tenants_api_key" json:"-"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate is a GORM hook called before creating a new record
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return nil
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
