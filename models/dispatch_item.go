package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DispatchItemStatus represents the delivery lifecycle of a dispatch item
type DispatchItemStatus string

const (
	DispatchItemStatusQueued    DispatchItemStatus = "queued"
	DispatchItemStatusSent      DispatchItemStatus = "sent"
	DispatchItemStatusDelivered DispatchItemStatus = "delivered"
	DispatchItemStatusFailed    DispatchItemStatus = "failed"
)

// String returns the string representation of the status
func (s DispatchItemStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DispatchItemStatus) Valid() bool {
	switch s {
	case DispatchItemStatusQueued, DispatchItemStatusSent,
		DispatchItemStatusDelivered, DispatchItemStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DispatchItemStatus
func (s *DispatchItemStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DispatchItemStatus(v)
	case []byte:
		*s = DispatchItemStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DispatchItemStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DispatchItemStatus
func (s DispatchItemStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DispatchItemStatus: %s", s)
	}
	return string(s), nil
}

// DispatchItem is the per-recipient unit of work for a campaign run. The
// composite unique index on (campaign_id, contact_id) is what makes enqueue
// idempotent under retried launches and duplicate scheduler wake-ups.
// Sent/read/response timestamps are written later by the delivery-status
// ingestion path, not by the dispatch engine.
type DispatchItem struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	CampaignID    uint               `gorm:"not null;uniqueIndex:uk_campaign_items_campaign_contact,priority:1;index:idx_campaign_items_campaign_id" json:"campaign_id"`
	ContactID     uint               `gorm:"not null;uniqueIndex:uk_campaign_items_campaign_contact,priority:2" json:"contact_id"`
	VariantLetter *string            `gorm:"size:1" json:"variant_letter,omitempty"`
	Status        DispatchItemStatus `gorm:"type:campaign_item_status;not null;default:'queued';index:idx_campaign_items_status" json:"status"`
	FailureReason *string            `gorm:"type:text" json:"failure_reason,omitempty"`

	QueuedAt    time.Time  `gorm:"not null" json:"queued_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Contact  *Contact  `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
}

// TableName returns the table name for the model
func (DispatchItem) TableName() string {
	return "campaign_items"
}

// BeforeCreate is a GORM hook called before creating a new record
func (d *DispatchItem) BeforeCreate(tx *gorm.DB) error {
	if d.Status == "" {
		d.Status = DispatchItemStatusQueued
	}
	if d.QueuedAt.IsZero() {
		d.QueuedAt = time.Now().UTC()
	}
	return nil
}

// CanTransitionTo checks if the item can transition to the given status
func (d *DispatchItem) CanTransitionTo(newStatus DispatchItemStatus) bool {
	switch d.Status {
	case DispatchItemStatusQueued:
		return newStatus == DispatchItemStatusSent || newStatus == DispatchItemStatusFailed
	case DispatchItemStatusSent:
		return newStatus == DispatchItemStatusDelivered || newStatus == DispatchItemStatusFailed
	default:
		return false
	}
}

// DispatchItemFilter represents filter criteria for dispatch item queries
type DispatchItemFilter struct {
	ID            *uint               `json:"id,omitempty"`
	CampaignID    *uint               `json:"campaign_id,omitempty"`
	ContactID     *uint               `json:"contact_id,omitempty"`
	Status        *DispatchItemStatus `json:"status,omitempty"`
	VariantLetter *string             `json:"variant_letter,omitempty"`
	QueuedAfter   *time.Time          `json:"queued_after,omitempty"`
	QueuedBefore  *time.Time          `json:"queued_before,omitempty"`
}
