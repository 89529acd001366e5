package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft      CampaignStatus = "draft"
	CampaignStatusScheduled  CampaignStatus = "scheduled"
	CampaignStatusProcessing CampaignStatus = "processing"
	CampaignStatusCompleted  CampaignStatus = "completed"
	CampaignStatusFailed     CampaignStatus = "failed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusProcessing,
		CampaignStatusCompleted, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// RecurrenceType represents how a scheduled campaign is re-armed after a run
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// String returns the string representation of the recurrence type
func (r RecurrenceType) String() string {
	return string(r)
}

// Valid checks if the recurrence type is valid
func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}

// NextOccurrence returns the next run time computed from the given instant.
// Monthly recurrence advances by one calendar month, not 30 days.
func (r RecurrenceType) NextOccurrence(from time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return from.Add(24 * time.Hour), true
	case RecurrenceWeekly:
		return from.Add(7 * 24 * time.Hour), true
	case RecurrenceMonthly:
		return from.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}

// TargetFilter is the declarative audience predicate stored on the campaign.
// All fields are optional and combined with logical AND; Tags matches contacts
// carrying at least one of the listed tags.
type TargetFilter struct {
	Tags                []string `json:"tags,omitempty"`
	Location            *string  `json:"location,omitempty"`
	Country             *string  `json:"country,omitempty"`
	LastInteractionDays *int     `json:"last_interaction_days,omitempty"`
}

// IsEmpty reports whether no predicate field is set
func (f TargetFilter) IsEmpty() bool {
	return len(f.Tags) == 0 && f.Location == nil && f.Country == nil && f.LastInteractionDays == nil
}

// Value implements the driver.Valuer interface for TargetFilter
func (f TargetFilter) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for TargetFilter
func (f *TargetFilter) Scan(value any) error {
	if value == nil {
		*f = TargetFilter{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TargetFilter", value)
	}

	return json.Unmarshal(bytes, f)
}

// Campaign represents a tenant outreach campaign in the database.
// A campaign is either template-driven (TemplateID set, no variants) or
// variant-driven (ABEnabled with at least two variants); never both.
type Campaign struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	TenantID       uint           `gorm:"not null;index:idx_campaigns_tenant_id" json:"tenant_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Status         CampaignStatus `gorm:"type:campaign_status;not null;default:'draft';index:idx_campaigns_status" json:"status"`
	TemplateID     *uint          `json:"template_id,omitempty"`
	ABEnabled      bool           `gorm:"not null;default:false" json:"ab_enabled"`
	Filter         TargetFilter   `gorm:"type:jsonb;not null" json:"filter"`
	RecurrenceType RecurrenceType `gorm:"size:20;not null;default:'none'" json:"recurrence_type"`
	ScheduledAt    *time.Time     `gorm:"index:idx_campaigns_scheduled_at" json:"scheduled_at,omitempty"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`

	TotalCount      int64 `gorm:"not null;default:0" json:"total_count"`
	SentCount       int64 `gorm:"not null;default:0" json:"sent_count"`
	FailedCount     int64 `gorm:"not null;default:0" json:"failed_count"`
	ReadCount       int64 `gorm:"not null;default:0" json:"read_count"`
	ResponseCount   int64 `gorm:"not null;default:0" json:"response_count"`
	ConversionCount int64 `gorm:"not null;default:0" json:"conversion_count"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Tenant   *Tenant           `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	Template *MessageTemplate  `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Variants []CampaignVariant `gorm:"foreignKey:CampaignID;references:ID" json:"variants,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is a GORM hook called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.RecurrenceType == "" {
		c.RecurrenceType = RecurrenceNone
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled || newStatus == CampaignStatusProcessing
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusDraft ||
			newStatus == CampaignStatusProcessing ||
			newStatus == CampaignStatusFailed
	case CampaignStatusProcessing:
		// scheduled is the recurrence re-arm, not a rollback
		return newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusFailed ||
			newStatus == CampaignStatusScheduled
	default:
		return false
	}
}

// IsRecurring reports whether the campaign re-arms itself after a run
func (c *Campaign) IsRecurring() bool {
	return c.RecurrenceType != "" && c.RecurrenceType != RecurrenceNone
}

// CampaignFilter represents filter criteria for campaign queries
type CampaignFilter struct {
	ID             *uint           `json:"id,omitempty"`
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	TenantID       *uint           `json:"tenant_id,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Status         *CampaignStatus `json:"status,omitempty"`
	RecurrenceType *RecurrenceType `json:"recurrence_type,omitempty"`
	ScheduledAfter *time.Time      `json:"scheduled_after,omitempty"`
	DueBefore      *time.Time      `json:"due_before,omitempty"`
	CreatedAfter   *time.Time      `json:"created_after,omitempty"`
	CreatedBefore  *time.Time      `json:"created_before,omitempty"`
}
