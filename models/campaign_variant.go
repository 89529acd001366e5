package models

import (
	"time"
)

// MaxVariantsPerCampaign caps the number of A/B arms a campaign may carry
const MaxVariantsPerCampaign = 3

// VariantLetters is the set of valid variant identifiers in declaration order
var VariantLetters = []string{"A", "B", "C"}

// CampaignVariant is one arm of an A/B campaign. Letter order is declaration
// order; SplitPercent values are treated as cumulative thresholds by the
// assigner and are not required to sum to 100.
type CampaignVariant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CampaignID   uint      `gorm:"not null;uniqueIndex:uk_campaign_variants_letter,priority:1;index:idx_campaign_variants_campaign_id" json:"campaign_id"`
	Letter       string    `gorm:"size:1;not null;uniqueIndex:uk_campaign_variants_letter,priority:2" json:"letter"`
	TemplateID   uint      `gorm:"not null" json:"template_id"`
	SplitPercent float64   `gorm:"not null" json:"split_percent"`
	CreatedAt    time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *Campaign        `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Template *MessageTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
}

// TableName returns the table name for the model
func (CampaignVariant) TableName() string {
	return "campaign_variants"
}

// ValidVariantLetter reports whether the letter is one of A, B, C
func ValidVariantLetter(letter string) bool {
	for _, l := range VariantLetters {
		if l == letter {
			return true
		}
	}
	return false
}

// CampaignVariantFilter represents filter criteria for variant queries
type CampaignVariantFilter struct {
	ID         *uint   `json:"id,omitempty"`
	CampaignID *uint   `json:"campaign_id,omitempty"`
	Letter     *string `json:"letter,omitempty"`
	TemplateID *uint   `json:"template_id,omitempty"`
}
