package businessflow

import (
	"math/rand"
	"sync"

	"github.com/amirphl/Raijin/models"
	"github.com/amirphl/Raijin/utils"
)

// VariantAssigner buckets recipients into A/B variants by weighted random
// draw. Each recipient draws once in [0, 100) and walks the variants in
// letter order against cumulative split thresholds. When splits sum to less
// than 100, draws past the final threshold yield no assignment and the
// recipient is skipped by the launcher.
type VariantAssigner struct {
	mu   sync.Mutex
	draw func() float64
}

// NewVariantAssigner creates an assigner seeded from the given source.
// A nil source falls back to the global rand.
func NewVariantAssigner(src rand.Source) *VariantAssigner {
	if src == nil {
		return &VariantAssigner{draw: func() float64 { return rand.Float64() * 100 }}
	}
	r := rand.New(src)
	return &VariantAssigner{draw: func() float64 { return r.Float64() * 100 }}
}

// NewVariantAssignerWithDraw creates an assigner with a custom draw func
// returning values in [0, 100). Used to make bucket boundaries deterministic.
func NewVariantAssignerWithDraw(draw func() float64) *VariantAssigner {
	return &VariantAssigner{draw: draw}
}

// Assign picks a variant letter for one recipient, or nil when the draw
// falls outside all splits or no variants exist.
func (a *VariantAssigner) Assign(variants []*models.CampaignVariant) *string {
	if len(variants) == 0 {
		return nil
	}

	a.mu.Lock()
	roll := a.draw()
	a.mu.Unlock()

	var cumulative float64
	for _, v := range variants {
		cumulative += v.SplitPercent
		// A draw exactly on a cumulative threshold lands in that bucket.
		if roll <= cumulative {
			letter := v.Letter
			return &letter
		}
	}
	return nil
}

// ValidateVariants enforces the creation-time invariants on a variant set:
// letters are known and unique, splits are positive, and the total never
// exceeds 100. A total under 100 is allowed and leaves a null-assignment
// remainder.
func ValidateVariants(variants []models.CampaignVariant) error {
	if len(variants) < 2 {
		return ErrVariantsRequired
	}
	if len(variants) > models.MaxVariantsPerCampaign {
		return ErrTooManyVariants
	}

	seen := make(map[string]bool, len(variants))
	var total float64
	for _, v := range variants {
		if !models.ValidVariantLetter(v.Letter) {
			return ErrInvalidVariantLetter
		}
		if seen[v.Letter] {
			return ErrDuplicateVariantLetter
		}
		seen[v.Letter] = true
		if v.SplitPercent <= 0 {
			return ErrInvalidSplitPercent
		}
		total += v.SplitPercent
	}

	if total > utils.MaxSplitPercentTotal {
		return ErrSplitTotalExceeded
	}
	return nil
}
