package businessflow

import (
	"math/rand"
	"testing"

	"github.com/amirphl/Raijin/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeVariants(splits ...float64) []*models.CampaignVariant {
	variants := make([]*models.CampaignVariant, 0, len(splits))
	for i, s := range splits {
		variants = append(variants, &models.CampaignVariant{
			Letter:       models.VariantLetters[i],
			TemplateID:   uint(i + 1),
			SplitPercent: s,
		})
	}
	return variants
}

func TestVariantAssignerAssign(t *testing.T) {
	t.Run("DeterministicBuckets", func(t *testing.T) {
		variants := makeVariants(50, 30, 20)

		tests := []struct {
			name string
			roll float64
			want string
		}{
			{"start of first bucket", 0, "A"},
			{"inside first bucket", 49.99, "A"},
			{"draw on threshold stays in bucket", 50, "A"},
			{"just past first threshold", 50.01, "B"},
			{"draw on second threshold", 80, "B"},
			{"just past second threshold", 80.01, "C"},
			{"end of range", 99.99, "C"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assigner := NewVariantAssignerWithDraw(func() float64 { return tt.roll })
				letter := assigner.Assign(variants)
				require.NotNil(t, letter)
				assert.Equal(t, tt.want, *letter)
			})
		}
	})

	t.Run("PartialSplitLeavesHoldout", func(t *testing.T) {
		variants := makeVariants(40, 30)

		assigner := NewVariantAssignerWithDraw(func() float64 { return 70.01 })
		assert.Nil(t, assigner.Assign(variants))

		assigner = NewVariantAssignerWithDraw(func() float64 { return 99.9 })
		assert.Nil(t, assigner.Assign(variants))

		// A draw exactly on the last threshold still belongs to that variant
		assigner = NewVariantAssignerWithDraw(func() float64 { return 70 })
		letter := assigner.Assign(variants)
		require.NotNil(t, letter)
		assert.Equal(t, "B", *letter)
	})

	t.Run("NoVariants", func(t *testing.T) {
		assigner := NewVariantAssignerWithDraw(func() float64 { return 0 })
		assert.Nil(t, assigner.Assign(nil))
		assert.Nil(t, assigner.Assign([]*models.CampaignVariant{}))
	})

	t.Run("EmpiricalDistribution", func(t *testing.T) {
		variants := makeVariants(50, 30, 20)
		assigner := NewVariantAssigner(rand.NewSource(42))

		const draws = 10000
		counts := map[string]int{}
		for i := 0; i < draws; i++ {
			letter := assigner.Assign(variants)
			require.NotNil(t, letter)
			counts[*letter]++
		}

		// Allow 3 percentage points of slack around each split
		assert.InDelta(t, 0.50, float64(counts["A"])/draws, 0.03)
		assert.InDelta(t, 0.30, float64(counts["B"])/draws, 0.03)
		assert.InDelta(t, 0.20, float64(counts["C"])/draws, 0.03)
	})
}

func TestValidateVariants(t *testing.T) {
	valid := func(splits ...float64) []models.CampaignVariant {
		variants := make([]models.CampaignVariant, 0, len(splits))
		for i, s := range splits {
			variants = append(variants, models.CampaignVariant{
				Letter:       models.VariantLetters[i],
				TemplateID:   uint(i + 1),
				SplitPercent: s,
			})
		}
		return variants
	}

	t.Run("ValidSets", func(t *testing.T) {
		assert.NoError(t, ValidateVariants(valid(50, 50)))
		assert.NoError(t, ValidateVariants(valid(40, 30, 30)))
		// Under 100 is allowed: the remainder is a holdout
		assert.NoError(t, ValidateVariants(valid(40, 30)))
	})

	t.Run("TooFewVariants", func(t *testing.T) {
		err := ValidateVariants(valid(100))
		assert.ErrorIs(t, err, ErrVariantsRequired)

		err = ValidateVariants(nil)
		assert.ErrorIs(t, err, ErrVariantsRequired)
	})

	t.Run("TooManyVariants", func(t *testing.T) {
		variants := valid(25, 25, 25)
		variants = append(variants, models.CampaignVariant{Letter: "A", TemplateID: 4, SplitPercent: 25})
		err := ValidateVariants(variants)
		assert.ErrorIs(t, err, ErrTooManyVariants)
	})

	t.Run("InvalidLetter", func(t *testing.T) {
		variants := valid(50, 50)
		variants[1].Letter = "D"
		err := ValidateVariants(variants)
		assert.ErrorIs(t, err, ErrInvalidVariantLetter)
	})

	t.Run("DuplicateLetter", func(t *testing.T) {
		variants := valid(50, 50)
		variants[1].Letter = "A"
		err := ValidateVariants(variants)
		assert.ErrorIs(t, err, ErrDuplicateVariantLetter)
	})

	t.Run("NonPositiveSplit", func(t *testing.T) {
		variants := valid(50, 50)
		variants[1].SplitPercent = 0
		err := ValidateVariants(variants)
		assert.ErrorIs(t, err, ErrInvalidSplitPercent)
	})

	t.Run("TotalExceeds100", func(t *testing.T) {
		err := ValidateVariants(valid(60, 50))
		assert.ErrorIs(t, err, ErrSplitTotalExceeded)
	})
}
