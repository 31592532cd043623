package policy

import (
	"testing"

	"courseflow-be/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	p := Default()
	price := decimal.NewFromInt(1_000_000)

	tests := []struct {
		name       string
		ageDays    int
		progress   float64
		wantElig   bool
		wantType   entity.EligibilityType
		wantAmount int64
	}{
		{
			name:       "full refund barely started",
			ageDays:    2,
			progress:   3,
			wantElig:   true,
			wantType:   entity.EligibilityFull,
			wantAmount: 1_000_000,
		},
		{
			name:     "course substantially consumed",
			ageDays:  2,
			progress: 60,
			wantElig: false,
		},
		{
			name:     "progress exactly at cutoff",
			ageDays:  1,
			progress: 50,
			wantElig: false,
		},
		{
			name:     "outside refund window",
			ageDays:  31,
			progress: 10,
			wantElig: false,
		},
		{
			name:       "partial refund pro-rated",
			ageDays:    10,
			progress:   25,
			wantElig:   true,
			wantType:   entity.EligibilityPartial,
			wantAmount: 500_000,
		},
		{
			name:       "low progress but past grace period falls to partial",
			ageDays:    12,
			progress:   3,
			wantElig:   true,
			wantType:   entity.EligibilityPartial,
			wantAmount: 940_000,
		},
		{
			name:       "last partial day of the window",
			ageDays:    30,
			progress:   40,
			wantElig:   true,
			wantType:   entity.EligibilityPartial,
			wantAmount: 200_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Evaluate(tt.ageDays, tt.progress, price)
			assert.Equal(t, tt.wantElig, res.Eligible)
			assert.NotEmpty(t, res.Message)
			if tt.wantElig {
				assert.Equal(t, tt.wantType, res.Type)
				assert.True(t, res.SuggestedAmount.Equal(decimal.NewFromInt(tt.wantAmount)),
					"got %s", res.SuggestedAmount)
			} else {
				assert.Empty(t, res.Type)
				assert.True(t, res.SuggestedAmount.IsZero())
			}
		})
	}
}

func TestEvaluateHighProgressNeverEligible(t *testing.T) {
	p := Default()
	for _, progress := range []float64{50, 51, 75, 99, 100, 250} {
		for _, age := range []int{0, 5, 30, 365} {
			res := p.Evaluate(age, progress, decimal.NewFromInt(999_999))
			assert.False(t, res.Eligible, "progress=%v age=%v", progress, age)
		}
	}
}

func TestEvaluateAmountBounds(t *testing.T) {
	p := Default()
	prices := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(1),
		decimal.NewFromInt(1_000_000),
		decimal.NewFromFloat(123456.78),
	}
	for _, price := range prices {
		for progress := 0.0; progress < 50; progress += 7.3 {
			for _, age := range []int{0, 7, 15, 30} {
				res := p.Evaluate(age, progress, price)
				if !res.Eligible {
					continue
				}
				rounded := price.Round(p.CurrencyExponent)
				assert.False(t, res.SuggestedAmount.IsNegative())
				assert.True(t, res.SuggestedAmount.LessThanOrEqual(rounded),
					"amount %s exceeds price %s", res.SuggestedAmount, rounded)
			}
		}
	}
}

func TestEvaluateMonotonicInProgress(t *testing.T) {
	p := Default()
	price := decimal.NewFromInt(2_000_000)
	prev := price
	for progress := 6.0; progress < 50; progress++ {
		res := p.Evaluate(10, progress, price)
		assert.True(t, res.Eligible)
		assert.True(t, res.SuggestedAmount.LessThanOrEqual(prev),
			"suggestion increased at progress %v", progress)
		prev = res.SuggestedAmount
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	p := Default()
	price := decimal.NewFromFloat(777777.77)
	first := p.Evaluate(9, 33.3, price)
	for i := 0; i < 10; i++ {
		again := p.Evaluate(9, 33.3, price)
		assert.Equal(t, first.Eligible, again.Eligible)
		assert.Equal(t, first.Type, again.Type)
		assert.Equal(t, first.Message, again.Message)
		assert.True(t, first.SuggestedAmount.Equal(again.SuggestedAmount))
	}
}

func TestEvaluateClampsProgress(t *testing.T) {
	p := Default()
	price := decimal.NewFromInt(100_000)

	neg := p.Evaluate(2, -10, price)
	assert.True(t, neg.Eligible)
	assert.Equal(t, entity.EligibilityFull, neg.Type)

	over := p.Evaluate(2, 140, price)
	assert.False(t, over.Eligible)
}

func TestEvaluateRoundsHalfUp(t *testing.T) {
	p := Default()
	// 30% progress leaves 40% of 1001: 400.4 -> 400; 35% leaves 30% of
	// 1005: 301.5 -> 302 on the half-up rule.
	res := p.Evaluate(10, 30, decimal.NewFromInt(1001))
	assert.True(t, res.SuggestedAmount.Equal(decimal.NewFromInt(400)), "got %s", res.SuggestedAmount)

	res = p.Evaluate(10, 35, decimal.NewFromInt(1005))
	assert.True(t, res.SuggestedAmount.Equal(decimal.NewFromInt(302)), "got %s", res.SuggestedAmount)
}

func TestSameAmount(t *testing.T) {
	p := Default()
	assert.True(t, p.SameAmount(decimal.NewFromFloat(1000.4), decimal.NewFromInt(1000)))
	assert.False(t, p.SameAmount(decimal.NewFromFloat(1000.5), decimal.NewFromInt(1000)))
}
