package policy

import (
	"fmt"

	"courseflow-be/internal/entity"

	"github.com/shopspring/decimal"
)

// Policy holds the refund eligibility rules. All thresholds are plain
// data so product can tune them per deployment without code changes.
type Policy struct {
	// IneligibleProgressPct: at or beyond this course progress the order
	// can no longer be refunded at all.
	IneligibleProgressPct float64
	// RefundWindowDays: refunds are only considered within this many days
	// of payment.
	RefundWindowDays int
	// FullRefundMaxProgressPct and FullRefundGraceDays together define the
	// full-refund window: barely-started courses within a few days of
	// purchase get everything back.
	FullRefundMaxProgressPct float64
	FullRefundGraceDays      int
	// CurrencyExponent is the number of minor-unit decimal places of the
	// platform currency (0 for VND).
	CurrencyExponent int32
}

// Default returns the platform's standard refund policy.
func Default() Policy {
	return Policy{
		IneligibleProgressPct:    50,
		RefundWindowDays:         30,
		FullRefundMaxProgressPct: 5,
		FullRefundGraceDays:      7,
		CurrencyExponent:         0,
	}
}

// Result is the policy verdict. Message is learner-facing and explains
// the outcome without any extra lookup.
type Result struct {
	Eligible        bool
	Type            entity.EligibilityType
	SuggestedAmount decimal.Decimal
	Message         string
}

// Evaluate decides refund eligibility from the order's age, the learner's
// progress snapshot, and the amount originally paid. Pure: identical
// inputs always return identical results, there is no clock or hidden
// state here. The suggested amount is always within [0, finalPrice] and
// rounded half-up to the currency's minor unit.
func (p Policy) Evaluate(orderAgeDays int, progressPercentage float64, finalPrice decimal.Decimal) Result {
	progress := clampProgress(progressPercentage)
	if finalPrice.IsNegative() {
		finalPrice = decimal.Zero
	}
	finalPrice = p.RoundMoney(finalPrice)

	if progress >= p.IneligibleProgressPct {
		return Result{
			Eligible: false,
			Message: fmt.Sprintf("refund not available: %.0f%% of the course has been completed (limit %.0f%%)",
				progress, p.IneligibleProgressPct),
		}
	}

	if orderAgeDays > p.RefundWindowDays {
		return Result{
			Eligible: false,
			Message: fmt.Sprintf("refund not available: the order was paid %d days ago, outside the %d-day refund window",
				orderAgeDays, p.RefundWindowDays),
		}
	}

	if progress <= p.FullRefundMaxProgressPct && orderAgeDays <= p.FullRefundGraceDays {
		return Result{
			Eligible:        true,
			Type:            entity.EligibilityFull,
			SuggestedAmount: finalPrice,
			Message:         "eligible for a full refund",
		}
	}

	// Pro-rate the unused portion of the course linearly against the
	// ineligibility threshold, so the suggestion decreases monotonically
	// with progress and reaches zero exactly at the cutoff.
	unusedRatio := decimal.NewFromFloat((p.IneligibleProgressPct - progress) / p.IneligibleProgressPct)
	amount := p.RoundMoney(finalPrice.Mul(unusedRatio))
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	if amount.GreaterThan(finalPrice) {
		amount = finalPrice
	}

	return Result{
		Eligible:        true,
		Type:            entity.EligibilityPartial,
		SuggestedAmount: amount,
		Message:         fmt.Sprintf("eligible for a partial refund of the unused portion (%.0f%% completed)", progress),
	}
}

// RoundMoney rounds to the currency's minor unit, half-up.
func (p Policy) RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(p.CurrencyExponent)
}

// SameAmount compares two money values on the rounded minor unit, never
// on raw floating point.
func (p Policy) SameAmount(a, b decimal.Decimal) bool {
	return p.RoundMoney(a).Equal(p.RoundMoney(b))
}

func clampProgress(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
