package rounding

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kasirinaja/backoffice/internal/domain"
)

// Apply rounds total according to policy and returns the rounded total and
// the adjustment (rounded - total). Mode "discount" always rounds down so
// the customer never pays more; "normal" rounds half up.
func Apply(total decimal.Decimal, policy domain.RoundingPolicy) (decimal.Decimal, decimal.Decimal, error) {
	step, err := stepFor(policy.Rule)
	if err != nil {
		return total, decimal.Zero, err
	}
	if step.IsZero() {
		return total, decimal.Zero, nil
	}

	units := total.Div(step)
	switch normaliseMode(policy.Mode) {
	case domain.RoundingModeDiscount:
		units = units.Floor()
	case domain.RoundingModeNormal:
		units = units.Round(0)
	default:
		return total, decimal.Zero, fmt.Errorf("unknown rounding mode %q", policy.Mode)
	}

	rounded := units.Mul(step)
	return rounded, rounded.Sub(total), nil
}

// Validate reports whether policy names a known rule and mode.
func Validate(policy domain.RoundingPolicy) error {
	_, _, err := Apply(decimal.Zero, policy)
	return err
}

func stepFor(rule string) (decimal.Decimal, error) {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "", domain.RoundingNone:
		return decimal.Zero, nil
	case domain.RoundingNearest100:
		return decimal.NewFromInt(100), nil
	case domain.RoundingNearest1000:
		return decimal.NewFromInt(1000), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown rounding rule %q", rule)
	}
}

func normaliseMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return domain.RoundingModeNormal
	}
	return mode
}
