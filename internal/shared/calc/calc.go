// Package calc holds the vocabulary shared by every configurable pay
// component: how its value is interpreted and what a percentage applies to.
package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodFixed      Method = "fixed"
	MethodPercentage Method = "percentage"
)

func (m Method) IsValid() bool {
	return m == MethodFixed || m == MethodPercentage
}

// Base is the figure a percentage component is evaluated against.
type Base string

const (
	BaseBasic Base = "basic"
	BaseGross Base = "gross"
)

func (b Base) IsValid() bool {
	return b == BaseBasic || b == BaseGross
}

var hundred = decimal.NewFromInt(100)

// ValidateValue checks what every component value must satisfy: a known
// method and a value that is not negative. Earnings percentages may exceed 100.
func ValidateValue(method Method, value decimal.Decimal) error {
	if !method.IsValid() {
		return fmt.Errorf("invalid calculation method %q", method)
	}
	if value.IsNegative() {
		return fmt.Errorf("value must not be negative, got %s", value)
	}
	return nil
}

// ValidateRate is ValidateValue plus the deduction cap: a percentage
// deduction never takes more than 100 of its base.
func ValidateRate(method Method, value decimal.Decimal) error {
	if err := ValidateValue(method, value); err != nil {
		return err
	}
	if method == MethodPercentage && value.GreaterThan(hundred) {
		return fmt.Errorf("percentage must not exceed 100, got %s", value)
	}
	return nil
}

// Apply evaluates a component against base, in minor currency units.
// Percentages round half away from zero to the nearest unit.
func Apply(method Method, value decimal.Decimal, base int64) int64 {
	if method == MethodPercentage {
		return value.Mul(decimal.NewFromInt(base)).Div(hundred).Round(0).IntPart()
	}
	return value.Round(0).IntPart()
}
