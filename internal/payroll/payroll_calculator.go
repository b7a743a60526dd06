package payroll

import (
	"fmt"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/calc"

	"github.com/shopspring/decimal"
)

// Allowance kinds as they appear in the earnings breakdown.
const (
	EarningAllowance = "allowance"
	EarningOvertime  = "overtime"
	EarningGrade     = "grade"
)

// Deduction categories, mirrored from the deduction configuration.
const (
	DeductionTax         = "tax"
	DeductionPension     = "pension"
	DeductionHousingFund = "housing_fund"
	DeductionLoan        = "loan"
	DeductionOther       = "other"
	DeductionCustom      = "custom"
)

type AllowanceInput struct {
	Name   string
	Kind   string
	Method calc.Method
	Value  decimal.Decimal
	// CoveredDays is how many days of the period the allowance is effective
	// for. Zero or a value >= the period length means the full period.
	CoveredDays int
}

type BonusInput struct {
	Name   string
	Method calc.Method
	Value  decimal.Decimal
}

type DeductionInput struct {
	Name       string
	Statutory  bool
	Category   string
	Method     calc.Method
	Value      decimal.Decimal
	Base       calc.Base
	Department bool
}

type CalculationInput struct {
	BasicSalary int64
	Allowances  []AllowanceInput
	Deductions  []DeductionInput
	Bonuses     []BonusInput
	Period      Period
}

type LineItem struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind,omitempty"`
	Category string      `json:"category,omitempty"`
	Method   calc.Method `json:"method"`
	Value    string      `json:"value"`
	Base     int64       `json:"base,omitempty"`
	Prorated bool        `json:"prorated,omitempty"`
	Amount   int64       `json:"amount"`
}

type EarningsBreakdown struct {
	Allowances    []LineItem `json:"allowances"`
	Bonuses       []LineItem `json:"bonuses"`
	Overtime      int64      `json:"overtime"`
	Allowance     int64      `json:"allowance"`
	Bonus         int64      `json:"bonus"`
	GrossEarnings int64      `json:"gross_earnings"`
}

type StatutoryBreakdown struct {
	Items       []LineItem `json:"items"`
	Tax         int64      `json:"tax"`
	Pension     int64      `json:"pension"`
	HousingFund int64      `json:"housing_fund"`
	Custom      int64      `json:"custom"`
	Total       int64      `json:"total"`
}

type VoluntaryBreakdown struct {
	Items      []LineItem `json:"items"`
	Loans      int64      `json:"loans"`
	Other      int64      `json:"other"`
	Department int64      `json:"department"`
	Total      int64      `json:"total"`
}

type DeductionsBreakdown struct {
	Statutory StatutoryBreakdown `json:"statutory"`
	Voluntary VoluntaryBreakdown `json:"voluntary"`
	Total     int64              `json:"total"`
}

// Breakdown is stored with every payroll record from the moment it is created.
type Breakdown struct {
	Earnings   EarningsBreakdown   `json:"earnings"`
	Deductions DeductionsBreakdown `json:"deductions"`
}

type Totals struct {
	BasicSalary         int64 `json:"basic_salary"`
	TotalAllowances     int64 `json:"total_allowances"`
	TotalBonuses        int64 `json:"total_bonuses"`
	GrossEarnings       int64 `json:"gross_earnings"`
	StatutoryDeductions int64 `json:"statutory_deductions"`
	VoluntaryDeductions int64 `json:"voluntary_deductions"`
	TotalDeductions     int64 `json:"total_deductions"`
	NetPay              int64 `json:"net_pay"`
}

type Calculation struct {
	Totals    Totals
	Breakdown Breakdown
}

func calcErr(format string, args ...any) error {
	return payrollerrors.ErrCalculation.WithCause(fmt.Errorf(format, args...))
}

// Calculate derives the itemized totals of one payroll. It has no side
// effects and the same input always yields the same result. Overtime
// allowances count towards TotalAllowances and are also reported on their own.
func Calculate(in CalculationInput) (Calculation, error) {
	if err := in.Period.Validate(); err != nil {
		return Calculation{}, calcErr("period: %v", err)
	}
	if in.BasicSalary < 0 {
		return Calculation{}, calcErr("basic salary must not be negative")
	}

	periodDays := int64(in.Period.Days())
	earnings := EarningsBreakdown{
		Allowances: make([]LineItem, 0, len(in.Allowances)),
		Bonuses:    make([]LineItem, 0, len(in.Bonuses)),
	}

	for _, a := range in.Allowances {
		if err := calc.ValidateValue(a.Method, a.Value); err != nil {
			return Calculation{}, calcErr("allowance %q: %v", a.Name, err)
		}
		if a.CoveredDays < 0 {
			return Calculation{}, calcErr("allowance %q: covered days must not be negative", a.Name)
		}

		amount := calc.Apply(a.Method, a.Value, in.BasicSalary)
		prorated := a.CoveredDays > 0 && int64(a.CoveredDays) < periodDays
		if prorated {
			amount = decimal.NewFromInt(amount).
				Mul(decimal.NewFromInt(int64(a.CoveredDays))).
				Div(decimal.NewFromInt(periodDays)).
				Round(0).
				IntPart()
		}

		item := LineItem{
			Name:     a.Name,
			Kind:     a.Kind,
			Method:   a.Method,
			Value:    a.Value.String(),
			Prorated: prorated,
			Amount:   amount,
		}
		if a.Method == calc.MethodPercentage {
			item.Base = in.BasicSalary
		}
		earnings.Allowances = append(earnings.Allowances, item)
		earnings.Allowance += amount
		if a.Kind == EarningOvertime {
			earnings.Overtime += amount
		}
	}

	for _, b := range in.Bonuses {
		if err := calc.ValidateValue(b.Method, b.Value); err != nil {
			return Calculation{}, calcErr("bonus %q: %v", b.Name, err)
		}
		amount := calc.Apply(b.Method, b.Value, in.BasicSalary)
		item := LineItem{Name: b.Name, Method: b.Method, Value: b.Value.String(), Amount: amount}
		if b.Method == calc.MethodPercentage {
			item.Base = in.BasicSalary
		}
		earnings.Bonuses = append(earnings.Bonuses, item)
		earnings.Bonus += amount
	}

	earnings.GrossEarnings = in.BasicSalary + earnings.Allowance + earnings.Bonus

	deductions := DeductionsBreakdown{
		Statutory: StatutoryBreakdown{Items: make([]LineItem, 0)},
		Voluntary: VoluntaryBreakdown{Items: make([]LineItem, 0)},
	}

	for _, d := range in.Deductions {
		if err := calc.ValidateRate(d.Method, d.Value); err != nil {
			return Calculation{}, calcErr("deduction %q: %v", d.Name, err)
		}
		if !d.Base.IsValid() {
			return Calculation{}, calcErr("deduction %q: missing calculation base", d.Name)
		}

		base := in.BasicSalary
		if d.Base == calc.BaseGross {
			base = earnings.GrossEarnings
		}
		amount := calc.Apply(d.Method, d.Value, base)

		item := LineItem{
			Name:     d.Name,
			Category: d.Category,
			Method:   d.Method,
			Value:    d.Value.String(),
			Amount:   amount,
		}
		if d.Method == calc.MethodPercentage {
			item.Base = base
		}

		if d.Statutory {
			s := &deductions.Statutory
			s.Items = append(s.Items, item)
			switch d.Category {
			case DeductionTax:
				s.Tax += amount
			case DeductionPension:
				s.Pension += amount
			case DeductionHousingFund:
				s.HousingFund += amount
			default:
				s.Custom += amount
			}
			s.Total += amount
			continue
		}

		v := &deductions.Voluntary
		v.Items = append(v.Items, item)
		switch {
		case d.Department:
			v.Department += amount
		case d.Category == DeductionLoan:
			v.Loans += amount
		default:
			v.Other += amount
		}
		v.Total += amount
	}
	deductions.Total = deductions.Statutory.Total + deductions.Voluntary.Total

	if deductions.Total > earnings.GrossEarnings {
		return Calculation{}, calcErr("total deductions %d exceed gross earnings %d", deductions.Total, earnings.GrossEarnings)
	}

	return Calculation{
		Totals: Totals{
			BasicSalary:         in.BasicSalary,
			TotalAllowances:     earnings.Allowance,
			TotalBonuses:        earnings.Bonus,
			GrossEarnings:       earnings.GrossEarnings,
			StatutoryDeductions: deductions.Statutory.Total,
			VoluntaryDeductions: deductions.Voluntary.Total,
			TotalDeductions:     deductions.Total,
			NetPay:              earnings.GrossEarnings - deductions.Total,
		},
		Breakdown: Breakdown{Earnings: earnings, Deductions: deductions},
	}, nil
}
