package payroll

import (
	"context"
	"errors"

	"go-payroll/internal/compensation"
	"go-payroll/internal/deduction"
	"go-payroll/internal/employee"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/salarygrade"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// ResolvedInputs is everything the calculator needs for one employee and period.
type ResolvedInputs struct {
	Employee   employee.Employee
	Grade      salarygrade.SalaryGrade
	Allowances []compensation.Allowance
	Deductions []deduction.Deduction
	Bonuses    []compensation.Bonus
	Period     Period
}

//go:generate mockgen -source=payroll_resolver.go -destination=mock/payroll_resolver_mock.go -package=mock
type SalaryResolver interface {
	// Resolve loads the salary configuration that applies to empl for period.
	// gradeID, when set, replaces the grade referenced by the employee.
	Resolve(ctx context.Context, companyID string, empl employee.Employee, gradeID string, period Period) (ResolvedInputs, error)
}

type salaryResolver struct {
	grades       salarygrade.Repository
	compensation compensation.Repository
	deductions   deduction.Repository
	sf           *singleflight.Group
	logger       *zap.Logger
}

func NewSalaryResolver(
	grades salarygrade.Repository,
	comp compensation.Repository,
	deductions deduction.Repository,
	logger ...*zap.Logger,
) SalaryResolver {
	l := zap.L().Named("payroll.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &salaryResolver{
		grades:       grades,
		compensation: comp,
		deductions:   deductions,
		sf:           &singleflight.Group{},
		logger:       l,
	}
}

func (r *salaryResolver) Resolve(
	ctx context.Context,
	companyID string,
	empl employee.Employee,
	gradeID string,
	period Period,
) (ResolvedInputs, error) {
	grade, err := r.resolveGrade(ctx, companyID, empl, gradeID)
	if err != nil {
		return ResolvedInputs{}, err
	}
	if err := grade.Validate(); err != nil {
		return ResolvedInputs{}, payrollerrors.ErrCalculation.WithCause(err)
	}

	start, end := period.Start(), period.End()
	employeeID := empl.ID.String()
	departmentID := empl.DepartmentIDString()

	allowances, err := r.compensation.FindApplicableAllowances(ctx, companyID, compensation.Target{
		EmployeeID:   employeeID,
		DepartmentID: departmentID,
		GradeLevel:   grade.Level,
	}, start, end)
	if err != nil {
		return ResolvedInputs{}, err
	}

	candidates, err := r.deductions.FindApplicable(ctx, companyID, employeeID, departmentID, start, end)
	if err != nil {
		return ResolvedInputs{}, err
	}
	deductions := make([]deduction.Deduction, 0, len(candidates))
	for _, d := range candidates {
		if !d.IsActive {
			continue
		}
		// a one-off without a declared period is a configuration error, not a skip
		if err := d.Validate(); err != nil {
			return ResolvedInputs{}, payrollerrors.ErrMissingDeductionConfig.WithCause(err)
		}
		if !d.AppliesInPeriod(start, end) {
			continue
		}
		deductions = append(deductions, d)
	}

	bonuses, err := r.compensation.FindApprovedBonuses(ctx, companyID, employeeID, start, end)
	if err != nil {
		return ResolvedInputs{}, err
	}

	return ResolvedInputs{
		Employee:   empl,
		Grade:      *grade,
		Allowances: allowances,
		Deductions: deductions,
		Bonuses:    bonuses,
		Period:     period,
	}, nil
}

// resolveGrade collapses concurrent lookups of the same grade into one query.
func (r *salaryResolver) resolveGrade(
	ctx context.Context,
	companyID string,
	empl employee.Employee,
	gradeID string,
) (*salarygrade.SalaryGrade, error) {
	var key string
	var lookup func() (*salarygrade.SalaryGrade, error)

	switch {
	case gradeID != "":
		key = companyID + ":id:" + gradeID
		lookup = func() (*salarygrade.SalaryGrade, error) {
			return r.grades.FindActiveByID(ctx, companyID, gradeID)
		}
	case empl.HasGrade():
		level := *empl.GradeLevel
		key = companyID + ":level:" + level
		lookup = func() (*salarygrade.SalaryGrade, error) {
			return r.grades.FindActiveByLevel(ctx, companyID, level)
		}
	default:
		return nil, payrollerrors.ErrNoGradeAssigned
	}

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		return lookup()
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Debug("no active salary grade",
				zap.String("company_id", companyID),
				zap.String("employee_id", empl.ID.String()),
				zap.String("grade_key", key),
			)
			return nil, payrollerrors.ErrNoActiveGradeForLevel
		}
		return nil, err
	}

	// Callers sharing the lookup must not share the grade.
	grade := *v.(*salarygrade.SalaryGrade)
	grade.Components = append([]salarygrade.GradeComponent(nil), grade.Components...)
	return &grade, nil
}

// CalculationInput flattens resolved configuration into calculator input.
// Grade components come first, then allowances in lookup order.
func (in ResolvedInputs) CalculationInput() CalculationInput {
	start, end := in.Period.Start(), in.Period.End()

	allowances := make([]AllowanceInput, 0, len(in.Grade.Components)+len(in.Allowances))
	for _, c := range in.Grade.ActiveComponents() {
		allowances = append(allowances, AllowanceInput{
			Name:   c.Name,
			Kind:   EarningGrade,
			Method: c.Method,
			Value:  c.Value,
		})
	}
	for _, a := range in.Allowances {
		kind := EarningAllowance
		if a.Type == compensation.AllowanceOvertime {
			kind = EarningOvertime
		}
		allowances = append(allowances, AllowanceInput{
			Name:        a.Name,
			Kind:        kind,
			Method:      a.Method,
			Value:       a.Value,
			CoveredDays: a.Covers(start, end),
		})
	}

	bonuses := make([]BonusInput, 0, len(in.Bonuses))
	for _, b := range in.Bonuses {
		bonuses = append(bonuses, BonusInput{Name: b.Name, Method: b.Method, Value: b.Value})
	}

	deductions := make([]DeductionInput, 0, len(in.Deductions))
	for _, d := range in.Deductions {
		deductions = append(deductions, DeductionInput{
			Name:       d.Name,
			Statutory:  d.Kind == deduction.KindStatutory,
			Category:   d.Category,
			Method:     d.Method,
			Value:      d.Value,
			Base:       d.CalculationBase(),
			Department: d.Scope == deduction.ScopeDepartment,
		})
	}

	return CalculationInput{
		BasicSalary: in.Grade.BasicSalary,
		Allowances:  allowances,
		Deductions:  deductions,
		Bonuses:     bonuses,
		Period:      in.Period,
	}
}
