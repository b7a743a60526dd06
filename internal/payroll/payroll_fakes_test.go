package payroll_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"go-payroll/internal/compensation"
	"go-payroll/internal/deduction"
	"go-payroll/internal/department"
	"go-payroll/internal/employee"
	"go-payroll/internal/events"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/rbac"
	"go-payroll/internal/salarygrade"
	"go-payroll/internal/shared/calc"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)

// fakePayrollRepository keeps records in memory unless a fn overrides it.
type fakePayrollRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*payroll.PayrollRecord

	createFn          func(ctx context.Context, record *payroll.PayrollRecord) error
	existsForPeriodFn func(ctx context.Context, companyID, employeeID string, period payroll.Period) (bool, error)
	updateFn          func(ctx context.Context, record *payroll.PayrollRecord, expected payroll.Status) error
}

func newFakePayrollRepository(records ...payroll.PayrollRecord) *fakePayrollRepository {
	f := &fakePayrollRepository{records: map[uuid.UUID]*payroll.PayrollRecord{}}
	for i := range records {
		r := records[i]
		f.records[r.ID] = &r
	}
	return f
}

func (f *fakePayrollRepository) WithTx(_ *sql.Tx) payroll.Repository { return f }

func (f *fakePayrollRepository) Create(ctx context.Context, record *payroll.PayrollRecord) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, record); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.CompanyID == record.CompanyID && r.EmployeeID == record.EmployeeID &&
			r.Month == record.Month && r.Year == record.Year && r.Frequency == record.Frequency {
			return payrollerrors.ErrDuplicatePeriod
		}
	}
	cp := *record
	f.records[record.ID] = &cp
	return nil
}

func (f *fakePayrollRepository) FindByIDAndCompany(_ context.Context, companyID string, id string) (*payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[uuid.MustParse(id)]
	if !ok || r.CompanyID.String() != companyID {
		return nil, payrollerrors.ErrPayrollNotFound
	}
	cp := *r
	cp.ApprovalFlow = append([]payroll.ApprovalEntry(nil), r.ApprovalFlow...)
	return &cp, nil
}

func (f *fakePayrollRepository) FindByPaymentReference(_ context.Context, companyID string, reference string) (*payroll.PayrollRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.CompanyID.String() == companyID && r.Payment != nil && r.Payment.Reference == reference {
			cp := *r
			return &cp, nil
		}
	}
	return nil, payrollerrors.ErrPayrollNotFound
}

func (f *fakePayrollRepository) ExistsForPeriod(ctx context.Context, companyID string, employeeID string, period payroll.Period) (bool, error) {
	if f.existsForPeriodFn != nil {
		return f.existsForPeriodFn(ctx, companyID, employeeID, period)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.CompanyID.String() == companyID && r.EmployeeID.String() == employeeID && r.Period() == period {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayrollRepository) Update(ctx context.Context, record *payroll.PayrollRecord, expected payroll.Status) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, record, expected)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.records[record.ID]
	if !ok || stored.Status != expected {
		return payrollerrors.ErrInvalidStatus
	}
	cp := *record
	f.records[record.ID] = &cp
	return nil
}

func (f *fakePayrollRepository) get(id uuid.UUID) payroll.PayrollRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.records[id]
}

func (f *fakePayrollRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeEmployeeRepository struct {
	employees  []employee.Employee
	listErr    error
	listCalled bool
}

func (f *fakeEmployeeRepository) WithTx(_ *sql.Tx) employee.Repository { return f }

func (f *fakeEmployeeRepository) FindByIDAndCompany(_ context.Context, companyID string, id string) (*employee.Employee, error) {
	for _, e := range f.employees {
		if e.ID.String() == id && e.CompanyID.String() == companyID {
			cp := e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) FindActiveByCompany(_ context.Context, companyID string) ([]employee.Employee, error) {
	f.listCalled = true
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []employee.Employee
	for _, e := range f.employees {
		if e.CompanyID.String() == companyID && e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmployeeRepository) FindActiveByDepartment(_ context.Context, companyID string, departmentID string) ([]employee.Employee, error) {
	f.listCalled = true
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []employee.Employee
	for _, e := range f.employees {
		if e.CompanyID.String() == companyID && e.DepartmentIDString() == departmentID && e.IsActive() {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeDepartmentRepository struct {
	known map[string]bool
}

func (f *fakeDepartmentRepository) WithTx(_ *sql.Tx) department.Repository { return f }

func (f *fakeDepartmentRepository) FindByIDAndCompany(context.Context, string, string) (*department.Department, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDepartmentRepository) Exists(_ context.Context, _ string, id string) (bool, error) {
	return f.known[id], nil
}

// fakeResolver returns grade GL-04 (300000 basic), a fixed 20000 allowance and
// an 8% pension unless resolveFn overrides it.
type fakeResolver struct {
	resolveFn func(ctx context.Context, companyID string, empl employee.Employee, gradeID string, period payroll.Period) (payroll.ResolvedInputs, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, companyID string, empl employee.Employee, gradeID string, period payroll.Period) (payroll.ResolvedInputs, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, companyID, empl, gradeID, period)
	}
	return scenarioAInputs(empl, period), nil
}

var gradeGL04ID = uuid.MustParse("7b0a4a6e-3f5e-4a3e-9a55-7d8d2f7e0a04")

func scenarioAInputs(empl employee.Employee, period payroll.Period) payroll.ResolvedInputs {
	return payroll.ResolvedInputs{
		Employee: empl,
		Grade: salarygrade.SalaryGrade{
			ID:          gradeGL04ID,
			Level:       "GL-04",
			BasicSalary: 300000,
			IsActive:    true,
		},
		Allowances: []compensation.Allowance{{
			Name:     "Transport",
			Type:     compensation.AllowanceRegular,
			Method:   calc.MethodFixed,
			Value:    decimal.NewFromInt(20000),
			IsActive: true,
		}},
		Deductions: []deduction.Deduction{{
			Name:     "Pension",
			Scope:    deduction.ScopeCompany,
			Kind:     deduction.KindStatutory,
			Category: deduction.CategoryPension,
			Method:   calc.MethodPercentage,
			Value:    decimal.NewFromInt(8),
			IsActive: true,
		}},
		Period: period,
	}
}

type fakeBatchRepository struct {
	created []payroll.BatchSummary
	err     error
}

func (f *fakeBatchRepository) WithTx(_ *sql.Tx) payroll.BatchRepository { return f }

func (f *fakeBatchRepository) Create(_ context.Context, summary *payroll.BatchSummary) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *summary)
	return nil
}

func (f *fakeBatchRepository) FindByIDAndCompany(_ context.Context, companyID string, id string) (*payroll.BatchSummary, error) {
	for _, b := range f.created {
		if b.ID.String() == id && b.CompanyID.String() == companyID {
			cp := b
			return &cp, nil
		}
	}
	return nil, payrollerrors.ErrBatchNotFound
}

type fakePaymentRepository struct {
	mu       sync.Mutex
	payments []payroll.Payment
}

func (f *fakePaymentRepository) WithTx(_ *sql.Tx) payroll.PaymentRepository { return f }

func (f *fakePaymentRepository) Create(_ context.Context, payment *payroll.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.CompanyID == payment.CompanyID && p.Reference == payment.Reference {
			return payrollerrors.ErrReferenceConflict
		}
	}
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakePaymentRepository) FindPendingByPayroll(_ context.Context, companyID string, payrollID string) (*payroll.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.payments) - 1; i >= 0; i-- {
		p := f.payments[i]
		if p.CompanyID.String() == companyID && p.PayrollID.String() == payrollID && p.Status == payroll.PaymentPending {
			return &p, nil
		}
	}
	return nil, payrollerrors.ErrPaymentNotFound
}

func (f *fakePaymentRepository) ListByPayroll(_ context.Context, companyID string, payrollID string) ([]payroll.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []payroll.Payment
	for _, p := range f.payments {
		if p.CompanyID.String() == companyID && p.PayrollID.String() == payrollID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepository) Finalize(_ context.Context, payment *payroll.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.payments {
		if p.ID == payment.ID {
			if p.Status != payroll.PaymentPending {
				return payrollerrors.ErrInvalidStatus
			}
			f.payments[i] = *payment
			return nil
		}
	}
	return payrollerrors.ErrPaymentNotFound
}

type fakeOutboxRepository struct {
	mu      sync.Mutex
	created []kafka.OutboxEvent
	err     error
}

func (f *fakeOutboxRepository) WithTx(_ *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(_ context.Context, event kafka.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(context.Context, int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(context.Context, string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(context.Context, string, string) error { return nil }

type fakeDispatcher struct {
	mu      sync.Mutex
	status  []events.PayrollStatusChanged
	batches []events.PayrollBatchCompleted
}

func (f *fakeDispatcher) DispatchStatusChanged(_ context.Context, evt events.PayrollStatusChanged) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = append(f.status, evt)
}

func (f *fakeDispatcher) DispatchBatchCompleted(_ context.Context, evt events.PayrollBatchCompleted) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, evt)
}

type fakeAuthorizer struct {
	allowed bool
	err     error
	calls   []rbac.EnforceRequest
}

func (f *fakeAuthorizer) Enforce(req rbac.EnforceRequest) (bool, error) {
	f.calls = append(f.calls, req)
	return f.allowed, f.err
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	busy     map[string]bool
	released int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}, busy: map[string]bool{}}
}

func (f *fakeLocker) Acquire(_ context.Context, companyID, employeeID string, period payroll.Period) (func(), bool, error) {
	key := payroll.PeriodLockKey(companyID, employeeID, period)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[key] || f.held[key] {
		return func() {}, false, nil
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.held[key] {
			delete(f.held, key)
			f.released++
		}
	}, true, nil
}

func newEmployee(companyID uuid.UUID, number string, departmentID *uuid.UUID) employee.Employee {
	grade := "GL-04"
	return employee.Employee{
		ID:               uuid.New(),
		CompanyID:        companyID,
		DepartmentID:     departmentID,
		EmployeeNumber:   number,
		FullName:         "Employee " + number,
		Email:            number + "@example.test",
		GradeLevel:       &grade,
		EmploymentStatus: employee.StatusActive,
	}
}

func newRecord(companyID, employeeID uuid.UUID, status payroll.Status) payroll.PayrollRecord {
	return payroll.PayrollRecord{
		ID:          uuid.New(),
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Month:       3,
		Year:        2026,
		Frequency:   payroll.FrequencyMonthly,
		BasicSalary: 300000,
		NetPay:      296000,
		Status:      status,
		ApprovalFlow: []payroll.ApprovalEntry{{
			Level:  payroll.LevelCreation,
			Status: status,
			Action: "create",
		}},
		CreatedBy: uuid.New(),
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
		return
	}
	mock.ExpectRollback()
}

func expectTxs(t *testing.T, mock sqlmock.Sqlmock, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		expectTx(t, mock, true)
	}
}
