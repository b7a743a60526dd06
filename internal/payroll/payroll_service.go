package payroll

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-payroll/internal/department"
	"go-payroll/internal/employee"
	"go-payroll/internal/messaging/kafka"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/rbac"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Authorizer answers whether an actor holds a permission. rbac.Service
// satisfies it.
type Authorizer interface {
	Enforce(req rbac.EnforceRequest) (bool, error)
}

// Deps wires the payroll service, batch processor and payment manager.
// Outbox, Dispatcher, Authorizer and Locker may be nil.
type Deps struct {
	DB          *sql.DB
	Repo        Repository
	Batches     BatchRepository
	Payments    PaymentRepository
	Employees   employee.Repository
	Departments department.Repository
	Resolver    SalaryResolver
	Counter     counter.Repository
	Locker      PeriodLocker
	Authorizer  Authorizer
	Outbox      kafka.OutboxRepository
	Dispatcher  EventDispatcher
	// Concurrency bounds parallel employees in a batch; below 1 means 1.
	Concurrency int
	Now         func() time.Time
	Logger      *zap.Logger
}

func (d Deps) withDefaults(name string) Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Locker == nil {
		d.Locker = NewNoopPeriodLocker()
	}
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	d.Logger = d.Logger.Named(name)
	return d
}

//go:generate mockgen -source=payroll_service.go -destination=mock/payroll_service_mock.go -package=mock
type Service interface {
	Compute(ctx context.Context, companyID string, req ComputePayrollRequest) (ComputeResponse, error)
	Create(ctx context.Context, companyID, actorID string, req CreatePayrollRequest) (PayrollResponse, error)
	GetByID(ctx context.Context, companyID, id string) (PayrollResponse, error)
	Transition(ctx context.Context, companyID, actorID, id string, req TransitionRequest) (PayrollResponse, error)
	RecalculateDraft(ctx context.Context, companyID, actorID, id string) (PayrollResponse, error)
}

type service struct {
	deps   Deps
	sm     *StateMachine
	sink   eventSink
	logger *zap.Logger
}

func NewService(deps Deps) Service {
	deps = deps.withDefaults("payroll.service")
	return &service{
		deps:   deps,
		sm:     NewStateMachine(deps.Now),
		sink:   eventSink{outbox: deps.Outbox, dispatcher: deps.Dispatcher, logger: deps.Logger},
		logger: deps.Logger,
	}
}

func (s *service) Compute(ctx context.Context, companyID string, req ComputePayrollRequest) (ComputeResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return ComputeResponse{}, payrollerrors.ErrInvalidCompanyID
	}
	period, err := NewPeriod(req.Month, req.Year, req.Frequency)
	if err != nil {
		return ComputeResponse{}, err
	}

	empl, err := findEmployee(ctx, s.deps.Employees, companyID, req.EmployeeID)
	if err != nil {
		return ComputeResponse{}, err
	}

	inputs, err := s.deps.Resolver.Resolve(ctx, companyID, *empl, req.GradeID, period)
	if err != nil {
		return ComputeResponse{}, err
	}
	result, err := Calculate(inputs.CalculationInput())
	if err != nil {
		return ComputeResponse{}, err
	}

	return ComputeResponse{
		EmployeeID: empl.ID.String(),
		GradeID:    inputs.Grade.ID.String(),
		GradeLevel: inputs.Grade.Level,
		Period:     mapPeriod(period),
		Totals:     result.Totals,
		Breakdown:  result.Breakdown,
	}, nil
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreatePayrollRequest) (PayrollResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)

	companyUUID, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return PayrollResponse{}, err
	}
	period, err := NewPeriod(req.Month, req.Year, req.Frequency)
	if err != nil {
		return PayrollResponse{}, err
	}

	empl, err := findEmployee(ctx, s.deps.Employees, companyID, req.EmployeeID)
	if err != nil {
		return PayrollResponse{}, err
	}
	if !empl.IsActive() {
		return PayrollResponse{}, payrollerrors.ErrEmployeeInactive
	}

	record, err := createRecord(ctx, s.deps, s.sm, s.sink, createParams{
		companyID: companyUUID,
		actorID:   actorUUID,
		employee:  *empl,
		period:    period,
		status:    StatusDraft,
	})
	if err != nil {
		log.Warn("create payroll failed",
			zap.String("employee_id", req.EmployeeID),
			zap.String("period", period.String()),
			zap.Error(err),
		)
		return PayrollResponse{}, err
	}

	log.Info("create payroll success",
		zap.String("payroll_id", record.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.String("period", period.String()),
	)
	return mapToResponse(*record), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (PayrollResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PayrollResponse{}, payrollerrors.ErrInvalidPayrollID
	}
	record, err := s.deps.Repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayrollResponse{}, err
	}
	return mapToResponse(*record), nil
}

func (s *service) Transition(ctx context.Context, companyID, actorID, id string, req TransitionRequest) (PayrollResponse, error) {
	_, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return PayrollResponse{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return PayrollResponse{}, payrollerrors.ErrInvalidPayrollID
	}
	to, err := ParseStatus(req.Status)
	if err != nil {
		return PayrollResponse{}, err
	}
	if levelFor(to) == LevelPayment {
		return PayrollResponse{}, payrollerrors.ErrPaymentManaged
	}

	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return PayrollResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.deps.Repo.WithTx(tx)
	record, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayrollResponse{}, err
	}
	// a pending payment is closed through the payment cancel operation
	if record.Status == StatusPendingPayment {
		return PayrollResponse{}, payrollerrors.ErrPaymentManaged
	}

	from := record.Status
	evts, err := s.sm.Transition(record, to, actorUUID, req.Remarks)
	if err != nil {
		return PayrollResponse{}, err
	}
	if err := qtx.Update(ctx, record, from); err != nil {
		return PayrollResponse{}, err
	}
	if err := s.sink.stageStatus(ctx, tx, evts); err != nil {
		return PayrollResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return PayrollResponse{}, err
	}
	s.sink.flushStatus(ctx, evts)

	contextutil.GetLogger(ctx, s.logger).Info("payroll status changed",
		zap.String("payroll_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actorID),
	)
	return mapToResponse(*record), nil
}

func (s *service) RecalculateDraft(ctx context.Context, companyID, actorID, id string) (PayrollResponse, error) {
	if _, _, err := parseCompanyAndActor(companyID, actorID); err != nil {
		return PayrollResponse{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return PayrollResponse{}, payrollerrors.ErrInvalidPayrollID
	}

	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return PayrollResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.deps.Repo.WithTx(tx)
	record, err := qtx.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return PayrollResponse{}, err
	}
	if record.Status != StatusDraft {
		return PayrollResponse{}, payrollerrors.ErrInvalidStatus
	}

	empl, err := findEmployee(ctx, s.deps.Employees, companyID, record.EmployeeID.String())
	if err != nil {
		return PayrollResponse{}, err
	}
	inputs, err := s.deps.Resolver.Resolve(ctx, companyID, *empl, "", record.Period())
	if err != nil {
		return PayrollResponse{}, err
	}
	result, err := Calculate(inputs.CalculationInput())
	if err != nil {
		return PayrollResponse{}, err
	}

	record.applyCalculation(result)
	gradeID := inputs.Grade.ID
	record.SalaryGradeID = &gradeID
	record.GradeLevel = inputs.Grade.Level

	if err := qtx.Update(ctx, record, StatusDraft); err != nil {
		return PayrollResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return PayrollResponse{}, err
	}

	contextutil.GetLogger(ctx, s.logger).Info("draft payroll recalculated",
		zap.String("payroll_id", id),
		zap.Int64("net_pay", record.NetPay),
		zap.String("actor_id", actorID),
	)
	return mapToResponse(*record), nil
}

type createParams struct {
	companyID uuid.UUID
	actorID   uuid.UUID
	employee  employee.Employee
	period    Period
	status    Status
	batchID   *uuid.UUID
	remarks   string
}

// createRecord holds the period lock across the existence check, the
// calculation and the insert. The unique index still backs the lock.
func createRecord(ctx context.Context, deps Deps, sm *StateMachine, sink eventSink, p createParams) (*PayrollRecord, error) {
	companyID := p.companyID.String()
	employeeID := p.employee.ID.String()

	release, ok, err := deps.Locker.Acquire(ctx, companyID, employeeID, p.period)
	if err != nil {
		return nil, err
	}
	defer release()
	if !ok {
		return nil, payrollerrors.ErrPeriodLocked
	}

	exists, err := deps.Repo.ExistsForPeriod(ctx, companyID, employeeID, p.period)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, payrollerrors.ErrDuplicatePeriod
	}

	inputs, err := deps.Resolver.Resolve(ctx, companyID, p.employee, "", p.period)
	if err != nil {
		return nil, err
	}
	result, err := Calculate(inputs.CalculationInput())
	if err != nil {
		return nil, err
	}

	gradeID := inputs.Grade.ID
	record := &PayrollRecord{
		ID:            uuid.New(),
		CompanyID:     p.companyID,
		EmployeeID:    p.employee.ID,
		Month:         p.period.Month,
		Year:          p.period.Year,
		Frequency:     p.period.Frequency,
		PeriodStart:   p.period.Start(),
		PeriodEnd:     p.period.End(),
		SalaryGradeID: &gradeID,
		GradeLevel:    inputs.Grade.Level,
		BatchID:       p.batchID,
		CreatedBy:     p.actorID,
	}
	record.applyCalculation(result)
	evts := sm.Initialize(record, p.status, p.actorID, p.remarks)

	tx, err := deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := deps.Repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, err
	}
	if err := sink.stageStatus(ctx, tx, evts); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	sink.flushStatus(ctx, evts)

	return record, nil
}

func findEmployee(ctx context.Context, repo employee.Repository, companyID, employeeID string) (*employee.Employee, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, payrollerrors.ErrInvalidEmployeeID
	}
	empl, err := repo.FindByIDAndCompany(ctx, companyID, employeeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payrollerrors.ErrUnknownEmployee
	}
	if err != nil {
		return nil, err
	}
	return empl, nil
}

func parseCompanyAndActor(companyID, actorID string) (uuid.UUID, uuid.UUID, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return uuid.Nil, uuid.Nil, payrollerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, payrollerrors.ErrInvalidActorID
	}
	return companyUUID, actorUUID, nil
}
