package payroll

import (
	"context"
	"errors"
	"fmt"

	"go-payroll/internal/employee"
	"go-payroll/internal/events"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/rbac"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=payroll_batch.go -destination=mock/payroll_batch_mock.go -package=mock
type BatchProcessor interface {
	// RunBatch only fails as a whole when the employee set cannot be
	// enumerated or the summary cannot be stored. Per-employee failures are
	// reported in the summary.
	RunBatch(ctx context.Context, companyID, actorID string, req RunBatchRequest) (BatchSummaryResponse, error)
	GetBatch(ctx context.Context, companyID, id string) (BatchSummaryResponse, error)
}

type batchProcessor struct {
	deps   Deps
	sm     *StateMachine
	sink   eventSink
	logger *zap.Logger
}

func NewBatchProcessor(deps Deps) BatchProcessor {
	deps = deps.withDefaults("payroll.batch")
	return &batchProcessor{
		deps:   deps,
		sm:     NewStateMachine(deps.Now),
		sink:   eventSink{outbox: deps.Outbox, dispatcher: deps.Dispatcher, logger: deps.Logger},
		logger: deps.Logger,
	}
}

func (b *batchProcessor) RunBatch(ctx context.Context, companyID, actorID string, req RunBatchRequest) (BatchSummaryResponse, error) {
	log := contextutil.GetLogger(ctx, b.logger)

	companyUUID, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return BatchSummaryResponse{}, err
	}
	period, err := NewPeriod(req.Month, req.Year, req.Frequency)
	if err != nil {
		return BatchSummaryResponse{}, err
	}
	scope := BatchScope(req.Scope)
	if !scope.IsValid() {
		return BatchSummaryResponse{}, payrollerrors.ErrInvalidScope
	}

	empls, targetID, err := b.enumerate(ctx, companyID, scope, req)
	if err != nil {
		log.Warn("payroll batch scope enumeration failed",
			zap.String("scope", req.Scope),
			zap.Error(err),
		)
		return BatchSummaryResponse{}, err
	}

	summary := &BatchSummary{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		Scope:       scope,
		TargetID:    targetID,
		Month:       period.Month,
		Year:        period.Year,
		Frequency:   period.Frequency,
		Warnings:    frequencyWarnings(empls, period.Frequency),
		Errors:      []string{},
		InitiatedBy: actorUUID,
		StartedAt:   b.deps.Now().UTC(),
	}
	if len(empls) == 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("no active employees in %s scope", scope))
	}

	initial := StatusPending
	if b.canFastApprove(companyID, actorID) {
		initial = StatusApproved
	}

	log.Info("payroll batch started",
		zap.String("batch_id", summary.ID.String()),
		zap.String("scope", string(scope)),
		zap.String("period", period.String()),
		zap.Int("employees", len(empls)),
		zap.String("initial_status", string(initial)),
	)

	outcomes := make([]BatchOutcome, len(empls))
	var g errgroup.Group
	g.SetLimit(b.deps.Concurrency)
	for i, empl := range empls {
		i, empl := i, empl
		g.Go(func() error {
			outcomes[i] = b.processEmployee(ctx, createParams{
				companyID: companyUUID,
				actorID:   actorUUID,
				employee:  empl,
				period:    period,
				status:    initial,
				batchID:   &summary.ID,
				remarks:   "batch " + summary.ID.String(),
			})
			return nil
		})
	}
	_ = g.Wait()

	summary.Outcomes = outcomes
	for _, o := range outcomes {
		switch {
		case o.Status == OutcomeFailed:
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", outcomeLabel(o), o.Message))
		case o.Status == OutcomeProcessed && o.Totals != nil && o.Totals.BasicSalary == 0:
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: basic salary is zero", outcomeLabel(o)))
		}
	}
	summary.tally()
	summary.CompletedAt = b.deps.Now().UTC()

	if err := b.persist(ctx, summary, period); err != nil {
		// records created above stay committed and point at a batch id that
		// was never stored
		log.Error("payroll batch summary persist failed",
			zap.String("batch_id", summary.ID.String()),
			zap.Strings("payroll_ids", processedPayrollIDs(outcomes)),
			zap.Error(err),
		)
		return BatchSummaryResponse{}, err
	}

	log.Info("payroll batch finished",
		zap.String("batch_id", summary.ID.String()),
		zap.String("batch_number", summary.BatchNumber),
		zap.Int("attempted", summary.Attempted),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return mapBatchToResponse(*summary), nil
}

func processedPayrollIDs(outcomes []BatchOutcome) []string {
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Status == OutcomeProcessed && o.PayrollID != "" {
			ids = append(ids, o.PayrollID)
		}
	}
	return ids
}

func (b *batchProcessor) GetBatch(ctx context.Context, companyID, id string) (BatchSummaryResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return BatchSummaryResponse{}, payrollerrors.ErrBatchNotFound
	}
	summary, err := b.deps.Batches.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		return BatchSummaryResponse{}, err
	}
	return mapBatchToResponse(*summary), nil
}

func (b *batchProcessor) enumerate(ctx context.Context, companyID string, scope BatchScope, req RunBatchRequest) ([]employee.Employee, *uuid.UUID, error) {
	switch scope {
	case ScopeEmployee:
		empl, err := findEmployee(ctx, b.deps.Employees, companyID, req.EmployeeID)
		if err != nil {
			return nil, nil, err
		}
		return []employee.Employee{*empl}, &empl.ID, nil

	case ScopeDepartment:
		deptID, err := uuid.Parse(req.DepartmentID)
		if err != nil {
			return nil, nil, payrollerrors.ErrUnknownDepartment
		}
		ok, err := b.deps.Departments.Exists(ctx, companyID, req.DepartmentID)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, payrollerrors.ErrUnknownDepartment
		}
		empls, err := b.deps.Employees.FindActiveByDepartment(ctx, companyID, req.DepartmentID)
		return empls, &deptID, err

	default:
		empls, err := b.deps.Employees.FindActiveByCompany(ctx, companyID)
		return empls, nil, err
	}
}

func (b *batchProcessor) processEmployee(ctx context.Context, p createParams) BatchOutcome {
	out := BatchOutcome{
		EmployeeID:     p.employee.ID.String(),
		EmployeeNumber: p.employee.EmployeeNumber,
	}

	if !p.employee.IsActive() {
		return b.failed(ctx, out, payrollerrors.ErrEmployeeInactive)
	}

	record, err := createRecord(ctx, b.deps, b.sm, b.sink, p)
	switch {
	case errors.Is(err, payrollerrors.ErrDuplicatePeriod):
		out.Status = OutcomeSkipped
		out.Reason = SkipAlreadyExists
		out.Message = payrollerrors.ErrDuplicatePeriod.Message
		return out
	case errors.Is(err, payrollerrors.ErrPeriodLocked):
		out.Status = OutcomeSkipped
		out.Reason = SkipLocked
		out.Message = payrollerrors.ErrPeriodLocked.Message
		return out
	case err != nil:
		return b.failed(ctx, out, err)
	}

	totals := record.Totals()
	out.Status = OutcomeProcessed
	out.PayrollID = record.ID.String()
	out.PayrollStatus = record.Status
	out.Totals = &totals
	return out
}

func (b *batchProcessor) failed(ctx context.Context, out BatchOutcome, err error) BatchOutcome {
	httpErr := apperror.ToHTTP(err)
	out.Status = OutcomeFailed
	out.Reason = httpErr.Code
	out.Message = httpErr.Message
	if httpErr.Code == apperror.CodeInternalError {
		out.Message = err.Error()
	}
	contextutil.GetLogger(ctx, b.logger).Warn("payroll batch employee failed",
		zap.String("employee_id", out.EmployeeID),
		zap.String("reason", out.Reason),
		zap.Error(err),
	)
	return out
}

func (b *batchProcessor) canFastApprove(companyID, actorID string) bool {
	if b.deps.Authorizer == nil {
		return false
	}
	allowed, err := b.deps.Authorizer.Enforce(rbac.EnforceRequest{
		EmployeeID: actorID,
		CompanyID:  companyID,
		Resource:   "payroll",
		Action:     "approve",
	})
	if err != nil {
		b.logger.Warn("approval authority check failed, records stay pending",
			zap.String("actor_id", actorID),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

func (b *batchProcessor) persist(ctx context.Context, summary *BatchSummary, period Period) error {
	tx, err := b.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq, err := b.deps.Counter.WithTx(tx).GetNextValue(ctx, summary.CompanyID.String(), counter.TypeBatchNumber)
	if err != nil {
		return err
	}
	summary.BatchNumber = fmt.Sprintf("BATCH-%04d%02d-%04d", period.Year, period.Month, seq)

	if err := b.deps.Batches.WithTx(tx).Create(ctx, summary); err != nil {
		return err
	}

	evt := events.PayrollBatchCompleted{
		EventType:   events.PayrollBatchCompletedType,
		BatchID:     summary.ID.String(),
		CompanyID:   summary.CompanyID.String(),
		Scope:       string(summary.Scope),
		Month:       summary.Month,
		Year:        summary.Year,
		Frequency:   string(summary.Frequency),
		Attempted:   summary.Attempted,
		Processed:   summary.Processed,
		Skipped:     summary.Skipped,
		Failed:      summary.Failed,
		TotalNetPay: summary.TotalNetPay,
		InitiatedBy: summary.InitiatedBy.String(),
		OccurredAt:  summary.CompletedAt,
	}
	if err := b.sink.stageBatch(ctx, tx, evt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	b.sink.flushBatch(ctx, evt)
	return nil
}

// frequencyWarnings flags employees configured for another pay cadence.
func frequencyWarnings(empls []employee.Employee, f Frequency) []string {
	warnings := []string{}
	for _, e := range empls {
		if e.PayFrequency == nil || *e.PayFrequency == "" {
			continue
		}
		configured, err := ParseFrequency(*e.PayFrequency)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: unknown pay frequency %q", employeeLabel(e), *e.PayFrequency))
			continue
		}
		if configured != f {
			warnings = append(warnings, fmt.Sprintf("%s: configured for %s pay, batch runs %s", employeeLabel(e), configured, f))
		}
	}
	return warnings
}

func employeeLabel(e employee.Employee) string {
	if e.EmployeeNumber != "" {
		return e.EmployeeNumber
	}
	return e.ID.String()
}

func outcomeLabel(o BatchOutcome) string {
	if o.EmployeeNumber != "" {
		return o.EmployeeNumber
	}
	return o.EmployeeID
}
