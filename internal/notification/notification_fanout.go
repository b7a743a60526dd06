package notification

import (
	"context"
	"fmt"
	"time"

	"go-payroll/internal/audit"
	"go-payroll/internal/employee"
	"go-payroll/internal/events"
	"go-payroll/internal/mail"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fanout turns payroll events into audit entries, stored notifications and,
// for paid payrolls, an email to the employee. Every sink is best-effort:
// failures are logged and the remaining sinks still run.
type Fanout struct {
	trail     audit.Trail
	repo      Repository
	employees employee.Repository
	mailer    mail.Dispatcher
	logger    *zap.Logger
	now       func() time.Time
}

// NewFanout accepts nil for repo, employees or mailer to disable that sink.
func NewFanout(
	trail audit.Trail,
	repo Repository,
	employees employee.Repository,
	mailer mail.Dispatcher,
	logger ...*zap.Logger,
) *Fanout {
	l := zap.L().Named("notification.fanout")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Fanout{
		trail:     trail,
		repo:      repo,
		employees: employees,
		mailer:    mailer,
		logger:    l,
		now:       time.Now,
	}
}

func (f *Fanout) DispatchStatusChanged(ctx context.Context, evt events.PayrollStatusChanged) {
	f.record(ctx, audit.Entry{
		CompanyID:  evt.CompanyID,
		Action:     "payroll." + statusAction(evt),
		EntityType: "payroll",
		EntityID:   evt.PayrollID,
		ActorID:    evt.ActorID,
		Details: map[string]any{
			"previous_status": evt.PreviousStatus,
			"new_status":      evt.NewStatus,
			"level":           evt.Level,
			"amount":          evt.Amount,
			"period":          fmt.Sprintf("%04d-%02d", evt.Year, evt.Month),
			"frequency":       evt.Frequency,
			"remarks":         evt.Remarks,
		},
		OccurredAt: evt.OccurredAt,
	})

	kind := TypePayrollStatus
	message := fmt.Sprintf("Your %s payroll for %04d-%02d is now %s.", evt.Frequency, evt.Year, evt.Month, evt.NewStatus)
	if evt.NewStatus == "PAID" {
		kind = TypePayrollPaid
		message = fmt.Sprintf("Your %s salary for %04d-%02d of %s has been paid.", evt.Frequency, evt.Year, evt.Month, FormatAmount(evt.Amount))
	}

	f.notify(ctx, evt.CompanyID, evt.EmployeeID, kind, message, map[string]any{
		"payroll_id":      evt.PayrollID,
		"previous_status": evt.PreviousStatus,
		"new_status":      evt.NewStatus,
		"amount":          evt.Amount,
	})

	if evt.NewStatus == "PAID" {
		f.mailPaid(ctx, evt, message)
	}
}

func (f *Fanout) DispatchBatchCompleted(ctx context.Context, evt events.PayrollBatchCompleted) {
	f.record(ctx, audit.Entry{
		CompanyID:  evt.CompanyID,
		Action:     "payroll_batch.completed",
		EntityType: "payroll_batch",
		EntityID:   evt.BatchID,
		ActorID:    evt.InitiatedBy,
		Details: map[string]any{
			"scope":         evt.Scope,
			"period":        fmt.Sprintf("%04d-%02d", evt.Year, evt.Month),
			"frequency":     evt.Frequency,
			"attempted":     evt.Attempted,
			"processed":     evt.Processed,
			"skipped":       evt.Skipped,
			"failed":        evt.Failed,
			"total_net_pay": evt.TotalNetPay,
		},
		OccurredAt: evt.OccurredAt,
	})

	message := fmt.Sprintf("Payroll batch for %04d-%02d finished: %d processed, %d skipped, %d failed.",
		evt.Year, evt.Month, evt.Processed, evt.Skipped, evt.Failed)
	f.notify(ctx, evt.CompanyID, evt.InitiatedBy, TypeBatchCompleted, message, map[string]any{
		"batch_id":  evt.BatchID,
		"processed": evt.Processed,
		"skipped":   evt.Skipped,
		"failed":    evt.Failed,
	})
}

func (f *Fanout) record(ctx context.Context, entry audit.Entry) {
	if f.trail == nil {
		return
	}
	if err := f.trail.Record(ctx, entry); err != nil {
		f.logger.Error("audit record failed",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err),
		)
	}
}

func (f *Fanout) notify(ctx context.Context, companyID, recipientID, kind, message string, payload map[string]any) {
	if f.repo == nil {
		return
	}
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		f.logger.Warn("notification skipped, invalid company id", zap.String("company_id", companyID))
		return
	}
	recipientUUID, err := uuid.Parse(recipientID)
	if err != nil {
		f.logger.Warn("notification skipped, invalid recipient id", zap.String("recipient_id", recipientID))
		return
	}

	n := &Notification{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		RecipientID: recipientUUID,
		Type:        kind,
		Message:     message,
		Payload:     payload,
		CreatedAt:   f.now().UTC(),
	}
	if err := f.repo.Create(ctx, n); err != nil {
		f.logger.Error("store notification failed",
			zap.String("recipient_id", recipientID),
			zap.String("type", kind),
			zap.Error(err),
		)
	}
}

func (f *Fanout) mailPaid(ctx context.Context, evt events.PayrollStatusChanged, message string) {
	if f.mailer == nil || f.employees == nil {
		return
	}
	empl, err := f.employees.FindByIDAndCompany(ctx, evt.CompanyID, evt.EmployeeID)
	if err != nil {
		f.logger.Error("payment mail skipped, employee lookup failed",
			zap.String("employee_id", evt.EmployeeID),
			zap.Error(err),
		)
		return
	}
	if empl.Email == "" {
		return
	}

	err = f.mailer.Send(ctx, mail.Message{
		To:      []string{empl.Email},
		Subject: fmt.Sprintf("Salary paid for %04d-%02d", evt.Year, evt.Month),
		Body:    fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", empl.FullName, message),
	})
	if err != nil {
		f.logger.Error("payment mail failed",
			zap.String("payroll_id", evt.PayrollID),
			zap.String("employee_id", evt.EmployeeID),
			zap.Error(err),
		)
	}
}

func statusAction(evt events.PayrollStatusChanged) string {
	if evt.PreviousStatus == "" {
		return "created"
	}
	return "status_changed"
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
