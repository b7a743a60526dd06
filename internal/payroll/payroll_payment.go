package payroll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/contextutil"
	"go-payroll/internal/shared/counter"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=payroll_payment.go -destination=mock/payroll_payment_mock.go -package=mock
type PaymentManager interface {
	Initiate(ctx context.Context, companyID, actorID, payrollID string, req InitiatePaymentRequest) (PaymentResponse, error)
	// MarkPaid and MarkFailed settle each target independently; one bad
	// target never stops the others.
	MarkPaid(ctx context.Context, companyID, actorID string, req PaymentBatchRequest) (PaymentBatchResponse, error)
	MarkFailed(ctx context.Context, companyID, actorID string, req PaymentBatchRequest) (PaymentBatchResponse, error)
	Cancel(ctx context.Context, companyID, actorID, payrollID string, req CancelPaymentRequest) (PaymentResponse, error)
	ListPayments(ctx context.Context, companyID, payrollID string) ([]PaymentResponse, error)
}

type paymentManager struct {
	deps   Deps
	sm     *StateMachine
	sink   eventSink
	logger *zap.Logger
}

func NewPaymentManager(deps Deps) PaymentManager {
	deps = deps.withDefaults("payroll.payment")
	return &paymentManager{
		deps:   deps,
		sm:     NewStateMachine(deps.Now),
		sink:   eventSink{outbox: deps.Outbox, dispatcher: deps.Dispatcher, logger: deps.Logger},
		logger: deps.Logger,
	}
}

// PaymentReference formats PAY-<YYYY><MM>-<seq>.
func PaymentReference(period Period, seq int64) string {
	return fmt.Sprintf("PAY-%04d%02d-%06d", period.Year, period.Month, seq)
}

func (m *paymentManager) Initiate(ctx context.Context, companyID, actorID, payrollID string, req InitiatePaymentRequest) (PaymentResponse, error) {
	companyUUID, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return PaymentResponse{}, err
	}
	if _, err := uuid.Parse(payrollID); err != nil {
		return PaymentResponse{}, payrollerrors.ErrInvalidPayrollID
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if !validPaymentMethod(method) {
		return PaymentResponse{}, payrollerrors.ErrInvalidPaymentMethod
	}

	tx, err := m.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return PaymentResponse{}, err
	}
	defer tx.Rollback()

	qtx := m.deps.Repo.WithTx(tx)
	record, err := qtx.FindByIDAndCompany(ctx, companyID, payrollID)
	if err != nil {
		return PaymentResponse{}, err
	}
	from := record.Status
	if from != StatusApproved && from != StatusFailed {
		return PaymentResponse{}, payrollerrors.ErrInvalidStatus
	}

	reference, err := m.nextReference(ctx, tx, companyID, record.Period())
	if err != nil {
		return PaymentResponse{}, err
	}

	evts, err := m.sm.Transition(record, StatusPendingPayment, actorUUID, req.Notes)
	if err != nil {
		return PaymentResponse{}, err
	}
	now := m.deps.Now().UTC()
	bank := BankDetails(req.BankDetails)
	record.Payment = &PaymentDetails{
		Method:      method,
		Reference:   reference,
		BankDetails: bank,
		Notes:       req.Notes,
		InitiatedBy: actorID,
		InitiatedAt: now,
	}
	if err := qtx.Update(ctx, record, from); err != nil {
		return PaymentResponse{}, err
	}

	payment := &Payment{
		ID:          uuid.New(),
		CompanyID:   companyUUID,
		PayrollID:   record.ID,
		Reference:   reference,
		Amount:      record.NetPay,
		Status:      PaymentPending,
		Method:      method,
		BankDetails: bank,
		Notes:       req.Notes,
		InitiatedBy: actorUUID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.deps.Payments.WithTx(tx).Create(ctx, payment); err != nil {
		return PaymentResponse{}, err
	}
	if err := m.sink.stageStatus(ctx, tx, evts); err != nil {
		return PaymentResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return PaymentResponse{}, err
	}
	m.sink.flushStatus(ctx, evts)

	contextutil.GetLogger(ctx, m.logger).Info("payroll payment initiated",
		zap.String("payroll_id", payrollID),
		zap.String("reference", reference),
		zap.Int64("amount", payment.Amount),
	)
	return mapPaymentToResponse(*payment), nil
}

func (m *paymentManager) MarkPaid(ctx context.Context, companyID, actorID string, req PaymentBatchRequest) (PaymentBatchResponse, error) {
	return m.settleAll(ctx, companyID, actorID, req, StatusPaid, PaymentCompleted)
}

func (m *paymentManager) MarkFailed(ctx context.Context, companyID, actorID string, req PaymentBatchRequest) (PaymentBatchResponse, error) {
	return m.settleAll(ctx, companyID, actorID, req, StatusFailed, PaymentFailed)
}

func (m *paymentManager) settleAll(
	ctx context.Context,
	companyID, actorID string,
	req PaymentBatchRequest,
	to Status,
	final PaymentStatus,
) (PaymentBatchResponse, error) {
	_, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return PaymentBatchResponse{}, err
	}

	resp := PaymentBatchResponse{
		Requested: len(req.Targets),
		Outcomes:  make([]PaymentOutcome, 0, len(req.Targets)),
	}
	for _, target := range req.Targets {
		out := PaymentOutcome{Target: target}
		record, payment, err := m.settle(ctx, companyID, actorUUID, strings.TrimSpace(target), to, final, req.Remarks)
		if err != nil {
			out.Error = outcomeError(err)
			resp.Failed++
			contextutil.GetLogger(ctx, m.logger).Warn("payroll payment settle failed",
				zap.String("target", target),
				zap.String("status", string(to)),
				zap.Error(err),
			)
		} else {
			p := mapPaymentToResponse(*payment)
			out.Success = true
			out.PayrollID = record.ID.String()
			out.Status = string(record.Status)
			out.Payment = &p
			resp.Succeeded++
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}

	contextutil.GetLogger(ctx, m.logger).Info("payroll payments settled",
		zap.String("status", string(to)),
		zap.Int("requested", resp.Requested),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// settle finalizes one pending payment in its own transaction.
func (m *paymentManager) settle(
	ctx context.Context,
	companyID string,
	actorID uuid.UUID,
	target string,
	to Status,
	final PaymentStatus,
	remarks string,
) (*PayrollRecord, *Payment, error) {
	tx, err := m.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	qtx := m.deps.Repo.WithTx(tx)
	record, err := findTarget(ctx, qtx, companyID, target)
	if err != nil {
		return nil, nil, err
	}
	if record.Status != StatusPendingPayment {
		return nil, nil, payrollerrors.ErrInvalidStatus
	}

	pqtx := m.deps.Payments.WithTx(tx)
	payment, err := pqtx.FindPendingByPayroll(ctx, companyID, record.ID.String())
	if err != nil {
		return nil, nil, err
	}

	evts, err := m.sm.Transition(record, to, actorID, remarks)
	if err != nil {
		return nil, nil, err
	}
	if err := qtx.Update(ctx, record, StatusPendingPayment); err != nil {
		return nil, nil, err
	}

	now := m.deps.Now().UTC()
	payment.Status = final
	payment.Remarks = remarks
	payment.ProcessedBy = &actorID
	payment.ProcessedAt = &now
	if err := pqtx.Finalize(ctx, payment); err != nil {
		return nil, nil, err
	}
	if err := m.sink.stageStatus(ctx, tx, evts); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	m.sink.flushStatus(ctx, evts)
	return record, payment, nil
}

func (m *paymentManager) Cancel(ctx context.Context, companyID, actorID, payrollID string, req CancelPaymentRequest) (PaymentResponse, error) {
	companyUUID, actorUUID, err := parseCompanyAndActor(companyID, actorID)
	if err != nil {
		return PaymentResponse{}, err
	}
	if _, err := uuid.Parse(payrollID); err != nil {
		return PaymentResponse{}, payrollerrors.ErrInvalidPayrollID
	}

	tx, err := m.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return PaymentResponse{}, err
	}
	defer tx.Rollback()

	qtx := m.deps.Repo.WithTx(tx)
	record, err := qtx.FindByIDAndCompany(ctx, companyID, payrollID)
	if err != nil {
		return PaymentResponse{}, err
	}
	from := record.Status
	if !CanTransition(from, StatusCancelled) {
		return PaymentResponse{}, payrollerrors.ErrInvalidStatus
	}

	now := m.deps.Now().UTC()
	pqtx := m.deps.Payments.WithTx(tx)
	var payment *Payment
	if from == StatusPendingPayment {
		payment, err = pqtx.FindPendingByPayroll(ctx, companyID, payrollID)
		if err != nil {
			return PaymentResponse{}, err
		}
		payment.Status = PaymentCancelled
		payment.Remarks = req.Reason
		payment.ProcessedBy = &actorUUID
		payment.ProcessedAt = &now
		if err := pqtx.Finalize(ctx, payment); err != nil {
			return PaymentResponse{}, err
		}
	} else {
		reference, err := m.nextReference(ctx, tx, companyID, record.Period())
		if err != nil {
			return PaymentResponse{}, err
		}
		payment = &Payment{
			ID:          uuid.New(),
			CompanyID:   companyUUID,
			PayrollID:   record.ID,
			Reference:   reference,
			Amount:      record.NetPay,
			Status:      PaymentCancelled,
			Remarks:     req.Reason,
			InitiatedBy: actorUUID,
			ProcessedBy: &actorUUID,
			ProcessedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := pqtx.Create(ctx, payment); err != nil {
			return PaymentResponse{}, err
		}
	}

	evts, err := m.sm.Transition(record, StatusCancelled, actorUUID, req.Reason)
	if err != nil {
		return PaymentResponse{}, err
	}
	if err := qtx.Update(ctx, record, from); err != nil {
		return PaymentResponse{}, err
	}
	if err := m.sink.stageStatus(ctx, tx, evts); err != nil {
		return PaymentResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return PaymentResponse{}, err
	}
	m.sink.flushStatus(ctx, evts)

	contextutil.GetLogger(ctx, m.logger).Info("payroll payment cancelled",
		zap.String("payroll_id", payrollID),
		zap.String("from", string(from)),
		zap.String("reference", payment.Reference),
	)
	return mapPaymentToResponse(*payment), nil
}

func (m *paymentManager) ListPayments(ctx context.Context, companyID, payrollID string) ([]PaymentResponse, error) {
	if _, err := uuid.Parse(payrollID); err != nil {
		return nil, payrollerrors.ErrInvalidPayrollID
	}
	if _, err := m.deps.Repo.FindByIDAndCompany(ctx, companyID, payrollID); err != nil {
		return nil, err
	}
	payments, err := m.deps.Payments.ListByPayroll(ctx, companyID, payrollID)
	if err != nil {
		return nil, err
	}
	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, mapPaymentToResponse(p))
	}
	return resp, nil
}

func (m *paymentManager) nextReference(ctx context.Context, tx *sql.Tx, companyID string, period Period) (string, error) {
	seq, err := m.deps.Counter.WithTx(tx).GetNextValue(ctx, companyID, counter.TypePaymentReference)
	if err != nil {
		return "", err
	}
	return PaymentReference(period, seq), nil
}

// findTarget accepts a payroll id or a payment reference.
func findTarget(ctx context.Context, repo Repository, companyID, target string) (*PayrollRecord, error) {
	if target == "" {
		return nil, payrollerrors.ErrPaymentNotFound
	}
	if _, err := uuid.Parse(target); err == nil {
		return repo.FindByIDAndCompany(ctx, companyID, target)
	}
	record, err := repo.FindByPaymentReference(ctx, companyID, target)
	if errors.Is(err, payrollerrors.ErrPayrollNotFound) {
		return nil, payrollerrors.ErrPaymentNotFound
	}
	return record, err
}
