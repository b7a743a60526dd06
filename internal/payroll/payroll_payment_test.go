package payroll_test

import (
	"context"
	"testing"

	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/counter"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func (h *harness) expectReferences(seqs ...int64) {
	for _, seq := range seqs {
		h.counter.EXPECT().
			GetNextValue(gomock.Any(), h.companyID.String(), counter.TypePaymentReference).
			Return(seq, nil)
	}
}

// pendingPayment seeds a record awaiting settlement together with its ledger row.
func (h *harness) pendingPayment(reference string) payroll.PayrollRecord {
	record := newRecord(h.companyID, uuid.New(), payroll.StatusPendingPayment)
	record.Payment = &payroll.PaymentDetails{Method: payroll.MethodBankTransfer, Reference: reference}
	h.repo.records[record.ID] = &record
	h.payments.payments = append(h.payments.payments, payroll.Payment{
		ID:        uuid.New(),
		CompanyID: h.companyID,
		PayrollID: record.ID,
		Reference: reference,
		Amount:    record.NetPay,
		Status:    payroll.PaymentPending,
		Method:    payroll.MethodBankTransfer,
	})
	return record
}

func (h *harness) seed(status payroll.Status) payroll.PayrollRecord {
	record := newRecord(h.companyID, uuid.New(), status)
	h.repo.records[record.ID] = &record
	return record
}

func TestPaymentManager_Initiate(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusApproved)
	h.expectReferences(1)
	expectTx(t, h.mock, true)

	resp, err := payroll.NewPaymentManager(h.deps()).Initiate(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.InitiatePaymentRequest{
		Method:      "Bank_Transfer",
		BankDetails: payroll.BankDetailsRequest{BankName: "First Bank", AccountNumber: "0123456789"},
		Notes:       "march salary",
	})

	assert.NoError(t, err)
	assert.Equal(t, "PAY-202603-000001", resp.Reference)
	assert.Equal(t, int64(296000), resp.Amount)
	assert.Equal(t, string(payroll.PaymentPending), resp.Status)
	assert.Equal(t, payroll.MethodBankTransfer, resp.Method)

	stored := h.repo.get(record.ID)
	assert.Equal(t, payroll.StatusPendingPayment, stored.Status)
	if assert.NotNil(t, stored.Payment) {
		assert.Equal(t, "PAY-202603-000001", stored.Payment.Reference)
		assert.Equal(t, "First Bank", stored.Payment.BankDetails.BankName)
		assert.Equal(t, h.actorID.String(), stored.Payment.InitiatedBy)
	}
	last := stored.ApprovalFlow[len(stored.ApprovalFlow)-1]
	assert.Equal(t, payroll.LevelPayment, last.Level)
	assert.Equal(t, "initiate_payment", last.Action)
	assert.Len(t, h.payments.payments, 1)
	if assert.Len(t, h.dispatcher.status, 1) {
		assert.Equal(t, "PENDING_PAYMENT", h.dispatcher.status[0].NewStatus)
	}
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPaymentManager_Initiate_RequiresApproval(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusDraft)
	expectTx(t, h.mock, false)

	_, err := payroll.NewPaymentManager(h.deps()).Initiate(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.InitiatePaymentRequest{Method: "cash"})

	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatus)
	assert.Equal(t, payroll.StatusDraft, h.repo.get(record.ID).Status)
	assert.Nil(t, h.repo.get(record.ID).Payment)
	assert.Empty(t, h.payments.payments)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPaymentManager_Initiate_InvalidMethod(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusApproved)

	_, err := payroll.NewPaymentManager(h.deps()).Initiate(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.InitiatePaymentRequest{Method: "crypto"})

	assert.ErrorIs(t, err, payrollerrors.ErrInvalidPaymentMethod)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPaymentManager_Initiate_DistinctReferences(t *testing.T) {
	h := newHarness(t)
	first := h.seed(payroll.StatusApproved)
	second := h.seed(payroll.StatusApproved)
	h.expectReferences(1, 2)
	expectTxs(t, h.mock, 2)
	pm := payroll.NewPaymentManager(h.deps())

	a, err := pm.Initiate(context.Background(), h.companyID.String(), h.actorID.String(), first.ID.String(), payroll.InitiatePaymentRequest{Method: "cash"})
	assert.NoError(t, err)
	b, err := pm.Initiate(context.Background(), h.companyID.String(), h.actorID.String(), second.ID.String(), payroll.InitiatePaymentRequest{Method: "cheque"})
	assert.NoError(t, err)

	assert.NotEqual(t, a.Reference, b.Reference)
	assert.Equal(t, "PAY-202603-000002", b.Reference)
}

func TestPaymentManager_MarkFailed_PartialSuccess(t *testing.T) {
	h := newHarness(t)
	a := h.pendingPayment("PAY-202603-000001")
	b := h.pendingPayment("PAY-202603-000002")
	expectTxs(t, h.mock, 2)
	expectTx(t, h.mock, false)

	resp, err := payroll.NewPaymentManager(h.deps()).MarkFailed(context.Background(), h.companyID.String(), h.actorID.String(), payroll.PaymentBatchRequest{
		Targets: []string{"PAY-202603-000001", "PAY-202603-000002", "PAY-202603-999999"},
		Remarks: "bank rejected file",
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, resp.Requested)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	missing := resp.Outcomes[2]
	assert.False(t, missing.Success)
	if assert.NotNil(t, missing.Error) {
		assert.Equal(t, apperror.CodeNotFound, missing.Error.Code)
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		assert.Equal(t, payroll.StatusFailed, h.repo.get(id).Status)
	}
	for _, p := range h.payments.payments {
		assert.Equal(t, payroll.PaymentFailed, p.Status)
		assert.Equal(t, "bank rejected file", p.Remarks)
		assert.Equal(t, h.actorID, *p.ProcessedBy)
	}
	assert.Len(t, h.dispatcher.status, 2)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPaymentManager_MarkPaid(t *testing.T) {
	h := newHarness(t)
	record := h.pendingPayment("PAY-202603-000004")
	expectTx(t, h.mock, true)

	resp, err := payroll.NewPaymentManager(h.deps()).MarkPaid(context.Background(), h.companyID.String(), h.actorID.String(), payroll.PaymentBatchRequest{
		Targets: []string{record.ID.String()},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Succeeded)
	out := resp.Outcomes[0]
	assert.True(t, out.Success)
	assert.Equal(t, "PAID", out.Status)
	if assert.NotNil(t, out.Payment) {
		assert.Equal(t, string(payroll.PaymentCompleted), out.Payment.Status)
		assert.NotNil(t, out.Payment.ProcessedAt)
	}

	stored := h.repo.get(record.ID)
	assert.Equal(t, payroll.StatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)
	if assert.Len(t, h.dispatcher.status, 1) {
		evt := h.dispatcher.status[0]
		assert.Equal(t, "PAID", evt.NewStatus)
		assert.Equal(t, int64(296000), evt.Amount)
	}
}

func TestPaymentManager_MarkPaid_NotPending(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusApproved)
	expectTx(t, h.mock, false)

	resp, err := payroll.NewPaymentManager(h.deps()).MarkPaid(context.Background(), h.companyID.String(), h.actorID.String(), payroll.PaymentBatchRequest{
		Targets: []string{record.ID.String()},
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, apperror.CodeInvalidState, resp.Outcomes[0].Error.Code)
	assert.Equal(t, payroll.StatusApproved, h.repo.get(record.ID).Status)
}

func TestPaymentManager_RetryAfterFailure(t *testing.T) {
	h := newHarness(t)
	record := h.pendingPayment("PAY-202603-000001")
	h.expectReferences(2)
	expectTxs(t, h.mock, 2)
	pm := payroll.NewPaymentManager(h.deps())
	ctx := context.Background()

	_, err := pm.MarkFailed(ctx, h.companyID.String(), h.actorID.String(), payroll.PaymentBatchRequest{Targets: []string{"PAY-202603-000001"}})
	assert.NoError(t, err)

	retry, err := pm.Initiate(ctx, h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.InitiatePaymentRequest{Method: "bank_transfer"})
	assert.NoError(t, err)
	assert.Equal(t, "PAY-202603-000002", retry.Reference)

	stored := h.repo.get(record.ID)
	assert.Equal(t, payroll.StatusPendingPayment, stored.Status)
	assert.Equal(t, "retry_payment", stored.ApprovalFlow[len(stored.ApprovalFlow)-1].Action)

	history, err := pm.ListPayments(ctx, h.companyID.String(), record.ID.String())
	assert.NoError(t, err)
	if assert.Len(t, history, 2) {
		assert.Equal(t, string(payroll.PaymentFailed), history[0].Status)
		assert.Equal(t, string(payroll.PaymentPending), history[1].Status)
	}
}

func TestPaymentManager_Cancel_PendingPayment(t *testing.T) {
	h := newHarness(t)
	record := h.pendingPayment("PAY-202603-000001")
	expectTx(t, h.mock, true)

	resp, err := payroll.NewPaymentManager(h.deps()).Cancel(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.CancelPaymentRequest{Reason: "duplicate run"})

	assert.NoError(t, err)
	assert.Equal(t, "PAY-202603-000001", resp.Reference)
	assert.Equal(t, string(payroll.PaymentCancelled), resp.Status)
	assert.Equal(t, payroll.StatusCancelled, h.repo.get(record.ID).Status)
	assert.Len(t, h.payments.payments, 1)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestPaymentManager_Cancel_BeforePayment(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusDraft)
	h.expectReferences(5)
	expectTx(t, h.mock, true)

	resp, err := payroll.NewPaymentManager(h.deps()).Cancel(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.CancelPaymentRequest{})

	assert.NoError(t, err)
	assert.Equal(t, "PAY-202603-000005", resp.Reference)
	assert.Equal(t, string(payroll.PaymentCancelled), resp.Status)
	assert.Equal(t, payroll.StatusCancelled, h.repo.get(record.ID).Status)
}

func TestPaymentManager_Cancel_Terminal(t *testing.T) {
	h := newHarness(t)
	record := h.seed(payroll.StatusPaid)
	expectTx(t, h.mock, false)

	_, err := payroll.NewPaymentManager(h.deps()).Cancel(context.Background(), h.companyID.String(), h.actorID.String(), record.ID.String(), payroll.CancelPaymentRequest{})

	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatus)
	assert.Equal(t, payroll.StatusPaid, h.repo.get(record.ID).Status)
	assert.Empty(t, h.payments.payments)
}

func TestPaymentManager_ListPayments_UnknownPayroll(t *testing.T) {
	h := newHarness(t)

	_, err := payroll.NewPaymentManager(h.deps()).ListPayments(context.Background(), h.companyID.String(), uuid.NewString())
	assert.ErrorIs(t, err, payrollerrors.ErrPayrollNotFound)
}

func TestPaymentReference(t *testing.T) {
	period, err := payroll.NewPeriod(3, 2026, "monthly")
	assert.NoError(t, err)
	assert.Equal(t, "PAY-202603-000001", payroll.PaymentReference(period, 1))
	assert.Equal(t, "PAY-202603-1234567", payroll.PaymentReference(period, 1234567))
}
