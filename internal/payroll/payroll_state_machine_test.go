package payroll_test

import (
	"errors"
	"testing"
	"time"

	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []payroll.Status{
	payroll.StatusDraft,
	payroll.StatusProcessing,
	payroll.StatusPending,
	payroll.StatusApproved,
	payroll.StatusPendingPayment,
	payroll.StatusPaid,
	payroll.StatusRejected,
	payroll.StatusFailed,
	payroll.StatusCancelled,
	payroll.StatusArchived,
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestCanTransition_PaidOnlyFromPendingPayment(t *testing.T) {
	for _, from := range allStatuses {
		want := from == payroll.StatusPendingPayment
		assert.Equal(t, want, payroll.CanTransition(from, payroll.StatusPaid), "from %s", from)
	}
}

func TestCanTransition_TerminalStatesHaveNoExit(t *testing.T) {
	for _, terminal := range []payroll.Status{payroll.StatusPaid, payroll.StatusCancelled, payroll.StatusArchived} {
		assert.True(t, terminal.Terminal())
		for _, to := range allStatuses {
			assert.False(t, payroll.CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
	assert.False(t, payroll.StatusRejected.Terminal())
}

func TestStateMachine_FullFlowAppendsHistory(t *testing.T) {
	sm := payroll.NewStateMachine(fixedClock())
	actor := uuid.New()
	record := &payroll.PayrollRecord{ID: uuid.New(), CompanyID: uuid.New(), EmployeeID: uuid.New(), NetPay: 296000}

	evts := sm.Initialize(record, payroll.StatusDraft, actor, "")
	assert.Len(t, evts, 1)
	assert.Equal(t, "", evts[0].PreviousStatus)
	assert.Equal(t, payroll.LevelCreation, evts[0].Level)

	flow := []payroll.Status{
		payroll.StatusProcessing,
		payroll.StatusPending,
		payroll.StatusApproved,
		payroll.StatusPendingPayment,
		payroll.StatusPaid,
	}
	for _, to := range flow {
		from := record.Status
		evts, err := sm.Transition(record, to, actor, "ok")
		assert.NoError(t, err)
		if assert.Len(t, evts, 1) {
			assert.Equal(t, string(from), evts[0].PreviousStatus)
			assert.Equal(t, string(to), evts[0].NewStatus)
			assert.Equal(t, int64(296000), evts[0].Amount)
		}
	}

	assert.Equal(t, payroll.StatusPaid, record.Status)
	assert.Len(t, record.ApprovalFlow, 6)
	assert.Equal(t, payroll.LevelCreation, record.ApprovalFlow[0].Level)
	assert.Equal(t, payroll.LevelApproval, record.ApprovalFlow[3].Level)
	assert.Equal(t, "approve", record.ApprovalFlow[3].Action)
	assert.Equal(t, payroll.LevelPayment, record.ApprovalFlow[5].Level)
	assert.NotNil(t, record.ApprovedBy)
	assert.NotNil(t, record.PaidAt)
}

func TestStateMachine_InvalidTransition(t *testing.T) {
	sm := payroll.NewStateMachine(fixedClock())
	record := &payroll.PayrollRecord{Status: payroll.StatusPaid, ApprovalFlow: []payroll.ApprovalEntry{{Status: payroll.StatusPaid}}}

	evts, err := sm.Transition(record, payroll.StatusApproved, uuid.New(), "")

	assert.Nil(t, evts)
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidTransition)
	var te *payroll.TransitionError
	if assert.True(t, errors.As(err, &te)) {
		assert.Equal(t, payroll.StatusPaid, te.From)
		assert.Equal(t, payroll.StatusApproved, te.To)
	}
	assert.Contains(t, err.Error(), "PAID")
	assert.Contains(t, err.Error(), "APPROVED")
	assert.Equal(t, payroll.StatusPaid, record.Status)
	assert.Len(t, record.ApprovalFlow, 1)

	httpErr := apperror.ToHTTP(err)
	assert.Equal(t, apperror.CodeInvalidState, httpErr.Code)
	assert.Equal(t, "invalid payroll status transition from PAID to APPROVED", httpErr.Message)
}

func TestStateMachine_ReopenRejected(t *testing.T) {
	sm := payroll.NewStateMachine(fixedClock())
	actor := uuid.New()
	record := &payroll.PayrollRecord{}
	sm.Initialize(record, payroll.StatusPending, actor, "")

	_, err := sm.Transition(record, payroll.StatusRejected, actor, "wrong grade")
	assert.NoError(t, err)
	_, err = sm.Transition(record, payroll.StatusDraft, actor, "")
	assert.NoError(t, err)

	assert.Equal(t, payroll.StatusDraft, record.Status)
	assert.Equal(t, "reopen", record.ApprovalFlow[2].Action)
	assert.Equal(t, "wrong grade", record.ApprovalFlow[1].Remarks)
}

func TestStateMachine_InitializeApprovedSetsApprover(t *testing.T) {
	sm := payroll.NewStateMachine(fixedClock())
	actor := uuid.New()
	record := &payroll.PayrollRecord{}

	sm.Initialize(record, payroll.StatusApproved, actor, "")

	if assert.NotNil(t, record.ApprovedBy) {
		assert.Equal(t, actor, *record.ApprovedBy)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := payroll.ParseStatus("PENDING_PAYMENT")
	assert.NoError(t, err)
	assert.Equal(t, payroll.StatusPendingPayment, s)

	_, err = payroll.ParseStatus("SETTLED")
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidStatusValue)
}
