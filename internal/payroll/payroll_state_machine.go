package payroll

import (
	"fmt"
	"time"

	"go-payroll/internal/events"
	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusProcessing     Status = "PROCESSING"
	StatusPending        Status = "PENDING"
	StatusApproved       Status = "APPROVED"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusRejected       Status = "REJECTED"
	StatusFailed         Status = "FAILED"
	StatusCancelled      Status = "CANCELLED"
	StatusArchived       Status = "ARCHIVED"
)

// Approval flow levels.
const (
	LevelCreation       = "creation"
	LevelPreparation    = "preparation"
	LevelApproval       = "approval"
	LevelPayment        = "payment"
	LevelAdministration = "administration"
)

var transitions = map[Status][]Status{
	StatusDraft:          {StatusProcessing, StatusPending, StatusCancelled},
	StatusProcessing:     {StatusPending, StatusCancelled},
	StatusPending:        {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:       {StatusPendingPayment, StatusArchived, StatusCancelled},
	StatusPendingPayment: {StatusPaid, StatusFailed, StatusCancelled},
	StatusFailed:         {StatusPendingPayment, StatusCancelled},
	StatusRejected:       {StatusDraft},
	StatusPaid:           nil,
	StatusCancelled:      nil,
	StatusArchived:       nil,
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if _, ok := transitions[s]; !ok {
		return "", payrollerrors.ErrInvalidStatusValue
	}
	return s, nil
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func levelFor(to Status) string {
	switch to {
	case StatusApproved, StatusRejected:
		return LevelApproval
	case StatusPendingPayment, StatusPaid, StatusFailed:
		return LevelPayment
	case StatusCancelled, StatusArchived:
		return LevelAdministration
	default:
		return LevelPreparation
	}
}

func actionFor(from, to Status) string {
	switch to {
	case StatusProcessing:
		return "process"
	case StatusPending:
		return "submit"
	case StatusApproved:
		return "approve"
	case StatusRejected:
		return "reject"
	case StatusPendingPayment:
		if from == StatusFailed {
			return "retry_payment"
		}
		return "initiate_payment"
	case StatusPaid:
		return "mark_paid"
	case StatusFailed:
		return "mark_failed"
	case StatusCancelled:
		return "cancel"
	case StatusArchived:
		return "archive"
	case StatusDraft:
		return "reopen"
	}
	return "transition"
}

// TransitionError names both ends of a rejected transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid payroll status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return payrollerrors.ErrInvalidTransition
}

// StateMachine applies status changes to payroll records. It never touches
// storage; every call returns the events the caller has to dispatch.
type StateMachine struct {
	now func() time.Time
}

func NewStateMachine(now func() time.Time) *StateMachine {
	if now == nil {
		now = time.Now
	}
	return &StateMachine{now: now}
}

// Initialize sets the first status of a new record and opens its history.
func (m *StateMachine) Initialize(record *PayrollRecord, status Status, actorID uuid.UUID, remarks string) []events.PayrollStatusChanged {
	at := m.now().UTC()
	record.Status = status
	record.ApprovalFlow = append(make([]ApprovalEntry, 0, 4), ApprovalEntry{
		Level:     LevelCreation,
		Status:    status,
		Action:    "create",
		ActorID:   actorID.String(),
		Timestamp: at,
		Remarks:   remarks,
	})
	if status == StatusApproved {
		record.ApprovedBy = &actorID
		record.ApprovedAt = &at
	}
	return []events.PayrollStatusChanged{newStatusEvent(*record, "", LevelCreation, actorID, remarks, at)}
}

// Transition moves record to the target status and extends its history.
// A rejected transition leaves the record untouched.
func (m *StateMachine) Transition(record *PayrollRecord, to Status, actorID uuid.UUID, remarks string) ([]events.PayrollStatusChanged, error) {
	from := record.Status
	if !CanTransition(from, to) {
		return nil, &TransitionError{From: from, To: to}
	}

	at := m.now().UTC()
	level := levelFor(to)

	record.Status = to
	record.ApprovalFlow = append(record.ApprovalFlow, ApprovalEntry{
		Level:     level,
		Status:    to,
		Action:    actionFor(from, to),
		ActorID:   actorID.String(),
		Timestamp: at,
		Remarks:   remarks,
	})

	switch to {
	case StatusApproved:
		record.ApprovedBy = &actorID
		record.ApprovedAt = &at
	case StatusPaid:
		record.PaidAt = &at
	case StatusDraft:
		record.ApprovedBy = nil
		record.ApprovedAt = nil
	}

	return []events.PayrollStatusChanged{newStatusEvent(*record, from, level, actorID, remarks, at)}, nil
}

func newStatusEvent(record PayrollRecord, from Status, level string, actorID uuid.UUID, remarks string, at time.Time) events.PayrollStatusChanged {
	return events.PayrollStatusChanged{
		EventType:      events.PayrollStatusChangedType,
		PayrollID:      record.ID.String(),
		CompanyID:      record.CompanyID.String(),
		EmployeeID:     record.EmployeeID.String(),
		PreviousStatus: string(from),
		NewStatus:      string(record.Status),
		Level:          level,
		Amount:         record.NetPay,
		Month:          record.Month,
		Year:           record.Year,
		Frequency:      string(record.Frequency),
		ActorID:        actorID.String(),
		Remarks:        remarks,
		OccurredAt:     at,
	}
}
