package events

import "time"

const (
	PayrollStatusChangedTopic = "payroll.record.status.v1"
	PayrollStatusChangedType  = "payroll.status_changed"
)

// PayrollStatusChanged is emitted for every state change of a payroll record,
// including its creation (PreviousStatus is empty then).
type PayrollStatusChanged struct {
	EventType      string    `json:"event_type"`
	PayrollID      string    `json:"payroll_id"`
	CompanyID      string    `json:"company_id"`
	EmployeeID     string    `json:"employee_id"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	Level          string    `json:"level"`
	Amount         int64     `json:"amount"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	Frequency      string    `json:"frequency"`
	ActorID        string    `json:"actor_id"`
	Remarks        string    `json:"remarks,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
