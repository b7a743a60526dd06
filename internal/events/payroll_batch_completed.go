package events

import "time"

const (
	PayrollBatchCompletedTopic = "payroll.batch.completed.v1"
	PayrollBatchCompletedType  = "payroll.batch_completed"
)

type PayrollBatchCompleted struct {
	EventType   string    `json:"event_type"`
	BatchID     string    `json:"batch_id"`
	CompanyID   string    `json:"company_id"`
	Scope       string    `json:"scope"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	Frequency   string    `json:"frequency"`
	Attempted   int       `json:"attempted"`
	Processed   int       `json:"processed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	TotalNetPay int64     `json:"total_net_pay"`
	InitiatedBy string    `json:"initiated_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}
