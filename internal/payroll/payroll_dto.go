package payroll

import (
	"time"

	"go-payroll/internal/shared/apperror"
)

type ComputePayrollRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	GradeID    string `json:"grade_id" binding:"omitempty,uuid"`
	Month      int    `json:"month" binding:"required"`
	Year       int    `json:"year" binding:"required"`
	Frequency  string `json:"frequency" binding:"required"`
}

type CreatePayrollRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	Month      int    `json:"month" binding:"required"`
	Year       int    `json:"year" binding:"required"`
	Frequency  string `json:"frequency" binding:"required"`
}

type TransitionRequest struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks" binding:"max=500"`
}

type RunBatchRequest struct {
	Scope        string `json:"scope" binding:"required,oneof=employee department organization"`
	EmployeeID   string `json:"employee_id" binding:"required_if=Scope employee,omitempty,uuid"`
	DepartmentID string `json:"department_id" binding:"required_if=Scope department,omitempty,uuid"`
	Month        int    `json:"month" binding:"required"`
	Year         int    `json:"year" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
}

type BankDetailsRequest struct {
	BankName      string `json:"bank_name" binding:"max=100"`
	AccountName   string `json:"account_name" binding:"max=150"`
	AccountNumber string `json:"account_number" binding:"max=50"`
	Channel       string `json:"channel" binding:"max=50"`
}

type InitiatePaymentRequest struct {
	Method      string             `json:"method" binding:"required"`
	BankDetails BankDetailsRequest `json:"bank_details"`
	Notes       string             `json:"notes" binding:"max=500"`
}

// PaymentBatchRequest targets payrolls by id or by payment reference.
type PaymentBatchRequest struct {
	Targets []string `json:"targets" binding:"required,min=1,max=500,dive,required"`
	Remarks string   `json:"remarks" binding:"max=500"`
}

type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ApprovalEntryResponse struct {
	Level     string `json:"level"`
	Status    string `json:"status"`
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	Timestamp string `json:"timestamp"`
	Remarks   string `json:"remarks,omitempty"`
}

type PaymentDetailsResponse struct {
	Method      string      `json:"method"`
	Reference   string      `json:"reference"`
	BankDetails BankDetails `json:"bank_details"`
	Notes       string      `json:"notes,omitempty"`
	InitiatedBy string      `json:"initiated_by"`
	InitiatedAt string      `json:"initiated_at"`
}

type PeriodResponse struct {
	Month     int    `json:"month"`
	Year      int    `json:"year"`
	Frequency string `json:"frequency"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type ComputeResponse struct {
	EmployeeID string         `json:"employee_id"`
	GradeID    string         `json:"grade_id"`
	GradeLevel string         `json:"grade_level"`
	Period     PeriodResponse `json:"period"`
	Totals     Totals         `json:"totals"`
	Breakdown  Breakdown      `json:"breakdown"`
}

type PayrollResponse struct {
	ID           string                  `json:"id"`
	CompanyID    string                  `json:"company_id"`
	EmployeeID   string                  `json:"employee_id"`
	Period       PeriodResponse          `json:"period"`
	GradeLevel   string                  `json:"grade_level,omitempty"`
	Totals       Totals                  `json:"totals"`
	Breakdown    Breakdown               `json:"breakdown"`
	Status       string                  `json:"status"`
	ApprovalFlow []ApprovalEntryResponse `json:"approval_flow"`
	Payment      *PaymentDetailsResponse `json:"payment,omitempty"`
	BatchID      *string                 `json:"batch_id,omitempty"`
	CreatedBy    string                  `json:"created_by"`
	ApprovedBy   *string                 `json:"approved_by,omitempty"`
	ApprovedAt   *string                 `json:"approved_at,omitempty"`
	PaidAt       *string                 `json:"paid_at,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	UpdatedAt    string                  `json:"updated_at"`
}

type BatchSummaryResponse struct {
	ID                 string         `json:"id"`
	BatchNumber        string         `json:"batch_number"`
	Scope              string         `json:"scope"`
	TargetID           *string        `json:"target_id,omitempty"`
	Period             PeriodResponse `json:"period"`
	Attempted          int            `json:"attempted"`
	Processed          int            `json:"processed"`
	Skipped            int            `json:"skipped"`
	Failed             int            `json:"failed"`
	TotalGrossEarnings int64          `json:"total_gross_earnings"`
	TotalDeductions    int64          `json:"total_deductions"`
	TotalNetPay        int64          `json:"total_net_pay"`
	Outcomes           []BatchOutcome `json:"outcomes"`
	Warnings           []string       `json:"warnings"`
	Errors             []string       `json:"errors"`
	InitiatedBy        string         `json:"initiated_by"`
	StartedAt          string         `json:"started_at"`
	CompletedAt        string         `json:"completed_at"`
}

type PaymentResponse struct {
	ID          string      `json:"id"`
	PayrollID   string      `json:"payroll_id"`
	Reference   string      `json:"reference"`
	Amount      int64       `json:"amount"`
	Status      string      `json:"status"`
	Method      string      `json:"method,omitempty"`
	BankDetails BankDetails `json:"bank_details"`
	Notes       string      `json:"notes,omitempty"`
	Remarks     string      `json:"remarks,omitempty"`
	InitiatedBy string      `json:"initiated_by"`
	ProcessedBy *string     `json:"processed_by,omitempty"`
	ProcessedAt *string     `json:"processed_at,omitempty"`
	CreatedAt   string      `json:"created_at"`
}

type OutcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaymentOutcome struct {
	Target    string           `json:"target"`
	Success   bool             `json:"success"`
	PayrollID string           `json:"payroll_id,omitempty"`
	Status    string           `json:"status,omitempty"`
	Payment   *PaymentResponse `json:"payment,omitempty"`
	Error     *OutcomeError    `json:"error,omitempty"`
}

type PaymentBatchResponse struct {
	Requested int              `json:"requested"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Outcomes  []PaymentOutcome `json:"outcomes"`
}

func mapPeriod(p Period) PeriodResponse {
	return PeriodResponse{
		Month:     p.Month,
		Year:      p.Year,
		Frequency: string(p.Frequency),
		Start:     p.Start().Format(time.DateOnly),
		End:       p.End().Format(time.DateOnly),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func mapToResponse(p PayrollRecord) PayrollResponse {
	flow := make([]ApprovalEntryResponse, 0, len(p.ApprovalFlow))
	for _, e := range p.ApprovalFlow {
		flow = append(flow, ApprovalEntryResponse{
			Level:     e.Level,
			Status:    string(e.Status),
			Action:    e.Action,
			ActorID:   e.ActorID,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Remarks:   e.Remarks,
		})
	}

	resp := PayrollResponse{
		ID:           p.ID.String(),
		CompanyID:    p.CompanyID.String(),
		EmployeeID:   p.EmployeeID.String(),
		Period:       mapPeriod(p.Period()),
		GradeLevel:   p.GradeLevel,
		Totals:       p.Totals(),
		Breakdown:    p.Breakdown,
		Status:       string(p.Status),
		ApprovalFlow: flow,
		CreatedBy:    p.CreatedBy.String(),
		ApprovedAt:   formatTimePtr(p.ApprovedAt),
		PaidAt:       formatTimePtr(p.PaidAt),
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.BatchID != nil {
		v := p.BatchID.String()
		resp.BatchID = &v
	}
	if p.ApprovedBy != nil {
		v := p.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if p.Payment != nil {
		resp.Payment = &PaymentDetailsResponse{
			Method:      p.Payment.Method,
			Reference:   p.Payment.Reference,
			BankDetails: p.Payment.BankDetails,
			Notes:       p.Payment.Notes,
			InitiatedBy: p.Payment.InitiatedBy,
			InitiatedAt: p.Payment.InitiatedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func mapBatchToResponse(b BatchSummary) BatchSummaryResponse {
	resp := BatchSummaryResponse{
		ID:                 b.ID.String(),
		BatchNumber:        b.BatchNumber,
		Scope:              string(b.Scope),
		Period:             mapPeriod(Period{Month: b.Month, Year: b.Year, Frequency: b.Frequency}),
		Attempted:          b.Attempted,
		Processed:          b.Processed,
		Skipped:            b.Skipped,
		Failed:             b.Failed,
		TotalGrossEarnings: b.TotalGrossEarnings,
		TotalDeductions:    b.TotalDeductions,
		TotalNetPay:        b.TotalNetPay,
		Outcomes:           b.Outcomes,
		Warnings:           b.Warnings,
		Errors:             b.Errors,
		InitiatedBy:        b.InitiatedBy.String(),
		StartedAt:          b.StartedAt.UTC().Format(time.RFC3339),
		CompletedAt:        b.CompletedAt.UTC().Format(time.RFC3339),
	}
	if b.TargetID != nil {
		v := b.TargetID.String()
		resp.TargetID = &v
	}
	if resp.Outcomes == nil {
		resp.Outcomes = []BatchOutcome{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	return resp
}

func mapPaymentToResponse(p Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID.String(),
		PayrollID:   p.PayrollID.String(),
		Reference:   p.Reference,
		Amount:      p.Amount,
		Status:      string(p.Status),
		Method:      p.Method,
		BankDetails: p.BankDetails,
		Notes:       p.Notes,
		Remarks:     p.Remarks,
		InitiatedBy: p.InitiatedBy.String(),
		ProcessedAt: formatTimePtr(p.ProcessedAt),
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ProcessedBy != nil {
		v := p.ProcessedBy.String()
		resp.ProcessedBy = &v
	}
	return resp
}

func outcomeError(err error) *OutcomeError {
	httpErr := apperror.ToHTTP(err)
	return &OutcomeError{Code: httpErr.Code, Message: httpErr.Message}
}
