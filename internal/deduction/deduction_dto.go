package deduction

type AssignDeductionRequest struct {
	EmployeeID string `json:"employee_id" binding:"required,uuid"`
	Reason     string `json:"reason" binding:"max=500"`
}

type AssignmentResponse struct {
	DeductionID string  `json:"deduction_id"`
	EmployeeID  string  `json:"employee_id"`
	IsActive    bool    `json:"is_active"`
	AssignedBy  string  `json:"assigned_by"`
	AssignedAt  string  `json:"assigned_at"`
	RemovedAt   *string `json:"removed_at,omitempty"`
}

type HistoryResponse struct {
	EmployeeID string `json:"employee_id"`
	Action     string `json:"action"`
	ActorID    string `json:"actor_id"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}
