package payroll

import (
	"encoding/json"
	"net/http"
	"time"

	"go-payroll/internal/shared/apperror"
	"go-payroll/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

type Handler struct {
	service  Service
	batches  BatchProcessor
	payments PaymentManager
	rdb      *redis.Client
}

func NewHandler(service Service, batches BatchProcessor, payments PaymentManager) *Handler {
	return &Handler{service: service, batches: batches, payments: payments}
}

func NewHandlerWithRedis(service Service, batches BatchProcessor, payments PaymentManager, rdb *redis.Client) *Handler {
	return &Handler{service: service, batches: batches, payments: payments, rdb: rdb}
}

func getActorID(c *gin.Context) string {
	return c.GetString("employee_id")
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return false
	}
	return true
}

// releaseIdempotency drops the in-flight lock set by the idempotency
// middleware and, on success, caches the response under its key.
func (h *Handler) releaseIdempotency(c *gin.Context, resp any, ok bool) {
	if h.rdb == nil {
		return
	}
	ctx := c.Request.Context()
	if lk := c.GetString("idempotency_lock_key"); lk != "" {
		_ = h.rdb.Del(ctx, lk).Err()
	}
	if !ok {
		return
	}
	if ck := c.GetString("idempotency_cache_key"); ck != "" {
		if payload, err := json.Marshal(resp); err == nil {
			_ = h.rdb.Set(ctx, ck, payload, idempotencyTTL).Err()
		}
	}
}

func (h *Handler) Compute(c *gin.Context) {
	var req ComputePayrollRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.service.Compute(c.Request.Context(), c.GetString("company_id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreatePayrollRequest
	if !h.bind(c, &req) {
		h.releaseIdempotency(c, nil, false)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	h.releaseIdempotency(c, resp, err == nil)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetByID(c *gin.Context) {
	resp, err := h.service.GetByID(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Recalculate(c *gin.Context) {
	resp, err := h.service.RecalculateDraft(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Transition(c *gin.Context) {
	var req TransitionRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.service.Transition(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if !h.bind(c, &req) {
		h.releaseIdempotency(c, nil, false)
		return
	}

	resp, err := h.batches.RunBatch(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	h.releaseIdempotency(c, resp, err == nil)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	// partial failures are reported inside the summary
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetBatch(c *gin.Context) {
	resp, err := h.batches.GetBatch(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.payments.Initiate(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) CancelPayment(c *gin.Context) {
	var req CancelPaymentRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}

	resp, err := h.payments.Cancel(c.Request.Context(), c.GetString("company_id"), getActorID(c), c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ListPayments(c *gin.Context) {
	resp, err := h.payments.ListPayments(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, &response.Meta{Total: int64(len(resp))})
}

func (h *Handler) MarkPaid(c *gin.Context) {
	var req PaymentBatchRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.payments.MarkPaid(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) MarkFailed(c *gin.Context) {
	var req PaymentBatchRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.payments.MarkFailed(c.Request.Context(), c.GetString("company_id"), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
