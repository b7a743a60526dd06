package payroll

import (
	"go-payroll/internal/middleware"
	"go-payroll/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// One batch run per five seconds per user, burst of two.
const (
	batchRateLimit = rate.Limit(0.2)
	batchRateBurst = 2
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb ...*redis.Client,
) {
	var redisClient *redis.Client
	if len(rdb) > 0 {
		redisClient = rdb[0]
	}

	// the replay guard runs after authorization and rate limiting, just
	// before the final handler, so a rejected request never claims a key
	idempotent := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
		if redisClient == nil {
			return hs
		}
		last := len(hs) - 1
		chain := append([]gin.HandlerFunc{}, hs[:last]...)
		return append(chain, middleware.Idempotency(redisClient), hs[last])
	}

	payrolls := r.Group("/payrolls")
	{
		payrolls.POST("/compute", middleware.RBACAuthorize(rbacService, "payroll", "read"), handler.Compute)
		payrolls.POST("", idempotent(middleware.RBACAuthorize(rbacService, "payroll", "create"), handler.Create)...)
		payrolls.GET("/:id", middleware.RBACAuthorize(rbacService, "payroll", "read"), handler.GetByID)
		payrolls.POST("/:id/recalculate", middleware.RBACAuthorize(rbacService, "payroll", "create"), handler.Recalculate)
		payrolls.POST("/:id/transition", middleware.RBACAuthorize(rbacService, "payroll", "approve"), handler.Transition)

		payrolls.GET("/:id/payments", middleware.RBACAuthorize(rbacService, "payroll", "read"), handler.ListPayments)
		payrolls.POST("/:id/payment/initiate", middleware.RBACAuthorize(rbacService, "payroll", "pay"), handler.InitiatePayment)
		payrolls.POST("/:id/payment/cancel", middleware.RBACAuthorize(rbacService, "payroll", "pay"), handler.CancelPayment)
		payrolls.POST("/payments/mark-paid", middleware.RBACAuthorize(rbacService, "payroll", "pay"), handler.MarkPaid)
		payrolls.POST("/payments/mark-failed", middleware.RBACAuthorize(rbacService, "payroll", "pay"), handler.MarkFailed)
	}

	batches := r.Group("/payroll-batches")
	{
		batches.POST("", idempotent(
			middleware.RBACAuthorize(rbacService, "payroll", "create"),
			middleware.RateLimitByUser(batchRateLimit, batchRateBurst),
			handler.RunBatch,
		)...)
		batches.GET("/:id", middleware.RBACAuthorize(rbacService, "payroll", "read"), handler.GetBatch)
	}
}
