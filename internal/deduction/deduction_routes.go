package deduction

import (
	"go-payroll/internal/middleware"
	"go-payroll/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	deductions := r.Group("/deductions")
	{
		deductions.GET("/:id/history", middleware.RBACAuthorize(rbacService, "deduction", "read"), handler.History)
		deductions.POST("/:id/assignments", middleware.RBACAuthorize(rbacService, "deduction", "assign"), handler.Assign)
		deductions.DELETE("/:id/assignments/:employeeId", middleware.RBACAuthorize(rbacService, "deduction", "assign"), handler.Remove)
	}
}
