package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-payroll/internal/middleware"
	"go-payroll/internal/rbac"
	"go-payroll/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	assert.NoError(t, err)
	return token
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestAuthMiddleware(t *testing.T) {
	valid := jwt.MapClaims{
		"user_id":     "user-1",
		"employee_id": "emp-1",
		"company_id":  "company-1",
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
	expired := jwt.MapClaims{
		"user_id":     "user-1",
		"employee_id": "emp-1",
		"company_id":  "company-1",
		"exp":         time.Now().Add(-time.Hour).Unix(),
	}
	noEmployee := jwt.MapClaims{"user_id": "user-1", "company_id": "company-1"}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + signToken(t, valid), http.StatusOK, "emp-1|company-1"},
		{"missing token", "", http.StatusUnauthorized, "token not found"},
		{"expired token", "Bearer " + signToken(t, expired), http.StatusUnauthorized, "token expired"},
		{"missing employee claim", "Bearer " + signToken(t, noEmployee), http.StatusUnauthorized, "invalid token"},
		{"not a bearer header", "Basic abc", http.StatusUnauthorized, "token not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
				ctx := c.Request.Context()
				c.String(http.StatusOK, contextutil.GetActorID(ctx)+"|"+contextutil.GetCompanyID(ctx))
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

type fakeEnforcer struct {
	allowed bool
	err     error
	got     rbac.EnforceRequest
}

func (f *fakeEnforcer) Enforce(req rbac.EnforceRequest) (bool, error) {
	f.got = req
	return f.allowed, f.err
}

func TestRBACAuthorize(t *testing.T) {
	tests := []struct {
		name       string
		enforcer   *fakeEnforcer
		withAuth   bool
		wantStatus int
	}{
		{"allowed", &fakeEnforcer{allowed: true}, true, http.StatusOK},
		{"denied", &fakeEnforcer{}, true, http.StatusForbidden},
		{"enforcer error", &fakeEnforcer{err: errors.New("boom")}, true, http.StatusInternalServerError},
		{"no auth context", &fakeEnforcer{allowed: true}, false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter()
			r.POST("/payrolls/:id/transition", func(c *gin.Context) {
				if tt.withAuth {
					c.Set("employee_id", "emp-1")
					c.Set("company_id", "company-1")
				}
				c.Next()
			}, middleware.RBACAuthorize(tt.enforcer, "payroll", "approve"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payrolls/x/transition", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.withAuth {
				assert.Equal(t, rbac.EnforceRequest{EmployeeID: "emp-1", CompanyID: "company-1", Resource: "payroll", Action: "approve"}, tt.enforcer.got)
			}
		})
	}
}

func TestRateLimitByUser(t *testing.T) {
	r := newRouter()
	r.POST("/payroll-batches", func(c *gin.Context) {
		c.Set("employee_id", "emp-1")
		c.Next()
	}, middleware.RateLimitByUser(rate.Limit(0.001), 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payroll-batches", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIdempotency(t *testing.T) {
	const cacheKey = "idemp:/payrolls:emp-1:key-1"

	t.Run("replays cached response", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).SetVal(`{"id":"p-1"}`)

		called := false
		r := newRouter()
		r.POST("/payrolls", func(c *gin.Context) {
			c.Set("employee_id", "emp-1")
			c.Next()
		}, middleware.Idempotency(rdb), func(c *gin.Context) {
			called = true
		})

		req := httptest.NewRequest(http.MethodPost, "/payrolls", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"id":"p-1"`)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects in-flight duplicate", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(false)

		r := newRouter()
		r.POST("/payrolls", func(c *gin.Context) {
			c.Set("employee_id", "emp-1")
			c.Next()
		}, middleware.Idempotency(rdb), func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})

		req := httptest.NewRequest(http.MethodPost, "/payrolls", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first request takes the lock", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		mock.ExpectGet(cacheKey).RedisNil()
		mock.ExpectSetNX(cacheKey+":lock", "locked", 30*time.Second).SetVal(true)

		var lockKey string
		r := newRouter()
		r.POST("/payrolls", func(c *gin.Context) {
			c.Set("employee_id", "emp-1")
			c.Next()
		}, middleware.Idempotency(rdb), func(c *gin.Context) {
			lockKey = c.GetString("idempotency_lock_key")
			c.Status(http.StatusCreated)
		})

		req := httptest.NewRequest(http.MethodPost, "/payrolls", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, cacheKey+":lock", lockKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
