package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const PeriodLockKeyPrefix = "payroll:lock:"

func PeriodLockKey(companyID, employeeID string, period Period) string {
	return fmt.Sprintf("%s%s:%s:%04d-%02d:%s",
		PeriodLockKeyPrefix, companyID, employeeID, period.Year, period.Month, period.Frequency)
}

// PeriodLocker serializes check-then-create for one (employee, period, frequency) key.
type PeriodLocker interface {
	// Acquire returns ok=false when another caller holds the key.
	// release is never nil and is safe to call more than once.
	Acquire(ctx context.Context, companyID, employeeID string, period Period) (release func(), ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type redisPeriodLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisPeriodLocker(rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) PeriodLocker {
	l := zap.L().Named("payroll.locker")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &redisPeriodLocker{rdb: rdb, ttl: ttl, logger: l}
}

func (l *redisPeriodLocker) Acquire(ctx context.Context, companyID, employeeID string, period Period) (func(), bool, error) {
	key := PeriodLockKey(companyID, employeeID, period)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return func() {}, false, err
	}
	if !ok {
		return func() {}, false, nil
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the caller's context may already be done
		if err := l.rdb.Eval(context.WithoutCancel(ctx), releaseScript, []string{key}, token).Err(); err != nil {
			l.logger.Warn("release payroll period lock failed", zap.String("key", key), zap.Error(err))
		}
	}, true, nil
}

type noopPeriodLocker struct{}

// NewNoopPeriodLocker relies on the unique index alone. Used when redis is not configured.
func NewNoopPeriodLocker() PeriodLocker {
	return noopPeriodLocker{}
}

func (noopPeriodLocker) Acquire(context.Context, string, string, Period) (func(), bool, error) {
	return func() {}, true, nil
}
