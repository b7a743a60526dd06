package payroll_test

import (
	"testing"
	"time"

	"go-payroll/internal/payroll"
	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/stretchr/testify/assert"
)

func TestNewPeriod_Boundaries(t *testing.T) {
	tests := []struct {
		frequency string
		month     int
		year      int
		wantEnd   time.Time
		wantDays  int
	}{
		{"weekly", 3, 2026, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), 7},
		{"biweekly", 3, 2026, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 14},
		{"monthly", 2, 2024, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 29},
		{"monthly", 2, 2026, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 28},
		{"quarterly", 11, 2026, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), 92},
		{"annual", 1, 2026, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), 365},
		{"MONTHLY", 12, 2026, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), 31},
	}

	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			p, err := payroll.NewPeriod(tt.month, tt.year, tt.frequency)
			assert.NoError(t, err)
			assert.Equal(t, time.Date(tt.year, time.Month(tt.month), 1, 0, 0, 0, 0, time.UTC), p.Start())
			assert.Equal(t, tt.wantEnd, p.End())
			assert.Equal(t, tt.wantDays, p.Days())
		})
	}
}

func TestNewPeriod_Invalid(t *testing.T) {
	_, err := payroll.NewPeriod(13, 2026, "monthly")
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidPeriod)

	_, err = payroll.NewPeriod(0, 2026, "monthly")
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidPeriod)

	_, err = payroll.NewPeriod(1, 1999, "monthly")
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidPeriod)

	_, err = payroll.NewPeriod(1, 2026, "daily")
	assert.ErrorIs(t, err, payrollerrors.ErrInvalidFrequency)
}
