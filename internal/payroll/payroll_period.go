package payroll

import (
	"fmt"
	"strings"
	"time"

	payrollerrors "go-payroll/internal/payroll/errors"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

func ParseFrequency(v string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(v)))
	if !f.IsValid() {
		return "", payrollerrors.ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return true
	}
	return false
}

// advance moves t forward by one pay cycle.
func (f Frequency) advance(t time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return t.AddDate(0, 0, 14)
	case FrequencyQuarterly:
		return t.AddDate(0, 3, 0)
	case FrequencyAnnual:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

const (
	minPeriodYear = 2000
	maxPeriodYear = 2100
)

// Period is the pay window a record covers. It always starts on the first of
// Month and spans one cycle of Frequency.
type Period struct {
	Month     int
	Year      int
	Frequency Frequency
}

func NewPeriod(month, year int, frequency string) (Period, error) {
	f, err := ParseFrequency(frequency)
	if err != nil {
		return Period{}, err
	}
	p := Period{Month: month, Year: year, Frequency: f}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (p Period) Validate() error {
	if !p.Frequency.IsValid() {
		return payrollerrors.ErrInvalidFrequency
	}
	if p.Month < 1 || p.Month > 12 || p.Year < minPeriodYear || p.Year > maxPeriodYear {
		return payrollerrors.ErrInvalidPeriod
	}
	return nil
}

func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the period, inclusive.
func (p Period) End() time.Time {
	return p.Frequency.advance(p.Start()).AddDate(0, 0, -1)
}

func (p Period) Days() int {
	return int(p.End().Sub(p.Start()).Hours()/24) + 1
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d:%s", p.Year, p.Month, p.Frequency)
}
