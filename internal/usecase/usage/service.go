// Package usage reports embedding token consumption against the configured
// budget windows.
package usage

import (
	"context"
	"time"
)

// Period selects the reporting window.
type Period string

// Reporting periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a raw request value onto a period, defaulting to day.
func ParsePeriod(raw string) Period {
	if raw == string(PeriodMonth) {
		return PeriodMonth
	}
	return PeriodDay
}

// Report is the token usage for one budget window. Limit 0 means unlimited;
// Remaining is -1 then.
type Report struct {
	Period    Period    `json:"period"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Limit     int64     `json:"limit"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	Exhausted bool      `json:"exhausted"`
}

// Service handles usage reporting.
type Service struct {
	br BudgetReader
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := time.Now().UTC()
	report := Report{Period: period, Remaining: -1}

	switch period {
	case PeriodMonth:
		report.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		report.End = report.Start.AddDate(0, 1, 0)
		if s.br != nil {
			report.Limit = s.br.MonthlyLimit()
			report.Used = s.br.MonthlyUsed()
			report.Remaining = s.br.RemainingMonthly()
		}
	default:
		report.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		report.End = report.Start.Add(24 * time.Hour)
		if s.br != nil {
			report.Limit = s.br.DailyLimit()
			report.Used = s.br.DailyUsed()
			report.Remaining = s.br.RemainingDaily()
		}
	}

	report.Exhausted = report.Limit > 0 && report.Remaining <= 0
	return report
}
