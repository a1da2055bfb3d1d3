package usage

import (
	"context"
	"testing"
)

type stubBudget struct {
	dailyLimit, monthlyLimit int64
	dailyUsed, monthlyUsed   int64
	remDaily, remMonthly     int64
}

func (s *stubBudget) DailyLimit() int64       { return s.dailyLimit }
func (s *stubBudget) MonthlyLimit() int64     { return s.monthlyLimit }
func (s *stubBudget) DailyUsed() int64        { return s.dailyUsed }
func (s *stubBudget) MonthlyUsed() int64      { return s.monthlyUsed }
func (s *stubBudget) RemainingDaily() int64   { return s.remDaily }
func (s *stubBudget) RemainingMonthly() int64 { return s.remMonthly }

func TestGetReport_Day(t *testing.T) {
	svc := New(&stubBudget{dailyLimit: 1000, dailyUsed: 300, remDaily: 700})

	r := svc.GetReport(context.Background(), PeriodDay)
	if r.Limit != 1000 || r.Used != 300 || r.Remaining != 700 {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.Exhausted {
		t.Error("should not be exhausted")
	}
	if !r.End.After(r.Start) || r.End.Sub(r.Start).Hours() != 24 {
		t.Errorf("window = %v..%v", r.Start, r.End)
	}
}

func TestGetReport_MonthExhausted(t *testing.T) {
	svc := New(&stubBudget{monthlyLimit: 500, monthlyUsed: 500, remMonthly: 0})

	r := svc.GetReport(context.Background(), PeriodMonth)
	if !r.Exhausted {
		t.Error("expected exhausted report")
	}
	if r.Period != PeriodMonth {
		t.Errorf("period = %q", r.Period)
	}
}

func TestGetReport_NoBudgetIsUnlimited(t *testing.T) {
	svc := New(nil)

	r := svc.GetReport(context.Background(), PeriodDay)
	if r.Limit != 0 || r.Remaining != -1 || r.Exhausted {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestParsePeriod(t *testing.T) {
	if ParsePeriod("month") != PeriodMonth {
		t.Error("month not parsed")
	}
	if ParsePeriod("") != PeriodDay || ParsePeriod("bogus") != PeriodDay {
		t.Error("default should be day")
	}
}
