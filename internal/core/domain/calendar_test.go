package domain

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextBusinessDay(t *testing.T) {
	holidays := []time.Time{day(2026, 3, 16)}
	cal := NewBusinessCalendar(time.UTC, holidays)
	plain := NewBusinessCalendar(time.UTC, nil)

	tests := []struct {
		name   string
		cal    *BusinessCalendar
		from   time.Time
		offset int
		want   time.Time
	}{
		{name: "friday rolls to monday", cal: plain, from: day(2026, 3, 6), offset: 1, want: day(2026, 3, 9)},
		{name: "saturday rolls to monday", cal: plain, from: day(2026, 3, 7), offset: 1, want: day(2026, 3, 9)},
		{name: "sunday rolls to monday", cal: plain, from: day(2026, 3, 8), offset: 1, want: day(2026, 3, 9)},
		{name: "monday rolls to tuesday", cal: plain, from: day(2026, 3, 9), offset: 1, want: day(2026, 3, 10)},
		{name: "time of day is ignored", cal: plain, from: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), offset: 1, want: day(2026, 3, 10)},
		{name: "offset spans weekend", cal: plain, from: day(2026, 3, 12), offset: 3, want: day(2026, 3, 17)},
		{name: "holiday monday skipped", cal: cal, from: day(2026, 3, 13), offset: 1, want: day(2026, 3, 17)},
		{name: "holiday as start is not day zero", cal: cal, from: day(2026, 3, 16), offset: 1, want: day(2026, 3, 17)},
		{name: "zero offset on weekend", cal: plain, from: day(2026, 3, 7), offset: 0, want: day(2026, 3, 9)},
		{name: "zero offset on business day", cal: plain, from: day(2026, 3, 10), offset: 0, want: day(2026, 3, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cal.NextBusinessDay(tt.from, tt.offset)
			if !got.Equal(tt.want) {
				t.Fatalf("NextBusinessDay(%s, %d) = %s, want %s", tt.from.Format(time.DateOnly), tt.offset, got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestNextBusinessDayUsesCalendarLocation(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	cal := NewBusinessCalendar(loc, nil)

	// 2026-03-07 03:00 UTC is still Friday evening in CST.
	from := time.Date(2026, 3, 7, 3, 0, 0, 0, time.UTC)
	got := cal.NextBusinessDay(from, 1)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("NextBusinessDay() = %s, want %s", got, want)
	}
}

func TestCreditAccountApplyDebit(t *testing.T) {
	account := CreditAccount{MonthlyAllowance: 1, ExtraBalance: 1}

	account, source, ok := account.ApplyDebit()
	if !ok || source != CreditSourceAllowance || account.Available() != 1 {
		t.Fatalf("first debit: ok=%v source=%s available=%d", ok, source, account.Available())
	}
	account, source, ok = account.ApplyDebit()
	if !ok || source != CreditSourceExtra || account.Available() != 0 {
		t.Fatalf("second debit: ok=%v source=%s available=%d", ok, source, account.Available())
	}
	if _, _, ok = account.ApplyDebit(); ok {
		t.Fatalf("debit must fail at zero")
	}
}
