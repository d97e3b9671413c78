package calendar

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFiscalYearOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{name: "april first", date: NewDate(2023, time.April, 1), want: 2023},
		{name: "march end", date: NewDate(2024, time.March, 31), want: 2023},
		{name: "january", date: NewDate(2019, time.January, 10), want: 2018},
		{name: "december", date: NewDate(2019, time.December, 31), want: 2019},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FiscalYearOf(tt.date); got != tt.want {
				t.Errorf("FiscalYearOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFiscalYearLabel(t *testing.T) {
	if got := FiscalYearLabel(2023); got != "FY 2023-24" {
		t.Errorf("FiscalYearLabel(2023) = %q", got)
	}
	if got := FiscalYearLabel(2099); got != "FY 2099-00" {
		t.Errorf("FiscalYearLabel(2099) = %q", got)
	}
}

func TestFiscalYearRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("bounds of FiscalYearOf(d) contain d", prop.ForAll(
		func(offset int) bool {
			d := NewDate(1990, time.January, 1).AddDate(0, 0, offset)
			start, end := FiscalYearBounds(FiscalYearOf(d))
			return !d.Before(start) && !d.After(end)
		},
		gen.IntRange(0, 60*366),
	))

	properties.TestingRun(t)
}

func TestParseFormatDate(t *testing.T) {
	d, err := ParseDate("05-01-2023")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if !d.Equal(NewDate(2023, time.January, 5)) {
		t.Errorf("ParseDate() = %v", d)
	}
	if got := FormatDate(d); got != "05-01-2023" {
		t.Errorf("FormatDate() = %q", got)
	}
	if _, err := ParseDate("2023-01-05"); err != nil {
		t.Errorf("ISO date rejected: %v", err)
	}
	if _, err := ParseDate("5 Jan"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestMonthlyOccurrence(t *testing.T) {
	anchor := NewDate(2023, time.January, 15)
	tests := []struct {
		name string
		day  int
		n    int
		want time.Time
	}{
		{name: "same month", day: 5, n: 0, want: NewDate(2023, time.January, 5)},
		{name: "clamps february", day: 31, n: 1, want: NewDate(2023, time.February, 28)},
		{name: "no drift after clamp", day: 31, n: 2, want: NewDate(2023, time.March, 31)},
		{name: "leap february", day: 30, n: 13, want: NewDate(2024, time.February, 29)},
		{name: "crosses year", day: 10, n: 12, want: NewDate(2024, time.January, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthlyOccurrence(anchor, tt.day, tt.n); !got.Equal(tt.want) {
				t.Errorf("MonthlyOccurrence() = %s, want %s", FormatDate(got), FormatDate(tt.want))
			}
		})
	}
}

func TestDaysAndMonthsBetween(t *testing.T) {
	if got := DaysBetween(NewDate(2023, time.January, 5), NewDate(2023, time.January, 7)); got != 2 {
		t.Errorf("DaysBetween() = %d, want 2", got)
	}
	if got := DaysBetween(NewDate(2023, time.January, 10), NewDate(2023, time.January, 7)); got != -3 {
		t.Errorf("DaysBetween() = %d, want -3", got)
	}
	if got := MonthsBetween(NewDate(2022, time.October, 20), NewDate(2024, time.January, 19)); got != 14 {
		t.Errorf("MonthsBetween() = %d, want 14", got)
	}
}

func TestAddTenure(t *testing.T) {
	got := AddTenure(NewDate(2021, time.April, 1), 5, 0, 0)
	if !got.Equal(NewDate(2026, time.April, 1)) {
		t.Errorf("AddTenure() = %s", FormatDate(got))
	}
	got = AddTenure(NewDate(2023, time.January, 31), 0, 1, 10)
	if !got.Equal(NewDate(2023, time.March, 13)) {
		t.Errorf("AddTenure() overflow = %s", FormatDate(got))
	}
}
