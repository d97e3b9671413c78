// Package calendar содержит календарную арифметику: индийский финансовый год
// (апрель–март), разбор дат в формате DD-MM-YYYY и помесячные сдвиги.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout формат дат NAV-источника и хранилища
const DateLayout = "02-01-2006"

// FiscalYearStartMonth месяц начала финансового года
const FiscalYearStartMonth = time.April

// Date нормализует момент времени до полуночи UTC того же календарного дня
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDate строит дату без времени
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущую дату без времени
func Today() time.Time {
	return Date(time.Now())
}

// ParseDate разбирает дату в формате DD-MM-YYYY (также принимает YYYY-MM-DD)
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected DD-MM-YYYY", s)
}

// FormatDate форматирует дату как DD-MM-YYYY
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FiscalYearOf возвращает финансовый год даты
func FiscalYearOf(t time.Time) int {
	if t.Month() >= FiscalYearStartMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// FiscalYearBounds возвращает 1 апреля fy и 31 марта fy+1
func FiscalYearBounds(fy int) (time.Time, time.Time) {
	return NewDate(fy, FiscalYearStartMonth, 1), NewDate(fy+1, time.March, 31)
}

// FiscalYearLabel возвращает подпись вида "FY 2023-24"
func FiscalYearLabel(fy int) string {
	return fmt.Sprintf("FY %d-%02d", fy, (fy+1)%100)
}

// DaysBetween возвращает число целых дней от a до b (отрицательное, если b раньше a)
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// DaysIn возвращает количество дней в месяце
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthlyOccurrence возвращает day-е число месяца, отстоящего от anchor на n месяцев.
// День, которого нет в месяце, прижимается к последнему дню месяца.
func MonthlyOccurrence(anchor time.Time, day, n int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return first.AddDate(0, 0, day-1)
}

// AddTenure прибавляет к дате годы, месяцы и дни срока вклада
func AddTenure(t time.Time, years, months, days int) time.Time {
	return Date(t).AddDate(years, months, 0).AddDate(0, 0, days)
}

// YearsBetween возвращает дробное число лет между датами (год = 365.25 дня)
func YearsBetween(a, b time.Time) float64 {
	return float64(DaysBetween(a, b)) / 365.25
}

// MonthsBetween возвращает число полных месяцев от a до b
func MonthsBetween(a, b time.Time) int {
	a, b = Date(a), Date(b)
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}
