package calculations

import (
	"fmt"
	"math"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

// Compounding частота капитализации вклада
type Compounding string

const (
	CompoundingMonthly    Compounding = "monthly"
	CompoundingQuarterly  Compounding = "quarterly"
	CompoundingHalfYearly Compounding = "halfYearly"
	CompoundingAnnually   Compounding = "annually"
)

// PeriodsPerYear возвращает число периодов капитализации в году
func (c Compounding) PeriodsPerYear() (int, error) {
	switch c {
	case CompoundingMonthly:
		return 12, nil
	case CompoundingQuarterly:
		return 4, nil
	case CompoundingHalfYearly:
		return 2, nil
	case CompoundingAnnually:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompounding, string(c))
	}
}

// FDInput параметры срочного вклада
type FDInput struct {
	StartDate         time.Time
	Principal         float64
	AnnualRatePercent float64
	TenureYears       int
	TenureMonths      int
	TenureDays        int
	Compounding       Compounding
}

// FYEntry строка разбивки вклада по финансовому году
type FYEntry struct {
	FYLabel        string    `json:"fyYear"`
	FiscalYear     int       `json:"fiscalYear"`
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	Days           int       `json:"days"`
	StartBalance   float64   `json:"startBalance"`
	EndBalance     float64   `json:"endBalance"`
	InterestEarned float64   `json:"interestEarned"`
}

// FDSummary сводка по вкладу
type FDSummary struct {
	Principal           float64   `json:"principal"`
	AnnualRatePercent   float64   `json:"annualRatePercent"`
	Compounding         string    `json:"compounding"`
	StartDate           time.Time `json:"startDate"`
	MaturityDate        time.Time `json:"maturityDate"`
	TotalInterestEarned float64   `json:"totalInterestEarned"`
	MaturityAmount      float64   `json:"maturityAmount"`
}

// FDResult результат расчета вклада
type FDResult struct {
	Summary FDSummary `json:"summary"`
	FYData  []FYEntry `json:"fyData"`
}

// ProjectFD рассчитывает рост срочного вклада с разбивкой по финансовым годам.
// Отрезок года считается от начала периода до 1 апреля следующего FY (или до даты погашения),
// длина года фиксирована и равна 365 дням.
func ProjectFD(cfg ConfigInterface, in FDInput) (*FDResult, error) {
	freq, err := in.Compounding.PeriodsPerYear()
	if err != nil {
		return nil, err
	}

	rate := in.AnnualRatePercent / 100.0
	start := calendar.Date(in.StartDate)
	end := calendar.AddTenure(start, in.TenureYears, in.TenureMonths, in.TenureDays)

	var balanceCap float64
	if cfg != nil {
		balanceCap = cfg.BalanceCap()
	}

	balance := in.Principal
	fyData := make([]FYEntry, 0, calendar.FiscalYearOf(end)-calendar.FiscalYearOf(start)+1)

	for fy := calendar.FiscalYearOf(start); fy <= calendar.FiscalYearOf(end); fy++ {
		fyStart, fyEnd := calendar.FiscalYearBounds(fy)
		nextStart, _ := calendar.FiscalYearBounds(fy + 1)

		periodStart := laterOf(start, fyStart)
		periodEnd := earlierOf(end, fyEnd)
		if periodStart.After(periodEnd) {
			continue
		}
		days := calendar.DaysBetween(periodStart, earlierOf(end, nextStart))
		if days <= 0 {
			continue
		}

		endBalance := compound(balance, rate, days, freq)
		if balanceCap > 0 && endBalance > balanceCap {
			return nil, fmt.Errorf("%w (проверьте ставку/срок): %.2f", ErrBalanceCap, endBalance)
		}

		fyData = append(fyData, FYEntry{
			FYLabel:        calendar.FiscalYearLabel(fy),
			FiscalYear:     fy,
			PeriodStart:    periodStart,
			PeriodEnd:      periodEnd,
			Days:           days,
			StartBalance:   balance,
			EndBalance:     endBalance,
			InterestEarned: math.Max(0, endBalance-balance),
		})
		balance = endBalance
	}

	return &FDResult{
		Summary: FDSummary{
			Principal:           in.Principal,
			AnnualRatePercent:   in.AnnualRatePercent,
			Compounding:         string(in.Compounding),
			StartDate:           start,
			MaturityDate:        end,
			TotalInterestEarned: balance - in.Principal,
			MaturityAmount:      balance,
		},
		FYData: fyData,
	}, nil
}

// compound применяет A = P(1 + r/n)^(n·t), t = days/365
func compound(principal, annualRate float64, days, freq int) float64 {
	yearsElapsed := float64(days) / 365
	ratePerPeriod := annualRate / float64(freq)
	periods := yearsElapsed * float64(freq)
	return principal * math.Pow(1+ratePerPeriod, periods)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
