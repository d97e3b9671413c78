package calculations

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

const (
	xirrInitialGuess  = 0.10
	xirrMaxIterations = 100
	xirrTolerance     = 1e-6
	daysPerYearXIRR   = 365.25
)

// Valuation оценка одной декларации
type Valuation struct {
	Units          float64 `json:"units"`
	InvestedAmount float64 `json:"investedAmount"`
	CurrentValue   float64 `json:"currentValue"`
}

// InvestmentMetrics сводные показатели по фонду
type InvestmentMetrics struct {
	TotalInvested    float64 `json:"totalInvested"`
	CurrentValue     float64 `json:"currentValue"`
	AbsoluteGain     float64 `json:"absoluteGain"`
	PercentageReturn float64 `json:"percentageReturn"`
	Units            float64 `json:"units"`
}

// CashFlow денежный поток с датой: отрицательный для покупок, положительный для оценки
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// XIRRResult годовая доходность XIRR в процентах и признак сходимости метода Ньютона
type XIRRResult struct {
	RatePercent float64 `json:"ratePercent"`
	Converged   bool    `json:"converged"`
	Iterations  int     `json:"iterations"`
}

// ValueDeclaration оценивает одну декларацию по последнему NAV истории
func ValueDeclaration(decl Declaration, history *NAVHistory, asOf time.Time) Valuation {
	asOf = calendar.Date(asOf)
	currentNav := history.LatestNAV()

	switch d := decl.(type) {
	case Lumpsum:
		if !d.StartDate.Before(asOf) {
			return Valuation{}
		}
		nav, units := price(history, d.StartDate, d.Amount)
		if nav == 0 {
			return Valuation{InvestedAmount: d.Amount}
		}
		v := Valuation{Units: units, InvestedAmount: d.Amount}
		if currentNav > 0 {
			v.CurrentValue = units * currentNav
		}
		return v
	case SIP:
		var v Valuation
		for _, date := range d.ScheduledDates(asOf) {
			amount := d.AmountOn(date)
			nav, units := price(history, date, amount)
			if nav <= 0 || amount <= 0 {
				continue
			}
			v.Units += units
			v.InvestedAmount += amount
		}
		if currentNav > 0 {
			v.CurrentValue = v.Units * currentNav
		}
		return v
	default:
		return Valuation{}
	}
}

// Valuate суммирует оценки всех деклараций одного фонда
func Valuate(decls []Declaration, history *NAVHistory, asOf time.Time) InvestmentMetrics {
	if history.Len() == 0 {
		return InvestmentMetrics{}
	}

	var m InvestmentMetrics
	for _, decl := range decls {
		v := ValueDeclaration(decl, history, asOf)
		m.TotalInvested += v.InvestedAmount
		m.CurrentValue += v.CurrentValue
		m.Units += v.Units
	}
	m.AbsoluteGain = m.CurrentValue - m.TotalInvested
	m.PercentageReturn = utils.Percent(m.AbsoluteGain, m.TotalInvested)
	return m
}

// CashFlows строит потоки для XIRR: покупки со знаком минус и текущая стоимость на asOf
func CashFlows(decls []Declaration, history *NAVHistory, asOf time.Time) []CashFlow {
	asOf = calendar.Date(asOf)
	var flows []CashFlow
	var currentValue float64

	for _, decl := range decls {
		switch d := decl.(type) {
		case Lumpsum:
			if d.StartDate.Before(asOf) {
				flows = append(flows, CashFlow{Date: d.StartDate, Amount: -d.Amount})
			}
		case SIP:
			for _, date := range d.ScheduledDates(asOf) {
				flows = append(flows, CashFlow{Date: date, Amount: -d.AmountOn(date)})
			}
		}
		currentValue += ValueDeclaration(decl, history, asOf).CurrentValue
	}

	flows = append(flows, CashFlow{Date: asOf, Amount: currentValue})
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Date.Before(flows[j].Date)
	})
	return flows
}

// XIRR рассчитывает денежно-взвешенную доходность деклараций фонда
func XIRR(decls []Declaration, history *NAVHistory, asOf time.Time) XIRRResult {
	if len(decls) == 0 || history.Len() == 0 {
		return XIRRResult{}
	}
	return SolveXIRR(CashFlows(decls, history, asOf))
}

// SolveXIRR решает Σ cf·(1+r)^(-days/365.25) = 0 методом Ньютона-Рафсона.
// Converged=false означает, что за 100 итераций |NPV| не опустился ниже 1e-6.
func SolveXIRR(flows []CashFlow) XIRRResult {
	if len(flows) < 2 {
		return XIRRResult{}
	}
	flows = append([]CashFlow(nil), flows...)
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Date.Before(flows[j].Date)
	})

	base := flows[0].Date
	rate := xirrInitialGuess
	for i := 0; i < xirrMaxIterations; i++ {
		var npv, derivative float64
		for _, cf := range flows {
			years := cf.Date.Sub(base).Hours() / 24 / daysPerYearXIRR
			discount := math.Pow(1+rate, -years)
			npv += cf.Amount * discount
			derivative += -years * cf.Amount * discount / (1 + rate)
		}

		if math.Abs(npv) < xirrTolerance {
			return XIRRResult{RatePercent: rate * 100, Converged: true, Iterations: i + 1}
		}
		if derivative == 0 || !utils.IsFinite(npv) || !utils.IsFinite(derivative) {
			return XIRRResult{RatePercent: rate * 100, Iterations: i + 1}
		}
		rate -= npv / derivative
	}
	return XIRRResult{RatePercent: rate * 100, Iterations: xirrMaxIterations}
}

// CAGR рассчитывает среднегодовой рост от самой ранней декларации до asOf
func CAGR(decls []Declaration, history *NAVHistory, asOf time.Time) float64 {
	if len(decls) == 0 || history.Len() == 0 {
		return 0
	}

	earliest := decls[0].Start()
	for _, d := range decls[1:] {
		if d.Start().Before(earliest) {
			earliest = d.Start()
		}
	}
	years := calendar.YearsBetween(earliest, asOf)
	if years <= 0 {
		return 0
	}

	m := Valuate(decls, history, asOf)
	if m.TotalInvested <= 0 {
		return 0
	}
	return (math.Pow(m.CurrentValue/m.TotalInvested, 1/years) - 1) * 100
}

// InvestmentDuration возвращает срок от самой ранней декларации до asOf: "1 year 3 months"
func InvestmentDuration(decls []Declaration, asOf time.Time) string {
	if len(decls) == 0 {
		return "0 months"
	}
	earliest := decls[0].Start()
	for _, d := range decls[1:] {
		if d.Start().Before(earliest) {
			earliest = d.Start()
		}
	}

	total := calendar.MonthsBetween(earliest, asOf)
	if total < 0 {
		total = 0
	}
	if total < 12 {
		return plural(total, "month")
	}
	years, months := total/12, total%12
	if months == 0 {
		return plural(years, "year")
	}
	return plural(years, "year") + " " + plural(months, "month")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
