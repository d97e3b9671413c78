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
	// PPFMaturityYears срок PPF в финансовых годах
	PPFMaturityYears = 15
	// PPFYearlyCap законодательный лимит взносов за финансовый год
	PPFYearlyCap = 150000.0
)

// PPFDeposit один взнос в PPF; без даты считается внесенным 1 апреля
type PPFDeposit struct {
	Amount float64    `json:"amount"`
	Date   *time.Time `json:"date,omitempty"`
}

// PPFYear взносы и ставка одного финансового года
type PPFYear struct {
	Year         int          `json:"year"`
	InterestRate float64      `json:"interestRate"`
	Deposits     []PPFDeposit `json:"contributions"`
}

// PPFInput параметры расчета PPF.
// В фиксированном режиме каждый год вносится FixedAmount (в первый год на дату FirstDepositDate),
// в переменном используются Years.
type PPFInput struct {
	StartYear        int
	InterestRate     float64
	MaturityYears    int
	Variable         bool
	FixedAmount      float64
	FirstDepositDate *time.Time
	Years            []PPFYear
}

// PPFYearRow строка годовой разбивки PPF
type PPFYearRow struct {
	FiscalYear     int     `json:"fiscalYear"`
	FYLabel        string  `json:"fyLabel"`
	InterestRate   float64 `json:"interestRate"`
	OpeningBalance float64 `json:"openingBalance"`
	Contribution   float64 `json:"contribution"`
	Deposits       int     `json:"deposits"`
	InterestEarned float64 `json:"interestEarned"`
	ClosingBalance float64 `json:"closingBalance"`
}

// PPFResult итог расчета PPF
type PPFResult struct {
	StartYear                int          `json:"startYear"`
	TotalInvested            float64      `json:"totalInvested"`
	TotalInterestEarned      float64      `json:"totalInterestEarned"`
	MaturityAmount           float64      `json:"maturityAmount"`
	AbsoluteReturnPercentage float64      `json:"absoluteReturnPercentage"`
	YearlyData               []PPFYearRow `json:"yearlyData"`
}

// CalculatePPF рассчитывает накопления PPF по годам за весь срок
func CalculatePPF(in PPFInput) (*PPFResult, error) {
	maturity := in.MaturityYears
	if maturity <= 0 {
		maturity = PPFMaturityYears
	}

	var years []PPFYear
	if in.Variable {
		normalized := NormalizePPFContributions(in.Years, in.InterestRate)
		if err := checkPPFWindow(normalized, in.StartYear, maturity); err != nil {
			return nil, err
		}
		years = FillMissingPPFYears(normalized, in.StartYear, maturity, in.InterestRate)
	} else {
		years = fixedPPFYears(in, maturity)
	}

	result := AccruePPF(years)
	result.StartYear = in.StartYear
	return result, nil
}

func fixedPPFYears(in PPFInput, maturity int) []PPFYear {
	years := make([]PPFYear, maturity)
	for i := range years {
		deposit := PPFDeposit{Amount: in.FixedAmount}
		if i == 0 && in.FirstDepositDate != nil {
			d := calendar.Date(*in.FirstDepositDate)
			deposit.Date = &d
		}
		years[i] = PPFYear{
			Year:         in.StartYear + i,
			InterestRate: in.InterestRate,
			Deposits:     []PPFDeposit{deposit},
		}
	}
	return years
}

// NormalizePPFContributions переносит каждый датированный взнос в финансовый год его даты.
// Ставка года берется из введенного года с тем же номером, иначе defaultRate.
func NormalizePPFContributions(entered []PPFYear, defaultRate float64) []PPFYear {
	rates := make(map[int]float64, len(entered))
	for _, y := range entered {
		if _, ok := rates[y.Year]; !ok && y.InterestRate > 0 {
			rates[y.Year] = y.InterestRate
		}
	}

	byYear := make(map[int][]PPFDeposit)
	for _, y := range entered {
		for _, dep := range y.Deposits {
			fy := y.Year
			if dep.Date != nil {
				fy = calendar.FiscalYearOf(*dep.Date)
			}
			byYear[fy] = append(byYear[fy], dep)
		}
	}

	keys := make([]int, 0, len(byYear))
	for fy := range byYear {
		keys = append(keys, fy)
	}
	sort.Ints(keys)

	normalized := make([]PPFYear, 0, len(keys))
	for _, fy := range keys {
		rate, ok := rates[fy]
		if !ok {
			rate = defaultRate
		}
		normalized = append(normalized, PPFYear{Year: fy, InterestRate: rate, Deposits: byYear[fy]})
	}
	return normalized
}

func checkPPFWindow(years []PPFYear, startYear, maturity int) error {
	if len(years) == 0 {
		return nil
	}
	if first := years[0].Year; first < startYear {
		return fmt.Errorf("%w: contributions fall in %s, before %s",
			ErrContributionBeforeStart, calendar.FiscalYearLabel(first), calendar.FiscalYearLabel(startYear))
	}
	last := startYear + maturity - 1
	for _, y := range years {
		if y.Year > last && y.hasContribution() {
			return fmt.Errorf("%w: contributions fall in %s, after %s",
				ErrContributionAfterMaturity, calendar.FiscalYearLabel(y.Year), calendar.FiscalYearLabel(last))
		}
	}
	return nil
}

func (y PPFYear) hasContribution() bool {
	for _, d := range y.Deposits {
		if d.Amount > 0 {
			return true
		}
	}
	return false
}

// FillMissingPPFYears строит окно из maturity лет начиная со startYear.
// Год без взносов повторяет ставку и суммы последнего предыдущего года со взносами (даты сбрасываются на 1 апреля).
func FillMissingPPFYears(years []PPFYear, startYear, maturity int, defaultRate float64) []PPFYear {
	byYear := make(map[int]PPFYear, len(years))
	for _, y := range years {
		byYear[y.Year] = y
	}

	window := make([]PPFYear, 0, maturity)
	var lastCaptured *PPFYear
	for fy := startYear; fy < startYear+maturity; fy++ {
		entry, ok := byYear[fy]
		switch {
		case ok && entry.hasContribution():
			window = append(window, entry)
			captured := entry
			lastCaptured = &captured
		case lastCaptured != nil:
			deposits := make([]PPFDeposit, len(lastCaptured.Deposits))
			for i, d := range lastCaptured.Deposits {
				deposits[i] = PPFDeposit{Amount: d.Amount}
			}
			window = append(window, PPFYear{Year: fy, InterestRate: lastCaptured.InterestRate, Deposits: deposits})
		default:
			rate := defaultRate
			if ok && entry.InterestRate > 0 {
				rate = entry.InterestRate
			}
			window = append(window, PPFYear{Year: fy, InterestRate: rate})
		}
	}
	return window
}

// AccruePPF начисляет проценты по годам: остаток на начало года получает процент за полный год,
// а каждый взнос пропорционально дням от даты взноса до 31 марта.
func AccruePPF(years []PPFYear) *PPFResult {
	result := &PPFResult{YearlyData: make([]PPFYearRow, 0, len(years))}
	var balance float64

	for _, y := range years {
		rate := y.InterestRate / 100
		fyStart, fyEnd := calendar.FiscalYearBounds(y.Year)

		opening := balance
		interest := opening * rate
		var contribution float64
		for _, dep := range y.Deposits {
			if dep.Amount <= 0 {
				continue
			}
			interest += dep.Amount * rate * depositFraction(dep, fyStart, fyEnd)
			contribution += dep.Amount
		}
		balance = opening + contribution + interest

		result.TotalInvested += contribution
		result.TotalInterestEarned += interest
		result.YearlyData = append(result.YearlyData, PPFYearRow{
			FiscalYear:     y.Year,
			FYLabel:        calendar.FiscalYearLabel(y.Year),
			InterestRate:   y.InterestRate,
			OpeningBalance: opening,
			Contribution:   contribution,
			Deposits:       len(y.Deposits),
			InterestEarned: interest,
			ClosingBalance: balance,
		})
	}

	result.MaturityAmount = balance
	result.AbsoluteReturnPercentage = utils.Percent(result.TotalInterestEarned, result.TotalInvested)
	return result
}

// depositFraction доля года, за которую взнос получает процент: дни до 31 марта включительно / 365
func depositFraction(dep PPFDeposit, fyStart, fyEnd time.Time) float64 {
	date := fyStart
	if dep.Date != nil {
		date = calendar.Date(*dep.Date)
	}
	if date.Before(fyStart) {
		date = fyStart
	}
	if date.After(fyEnd) {
		return 0
	}
	days := calendar.DaysBetween(date, fyEnd) + 1
	return math.Min(1, float64(days)/365)
}
