package validators

import (
	"fmt"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/internal/config"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

// PPFMinStartYear первый финансовый год, с которого существует PPF
const PPFMinStartYear = 1968

// ValidationError ошибка проверки одного поля
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field string, value interface{}, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// ValidatePositiveNumber проверяет, что число конечно и лежит в допустимом диапазоне
func ValidatePositiveNumber(name string, value float64, minInclusive, maxInclusive float64) error {
	if !utils.IsFinite(value) {
		return invalid(name, value, "значение не является конечным числом")
	}
	if value < minInclusive {
		return invalid(name, value, "значение должно быть ≥ %g", minInclusive)
	}
	if value > maxInclusive {
		return invalid(name, value, "значение слишком велико (>%g)", maxInclusive)
	}
	return nil
}

// ValidateIntRange проверяет, что целое число в допустимом диапазоне
func ValidateIntRange(name string, value int, minInclusive, maxInclusive int) error {
	if value < minInclusive || value > maxInclusive {
		return invalid(name, value, "значение должно быть в диапазоне [%d; %d]", minInclusive, maxInclusive)
	}
	return nil
}

// CheckPrincipal проверяет сумму вклада
func CheckPrincipal(cfg *config.Config, principal float64) error {
	return ValidatePositiveNumber("principal", principal, 1e-9, cfg.MaxPrincipal)
}

// CheckRate проверяет процентную ставку
func CheckRate(cfg *config.Config, rate float64) error {
	return ValidatePositiveNumber("annual_rate_percent", rate, 0.0, cfg.MaxRate)
}

// CheckTenure проверяет срок вклада: годы, месяцы (0-11) и дни (0-31), ненулевой в сумме
func CheckTenure(cfg *config.Config, years, months, days int) error {
	if err := ValidateIntRange("tenure_years", years, 0, cfg.MaxTenureYears); err != nil {
		return err
	}
	if err := ValidateIntRange("tenure_months", months, 0, 11); err != nil {
		return err
	}
	if err := ValidateIntRange("tenure_days", days, 0, 31); err != nil {
		return err
	}
	if years == 0 && months == 0 && days == 0 {
		return invalid("tenure", 0, "срок вклада должен быть больше нуля")
	}
	return nil
}

// CheckCompounding проверяет частоту капитализации
func CheckCompounding(c string) error {
	if _, err := calculations.Compounding(c).PeriodsPerYear(); err != nil {
		return invalid("compounding", c, "допустимые значения: monthly, quarterly, halfYearly, annually")
	}
	return nil
}

// CheckPPFStartYear проверяет стартовый финансовый год PPF
func CheckPPFStartYear(startYear int, today time.Time) error {
	return ValidateIntRange("start_year", startYear, PPFMinStartYear, calendar.FiscalYearOf(today))
}

// CheckPPFYears проверяет ставки и годовые суммы взносов PPF
func CheckPPFYears(cfg *config.Config, years []calculations.PPFYear) error {
	totals := make(map[int]float64)
	for _, y := range years {
		if err := ValidatePositiveNumber("interest_rate", y.InterestRate, 0, cfg.MaxRate); err != nil {
			return err
		}
		for _, dep := range y.Deposits {
			if err := ValidatePositiveNumber("amount", dep.Amount, 0, cfg.PPFYearlyCap); err != nil {
				return err
			}
			fy := y.Year
			if dep.Date != nil {
				fy = calendar.FiscalYearOf(*dep.Date)
			}
			totals[fy] += dep.Amount
		}
	}
	for fy, total := range totals {
		if total > cfg.PPFYearlyCap {
			return invalid("contributions", total, "взносы за %s превышают лимит %.0f",
				calendar.FiscalYearLabel(fy), cfg.PPFYearlyCap)
		}
	}
	return nil
}

// CheckSchemeCode проверяет код фонда
func CheckSchemeCode(code int) error {
	if code <= 0 {
		return invalid("scheme_code", code, "код фонда должен быть положительным")
	}
	return nil
}

// CheckDeclaration проверяет запись декларации перед сохранением или расчетом
func CheckDeclaration(cfg *config.Config, rec calculations.DeclarationRecord) error {
	decl, err := rec.Declaration()
	if err != nil {
		return invalid("investment", rec.InvestmentType, "%v", err)
	}

	switch d := decl.(type) {
	case calculations.Lumpsum:
		return ValidatePositiveNumber("amount", d.Amount, 1e-9, cfg.MaxPrincipal)
	case calculations.SIP:
		if err := ValidatePositiveNumber("sip_amount", d.Amount, 1e-9, cfg.MaxPrincipal); err != nil {
			return err
		}
		if err := ValidateIntRange("sip_monthly_date", d.MonthlyDay, 1, 31); err != nil {
			return err
		}
		if d.EndDate != nil && d.EndDate.Before(d.StartDate) {
			return invalid("sip_end_date", rec.SIPEndDate, "дата окончания раньше даты начала")
		}
		for _, m := range d.Modifications {
			if err := ValidatePositiveNumber("sip_amount_modification", m.Amount, 1e-9, cfg.MaxPrincipal); err != nil {
				return err
			}
		}
	}
	return nil
}
