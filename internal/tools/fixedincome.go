package tools

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/validators"
)

// PPFMinYearlyAmount минимальный годовой взнос PPF
const PPFMinYearlyAmount = 500.0

type fdParams struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	StartDate         string  `json:"start_date"`
	TenureYears       int     `json:"tenure_years"`
	TenureMonths      int     `json:"tenure_months"`
	TenureDays        int     `json:"tenure_days"`
	Compounding       string  `json:"compounding"`
}

// FDProjectionHandler обработчик расчета срочного вклада
func FDProjectionHandler(d Deps) ToolHandler {
	return instrument(d, "fd_projection", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		// Извлекаем параметры
		var p fdParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Compounding == "" {
			p.Compounding = string(calculations.CompoundingQuarterly)
		}

		span.SetAttributes(
			attribute.Float64("principal", p.Principal),
			attribute.Float64("annual_rate_percent", p.AnnualRatePercent),
			attribute.Int("tenure_years", p.TenureYears),
			attribute.Int("tenure_months", p.TenureMonths),
			attribute.Int("tenure_days", p.TenureDays),
			attribute.String("compounding", p.Compounding),
		)

		// Валидация
		start, err := parseDateParam("start_date", p.StartDate, d.Now())
		if err != nil {
			return nil, err
		}
		if err := validators.CheckPrincipal(d.Config, p.Principal); err != nil {
			return nil, invalidParams(err)
		}
		if err := validators.CheckRate(d.Config, p.AnnualRatePercent); err != nil {
			return nil, invalidParams(err)
		}
		if err := validators.CheckTenure(d.Config, p.TenureYears, p.TenureMonths, p.TenureDays); err != nil {
			return nil, invalidParams(err)
		}
		if err := validators.CheckCompounding(p.Compounding); err != nil {
			return nil, invalidParams(err)
		}

		// Расчет
		result, err := calculations.ProjectFD(d.Config, calculations.FDInput{
			StartDate:         start,
			Principal:         p.Principal,
			AnnualRatePercent: p.AnnualRatePercent,
			TenureYears:       p.TenureYears,
			TenureMonths:      p.TenureMonths,
			TenureDays:        p.TenureDays,
			Compounding:       calculations.Compounding(p.Compounding),
		})
		if err != nil {
			return nil, calculationFailed(err)
		}

		span.SetAttributes(attribute.Float64("maturity_amount", result.Summary.MaturityAmount))
		return result, nil
	})
}

type ppfContributionParam struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type ppfYearParam struct {
	Year          int                    `json:"year"`
	InterestRate  float64                `json:"interest_rate"`
	Contributions []ppfContributionParam `json:"contributions"`
}

type ppfParams struct {
	StartYear        int            `json:"start_year"`
	InterestRate     float64        `json:"interest_rate"`
	Mode             string         `json:"mode"`
	YearlyAmount     float64        `json:"yearly_amount"`
	FirstDepositDate string         `json:"first_deposit_date"`
	Years            []ppfYearParam `json:"years"`
}

// PPFProjectionHandler обработчик расчета PPF в фиксированном или переменном режиме
func PPFProjectionHandler(d Deps) ToolHandler {
	return instrument(d, "ppf_projection", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		var p ppfParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Mode == "" {
			p.Mode = "fixed"
		}
		if p.InterestRate == 0 {
			p.InterestRate = d.Config.PPFDefaultRate
		}

		span.SetAttributes(
			attribute.Int("start_year", p.StartYear),
			attribute.String("mode", p.Mode),
			attribute.Float64("interest_rate", p.InterestRate),
		)

		if err := validators.CheckPPFStartYear(p.StartYear, d.Now()); err != nil {
			return nil, invalidParams(err)
		}
		if err := validators.CheckRate(d.Config, p.InterestRate); err != nil {
			return nil, invalidParams(err)
		}

		in := calculations.PPFInput{
			StartYear:     p.StartYear,
			InterestRate:  p.InterestRate,
			MaturityYears: d.Config.PPFMaturityYears,
		}

		switch p.Mode {
		case "fixed":
			if err := validators.ValidatePositiveNumber("yearly_amount", p.YearlyAmount, PPFMinYearlyAmount, d.Config.PPFYearlyCap); err != nil {
				return nil, invalidParams(err)
			}
			in.FixedAmount = p.YearlyAmount
			if p.FirstDepositDate != "" {
				first, err := parseDateParam("first_deposit_date", p.FirstDepositDate, d.Now())
				if err != nil {
					return nil, err
				}
				in.FirstDepositDate = &first
			}
		case "variable":
			years, err := ppfYears(p.Years)
			if err != nil {
				return nil, err
			}
			if err := validators.CheckPPFYears(d.Config, years); err != nil {
				return nil, invalidParams(err)
			}
			in.Variable = true
			in.Years = years
		default:
			return nil, invalidParams(&validators.ValidationError{
				Field: "mode", Value: p.Mode, Message: "допустимые значения: fixed, variable",
			})
		}

		result, err := calculations.CalculatePPF(in)
		if err != nil {
			return nil, calculationFailed(err)
		}

		span.SetAttributes(attribute.Float64("maturity_amount", result.MaturityAmount))
		return result, nil
	})
}

func ppfYears(params []ppfYearParam) ([]calculations.PPFYear, error) {
	years := make([]calculations.PPFYear, 0, len(params))
	for i, yp := range params {
		year := calculations.PPFYear{Year: yp.Year, InterestRate: yp.InterestRate}
		for j, cp := range yp.Contributions {
			dep := calculations.PPFDeposit{Amount: cp.Amount}
			if cp.Date != "" {
				date, err := parseDateParam(fmt.Sprintf("years[%d].contributions[%d].date", i, j), cp.Date, time.Time{})
				if err != nil {
					return nil, err
				}
				dep.Date = &date
			}
			year.Deposits = append(year.Deposits, dep)
		}
		years = append(years, year)
	}
	return years, nil
}
