package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-ru/mcp-fintools-go/internal/calculations"
	"github.com/cloud-ru/mcp-fintools-go/internal/logging"
	"github.com/cloud-ru/mcp-fintools-go/internal/metrics"
	"github.com/cloud-ru/mcp-fintools-go/internal/validators"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

type schemeParams struct {
	SchemeCode  int                              `json:"scheme_code"`
	Investments []calculations.DeclarationRecord `json:"investments"`
	AsOf        string                           `json:"as_of"`
}

// InstallmentsResult список взносов по фонду
type InstallmentsResult struct {
	SchemeCode   int                        `json:"schemeCode"`
	SchemeName   string                     `json:"schemeName"`
	Installments []calculations.Installment `json:"installments"`
}

// ValuationResult оценка вложений в фонд
type ValuationResult struct {
	SchemeCode    int                            `json:"schemeCode"`
	SchemeName    string                         `json:"schemeName"`
	LatestNAV     float64                        `json:"latestNav"`
	LatestNAVDate *time.Time                     `json:"latestNavDate,omitempty"`
	Metrics       calculations.InvestmentMetrics `json:"metrics"`
	XIRR          calculations.XIRRResult        `json:"xirr"`
	CAGR          float64                        `json:"cagr"`
	Duration      string                         `json:"duration"`
}

// SchemeReturnsResult доходность фонда по окнам
type SchemeReturnsResult struct {
	SchemeCode int                            `json:"schemeCode"`
	SchemeName string                         `json:"schemeName"`
	LatestNAV  float64                        `json:"latestNav"`
	Returns    []calculations.TimeframeReturn `json:"returns"`
}

// TimelineResult история стоимости портфеля
type TimelineResult struct {
	Snapshots   []calculations.PortfolioSnapshot `json:"snapshots"`
	Statistics  calculations.TimelineStatistics  `json:"statistics"`
	TotalPoints int                              `json:"totalPoints"`
}

// MFInstallmentsHandler обработчик списка взносов по декларациям фонда
func MFInstallmentsHandler(d Deps) ToolHandler {
	return instrument(d, "mf_installments", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		p, decls, asOf, err := schemeInput(d, params, true)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(
			attribute.Int("scheme_code", p.SchemeCode),
			attribute.Int("declarations", len(decls)),
		)

		scheme, err := d.NAV.History(ctx, p.SchemeCode, d.Config.NAVHistoryYears)
		if err != nil {
			return nil, navFailed(err)
		}

		installments := calculations.GenerateInstallments(decls, scheme.History, asOf)
		span.SetAttributes(attribute.Int("installments", len(installments)))
		logger := logging.FromContext(ctx)
		logger.Debug().
			Int("scheme_code", p.SchemeCode).
			Int("installments", len(installments)).
			Msg("installments generated")

		return &InstallmentsResult{
			SchemeCode:   p.SchemeCode,
			SchemeName:   scheme.Meta.SchemeName,
			Installments: installments,
		}, nil
	})
}

// MFValuationHandler обработчик оценки вложений в фонд
func MFValuationHandler(d Deps) ToolHandler {
	return instrument(d, "mf_valuation", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		p, decls, asOf, err := schemeInput(d, params, true)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(
			attribute.Int("scheme_code", p.SchemeCode),
			attribute.Int("declarations", len(decls)),
		)

		scheme, err := d.NAV.History(ctx, p.SchemeCode, d.Config.NAVHistoryYears)
		if err != nil {
			return nil, navFailed(err)
		}

		history := scheme.History.Until(asOf)
		m := calculations.Valuate(decls, history, asOf)
		xirr := calculations.XIRR(decls, history, asOf)
		if !xirr.Converged {
			metrics.XIRRNonConverged.Inc()
			logger := logging.FromContext(ctx)
			logger.Warn().
				Int("scheme_code", p.SchemeCode).
				Int("iterations", xirr.Iterations).
				Msg("xirr did not converge")
		}

		result := &ValuationResult{
			SchemeCode: p.SchemeCode,
			SchemeName: scheme.Meta.SchemeName,
			LatestNAV:  history.LatestNAV(),
			Metrics: calculations.InvestmentMetrics{
				TotalInvested:    utils.Round2(m.TotalInvested),
				CurrentValue:     utils.Round2(m.CurrentValue),
				AbsoluteGain:     utils.Round2(m.AbsoluteGain),
				PercentageReturn: utils.Round2(m.PercentageReturn),
				Units:            m.Units,
			},
			XIRR: calculations.XIRRResult{
				RatePercent: utils.Round2(xirr.RatePercent),
				Converged:   xirr.Converged,
				Iterations:  xirr.Iterations,
			},
			CAGR:     utils.Round2(calculations.CAGR(decls, history, asOf)),
			Duration: calculations.InvestmentDuration(decls, asOf),
		}
		if latest, ok := history.Latest(); ok {
			date := latest.Date
			result.LatestNAVDate = &date
		}

		span.SetAttributes(
			attribute.Float64("current_value", result.Metrics.CurrentValue),
			attribute.Bool("xirr_converged", xirr.Converged),
		)
		return result, nil
	})
}

type holdingParam struct {
	SchemeCode  int                              `json:"scheme_code"`
	Investments []calculations.DeclarationRecord `json:"investments"`
}

type timelineParams struct {
	Holdings []holdingParam `json:"holdings"`
	Points   int            `json:"points"`
	AsOf     string         `json:"as_of"`
}

// PortfolioTimelineHandler обработчик истории стоимости портфеля.
// Без holdings в параметрах берет вложения из хранилища.
func PortfolioTimelineHandler(d Deps) ToolHandler {
	return instrument(d, "portfolio_timeline", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		var p timelineParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		asOf, err := parseDateParam("as_of", p.AsOf, d.Now())
		if err != nil {
			return nil, err
		}
		if p.Points < 0 {
			return nil, invalidParams(&validators.ValidationError{Field: "points", Value: p.Points, Message: "число точек не может быть отрицательным"})
		}

		holdings, err := timelineHoldings(ctx, d, p.Holdings)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("holdings", len(holdings)))
		if len(holdings) == 0 {
			return &TimelineResult{Snapshots: []calculations.PortfolioSnapshot{}}, nil
		}

		codes := make([]int, 0, len(holdings))
		for _, h := range holdings {
			codes = append(codes, h.SchemeCode)
		}
		schemes, err := d.NAV.FetchMany(ctx, codes, d.Config.NAVHistoryYears)
		if err != nil {
			return nil, navFailed(err)
		}
		histories := make(map[int]*calculations.NAVHistory, len(schemes))
		for code, s := range schemes {
			histories[code] = s.History.Until(asOf)
		}

		snapshots := calculations.PortfolioTimeline(holdings, histories, asOf)
		result := &TimelineResult{
			Snapshots:   calculations.ResampleTimeline(snapshots, p.Points),
			Statistics:  calculations.TimelineStats(snapshots),
			TotalPoints: len(snapshots),
		}
		if result.Snapshots == nil {
			result.Snapshots = []calculations.PortfolioSnapshot{}
		}

		span.SetAttributes(
			attribute.Int("total_points", result.TotalPoints),
			attribute.Int("returned_points", len(result.Snapshots)),
		)
		return result, nil
	})
}

func timelineHoldings(ctx context.Context, d Deps, params []holdingParam) ([]calculations.Holding, error) {
	if len(params) == 0 {
		if d.Investments == nil {
			return nil, nil
		}
		holdings, err := d.Investments.Holdings(ctx)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения вложений: %w", err)
		}
		return holdings, nil
	}

	holdings := make([]calculations.Holding, 0, len(params))
	for _, hp := range params {
		if err := validators.CheckSchemeCode(hp.SchemeCode); err != nil {
			return nil, invalidParams(err)
		}
		decls, err := declarations(d, hp.Investments)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, calculations.Holding{SchemeCode: hp.SchemeCode, Declarations: decls})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].SchemeCode < holdings[j].SchemeCode })
	return holdings, nil
}

// SchemeReturnsHandler обработчик доходности фонда по стандартным окнам
func SchemeReturnsHandler(d Deps) ToolHandler {
	return instrument(d, "scheme_returns", func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error) {
		p, _, asOf, err := schemeInput(d, params, false)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("scheme_code", p.SchemeCode))

		scheme, err := d.NAV.History(ctx, p.SchemeCode, d.Config.NAVHistoryYears)
		if err != nil {
			return nil, navFailed(err)
		}

		history := scheme.History.Until(asOf)
		latest := history.LatestNAV()
		return &SchemeReturnsResult{
			SchemeCode: p.SchemeCode,
			SchemeName: scheme.Meta.SchemeName,
			LatestNAV:  latest,
			Returns:    calculations.SchemeReturns(history, latest, asOf),
		}, nil
	})
}

// schemeInput разбирает и проверяет параметры инструментов одного фонда
func schemeInput(d Deps, params map[string]interface{}, needInvestments bool) (schemeParams, []calculations.Declaration, time.Time, error) {
	var p schemeParams
	if err := decodeParams(params, &p); err != nil {
		return p, nil, time.Time{}, err
	}
	if err := validators.CheckSchemeCode(p.SchemeCode); err != nil {
		return p, nil, time.Time{}, invalidParams(err)
	}
	asOf, err := parseDateParam("as_of", p.AsOf, d.Now())
	if err != nil {
		return p, nil, time.Time{}, err
	}
	if !needInvestments {
		return p, nil, asOf, nil
	}
	if len(p.Investments) == 0 {
		return p, nil, time.Time{}, invalidParams(&validators.ValidationError{Field: "investments", Message: "нужна хотя бы одна декларация"})
	}
	decls, err := declarations(d, p.Investments)
	if err != nil {
		return p, nil, time.Time{}, err
	}
	return p, decls, asOf, nil
}

func declarations(d Deps, records []calculations.DeclarationRecord) ([]calculations.Declaration, error) {
	for _, rec := range records {
		if err := validators.CheckDeclaration(d.Config, rec); err != nil {
			return nil, invalidParams(err)
		}
	}
	decls, err := calculations.DeclarationsFromRecords(records)
	if err != nil {
		return nil, invalidParams(err)
	}
	return decls, nil
}
