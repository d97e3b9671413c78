package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/internal/config"
	"github.com/cloud-ru/mcp-fintools-go/internal/logging"
	"github.com/cloud-ru/mcp-fintools-go/internal/metrics"
	"github.com/cloud-ru/mcp-fintools-go/internal/navsource"
	"github.com/cloud-ru/mcp-fintools-go/internal/portfolio"
	"github.com/cloud-ru/mcp-fintools-go/internal/validators"
)

// ToolHandler обработчик инструмента: параметры запроса в результат расчета
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Tool описание зарегистрированного инструмента
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Handler     ToolHandler `json:"-"`
}

// NAVSource источник истории NAV
type NAVSource interface {
	History(ctx context.Context, schemeCode, years int) (*navsource.SchemeHistory, error)
	FetchMany(ctx context.Context, schemeCodes []int, years int) (map[int]*navsource.SchemeHistory, error)
}

// Deps зависимости обработчиков
type Deps struct {
	Config      *config.Config
	Tracer      trace.Tracer
	NAV         NAVSource
	Investments *portfolio.InvestmentRepository
	Logger      zerolog.Logger
	Now         func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Tracer == nil {
		d.Tracer = noop.NewTracerProvider().Tracer("fintools")
	}
	if d.Now == nil {
		d.Now = calendar.Today
	}
	return d
}

// Registry возвращает все инструменты сервиса
func Registry(d Deps) []Tool {
	d = d.withDefaults()
	return []Tool{
		{
			Name:        "fd_projection",
			Description: "Рост срочного вклада с разбивкой по финансовым годам (апрель-март)",
			Handler:     FDProjectionHandler(d),
		},
		{
			Name:        "ppf_projection",
			Description: "Накопления PPF за 15 финансовых лет с начислением процентов по годам",
			Handler:     PPFProjectionHandler(d),
		},
		{
			Name:        "mf_installments",
			Description: "Список взносов по декларациям фонда с NAV и количеством паев",
			Handler:     MFInstallmentsHandler(d),
		},
		{
			Name:        "mf_valuation",
			Description: "Оценка вложений в фонд: стоимость, доходность, XIRR и CAGR",
			Handler:     MFValuationHandler(d),
		},
		{
			Name:        "portfolio_timeline",
			Description: "История стоимости портфеля фондов по датам NAV",
			Handler:     PortfolioTimelineHandler(d),
		},
		{
			Name:        "scheme_returns",
			Description: "Доходность фонда за 1M, 3M, 6M, 1Y, 3Y, 5Y и 10Y",
			Handler:     SchemeReturnsHandler(d),
		},
	}
}

type toolFunc func(ctx context.Context, span trace.Span, params map[string]interface{}) (interface{}, error)

// instrument оборачивает расчет спаном, метриками и логированием
func instrument(d Deps, toolName string, fn toolFunc) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, span := d.Tracer.Start(ctx, toolName)
		defer span.End()

		started := time.Now()
		defer func() {
			metrics.ToolDuration.WithLabelValues(toolName).Observe(time.Since(started).Seconds())
		}()

		logger := logging.WithTool(logging.FromContextOr(ctx, d.Logger), toolName)
		ctx = logging.WithLogger(ctx, logger)
		metrics.APICalls.WithLabelValues("tools", toolName, "started").Inc()

		result, err := fn(ctx, span, params)
		if err != nil {
			status, errorType := classify(err)
			span.SetAttributes(attribute.String("error", status))
			metrics.ToolCalls.WithLabelValues(toolName, status).Inc()
			metrics.CalculationErrors.WithLabelValues(toolName, errorType).Inc()
			metrics.APICalls.WithLabelValues("tools", toolName, "error").Inc()
			logger.Warn().Err(err).Str("status", status).Msg("tool call failed")
			return nil, err
		}

		span.SetAttributes(attribute.Bool("success", true))
		metrics.ToolCalls.WithLabelValues(toolName, "success").Inc()
		metrics.APICalls.WithLabelValues("tools", toolName, "success").Inc()
		logger.Debug().Dur("duration", time.Since(started)).Msg("tool call completed")
		return result, nil
	}
}

func classify(err error) (status, errorType string) {
	var verr *validators.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation_error", "validation"
	case errors.Is(err, navsource.ErrSchemeNotFound), errors.Is(err, navsource.ErrUpstream):
		return "upstream_error", "upstream"
	default:
		return "error", "calculation"
	}
}

func invalidParams(err error) error {
	return fmt.Errorf("неверные параметры: %w", err)
}

func calculationFailed(err error) error {
	return fmt.Errorf("ошибка при выполнении расчета: %w", err)
}

func navFailed(err error) error {
	return fmt.Errorf("ошибка источника NAV: %w", err)
}

// decodeParams раскладывает параметры запроса в типизированную структуру
func decodeParams(params map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return invalidParams(&validators.ValidationError{Field: "params", Message: err.Error()})
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidParams(&validators.ValidationError{Field: "params", Message: err.Error()})
	}
	return nil
}

// parseDateParam разбирает необязательную дату; пустая строка дает def
func parseDateParam(field, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return calendar.Date(def), nil
	}
	t, err := calendar.ParseDate(value)
	if err != nil {
		return time.Time{}, invalidParams(&validators.ValidationError{Field: field, Value: value, Message: "ожидается дата DD-MM-YYYY"})
	}
	return t, nil
}
