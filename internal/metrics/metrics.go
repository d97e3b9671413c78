// Package metrics метрики Prometheus сервиса fintools.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fintools"

var (
	// ToolCalls вызовы инструментов по итоговому статусу
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "calls_total",
		Help:      "Вызовы инструментов по статусу: success, validation_error, upstream_error, error",
	}, []string{"tool_name", "status"})

	// CalculationErrors отказы инструментов по типу ошибки
	CalculationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "errors_total",
		Help:      "Ошибки инструментов: validation, upstream, calculation",
	}, []string{"tool_name", "error_type"})

	// ToolDuration длительность инструмента от разбора параметров до результата
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "tool",
		Name:      "duration_seconds",
		Help:      "Длительность выполнения инструментов",
		Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 15},
	}, []string{"tool_name"})

	// APICalls обращения к mfapi.in и к инструментам
	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_calls_total",
		Help:      "Обращения к API по сервису и конечной точке",
	}, []string{"service", "endpoint", "status"})

	// NAVCacheRequests попадания (hit) и промахи (miss) сессионного кэша истории NAV
	NAVCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nav",
		Name:      "cache_requests_total",
		Help:      "Запросы к кэшу истории NAV",
	}, []string{"result"})

	// XIRRNonConverged расчеты XIRR, не сошедшиеся за 100 итераций
	XIRRNonConverged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "valuation",
		Name:      "xirr_non_converged_total",
		Help:      "Расчеты XIRR без сходимости метода Ньютона",
	})
)
