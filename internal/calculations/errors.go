package calculations

import "errors"

var (
	// ErrContributionBeforeStart взнос PPF датирован раньше выбранного стартового FY
	ErrContributionBeforeStart = errors.New("ppf contribution falls before the start fiscal year")
	// ErrContributionAfterMaturity взнос PPF выходит за 15-летнее окно
	ErrContributionAfterMaturity = errors.New("ppf contribution falls after the maturity window")
	// ErrUnknownCompounding неизвестная частота капитализации
	ErrUnknownCompounding = errors.New("unknown compounding frequency")
	// ErrBalanceCap итоговый баланс превысил верхнюю границу
	ErrBalanceCap = errors.New("balance exceeds the configured cap")
	// ErrUnknownInvestmentType неизвестный тип инвестиции в записи хранилища
	ErrUnknownInvestmentType = errors.New("unknown investment type")
)

// ConfigInterface определяет интерфейс для получения конфигурации
type ConfigInterface interface {
	BalanceCap() float64
}
