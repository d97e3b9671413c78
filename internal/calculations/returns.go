package calculations

import (
	"math"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

// Timeframe окно доходности фонда
type Timeframe struct {
	Label string
	Days  int
}

// Timeframes стандартные окна доходности
var Timeframes = []Timeframe{
	{Label: "1M", Days: 30},
	{Label: "3M", Days: 90},
	{Label: "6M", Days: 180},
	{Label: "1Y", Days: 365},
	{Label: "3Y", Days: 3 * 365},
	{Label: "5Y", Days: 5 * 365},
	{Label: "10Y", Days: 10 * 365},
}

// TimeframeReturn доходность фонда за окно
type TimeframeReturn struct {
	TimeframeLabel   string  `json:"timeframeLabel"`
	Days             int     `json:"days"`
	StartNav         float64 `json:"startNav"`
	EndNav           float64 `json:"endNav"`
	AbsoluteReturn   float64 `json:"absoluteReturn"`
	PercentageReturn float64 `json:"percentageReturn"`
	CAGR             float64 `json:"cagr"`
	IsAvailable      bool    `json:"isAvailable"`
}

// NavCAGR рассчитывает CAGR между двумя значениями NAV за years лет
func NavCAGR(startNav, endNav, years float64) float64 {
	if startNav <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(endNav/startNav, 1/years) - 1) * 100
}

// SchemeReturns рассчитывает доходность фонда за стандартные окна относительно currentNav
func SchemeReturns(history *NAVHistory, currentNav float64, asOf time.Time) []TimeframeReturn {
	asOf = calendar.Date(asOf)
	out := make([]TimeframeReturn, 0, len(Timeframes))

	for _, tf := range Timeframes {
		r := TimeframeReturn{TimeframeLabel: tf.Label, Days: tf.Days}
		obs, ok := history.OnOrBefore(asOf.AddDate(0, 0, -tf.Days))
		if ok && obs.NAV > 0 {
			r.StartNav = obs.NAV
			r.EndNav = currentNav
			r.AbsoluteReturn = currentNav - obs.NAV
			r.PercentageReturn = r.AbsoluteReturn / obs.NAV * 100
			r.CAGR = NavCAGR(obs.NAV, currentNav, float64(tf.Days)/365)
			r.IsAvailable = true
		}
		out = append(out, r)
	}
	return out
}
