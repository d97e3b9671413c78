package calculations

import (
	"math"
	"sort"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

const (
	// MaxTimelinePoints максимальное число дат снимков портфеля
	MaxTimelinePoints = 500
	// DefaultResamplePoints число точек для графика по умолчанию
	DefaultResamplePoints = 50
)

// Holding декларации пользователя по одному фонду
type Holding struct {
	SchemeCode   int           `json:"schemeCode"`
	Declarations []Declaration `json:"-"`
}

// PortfolioSnapshot стоимость портфеля на дату
type PortfolioSnapshot struct {
	Date             time.Time `json:"date"`
	InvestedAmount   float64   `json:"investedAmount"`
	CurrentValue     float64   `json:"currentValue"`
	Gain             float64   `json:"gain"`
	ReturnPercentage float64   `json:"returnPercentage"`
}

// TimelineStatistics сводка по ряду снимков
type TimelineStatistics struct {
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	TotalReturn   float64    `json:"totalReturn"`
	HighestGain   float64    `json:"highestGain"`
	LowestGain    float64    `json:"lowestGain"`
	AvgGain       float64    `json:"avgGain"`
	HighestReturn float64    `json:"highestReturn"`
	LowestReturn  float64    `json:"lowestReturn"`
}

// PortfolioTimeline восстанавливает историю стоимости портфеля по датам всех историй NAV.
// Даты, на которые вложений еще нет, в ряд не попадают.
func PortfolioTimeline(holdings []Holding, histories map[int]*NAVHistory, asOf time.Time) []PortfolioSnapshot {
	if len(holdings) == 0 || len(histories) == 0 {
		return nil
	}

	dates := SnapshotDates(histories)
	snapshots := make([]PortfolioSnapshot, 0, len(dates))

	for _, date := range dates {
		var invested, current float64
		for _, h := range holdings {
			history := histories[h.SchemeCode]
			if history.Len() == 0 {
				continue
			}
			clipped := history.Until(date)
			if clipped.Len() == 0 {
				continue
			}
			for _, decl := range h.Declarations {
				if date.Before(decl.Start()) {
					continue
				}
				v := ValueDeclaration(ClipTo(decl, date), clipped, asOf)
				invested += v.InvestedAmount
				current += v.CurrentValue
			}
		}

		if invested > 0 {
			gain := current - invested
			snapshots = append(snapshots, PortfolioSnapshot{
				Date:             date,
				InvestedAmount:   invested,
				CurrentValue:     current,
				Gain:             gain,
				ReturnPercentage: utils.Percent(gain, invested),
			})
		}
	}
	return snapshots
}

// SnapshotDates объединяет даты всех историй и прореживает их до MaxTimelinePoints, сохраняя последнюю
func SnapshotDates(histories map[int]*NAVHistory) []time.Time {
	seen := make(map[int64]time.Time)
	for _, h := range histories {
		for _, o := range h.Observations() {
			d := calendar.Date(o.Date)
			seen[d.Unix()] = d
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return samplePoints(dates, MaxTimelinePoints)
}

// ResampleTimeline прореживает ряд снимков до target точек для графика
func ResampleTimeline(snapshots []PortfolioSnapshot, target int) []PortfolioSnapshot {
	if target <= 0 {
		target = DefaultResamplePoints
	}
	return samplePoints(snapshots, target)
}

func samplePoints[T any](items []T, max int) []T {
	if len(items) <= max {
		return items
	}
	interval := int(math.Ceil(float64(len(items)) / float64(max)))
	sampled := make([]T, 0, max+1)
	for i, item := range items {
		if i%interval == 0 || i == len(items)-1 {
			sampled = append(sampled, item)
		}
	}
	return sampled
}

// TimelineStats рассчитывает сводку по ряду снимков
func TimelineStats(snapshots []PortfolioSnapshot) TimelineStatistics {
	if len(snapshots) == 0 {
		return TimelineStatistics{}
	}

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	stats := TimelineStatistics{
		StartDate:     &first.Date,
		EndDate:       &last.Date,
		TotalReturn:   last.ReturnPercentage,
		HighestGain:   math.Inf(-1),
		LowestGain:    math.Inf(1),
		HighestReturn: math.Inf(-1),
		LowestReturn:  math.Inf(1),
	}

	var sum float64
	var count int
	for _, s := range snapshots {
		if !utils.IsFinite(s.Gain) || !utils.IsFinite(s.ReturnPercentage) {
			continue
		}
		stats.HighestGain = math.Max(stats.HighestGain, s.Gain)
		stats.LowestGain = math.Min(stats.LowestGain, s.Gain)
		stats.HighestReturn = math.Max(stats.HighestReturn, s.ReturnPercentage)
		stats.LowestReturn = math.Min(stats.LowestReturn, s.ReturnPercentage)
		sum += s.Gain
		count++
	}
	if count == 0 {
		return TimelineStatistics{StartDate: &first.Date, EndDate: &last.Date}
	}
	stats.AvgGain = sum / float64(count)
	return stats
}
