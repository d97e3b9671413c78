package calculations

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

// NAVObservation стоимость пая фонда на дату
type NAVObservation struct {
	Date time.Time `json:"date"`
	NAV  float64   `json:"nav"`
}

// NAVRecord запись истории NAV в формате источника: дата DD-MM-YYYY, nav строкой или числом
type NAVRecord struct {
	Date string      `json:"date"`
	NAV  interface{} `json:"nav"`
}

// FindClosestNav линейно ищет наблюдение, ближайшее к дате target.
// При равенстве расстояний побеждает первое встреченное.
func FindClosestNav(observations []NAVObservation, target time.Time) (NAVObservation, bool) {
	if len(observations) == 0 {
		return NAVObservation{}, false
	}

	closest := observations[0]
	minDiff := absDays(observations[0].Date, target)
	for _, obs := range observations {
		if diff := absDays(obs.Date, target); diff < minDiff {
			minDiff = diff
			closest = obs
		}
	}
	return closest, true
}

func absDays(a, b time.Time) int {
	d := calendar.DaysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}

// NAVHistory упорядоченная по возрастанию дат история NAV одного фонда без повторов дат
type NAVHistory struct {
	obs []NAVObservation
}

// NewNAVHistory строит историю из наблюдений: сортирует и оставляет первое наблюдение для каждой даты
func NewNAVHistory(observations []NAVObservation) *NAVHistory {
	sorted := make([]NAVObservation, len(observations))
	for i, o := range observations {
		sorted[i] = NAVObservation{Date: calendar.Date(o.Date), NAV: o.NAV}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	unique := sorted[:0]
	for i, o := range sorted {
		if i > 0 && o.Date.Equal(unique[len(unique)-1].Date) {
			continue
		}
		unique = append(unique, o)
	}
	return &NAVHistory{obs: unique}
}

// ParseNAVRecords разбирает записи источника в историю NAV
func ParseNAVRecords(records []NAVRecord) (*NAVHistory, error) {
	observations := make([]NAVObservation, 0, len(records))
	for i, r := range records {
		date, err := calendar.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("nav record %d: %w", i, err)
		}
		nav, err := utils.ParseAmount(r.NAV)
		if err != nil {
			return nil, fmt.Errorf("nav record %d: %w", i, err)
		}
		observations = append(observations, NAVObservation{Date: date, NAV: nav})
	}
	return NewNAVHistory(observations), nil
}

// Len возвращает число наблюдений
func (h *NAVHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.obs)
}

// Observations возвращает наблюдения по возрастанию дат
func (h *NAVHistory) Observations() []NAVObservation {
	if h == nil {
		return nil
	}
	return h.obs
}

// Latest возвращает самое свежее наблюдение
func (h *NAVHistory) Latest() (NAVObservation, bool) {
	if h.Len() == 0 {
		return NAVObservation{}, false
	}
	return h.obs[len(h.obs)-1], true
}

// LatestNAV возвращает последний NAV или 0 для пустой истории
func (h *NAVHistory) LatestNAV() float64 {
	latest, ok := h.Latest()
	if !ok {
		return 0
	}
	return latest.NAV
}

// Closest находит наблюдение, ближайшее к target, бинарным поиском.
// Правило выбора совпадает с FindClosestNav: при равенстве берется более ранняя дата.
func (h *NAVHistory) Closest(target time.Time) (NAVObservation, bool) {
	n := h.Len()
	if n == 0 {
		return NAVObservation{}, false
	}
	target = calendar.Date(target)

	idx := sort.Search(n, func(i int) bool {
		return !h.obs[i].Date.Before(target)
	})
	switch {
	case idx == 0:
		return h.obs[0], true
	case idx == n:
		return h.obs[n-1], true
	}

	before, after := h.obs[idx-1], h.obs[idx]
	if absDays(before.Date, target) <= absDays(after.Date, target) {
		return before, true
	}
	return after, true
}

// OnOrBefore возвращает последнее наблюдение с датой не позже target
func (h *NAVHistory) OnOrBefore(target time.Time) (NAVObservation, bool) {
	clipped := h.Until(target)
	return clipped.Latest()
}

// Until возвращает префикс истории с датами не позже date
func (h *NAVHistory) Until(date time.Time) *NAVHistory {
	n := h.Len()
	if n == 0 {
		return &NAVHistory{}
	}
	date = calendar.Date(date)
	idx := sort.Search(n, func(i int) bool {
		return h.obs[i].Date.After(date)
	})
	return &NAVHistory{obs: h.obs[:idx]}
}

// Dates возвращает даты наблюдений
func (h *NAVHistory) Dates() []time.Time {
	dates := make([]time.Time, h.Len())
	for i, o := range h.Observations() {
		dates[i] = o.Date
	}
	return dates
}
