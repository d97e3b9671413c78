package calculations

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

// InstallmentKind вид взноса
type InstallmentKind string

const (
	KindLumpsum InstallmentKind = "lumpsum"
	KindSIP     InstallmentKind = "sip-installment"
)

// Installment фактический взнос с датой, ценой и количеством паев
type Installment struct {
	ID                string          `json:"id"`
	Kind              InstallmentKind `json:"type"`
	DeclarationID     string          `json:"declarationId,omitempty"`
	OriginalStartDate time.Time       `json:"originalStartDate"`
	Date              time.Time       `json:"installmentDate"`
	Amount            float64         `json:"amount"`
	NAV               float64         `json:"nav"`
	Units             float64         `json:"units"`
	IsCancelled       bool            `json:"isCancelled"`
}

// GenerateInstallments разворачивает декларации в упорядоченный по дате список взносов.
// Будущие разовые покупки и взносы SIP после asOf не попадают в список.
func GenerateInstallments(decls []Declaration, history *NAVHistory, asOf time.Time) []Installment {
	asOf = calendar.Date(asOf)
	var installments []Installment

	for _, decl := range decls {
		switch d := decl.(type) {
		case Lumpsum:
			if !d.StartDate.Before(asOf) {
				continue
			}
			nav, units := price(history, d.StartDate, d.Amount)
			installments = append(installments, Installment{
				Kind:              KindLumpsum,
				DeclarationID:     d.ID,
				OriginalStartDate: d.StartDate,
				Date:              d.StartDate,
				Amount:            d.Amount,
				NAV:               nav,
				Units:             units,
			})
		case SIP:
			for _, date := range d.ScheduledDates(asOf) {
				amount := d.AmountOn(date)
				nav, units := price(history, date, amount)
				installments = append(installments, Installment{
					Kind:              KindSIP,
					DeclarationID:     d.ID,
					OriginalStartDate: d.StartDate,
					Date:              date,
					Amount:            amount,
					NAV:               nav,
					Units:             units,
					IsCancelled:       d.EndDate != nil && date.After(*d.EndDate),
				})
			}
		}
	}

	for i := range installments {
		installments[i].ID = fmt.Sprintf("inst-%d", i)
	}
	sort.SliceStable(installments, func(i, j int) bool {
		return installments[i].Date.Before(installments[j].Date)
	})
	return installments
}

// price возвращает NAV на дату и количество паев; без данных о цене оба значения равны 0
func price(history *NAVHistory, date time.Time, amount float64) (float64, float64) {
	obs, ok := history.Closest(date)
	if !ok || obs.NAV <= 0 {
		return 0, 0
	}
	return obs.NAV, amount / obs.NAV
}
