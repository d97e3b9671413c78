package calculations

import (
	"fmt"
	"sort"
	"time"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

// InvestmentType тип инвестиции в записи хранилища
type InvestmentType string

const (
	InvestmentLumpsum InvestmentType = "lumpsum"
	InvestmentSIP     InvestmentType = "sip"
)

// Declaration намерение инвестировать в фонд: Lumpsum или SIP
type Declaration interface {
	Start() time.Time
	declarationID() string
}

// Lumpsum разовая покупка на дату StartDate
type Lumpsum struct {
	ID        string
	StartDate time.Time
	Amount    float64
}

// SIP ежемесячная покупка в день MonthlyDay начиная с StartDate
type SIP struct {
	ID            string
	StartDate     time.Time
	Amount        float64
	MonthlyDay    int
	EndDate       *time.Time
	Modifications []AmountModification
}

// AmountModification изменение суммы SIP, действующее с EffectiveDate
type AmountModification struct {
	EffectiveDate time.Time
	Amount        float64
}

func (l Lumpsum) Start() time.Time      { return l.StartDate }
func (l Lumpsum) declarationID() string { return l.ID }
func (s SIP) Start() time.Time          { return s.StartDate }
func (s SIP) declarationID() string     { return s.ID }

// AmountOn возвращает сумму SIP, действующую на дату: последнее изменение с датой не позже date
func (s SIP) AmountOn(date time.Time) float64 {
	amount := s.Amount
	var latest time.Time
	found := false
	for _, mod := range s.Modifications {
		if mod.EffectiveDate.After(date) {
			continue
		}
		if !found || !mod.EffectiveDate.Before(latest) {
			latest = mod.EffectiveDate
			amount = mod.Amount
			found = true
		}
	}
	return amount
}

// ScheduledDates возвращает даты взносов SIP с начала и до min(EndDate, asOf) включительно
func (s SIP) ScheduledDates(asOf time.Time) []time.Time {
	day := s.MonthlyDay
	if day < 1 {
		day = 1
	}
	start := calendar.Date(s.StartDate)
	end := calendar.Date(asOf)
	if s.EndDate != nil && s.EndDate.Before(end) {
		end = calendar.Date(*s.EndDate)
	}

	n := 0
	if calendar.MonthlyOccurrence(start, day, 0).Before(start) {
		n = 1
	}

	var dates []time.Time
	for d := calendar.MonthlyOccurrence(start, day, n); !d.After(end); d = calendar.MonthlyOccurrence(start, day, n) {
		dates = append(dates, d)
		n++
	}
	return dates
}

// CancelSIP останавливает SIP с даты date
func CancelSIP(s SIP, date time.Time) SIP {
	end := calendar.Date(date)
	s.EndDate = &end
	return s
}

// ModifySIPAmount добавляет изменение суммы SIP, сохраняя порядок по дате вступления
func ModifySIPAmount(s SIP, effective time.Time, amount float64) SIP {
	mods := make([]AmountModification, 0, len(s.Modifications)+1)
	effective = calendar.Date(effective)
	for _, m := range s.Modifications {
		if !m.EffectiveDate.Equal(effective) {
			mods = append(mods, m)
		}
	}
	mods = append(mods, AmountModification{EffectiveDate: effective, Amount: amount})
	sort.SliceStable(mods, func(i, j int) bool {
		return mods[i].EffectiveDate.Before(mods[j].EffectiveDate)
	})
	s.Modifications = mods
	return s
}

// ClipTo возвращает представление декларации на дату снимка: конец SIP не позже date
func ClipTo(decl Declaration, date time.Time) Declaration {
	sip, ok := decl.(SIP)
	if !ok {
		return decl
	}
	if sip.EndDate == nil || !sip.EndDate.Before(date) {
		end := calendar.Date(date)
		sip.EndDate = &end
	}
	return sip
}

// DeclarationRecord форма декларации в хранилище и в параметрах инструментов
type DeclarationRecord struct {
	ID                     string               `json:"id,omitempty"`
	InvestmentType         InvestmentType       `json:"investmentType"`
	StartDate              string               `json:"startDate"`
	Amount                 float64              `json:"amount,omitempty"`
	SIPAmount              float64              `json:"sipAmount,omitempty"`
	SIPMonthlyDate         int                  `json:"sipMonthlyDate,omitempty"`
	SIPEndDate             string               `json:"sipEndDate,omitempty"`
	SIPAmountModifications []ModificationRecord `json:"sipAmountModifications,omitempty"`
}

// ModificationRecord форма изменения суммы SIP в хранилище
type ModificationRecord struct {
	EffectiveDate string  `json:"effectiveDate"`
	Amount        float64 `json:"amount"`
}

// Declaration преобразует запись в типизированную декларацию
func (r DeclarationRecord) Declaration() (Declaration, error) {
	start, err := calendar.ParseDate(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}

	switch r.InvestmentType {
	case InvestmentLumpsum:
		return Lumpsum{ID: r.ID, StartDate: start, Amount: r.Amount}, nil
	case InvestmentSIP:
		amount := r.SIPAmount
		if amount == 0 {
			amount = r.Amount
		}
		sip := SIP{ID: r.ID, StartDate: start, Amount: amount, MonthlyDay: r.SIPMonthlyDate}
		if r.SIPEndDate != "" {
			end, err := calendar.ParseDate(r.SIPEndDate)
			if err != nil {
				return nil, fmt.Errorf("sipEndDate: %w", err)
			}
			sip.EndDate = &end
		}
		for i, m := range r.SIPAmountModifications {
			eff, err := calendar.ParseDate(m.EffectiveDate)
			if err != nil {
				return nil, fmt.Errorf("sipAmountModifications[%d]: %w", i, err)
			}
			sip = ModifySIPAmount(sip, eff, m.Amount)
		}
		return sip, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInvestmentType, r.InvestmentType)
	}
}

// RecordOf преобразует декларацию в запись хранилища
func RecordOf(decl Declaration) DeclarationRecord {
	switch d := decl.(type) {
	case Lumpsum:
		return DeclarationRecord{
			ID:             d.ID,
			InvestmentType: InvestmentLumpsum,
			StartDate:      calendar.FormatDate(d.StartDate),
			Amount:         d.Amount,
		}
	case SIP:
		rec := DeclarationRecord{
			ID:             d.ID,
			InvestmentType: InvestmentSIP,
			StartDate:      calendar.FormatDate(d.StartDate),
			Amount:         d.Amount,
			SIPAmount:      d.Amount,
			SIPMonthlyDate: d.MonthlyDay,
		}
		if d.EndDate != nil {
			rec.SIPEndDate = calendar.FormatDate(*d.EndDate)
		}
		for _, m := range d.Modifications {
			rec.SIPAmountModifications = append(rec.SIPAmountModifications, ModificationRecord{
				EffectiveDate: calendar.FormatDate(m.EffectiveDate),
				Amount:        m.Amount,
			})
		}
		return rec
	default:
		panic(fmt.Sprintf("calculations: unexpected declaration %T", decl))
	}
}

// DeclarationsFromRecords преобразует список записей
func DeclarationsFromRecords(records []DeclarationRecord) ([]Declaration, error) {
	decls := make([]Declaration, 0, len(records))
	for i, r := range records {
		d, err := r.Declaration()
		if err != nil {
			return nil, fmt.Errorf("investment %d: %w", i, err)
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// DeclarationID возвращает идентификатор декларации
func DeclarationID(decl Declaration) string {
	return decl.declarationID()
}
