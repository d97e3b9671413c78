package calculations

import (
	"errors"
	"testing"
)

func TestSIPAmountOn(t *testing.T) {
	sip := SIP{StartDate: date(t, "01-01-2023"), Amount: 1000, MonthlyDay: 5}
	sip = ModifySIPAmount(sip, date(t, "01-09-2023"), 3000)
	sip = ModifySIPAmount(sip, date(t, "01-06-2023"), 2000)

	if !sip.Modifications[0].EffectiveDate.Before(sip.Modifications[1].EffectiveDate) {
		t.Fatal("modifications must stay ordered by effective date")
	}

	tests := []struct {
		on   string
		want float64
	}{
		{"05-03-2023", 1000},
		{"01-06-2023", 2000},
		{"05-08-2023", 2000},
		{"05-12-2023", 3000},
	}
	for _, tt := range tests {
		if got := sip.AmountOn(date(t, tt.on)); got != tt.want {
			t.Errorf("AmountOn(%s) = %v, want %v", tt.on, got, tt.want)
		}
	}

	sip = ModifySIPAmount(sip, date(t, "01-06-2023"), 2500)
	if len(sip.Modifications) != 2 || sip.AmountOn(date(t, "05-07-2023")) != 2500 {
		t.Errorf("same effective date must replace the modification: %+v", sip.Modifications)
	}
}

func TestSIPScheduledDates(t *testing.T) {
	tests := []struct {
		name  string
		sip   SIP
		asOf  string
		first string
		count int
	}{
		{
			name:  "day after start month begins in the same month",
			sip:   SIP{StartDate: date(t, "01-01-2023"), MonthlyDay: 5},
			asOf:  "01-01-2024",
			first: "05-01-2023",
			count: 12,
		},
		{
			name:  "day before start moves to next month",
			sip:   SIP{StartDate: date(t, "10-01-2023"), MonthlyDay: 5},
			asOf:  "06-03-2023",
			first: "05-02-2023",
			count: 2,
		},
		{
			name:  "cancelled sip stops at end date",
			sip:   SIP{StartDate: date(t, "01-01-2023"), MonthlyDay: 1, EndDate: datePtr(t, "15-03-2023")},
			asOf:  "01-01-2024",
			first: "01-01-2023",
			count: 3,
		},
		{
			name:  "day 31 clamps to month end",
			sip:   SIP{StartDate: date(t, "31-01-2023"), MonthlyDay: 31},
			asOf:  "30-04-2023",
			first: "31-01-2023",
			count: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := tt.sip.ScheduledDates(date(t, tt.asOf))
			if len(dates) != tt.count {
				t.Fatalf("got %d dates, want %d", len(dates), tt.count)
			}
			if !dates[0].Equal(date(t, tt.first)) {
				t.Errorf("first date = %v, want %s", dates[0], tt.first)
			}
		})
	}
}

func TestDeclarationRecord(t *testing.T) {
	rec := DeclarationRecord{
		ID:             "abc",
		InvestmentType: InvestmentSIP,
		StartDate:      "01-01-2023",
		SIPAmount:      1500,
		SIPMonthlyDate: 10,
		SIPEndDate:     "01-12-2023",
		SIPAmountModifications: []ModificationRecord{
			{EffectiveDate: "01-06-2023", Amount: 2000},
		},
	}

	decl, err := rec.Declaration()
	if err != nil {
		t.Fatalf("Declaration() error = %v", err)
	}
	sip, ok := decl.(SIP)
	if !ok {
		t.Fatalf("expected SIP, got %T", decl)
	}
	if sip.Amount != 1500 || sip.MonthlyDay != 10 || sip.EndDate == nil || len(sip.Modifications) != 1 {
		t.Errorf("unexpected sip %+v", sip)
	}
	if DeclarationID(decl) != "abc" {
		t.Errorf("DeclarationID() = %q", DeclarationID(decl))
	}

	back := RecordOf(decl)
	if back.SIPEndDate != "01-12-2023" || back.SIPAmountModifications[0].EffectiveDate != "01-06-2023" {
		t.Errorf("RecordOf() = %+v", back)
	}

	_, err = DeclarationRecord{InvestmentType: "bond", StartDate: "01-01-2023"}.Declaration()
	if !errors.Is(err, ErrUnknownInvestmentType) {
		t.Errorf("expected ErrUnknownInvestmentType, got %v", err)
	}
	if _, err := (DeclarationRecord{InvestmentType: InvestmentLumpsum, StartDate: "bad"}).Declaration(); err == nil {
		t.Error("expected error for bad start date")
	}
}

func TestCancelAndClip(t *testing.T) {
	sip := SIP{StartDate: date(t, "01-01-2023"), Amount: 1000, MonthlyDay: 1}

	cancelled := CancelSIP(sip, date(t, "20-04-2023"))
	if sip.EndDate != nil {
		t.Error("CancelSIP must not mutate its argument")
	}
	if got := len(cancelled.ScheduledDates(date(t, "01-01-2024"))); got != 4 {
		t.Errorf("cancelled sip has %d installments, want 4", got)
	}

	clipped := ClipTo(cancelled, date(t, "01-12-2023")).(SIP)
	if !clipped.EndDate.Equal(date(t, "20-04-2023")) {
		t.Error("ClipTo must keep an earlier end date")
	}
	clipped = ClipTo(sip, date(t, "15-02-2023")).(SIP)
	if !clipped.EndDate.Equal(date(t, "15-02-2023")) {
		t.Error("ClipTo must pin an open sip to the snapshot date")
	}

	lump := Lumpsum{StartDate: date(t, "01-01-2023"), Amount: 10}
	if ClipTo(lump, date(t, "01-02-2023")) != Declaration(lump) {
		t.Error("ClipTo must leave lumpsums untouched")
	}
}
