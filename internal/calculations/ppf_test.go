package calculations

import (
	"errors"
	"testing"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
)

func TestCalculatePPF(t *testing.T) {
	tests := []struct {
		name      string
		input     func(t *testing.T) PPFInput
		wantError error
		check     func(*testing.T, *PPFResult)
	}{
		{
			name: "single year is carried across the window",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear:    2020,
					InterestRate: 7.1,
					Variable:     true,
					Years:        []PPFYear{{Year: 2020, InterestRate: 7.1, Deposits: []PPFDeposit{{Amount: 100000}}}},
				}
			},
			check: func(t *testing.T, r *PPFResult) {
				if len(r.YearlyData) != PPFMaturityYears {
					t.Fatalf("expected %d rows, got %d", PPFMaturityYears, len(r.YearlyData))
				}
				if r.TotalInvested != 15*100000 {
					t.Errorf("total invested = %v", r.TotalInvested)
				}
				rate := 7.1 / 100
				first := r.YearlyData[0]
				if !approx(first.InterestEarned, 100000*rate, 1e-6) || !approx(first.ClosingBalance, 100000+100000*rate, 1e-6) {
					t.Errorf("unexpected first year %+v", first)
				}
				second := r.YearlyData[1]
				wantInterest := first.ClosingBalance*rate + 100000*rate
				if !approx(second.InterestEarned, wantInterest, 1e-6) {
					t.Errorf("second year interest = %v, want %v", second.InterestEarned, wantInterest)
				}
				if second.OpeningBalance != first.ClosingBalance {
					t.Error("opening balance must equal previous closing balance")
				}
				if !approx(r.MaturityAmount, r.TotalInvested+r.TotalInterestEarned, 1e-6) {
					t.Error("maturity must equal invested plus interest")
				}
			},
		},
		{
			name: "gaps repeat the most recent year with contributions",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear:    2020,
					InterestRate: 7.1,
					Variable:     true,
					Years: []PPFYear{
						{Year: 2020, InterestRate: 7.1, Deposits: []PPFDeposit{{Amount: 100000}}},
						{Year: 2022, InterestRate: 7.5, Deposits: []PPFDeposit{{Amount: 50000}}},
					},
				}
			},
			check: func(t *testing.T, r *PPFResult) {
				if r.YearlyData[1].Contribution != 100000 || r.YearlyData[1].InterestRate != 7.1 {
					t.Errorf("FY2021 = %+v", r.YearlyData[1])
				}
				if last := r.YearlyData[14]; last.Contribution != 50000 || last.InterestRate != 7.5 {
					t.Errorf("FY2034 = %+v", last)
				}
				if r.TotalInvested != 2*100000+13*50000 {
					t.Errorf("total invested = %v", r.TotalInvested)
				}
			},
		},
		{
			name: "dated deposit moves to its fiscal year",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear:    2018,
					InterestRate: 8,
					Variable:     true,
					Years: []PPFYear{
						{Year: 2019, Deposits: []PPFDeposit{{Amount: 50000, Date: datePtr(t, "10-01-2019")}}},
					},
				}
			},
			check: func(t *testing.T, r *PPFResult) {
				first := r.YearlyData[0]
				if first.FiscalYear != 2018 || first.Contribution != 50000 {
					t.Fatalf("unexpected first row %+v", first)
				}
				days := calendar.DaysBetween(date(t, "10-01-2019"), date(t, "31-03-2019")) + 1
				want := 50000 * 0.08 * float64(days) / 365
				if !approx(first.InterestEarned, want, 1e-6) {
					t.Errorf("pro-rata interest = %v, want %v", first.InterestEarned, want)
				}
				if first.FYLabel != "FY 2018-19" {
					t.Errorf("label = %q", first.FYLabel)
				}
			},
		},
		{
			name: "deposit before start year",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear: 2019,
					Variable:  true,
					Years: []PPFYear{
						{Year: 2019, Deposits: []PPFDeposit{{Amount: 50000, Date: datePtr(t, "10-01-2019")}}},
					},
				}
			},
			wantError: ErrContributionBeforeStart,
		},
		{
			name: "deposit after maturity",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear: 2020,
					Variable:  true,
					Years: []PPFYear{
						{Year: 2020, Deposits: []PPFDeposit{{Amount: 1000}}},
						{Year: 2034, Deposits: []PPFDeposit{{Amount: 1000, Date: datePtr(t, "01-05-2035")}}},
					},
				}
			},
			wantError: ErrContributionAfterMaturity,
		},
		{
			name: "fixed mode with first deposit date",
			input: func(t *testing.T) PPFInput {
				return PPFInput{
					StartYear:        2020,
					InterestRate:     7.1,
					FixedAmount:      150000,
					FirstDepositDate: datePtr(t, "15-06-2020"),
				}
			},
			check: func(t *testing.T, r *PPFResult) {
				if r.TotalInvested != 15*150000 {
					t.Errorf("total invested = %v", r.TotalInvested)
				}
				days := calendar.DaysBetween(date(t, "15-06-2020"), date(t, "31-03-2021")) + 1
				want := 150000 * (7.1 / 100) * float64(days) / 365
				if !approx(r.YearlyData[0].InterestEarned, want, 1e-6) {
					t.Errorf("first year interest = %v, want %v", r.YearlyData[0].InterestEarned, want)
				}
				if !approx(r.YearlyData[1].InterestEarned, r.YearlyData[0].ClosingBalance*0.071+150000*0.071, 1e-6) {
					t.Errorf("second year interest = %v", r.YearlyData[1].InterestEarned)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculatePPF(tt.input(t))
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("CalculatePPF() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculatePPF() error = %v", err)
			}
			tt.check(t, result)
		})
	}
}

func TestFillMissingPPFYearsClearsDates(t *testing.T) {
	years := FillMissingPPFYears([]PPFYear{
		{Year: 2020, InterestRate: 7.1, Deposits: []PPFDeposit{{Amount: 1000, Date: datePtr(t, "01-10-2020")}}},
	}, 2020, 3, 7.1)

	if len(years) != 3 {
		t.Fatalf("expected 3 years, got %d", len(years))
	}
	if years[0].Deposits[0].Date == nil {
		t.Error("captured year must keep its dates")
	}
	for _, y := range years[1:] {
		if len(y.Deposits) != 1 || y.Deposits[0].Date != nil {
			t.Errorf("filled year %d must carry undated deposits: %+v", y.Year, y.Deposits)
		}
	}
}

func TestFillMissingPPFYearsLeadingGap(t *testing.T) {
	years := FillMissingPPFYears([]PPFYear{
		{Year: 2022, InterestRate: 7.1, Deposits: []PPFDeposit{{Amount: 1000}}},
	}, 2020, 4, 7.6)

	if years[0].hasContribution() || years[1].hasContribution() {
		t.Error("years before the first contribution must stay empty")
	}
	if years[0].InterestRate != 7.6 {
		t.Errorf("empty year rate = %v, want default", years[0].InterestRate)
	}
	if !years[3].hasContribution() {
		t.Error("year after the first contribution must be filled")
	}
}
