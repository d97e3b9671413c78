package calculations

import (
	"errors"
	"math"
	"testing"

	"github.com/cloud-ru/mcp-fintools-go/internal/calendar"
	"github.com/cloud-ru/mcp-fintools-go/pkg/utils"
)

func TestProjectFD(t *testing.T) {
	tests := []struct {
		name      string
		input     func(t *testing.T) FDInput
		wantError error
		check     func(*testing.T, FDInput, *FDResult)
	}{
		{
			name: "single fiscal year reduces to textbook formula",
			input: func(t *testing.T) FDInput {
				return FDInput{
					StartDate:         date(t, "01-05-2023"),
					Principal:         100000,
					AnnualRatePercent: 7,
					TenureMonths:      6,
					Compounding:       CompoundingQuarterly,
				}
			},
			check: func(t *testing.T, in FDInput, result *FDResult) {
				if len(result.FYData) != 1 {
					t.Fatalf("expected 1 fiscal year, got %d", len(result.FYData))
				}
				days := calendar.DaysBetween(in.StartDate, date(t, "01-11-2023"))
				want := 100000 * math.Pow(1+0.07/4, float64(days)/365*4)
				if result.Summary.MaturityAmount != want {
					t.Errorf("maturity = %v, want %v", result.Summary.MaturityAmount, want)
				}
				if result.FYData[0].FYLabel != "FY 2023-24" {
					t.Errorf("unexpected label %q", result.FYData[0].FYLabel)
				}
			},
		},
		{
			name: "interest across a boundary sums to total",
			input: func(t *testing.T) FDInput {
				return FDInput{
					StartDate:         date(t, "01-10-2023"),
					Principal:         50000,
					AnnualRatePercent: 6.5,
					TenureYears:       1,
					Compounding:       CompoundingAnnually,
				}
			},
			check: func(t *testing.T, _ FDInput, result *FDResult) {
				if len(result.FYData) != 2 {
					t.Fatalf("expected 2 fiscal years, got %d", len(result.FYData))
				}
				var sum float64
				for _, fy := range result.FYData {
					sum += fy.InterestEarned
				}
				if !approx(sum, result.Summary.MaturityAmount-50000, 1e-6) {
					t.Errorf("sum of interest %v != maturity - principal %v", sum, result.Summary.MaturityAmount-50000)
				}
				if result.FYData[1].StartBalance != result.FYData[0].EndBalance {
					t.Error("second year must start from first year's closing balance")
				}
			},
		},
		{
			name: "five years from april first",
			input: func(t *testing.T) FDInput {
				return FDInput{
					StartDate:         date(t, "01-04-2021"),
					Principal:         100000,
					AnnualRatePercent: 7.5,
					TenureYears:       5,
					Compounding:       CompoundingAnnually,
				}
			},
			check: func(t *testing.T, _ FDInput, result *FDResult) {
				if len(result.FYData) != 5 {
					t.Fatalf("expected 5 fiscal years, got %d", len(result.FYData))
				}
				// 01-04-2021..01-04-2026 содержит 1826 дней (FY 2023-24 високосный), год равен 365 дням:
				// 100000·1.075^(1826/365) = 143591.38.
				want := 100000 * math.Pow(1.075, 1826.0/365)
				if !approx(result.Summary.MaturityAmount, want, 1e-6) {
					t.Errorf("maturity = %v, want %v", result.Summary.MaturityAmount, want)
				}
				if !approx(utils.Round2(result.Summary.MaturityAmount), 143591.38, 1e-9) {
					t.Errorf("maturity = %.2f, want 143591.38", result.Summary.MaturityAmount)
				}
			},
		},
		{
			name: "zero length segment is skipped",
			input: func(t *testing.T) FDInput {
				return FDInput{
					StartDate:         date(t, "31-03-2024"),
					Principal:         1000,
					AnnualRatePercent: 5,
					TenureDays:        1,
					Compounding:       CompoundingMonthly,
				}
			},
			check: func(t *testing.T, _ FDInput, result *FDResult) {
				if len(result.FYData) != 1 {
					t.Fatalf("expected 1 row, got %d", len(result.FYData))
				}
				if result.FYData[0].Days != 1 {
					t.Errorf("expected 1 day, got %d", result.FYData[0].Days)
				}
			},
		},
		{
			name: "zero rate earns nothing",
			input: func(t *testing.T) FDInput {
				return FDInput{
					StartDate:   date(t, "15-08-2022"),
					Principal:   25000,
					TenureYears: 2,
					Compounding: CompoundingHalfYearly,
				}
			},
			check: func(t *testing.T, _ FDInput, result *FDResult) {
				if result.Summary.MaturityAmount != 25000 || result.Summary.TotalInterestEarned != 0 {
					t.Errorf("unexpected summary %+v", result.Summary)
				}
			},
		},
		{
			name: "unknown compounding",
			input: func(t *testing.T) FDInput {
				return FDInput{StartDate: date(t, "01-01-2024"), Principal: 1000, TenureYears: 1, Compounding: "weekly"}
			},
			wantError: ErrUnknownCompounding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input(t)
			result, err := ProjectFD(capConfig(1e12), in)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("ProjectFD() error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProjectFD() error = %v", err)
			}
			tt.check(t, in, result)
		})
	}
}

func TestProjectFDBalanceCap(t *testing.T) {
	_, err := ProjectFD(capConfig(1000), FDInput{
		StartDate:         date(t, "01-04-2020"),
		Principal:         999,
		AnnualRatePercent: 50,
		TenureYears:       3,
		Compounding:       CompoundingMonthly,
	})
	if !errors.Is(err, ErrBalanceCap) {
		t.Fatalf("expected ErrBalanceCap, got %v", err)
	}
}
