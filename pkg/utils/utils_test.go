package utils

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{
			name:  "round to 2 decimals",
			input: 123.456789,
			want:  123.46,
		},
		{
			name:  "already 2 decimals",
			input: 123.45,
			want:  123.45,
		},
		{
			name:  "integer",
			input: 123.0,
			want:  123.0,
		},
		{
			name:  "half rounds away from zero",
			input: 2.675,
			want:  2.68,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round2(tt.input)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Round2() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  bool
	}{
		{name: "finite number", input: 123.45, want: true},
		{name: "infinity", input: math.Inf(1), want: false},
		{name: "negative infinity", input: math.Inf(-1), want: false},
		{name: "NaN", input: math.NaN(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.input); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		want      float64
		wantError bool
	}{
		{name: "string nav", input: "10.5000", want: 10.5},
		{name: "float", input: 12.25, want: 12.25},
		{name: "json number", input: json.Number("101.01"), want: 101.01},
		{name: "thousands separator", input: "1,50,000", want: 150000},
		{name: "garbage", input: "n/a", wantError: true},
		{name: "nil", input: nil, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseAmount() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("ParseAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name   string
		input  float64
		places int32
		want   float64
	}{
		{name: "units to 4 places", input: 99.999951, places: 4, want: 100},
		{name: "nav to 4 places", input: 10.123449, places: 4, want: 10.1234},
		{name: "whole rupees", input: 107499.5, places: 0, want: 107500},
		{name: "negative half", input: -1.005, places: 2, want: -1.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundTo(tt.input, tt.places); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RoundTo(%v, %d) = %v, want %v", tt.input, tt.places, got, tt.want)
			}
		})
	}

	if got := RoundTo(math.Inf(1), 2); !math.IsInf(got, 1) {
		t.Errorf("RoundTo(+Inf) = %v, want +Inf", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole, want float64
	}{
		{part: 200, whole: 1000, want: 20},
		{part: -50, whole: 200, want: -25},
		{part: 10, whole: 0, want: 0},
		{part: 10, whole: -5, want: 0},
	}

	for _, tt := range tests {
		if got := Percent(tt.part, tt.whole); got != tt.want {
			t.Errorf("Percent(%v, %v) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}
