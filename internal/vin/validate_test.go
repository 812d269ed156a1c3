package vin

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		vin  string
		want bool
	}{
		{"1HGCM82633A004352", true},
		{"WVWZZZ1JZXW000001", true},
		{"1HGCM82633A00435", false},
		{"1HGCM82633A0043521", false},
		{"1HGCM82633A00435I", false},
		{"1hgcm82633a004352", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.vin); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.vin, got, tt.want)
		}
	}
}

func TestCheckDigitValid(t *testing.T) {
	tests := []struct {
		vin  string
		want bool
	}{
		{"1HGCM82633A004352", true},
		{"11111111111111111", true},
		{"1M8GDM9AXKP042788", true},
		{"1HGCM82643A004352", false},
		{"short", false},
	}
	for _, tt := range tests {
		if got := CheckDigitValid(tt.vin); got != tt.want {
			t.Errorf("CheckDigitValid(%q) = %v, want %v", tt.vin, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(" 1hgcm82633a004352 "); got != "1HGCM82633A004352" {
		t.Fatalf("unexpected normalized vin %q", got)
	}
}
