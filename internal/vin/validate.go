// Package vin decodes vehicle identification numbers.
package vin

import "strings"

// weights are the ISO 3779 position weights; position 9 holds the check digit.
var weights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// Normalize trims and uppercases a VIN.
func Normalize(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// Valid reports whether vin is 17 characters from the VIN alphabet
// (digits and letters other than I, O and Q).
func Valid(vin string) bool {
	if len(vin) != 17 {
		return false
	}
	for i := 0; i < len(vin); i++ {
		if _, ok := transliterate(vin[i]); !ok {
			return false
		}
	}
	return true
}

// CheckDigitValid reports whether the check digit in position 9 matches.
// Vehicles built for markets outside North America often fail this check.
func CheckDigitValid(vin string) bool {
	if !Valid(vin) {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		v, _ := transliterate(vin[i])
		sum += v * weights[i]
	}
	want := byte('0' + sum%11)
	if sum%11 == 10 {
		want = 'X'
	}
	return vin[8] == want
}

func transliterate(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'H':
		return int(c-'A') + 1, true
	case c >= 'J' && c <= 'N':
		return int(c-'J') + 1, true
	case c == 'P':
		return 7, true
	case c == 'R':
		return 9, true
	case c >= 'S' && c <= 'Z':
		return int(c-'S') + 2, true
	}
	return 0, false
}
