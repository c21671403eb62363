// Package core provides the intake domain: entries, goals, logical days and
// progress aggregation.
//
// This file contains the parsing of user-typed millilitre amounts.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// maxDigits keeps strconv away from absurd inputs before bounds checking.
const maxDigits = 9

var unitSuffixes = []string{"ml", "мл"}

// ParseMillilitres converts user text such as "250", "+250" or "250 ml" into
// a whole number of millilitres. Only digits are accepted after the optional
// plus sign and before the optional unit suffix. The result is not
// range-checked; see ParseAmount and ParseGoal.
//
// Examples:
//
//	ParseMillilitres("+200")   -> 200, true
//	ParseMillilitres("300 ml") -> 300, true
//	ParseMillilitres("-5")     -> 0, false
//	ParseMillilitres("1.5")    -> 0, false
func ParseMillilitres(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	s = strings.TrimPrefix(s, "+")
	if s == "" || len(s) > maxDigits {
		return 0, false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseAmount parses and validates a single intake amount.
func ParseAmount(s string) (int, error) {
	v, ok := ParseMillilitres(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	if err := ValidateAmount(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ParseGoal parses and validates a daily goal.
func ParseGoal(s string) (int, error) {
	v, ok := ParseMillilitres(s)
	if !ok {
		return 0, ErrInvalidGoal
	}
	if err := ValidateGoal(v); err != nil {
		return 0, err
	}
	return v, nil
}
