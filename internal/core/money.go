// Package core provides money rounding and formatting utilities.
//
// Amounts are float64 in the currency's major unit. Every converted amount is
// rounded to two decimals with half-up rounding so totals shown to the user add up.
package core

import (
	"math"
	"strconv"
)

// roundingEpsilon absorbs binary representation error so that values like 1.005
// round up as their decimal form says they should.
const roundingEpsilon = 1e-9

// Round2 rounds a value to two decimal places, half away from zero.
//
// Examples:
//
//	Round2(1.005)  -> 1.01
//	Round2(2.344)  -> 2.34
//	Round2(-1.005) -> -1.01
func Round2(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if v < 0 {
		return -math.Floor(-v*100+0.5+roundingEpsilon) / 100
	}
	return math.Floor(v*100+0.5+roundingEpsilon) / 100
}

// OverPercent returns how far estimated exceeds limit as a percentage of limit.
// A non-positive limit yields 0.
func OverPercent(estimated, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return (estimated - limit) / limit * 100
}

// FormatPercent formats a percentage with one decimal place.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(math.Round(p*10)/10, 'f', 1, 64) + "%"
}

// FormatAmount renders an amount with two decimals, prefixed by the symbol when known.
func FormatAmount(amount float64, c *Currency) string {
	s := strconv.FormatFloat(Round2(amount), 'f', 2, 64)
	if c == nil {
		return s
	}
	if c.Symbol != "" {
		return c.Symbol + s
	}
	return s + " " + c.Code
}
