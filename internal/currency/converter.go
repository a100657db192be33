// Package currency converts amounts between currencies through a USD pivot and
// resolves which currency a user wants to see.
//
// Every rate is expressed as units of the currency per 1 USD. Converting from A to B
// divides by A's rate to reach USD, then multiplies by B's rate.
package currency

import "tripbudget/internal/core"

// Convert converts amount from one currency to another. An unresolved side or an
// unusable rate returns amount unchanged.
func Convert(amount float64, from, to *core.Currency) float64 {
	v, _ := TryConvert(amount, from, to)
	return v
}

// TryConvert is Convert that also reports whether the amount was actually
// converted. Identical currencies count as converted.
func TryConvert(amount float64, from, to *core.Currency) (float64, bool) {
	if from == nil || to == nil {
		return amount, false
	}
	if from.ID == to.ID {
		return amount, true
	}
	if from.ExchangeRateToUSD <= 0 || to.ExchangeRateToUSD <= 0 {
		return amount, false
	}
	usd := amount / from.ExchangeRateToUSD
	return core.Round2(usd * to.ExchangeRateToUSD), true
}

// Index maps currency ids to currencies for per-record lookups.
type Index map[string]*core.Currency

// NewIndex builds an Index from a currency list.
func NewIndex(currencies []core.Currency) Index {
	idx := make(Index, len(currencies))
	for i := range currencies {
		c := currencies[i]
		idx[c.ID] = &c
	}
	return idx
}

// Lookup returns the currency for id, or nil when id is empty or unknown.
func (idx Index) Lookup(id string) *core.Currency {
	if id == "" {
		return nil
	}
	return idx[id]
}
