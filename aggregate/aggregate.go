// Package aggregate combines the readings of a pair of controllers into
// combined power and combined cumulative energy sensors.
package aggregate

import (
	"github.com/shopspring/decimal"
)

// Pair slots
const (
	A = 0
	B = 1
)

// State is the last non-zero cumulative energy seen per slot. A zero
// entry means no value has been recorded yet.
type State struct {
	Energy [2]decimal.Decimal
}

// CombinedPower returns (currentA+currentB)*voltageA truncated to one
// decimal place.
func CombinedPower(currentA, currentB, voltageA decimal.Decimal) decimal.Decimal {
	return currentA.Add(currentB).Mul(voltageA).Truncate(1)
}

// CombinedEnergy sums the cumulative energy of both slots, truncated to
// three decimal places. A zero total (glitched or absent reading) is
// replaced with the last non-zero value in st so the combined counter
// never drops. ok is false while either slot has never reported a
// non-zero total. The returned State replaces st.
func CombinedEnergy(st State, totalA, totalB decimal.Decimal) (sum decimal.Decimal, next State, ok bool) {
	next = st
	ok = true
	sum = decimal.Zero
	for i, v := range [2]decimal.Decimal{totalA, totalB} {
		if v.IsZero() {
			if next.Energy[i].IsZero() {
				ok = false
				continue
			}
			v = next.Energy[i]
		} else {
			next.Energy[i] = v
		}
		sum = sum.Add(v)
	}
	if !ok {
		return decimal.Zero, next, false
	}
	return sum.Truncate(3), next, true
}
