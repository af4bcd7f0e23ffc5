package aggregate

import (
	"fmt"
	"sync"

	"github.com/blackandwhitetux/solafans-rs485/solafans"
	"github.com/shopspring/decimal"
)

// Combined holds the values derived from the latest reading of each slot.
// Each value is only meaningful when its OK flag is set.
type Combined struct {
	Power    decimal.Decimal
	PowerOK  bool
	Energy   decimal.Decimal
	EnergyOK bool
}

// Aggregator keeps the latest reading per slot and the energy State. It
// is shared by the buses of both controllers; a single mutex covers the
// readings and the state so an update from one slot is never observed
// half applied by the other.
type Aggregator struct {
	mu     sync.Mutex
	latest [2]*solafans.Reading
	state  State
}

func New() *Aggregator {
	return &Aggregator{}
}

// Observe records r for slot and returns the combined values. Power needs
// a reading from both slots; energy needs a non-zero total from both at
// some point in the past.
func (a *Aggregator) Observe(slot int, r *solafans.Reading) (Combined, error) {
	if slot != A && slot != B {
		return Combined{}, fmt.Errorf("aggregate: invalid slot %d", slot)
	}
	if r == nil {
		return Combined{}, fmt.Errorf("aggregate: nil reading for slot %d", slot)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.latest[slot] = r

	var totals [2]decimal.Decimal
	for i, lr := range a.latest {
		if lr != nil {
			totals[i] = lr.TotalEnergyGenerated
		}
	}

	var c Combined
	c.Energy, a.state, c.EnergyOK = CombinedEnergy(a.state, totals[A], totals[B])

	if ra, rb := a.latest[A], a.latest[B]; ra != nil && rb != nil {
		c.Power = CombinedPower(ra.ChargingCurrent, rb.ChargingCurrent, ra.BatteryVoltage)
		c.PowerOK = true
	}
	return c, nil
}

// State returns a copy of the current energy state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}
