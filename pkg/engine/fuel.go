package engine

import (
	"errors"
	"time"
)

// ErrFuelExhausted is raised, verbatim as its message, whenever the fuel
// meter trips — either via the per-crossing debit counter or via the
// context-cancellation backstop described in SPEC_FULL.md §4.
var ErrFuelExhausted = errors.New("Script killed by fuel limit")

// instructionsPerSecond calibrates the wall-clock backstop derived from
// a fuel budget. gopher-lua exposes no native per-instruction counter
// (see SPEC_FULL.md §4), so this is a documented approximation rather
// than a measured value: tuned so that `while true do end` under the
// default 1,000,000-fuel budget terminates in a small fraction of a
// second, matching spec.md's "O(max_fuel) instructions" requirement.
const instructionsPerSecond = 20_000_000

// fuelToTimeout converts a fuel budget into the wall-clock backstop
// passed to context.WithTimeout. A non-positive fuel value means
// unenforced, signaled by a zero duration (caller skips the timeout).
func fuelToTimeout(fuel int64) time.Duration {
	if fuel <= 0 {
		return 0
	}
	d := time.Duration(fuel) * time.Second / instructionsPerSecond
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

// fuelMeter tracks the per-crossing debit counter for one eval.
type fuelMeter struct {
	limit     int64 // 0 means unenforced
	remaining int64
}

func newFuelMeter(limit int64) *fuelMeter {
	return &fuelMeter{limit: limit, remaining: limit}
}

// Debit subtracts cost from the remaining budget, returning
// ErrFuelExhausted once it would go non-positive. A zero limit never
// trips.
func (f *fuelMeter) Debit(cost int64) error {
	if f.limit <= 0 {
		return nil
	}
	f.remaining -= cost
	if f.remaining <= 0 {
		return ErrFuelExhausted
	}
	return nil
}
