package types

import (
	"fmt"
	"math"
)

// Reading is one sensor sample, valid for a single wake cycle.
type Reading struct {
	Temperature float64 // Celsius
	Humidity    float64 // relative, percent
}

func (r Reading) Valid() bool {
	return isFinite(r.Temperature) && isFinite(r.Humidity)
}

func (r Reading) String() string {
	return fmt.Sprintf("Reading(temperature=%.2f humidity=%.2f)", r.Temperature, r.Humidity)
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
