package schedule

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// ApproximateDuration is a duration drawn uniformly from [Min, Max].
type ApproximateDuration struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// Exactly returns an ApproximateDuration that always yields d.
func Exactly(d time.Duration) ApproximateDuration {
	return ApproximateDuration{Min: d, Max: d}
}

// Between returns a validated ApproximateDuration.
func Between(lower, upper time.Duration) (ApproximateDuration, error) {
	a := ApproximateDuration{Min: lower, Max: upper}

	return a, a.Validate()
}

// Validate checks min <= max.
func (a ApproximateDuration) Validate() error {
	if a.Min > a.Max {
		return fmt.Errorf("%w: min=%s max=%s", ErrInvalidBounds, a.Min, a.Max)
	}

	return nil
}

// Value draws a duration using the given uniform [0,1) source. A nil source
// falls back to the global generator.
func (a ApproximateDuration) Value(uniform func() float64) time.Duration {
	if a.Max <= a.Min {
		return a.Min
	}

	if uniform == nil {
		uniform = rand.Float64
	}

	return a.Min + time.Duration(uniform()*float64(a.Max-a.Min))
}
