package clock

import "time"

// Clock abstracts time.Now so the session state machine can be unit-tested
// against fixed instants (pause/resume timeout math).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System returns the wall-clock implementation used in production wiring.
func System() Clock {
	return systemClock{}
}
