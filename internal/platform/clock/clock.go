package clock

import (
	"fmt"
	"time"
)

// Clock abstracts time to keep timers and usecases deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. The returned value keeps its monotonic
// reading so elapsed-time math survives wall clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Format renders whole minutes and seconds as mm:ss, truncating fractions.
// Minutes grow past two digits rather than rolling over into hours.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
