package remote

import (
	"fmt"
	"math"
)

// SimTime is elapsed simulation time as reported by /time. The service
// sends whole numbers, possibly encoded as floats.
type SimTime struct {
	Years   float64 `json:"years"`
	Days    float64 `json:"days"`
	Hours   float64 `json:"hours"`
	Minutes float64 `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

func (t SimTime) String() string {
	return fmt.Sprintf("%dy %dd %02d:%02d:%02d",
		whole(t.Years), whole(t.Days), whole(t.Hours), whole(t.Minutes), whole(t.Seconds))
}

// Duration converts back to seconds using 365-day years.
func (t SimTime) Duration() float64 {
	return t.Years*365*86400 + t.Days*86400 + t.Hours*3600 + t.Minutes*60 + t.Seconds
}

func whole(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Floor(v))
}
