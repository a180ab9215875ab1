package cycletimecollector

import (
	"time"

	"github.com/jamiealquiza/tachymeter"
)

// tachymeterCollector uses the jamiealquiza/tachymeter library to capture
// timings over a sliding window, keeping memory bounded on a process that
// runs for whole missions.
type tachymeterCollector struct {
	tach *tachymeter.Tachymeter
}

func NewTachymeterCollector(window int) *tachymeterCollector {
	return &tachymeterCollector{tach: tachymeter.New(&tachymeter.Config{
		Size: window,
	})}
}

func (c *tachymeterCollector) Add(t time.Duration) {
	c.tach.AddTime(t)
}

func (c *tachymeterCollector) Aggregate() *Aggregation {
	aggregation := c.tach.Calc()
	return &Aggregation{
		P50: aggregation.Time.P50,
		P75: aggregation.Time.P75,
		P95: aggregation.Time.P95,
	}
}

func (c *tachymeterCollector) Reset() {
	c.tach.Reset()
}
