package hook

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// hookMetrics are the Prometheus metrics of all dispatchers of one kind.
type hookMetrics struct {
	invocations *metrics.Counter
	matched     *metrics.Counter
	puts        *metrics.Counter
	increments  *metrics.Counter
	errors      *metrics.Counter
	duration    *metrics.Histogram
}

func newHookMetrics(kind Kind) *hookMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`dhook_hook_%s{kind=%q}`, metric, kind)
	}
	return &hookMetrics{
		invocations: metrics.GetOrCreateCounter(name("invocations_total")),
		matched:     metrics.GetOrCreateCounter(name("matched_cells_total")),
		puts:        metrics.GetOrCreateCounter(name("puts_total")),
		increments:  metrics.GetOrCreateCounter(name("increments_total")),
		errors:      metrics.GetOrCreateCounter(name("errors_total")),
		duration:    metrics.GetOrCreateHistogram(name("duration_seconds")),
	}
}
