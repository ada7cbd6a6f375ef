package redirect

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for redirect logging.
type Metrics struct {
	RedirectsTotal  *prometheus.CounterVec
	HookErrorsTotal *prometheus.CounterVec
}

// NewMetrics returns the process-wide redirect metrics, registering them on
// first use.
//
// Metrics:
//   - debugredirect_redirects_total{status} - redirects logged, by status label
//   - debugredirect_hook_errors_total{hook} - hook failures, logged or throttled
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RedirectsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "debugredirect_redirects_total",
					Help: "Total number of redirects logged",
				},
				[]string{"status"}, // "301".."308" or "302 (via redirect method)"
			),

			HookErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "debugredirect_hook_errors_total",
					Help: "Total number of recovered failures inside redirect hooks",
				},
				[]string{"hook"},
			),
		}
	})

	return globalMetrics
}
