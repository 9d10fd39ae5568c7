package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/mpmc-index/internal/htable"
)

// config collects every New-time knob, built by applying a caller's Options
// over defaultConfig. Grounded on the teacher's pkg/config.go config[K,V]/
// defaultConfig/applyOptions triad, generalized from a cache's capacity/TTL
// knobs to the index's bucket-count/tunables/observability knobs.
type config struct {
	tunables htable.Tunables

	logger   *zap.Logger
	registry *prometheus.Registry

	collectorInterval time.Duration
}

func defaultConfig() *config {
	return &config{
		tunables:          htable.DefaultTunables(),
		logger:            zap.NewNop(),
		collectorInterval: time.Second,
	}
}

// Option configures an Index at construction time.
type Option func(*config)

// WithTunables overrides the default htable.Tunables (probe window width,
// upsize block size, epoch GC ring sizes).
func WithTunables(t htable.Tunables) Option {
	return func(c *config) { c.tunables = t }
}

// WithLogger attaches a structured logger for upsize start and completion
// events; GC reclamation and worker registration are not logged. The hot path (Set/Get/Delete) never logs regardless of this
// option; see htable.Hooks. Grounded on the teacher's WithLogger
// (pkg/config.go).
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics registers Prometheus collectors against reg for hits, misses,
// insertions, updates, deletions, reclamations and the current bucket
// count. A nil registry (the default) disables metrics entirely. Grounded
// on the teacher's WithMetrics (pkg/config.go) and metricsSink factory
// (pkg/metrics.go).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithBackgroundCollectorInterval overrides how often the epoch GC's
// background collector sweeps registered Workers for reclaimable objects
// (default 1s). A non-positive interval disables the background collector;
// staged objects are then reclaimed only when a Worker is Unregistered.
func WithBackgroundCollectorInterval(d time.Duration) Option {
	return func(c *config) { c.collectorInterval = d }
}

func applyOptions(c *config, opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}
