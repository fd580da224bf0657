package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stemma/pkg/domain"
)

// Collector exposes Prometheus metrics for experiment resolution.
type Collector struct {
	spawned  prometheus.Counter
	applied  prometheus.Counter
	resolved *prometheus.CounterVec
	failed   *prometheus.CounterVec
	blocked  prometheus.Counter
	duration *prometheus.HistogramVec
}

// NewCollector creates the metric set and registers it with reg.
// Pass prometheus.DefaultRegisterer for the global registry.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stemma_roots_spawned_total",
			Help: "Total number of root states spawned",
		}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stemma_recipes_applied_total",
			Help: "Total number of recipes attached to the graph",
		}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stemma_promises_resolved_total",
			Help: "Total number of promises resolved into state nodes",
		}, []string{"operator"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stemma_promises_failed_total",
			Help: "Total number of promises whose recipe failed",
		}, []string{"operator"}),
		blocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stemma_promises_blocked_total",
			Help: "Total number of promises blocked by upstream failures",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "stemma_recipe_duration_seconds",
			Help: "Duration of recipe executions",
		}, []string{"operator"}),
	}

	for _, col := range []prometheus.Collector{
		c.spawned, c.applied, c.resolved, c.failed, c.blocked, c.duration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns lifecycle hooks that feed the collector. Combine with other
// hooks manually if needed; the engine accepts a single hook set.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSpawn: func(ctx context.Context, e *domain.NodeEvent) {
			c.spawned.Inc()
		},
		OnApply: func(ctx context.Context, e *domain.NodeEvent) {
			c.applied.Inc()
		},
		OnResolve: func(ctx context.Context, e *domain.NodeEvent) {
			c.resolved.WithLabelValues(e.Operator).Inc()
			c.duration.WithLabelValues(e.Operator).Observe(e.Duration.Seconds())
		},
		OnFail: func(ctx context.Context, e *domain.NodeEvent) {
			c.failed.WithLabelValues(e.Operator).Inc()
			c.duration.WithLabelValues(e.Operator).Observe(e.Duration.Seconds())
		},
		OnBlock: func(ctx context.Context, e *domain.NodeEvent) {
			c.blocked.Inc()
		},
	}
}
