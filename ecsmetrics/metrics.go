// Package ecsmetrics provides the Prometheus observation surface for an
// ecs.World: frame duration, systems-run counts, query sizes, and borrow
// conflicts, plus a periodic process CPU/RSS sampler.
package ecsmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector implements ecs.MetricsSink and is itself a
// prometheus.Collector, suitable for registration with any registry.
type Collector struct {
	frameDuration   prometheus.Histogram
	systemsRun      prometheus.Counter
	querySize       *prometheus.CounterVec
	borrowConflicts prometheus.Counter

	cpuPercent prometheus.Gauge
	rssBytes   prometheus.Gauge
}

// New builds a Collector labeled with session (a world's correlation id).
func New(session string) *Collector {
	return &Collector{
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "ecs_frame_duration_seconds",
			Help:        "Wall-clock duration of one RunSystems/RunSystemsTracked call.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"session": session},
		}),
		systemsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ecs_systems_run_total",
			Help:        "Number of system invocations executed.",
			ConstLabels: prometheus.Labels{"session": session},
		}),
		querySize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ecs_query_entities_total",
			Help:        "Sum of entities yielded by queries, labeled by query site.",
			ConstLabels: prometheus.Labels{"session": session},
		}, []string{"site"}),
		borrowConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ecs_borrow_conflicts_total",
			Help:        "Number of direct-API borrow conflicts detected.",
			ConstLabels: prometheus.Labels{"session": session},
		}),
		cpuPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ecs_process_cpu_percent",
			Help:        "Process CPU usage percent, sampled periodically.",
			ConstLabels: prometheus.Labels{"session": session},
		}),
		rssBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ecs_process_rss_bytes",
			Help:        "Process resident set size in bytes, sampled periodically.",
			ConstLabels: prometheus.Labels{"session": session},
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.frameDuration.Describe(ch)
	c.systemsRun.Describe(ch)
	c.querySize.Describe(ch)
	c.borrowConflicts.Describe(ch)
	c.cpuPercent.Describe(ch)
	c.rssBytes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.frameDuration.Collect(ch)
	c.systemsRun.Collect(ch)
	c.querySize.Collect(ch)
	c.borrowConflicts.Collect(ch)
	c.cpuPercent.Collect(ch)
	c.rssBytes.Collect(ch)
}

// ObserveFrameDuration implements ecs.MetricsSink.
func (c *Collector) ObserveFrameDuration(seconds float64) { c.frameDuration.Observe(seconds) }

// IncSystemsRun implements ecs.MetricsSink.
func (c *Collector) IncSystemsRun() { c.systemsRun.Inc() }

// ObserveQuerySize implements ecs.MetricsSink.
func (c *Collector) ObserveQuerySize(site string, n int) {
	c.querySize.WithLabelValues(site).Add(float64(n))
}

// IncBorrowConflict implements ecs.MetricsSink.
func (c *Collector) IncBorrowConflict() { c.borrowConflicts.Inc() }

// SampleProcess starts a goroutine that samples this process's CPU and
// RSS every interval via gopsutil, updating the gauges, until ctx is
// canceled.
func (c *Collector) SampleProcess(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(processPID()))
	if err != nil {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if pct, err := proc.CPUPercent(); err == nil {
					c.cpuPercent.Set(pct)
				}
				if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
					c.rssBytes.Set(float64(mem.RSS))
				}
			}
		}
	}()
}
