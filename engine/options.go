package engine

import (
	"time"

	"github.com/nodegraft/durableflow/metrics"
)

// Option configures an Engine, following the teacher's functional-options
// pattern (graph/options.go): New(..., WithMaxConcurrentWorkflows(50)).
type Option func(*engineConfig)

type engineConfig struct {
	maxConcurrentWorkflows int
	timerPollInterval      time.Duration
	timerBatchSize         int
	metrics                *metrics.Metrics
}

func defaultConfig() engineConfig {
	return engineConfig{
		maxConcurrentWorkflows: 100,
		timerPollInterval:      time.Second,
		timerBatchSize:         64,
	}
}

// WithMaxConcurrentWorkflows bounds how many workflow executions may run at
// once on this node. Submissions beyond the bound queue behind a buffered
// semaphore (spec §9 worker-pool sizing; default 100).
func WithMaxConcurrentWorkflows(n int) Option {
	return func(cfg *engineConfig) { cfg.maxConcurrentWorkflows = n }
}

// WithTimerPollInterval sets how often the TimerSweeper scans for due
// timers. Default 1s.
func WithTimerPollInterval(d time.Duration) Option {
	return func(cfg *engineConfig) { cfg.timerPollInterval = d }
}

// WithTimerBatchSize bounds how many due timers the TimerSweeper resumes per
// poll. Default 64.
func WithTimerBatchSize(n int) Option {
	return func(cfg *engineConfig) { cfg.timerBatchSize = n }
}

// WithMetrics attaches a Prometheus metrics collector. Without this option
// the engine records no metrics (nil-safe throughout).
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *engineConfig) { cfg.metrics = m }
}
