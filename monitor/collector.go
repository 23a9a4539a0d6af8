package monitor

import (
	"sync"
	"time"
)

type MetricsCollector interface {
	Record(metrics NodeMetrics)
	Flush() Summary
}

// InMemoryCollector aggregates node executions per tool. It is shared by
// concurrent runs.
type InMemoryCollector struct {
	mu        sync.RWMutex
	stats     map[string]ToolStats
	startTime time.Time
}

func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		stats:     make(map[string]ToolStats),
		startTime: time.Now(),
	}
}

func (c *InMemoryCollector) Record(metrics NodeMetrics) {
	if metrics.Tool == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats[metrics.Tool]
	s.Tool = metrics.Tool
	s.Calls++
	s.TotalDuration += metrics.Duration
	if !metrics.Success {
		s.Failures++
		s.LastError = metrics.Error
	}
	c.stats[metrics.Tool] = s
}

func (c *InMemoryCollector) Flush() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := Summary{
		Tools:     make(map[string]ToolStats, len(c.stats)),
		StartTime: c.startTime,
		EndTime:   time.Now(),
	}
	for name, s := range c.stats {
		if s.Calls > 0 {
			s.AvgDurationMs = float64(s.TotalDuration.Microseconds()) / 1000 / float64(s.Calls)
		}
		summary.Tools[name] = s
		summary.TotalCalls += s.Calls
		summary.TotalFailures += s.Failures
	}
	return summary
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]ToolStats)
	c.startTime = time.Now()
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) Record(metrics NodeMetrics) {}

func (c *NoOpCollector) Flush() Summary {
	return Summary{}
}
