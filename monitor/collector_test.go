package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCollector_Aggregates(t *testing.T) {
	c := NewInMemoryCollector()
	c.Record(NodeMetrics{NodeID: "a", Tool: "lint", Duration: 2 * time.Millisecond, Success: true})
	c.Record(NodeMetrics{NodeID: "b", Tool: "lint", Duration: 4 * time.Millisecond, Success: false, Error: "boom"})
	c.Record(NodeMetrics{NodeID: "c", Tool: "find_todos", Duration: time.Millisecond, Success: true})
	c.Record(NodeMetrics{NodeID: "end", Success: true})

	s := c.Flush()
	assert.Equal(t, 3, s.TotalCalls)
	assert.Equal(t, 1, s.TotalFailures)
	assert.Len(t, s.Tools, 2)

	lint := s.Tools["lint"]
	assert.Equal(t, 2, lint.Calls)
	assert.Equal(t, 1, lint.Failures)
	assert.Equal(t, "boom", lint.LastError)
	assert.Equal(t, 6*time.Millisecond, lint.TotalDuration)
	assert.InDelta(t, 3.0, lint.AvgDurationMs, 0.001)
}

func TestInMemoryCollector_Reset(t *testing.T) {
	c := NewInMemoryCollector()
	c.Record(NodeMetrics{Tool: "lint", Success: true})
	c.Reset()
	assert.Zero(t, c.Flush().TotalCalls)
}

func TestInMemoryCollector_Concurrent(t *testing.T) {
	c := NewInMemoryCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(NodeMetrics{Tool: "x", Success: true})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Flush().Tools["x"].Calls)
}

func TestNoOpCollector(t *testing.T) {
	c := NewNoOpCollector()
	c.Record(NodeMetrics{Tool: "x"})
	assert.Equal(t, Summary{}, c.Flush())
}
