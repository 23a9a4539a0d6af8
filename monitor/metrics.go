package monitor

import "time"

// NodeMetrics describes one node execution.
type NodeMetrics struct {
	NodeID   string        `json:"node_id"`
	Tool     string        `json:"tool"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

type ToolStats struct {
	Tool          string        `json:"tool"`
	Calls         int           `json:"calls"`
	Failures      int           `json:"failures"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDurationMs float64       `json:"avg_duration_ms"`
	LastError     string        `json:"last_error,omitempty"`
}

type Summary struct {
	TotalCalls    int                  `json:"total_calls"`
	TotalFailures int                  `json:"total_failures"`
	Tools         map[string]ToolStats `json:"tools"`
	StartTime     time.Time            `json:"start_time"`
	EndTime       time.Time            `json:"end_time"`
}
