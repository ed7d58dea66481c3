package session

import (
	"sync/atomic"
	"time"
)

// flowMetrics stores session flow counters
type flowMetrics struct {
	Started   uint64
	Completed uint64
	Failed    uint64
	Cancelled uint64
	StartTime time.Time
}

var globalMetrics = &flowMetrics{
	StartTime: time.Now(),
}

func incStarted()   { atomic.AddUint64(&globalMetrics.Started, 1) }
func incCompleted() { atomic.AddUint64(&globalMetrics.Completed, 1) }
func incFailed()    { atomic.AddUint64(&globalMetrics.Failed, 1) }
func incCancelled() { atomic.AddUint64(&globalMetrics.Cancelled, 1) }

// Metrics returns current flow counters
func Metrics() map[string]any {
	return map[string]any{
		"sessions_started":   atomic.LoadUint64(&globalMetrics.Started),
		"sessions_completed": atomic.LoadUint64(&globalMetrics.Completed),
		"sessions_failed":    atomic.LoadUint64(&globalMetrics.Failed),
		"sessions_cancelled": atomic.LoadUint64(&globalMetrics.Cancelled),
		"uptime_seconds":     time.Since(globalMetrics.StartTime).Seconds(),
	}
}
