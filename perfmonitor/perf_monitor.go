// Package perfmonitor provides a start/stop stopwatch. The game server uses
// one to time a match from its first accepted move to its decision.
package perfmonitor

import "time"

// PerformanceMonitor measures the wall-clock time between Start and Stop.
// It is not safe for concurrent use; callers serialize access.
type PerformanceMonitor struct {
	startTime time.Time
	endTime   time.Time
}

// NewPerformanceMonitor creates a stopped monitor with no recorded times.
//
// Returns:
//   - A pointer to the new PerformanceMonitor
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// Start records the current time as the measurement start. Calling Start
// again restarts the measurement.
func (pm *PerformanceMonitor) Start() {
	pm.startTime = time.Now()
	pm.endTime = time.Time{}
}

// Stop records the current time as the measurement end. It does nothing
// when Start has not been called; calling Stop again extends the
// measurement to the newer end time.
func (pm *PerformanceMonitor) Stop() {
	if pm.startTime.IsZero() {
		return
	}

	pm.endTime = time.Now()
}

// Reset clears both recorded times so the monitor can be reused.
func (pm *PerformanceMonitor) Reset() {
	pm.startTime = time.Time{}
	pm.endTime = time.Time{}
}

// ElapsedMilliseconds returns the measured duration in milliseconds, or 0
// until both Start and Stop have been called.
//
// Returns:
//   - The elapsed wall-clock milliseconds between Start and Stop
func (pm *PerformanceMonitor) ElapsedMilliseconds() float64 {
	if pm.startTime.IsZero() || pm.endTime.IsZero() {
		return 0
	}

	return float64(pm.endTime.Sub(pm.startTime)) / float64(time.Millisecond)
}
