package metrics

import "time"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder receives bot events. Implementations must be safe for concurrent use.
type Recorder interface {
	IncTransition(op string)
	IncNotification(result string)
	ObserveSweep(d time.Duration, advanced, skipped, failed, sendFailed int)
	SetActive(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string) {}
func (NoopRecorder) IncNotification(string) {}
func (NoopRecorder) ObserveSweep(time.Duration, int, int, int, int) {}
func (NoopRecorder) SetActive(int) {}
