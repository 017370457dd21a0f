package pipeline

import (
	"time"

	"github.com/nerrad567/tsmigrate/internal/sink"
)

// Observer receives pipeline events. Implementations must be safe for
// concurrent use; calls come from the reader and writer goroutines.
type Observer interface {
	StateChanged(from, to State)
	RecordRead()
	PointWritten(d time.Duration)
	WriteFailed(class sink.Class, severity sink.Severity)
	QueueDepth(n int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StateChanged(State, State)             {}
func (NopObserver) RecordRead()                           {}
func (NopObserver) PointWritten(time.Duration)            {}
func (NopObserver) WriteFailed(sink.Class, sink.Severity) {}
func (NopObserver) QueueDepth(int)                        {}
