package temporal

import (
	"log/slog"
	"sync"
)

// ProgressSink receives fractional progress in [0,1] and status messages.
// Delivery is best effort.
type ProgressSink interface {
	Progress(fraction float64)
	Status(message string)
}

// NopProgress discards everything.
type NopProgress struct{}

func (NopProgress) Progress(float64) {}
func (NopProgress) Status(string)    {}

// LogProgress writes status messages to a slog logger; progress goes to debug.
type LogProgress struct {
	Logger *slog.Logger
}

func (p LogProgress) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p LogProgress) Progress(fraction float64) {
	p.logger().Debug("progress", "fraction", fraction)
}

func (p LogProgress) Status(message string) {
	p.logger().Info(message)
}

type progressEvent struct {
	fraction float64
	message  string
	status   bool
}

// AsyncProgress forwards events to another sink from a background goroutine.
// Events are dropped when the buffer is full, so a slow sink never blocks the caller.
type AsyncProgress struct {
	sink   ProgressSink
	events chan progressEvent
	done   chan struct{}
	once   sync.Once
}

// NewAsyncProgress starts forwarding to sink. Call Close when finished.
func NewAsyncProgress(sink ProgressSink, buffer int) *AsyncProgress {
	if buffer <= 0 {
		buffer = 64
	}
	p := &AsyncProgress{
		sink:   sink,
		events: make(chan progressEvent, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncProgress) run() {
	defer close(p.done)
	for ev := range p.events {
		if ev.status {
			safeStatus(p.sink, ev.message)
		} else {
			safeProgress(p.sink, ev.fraction)
		}
	}
}

func (p *AsyncProgress) send(ev progressEvent) {
	defer func() {
		// Sending after Close panics; drop instead.
		_ = recover()
	}()
	select {
	case p.events <- ev:
	default:
	}
}

func (p *AsyncProgress) Progress(fraction float64) {
	p.send(progressEvent{fraction: fraction})
}

func (p *AsyncProgress) Status(message string) {
	p.send(progressEvent{message: message, status: true})
}

// Close stops accepting events and waits for the queued ones to be delivered.
func (p *AsyncProgress) Close() {
	p.once.Do(func() {
		close(p.events)
	})
	<-p.done
}

func clampFraction(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func safeProgress(sink ProgressSink, fraction float64) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress sink panicked", "panic", r)
		}
	}()
	sink.Progress(clampFraction(fraction))
}

func safeStatus(sink ProgressSink, message string) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("status sink panicked", "panic", r)
		}
	}()
	sink.Status(message)
}

// ReportProgress delivers fraction to sink, recovering from sink panics.
func ReportProgress(sink ProgressSink, fraction float64) {
	safeProgress(sink, fraction)
}

// ReportStatus delivers message to sink, recovering from sink panics.
func ReportStatus(sink ProgressSink, message string) {
	safeStatus(sink, message)
}
