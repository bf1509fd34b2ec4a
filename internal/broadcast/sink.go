package broadcast

import (
	"log"
	"sync"
)

// EventType classifies a broadcast event.
type EventType string

const (
	EventSensorUpdate     EventType = "sensor_update"
	EventPredictionUpdate EventType = "prediction_update"
	EventAlertCreated     EventType = "alert_created"
	EventAlertEscalated   EventType = "alert_escalated"
	EventAlertDeescalated EventType = "alert_deescalated"
	EventAlertResolved    EventType = "alert_resolved"
)

// Sink consumes prediction/alert events. Implementations must not block
// the caller's tick loop.
type Sink interface {
	Publish(event EventType, payload interface{})
}

type envelope struct {
	event   EventType
	payload interface{}
}

// AsyncSink decouples producers from a possibly slow downstream sink
// via a bounded buffer. When the buffer is full events are dropped, not
// queued unboundedly, so a stalled consumer can never stall simulation.
type AsyncSink struct {
	inner Sink
	ch    chan envelope
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncSink wraps a sink with a buffer of the given size and starts
// the forwarding goroutine.
func NewAsyncSink(inner Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &AsyncSink{
		inner: inner,
		ch:    make(chan envelope, buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	for e := range s.ch {
		s.inner.Publish(e.event, e.payload)
	}
	close(s.done)
}

// Publish enqueues an event, dropping it when the buffer is full.
// Publishing after Close is a silent no-op so late producer ticks
// cannot crash shutdown.
func (s *AsyncSink) Publish(event EventType, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- envelope{event, payload}:
	default:
		log.Printf("Broadcast buffer full, dropping %s event", event)
	}
}

// Close stops the forwarder after draining queued events. Safe to
// call more than once.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	<-s.done
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Publish(event EventType, payload interface{}) {
	for _, s := range m {
		s.Publish(event, payload)
	}
}
