package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	mu     sync.Mutex
	events []EventType
}

func (r *recordingSink) Publish(event EventType, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestAsyncSinkDeliversInOrder(t *testing.T) {
	inner := &recordingSink{}
	s := NewAsyncSink(inner, 16)

	s.Publish(EventSensorUpdate, "a")
	s.Publish(EventPredictionUpdate, "b")
	s.Publish(EventAlertCreated, "c")
	s.Close() // drains before returning

	assert.Equal(t, []EventType{EventSensorUpdate, EventPredictionUpdate, EventAlertCreated}, inner.events)
}

func TestAsyncSinkDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	inner := &blockingSink{release: block}
	s := NewAsyncSink(inner, 2)

	// First event occupies the forwarder; two fill the buffer; the rest
	// are dropped rather than blocking the publisher
	for i := 0; i < 10; i++ {
		s.Publish(EventSensorUpdate, i)
	}
	close(block)
	s.Close()

	assert.LessOrEqual(t, inner.count(), 4)
	assert.GreaterOrEqual(t, inner.count(), 1)
}

type blockingSink struct {
	recordingSink
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Publish(event EventType, payload interface{}) {
	b.once.Do(func() { <-b.release })
	b.recordingSink.Publish(event, payload)
}

func TestAsyncSinkPublishAfterCloseIsNoOp(t *testing.T) {
	inner := &recordingSink{}
	s := NewAsyncSink(inner, 4)

	s.Publish(EventSensorUpdate, "a")
	s.Close()

	// A producer tick racing shutdown must not crash the process
	assert.NotPanics(t, func() {
		s.Publish(EventPredictionUpdate, "late")
	})
	assert.NotPanics(t, s.Close)
	assert.Equal(t, []EventType{EventSensorUpdate}, inner.events)
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := MultiSink{a, b}

	m.Publish(EventAlertResolved, nil)

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}
