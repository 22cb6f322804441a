package content

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Infof(string, ...interface{}) {}
func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBus(nil)
	var got []string
	b.Subscribe(func(e Event) { got = append(got, "first:"+e.ID) })
	b.Subscribe(func(e Event) { got = append(got, "second:"+e.ID) })

	b.Publish(Event{Kind: KindPages, Op: OpCreate, ID: "1"})
	assert.Equal(t, []string{"first:1", "second:1"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus(nil)
	calls := 0
	unsubscribe := b.Subscribe(func(Event) { calls++ })
	b.Publish(Event{})
	unsubscribe()
	unsubscribe()
	b.Publish(Event{})
	assert.Equal(t, 1, calls)
}

func TestBusSurvivesPanickingSubscriber(t *testing.T) {
	log := &recordingLogger{}
	b := NewBus(log)
	delivered := false
	b.Subscribe(func(Event) { panic("boom") })
	b.Subscribe(func(Event) { delivered = true })

	assert.NotPanics(t, func() { b.Publish(Event{Kind: KindUsers, Op: OpDelete}) })
	assert.True(t, delivered)
	assert.Len(t, log.errors, 1)
}

func TestBusSetsTimestamp(t *testing.T) {
	b := NewBus(nil)
	var got Event
	b.Subscribe(func(e Event) { got = e })
	b.Publish(Event{Kind: KindListings})
	assert.False(t, got.At.IsZero())
}

func TestBusConcurrentUse(t *testing.T) {
	b := NewBus(nil)
	var mu sync.Mutex
	count := 0
	b.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe := b.Subscribe(func(Event) {})
			b.Publish(Event{Kind: KindPortfolio})
			unsubscribe()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, count)
}
