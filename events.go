package uhf

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHandoffTimeout bounds how long Publish waits on a full subscriber.
const DefaultHandoffTimeout = 50 * time.Millisecond

// EventType tells the three kinds of scanner events apart.
type EventType int

const (
	EventTag EventType = iota
	EventStatus
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTag:
		return "tag"
	case EventStatus:
		return "status"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Tag is one tag seen in an inventory round. TID is empty when it was not
// requested or could not be read.
type Tag struct {
	EPC []byte
	TID []byte
}

// ID returns the EPC as upper-case hex.
func (t Tag) ID() string { return TagID(t.EPC) }

// TIDHex returns the TID as upper-case hex, or "" when unknown.
func (t Tag) TIDHex() string { return TagID(t.TID) }

// Event is published by a Scanner. Exactly one of Tag, Status and Err is set,
// according to Type.
type Event struct {
	Type   EventType
	Tag    *Tag
	Status string
	Err    error
	Port   string
	At     time.Time
}

func (e Event) String() string {
	switch e.Type {
	case EventTag:
		if len(e.Tag.TID) > 0 {
			return fmt.Sprintf("tag EPC=%s TID=%s", e.Tag.ID(), e.Tag.TIDHex())
		}
		return fmt.Sprintf("tag EPC=%s", e.Tag.ID())
	case EventStatus:
		return "status " + e.Status
	default:
		return fmt.Sprintf("error [%s] %v", ErrorKind(e.Err), e.Err)
	}
}

// EventStream fans events out to subscribers. Each subscriber owns a
// buffered channel; a subscriber that stays full for longer than the handoff
// timeout loses that event.
type EventStream struct {
	mu      sync.Mutex // also orders concurrent Publish calls
	subs    map[int]chan Event
	nextID  int
	handoff time.Duration
	closed  bool
}

// NewEventStream creates a stream. A non-positive handoff uses
// DefaultHandoffTimeout.
func NewEventStream(handoff time.Duration) *EventStream {
	if handoff <= 0 {
		handoff = DefaultHandoffTimeout
	}
	return &EventStream{
		subs:    make(map[int]chan Event),
		handoff: handoff,
	}
}

// Subscribe registers a new subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (es *EventStream) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)

	es.mu.Lock()
	defer es.mu.Unlock()
	if es.closed {
		close(ch)
		return ch, func() {}
	}
	id := es.nextID
	es.nextID++
	es.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			es.mu.Lock()
			defer es.mu.Unlock()
			if c, ok := es.subs[id]; ok {
				delete(es.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber. It returns the number of
// subscribers that dropped it.
func (es *EventStream) Publish(ev Event) int {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.closed {
		return 0
	}

	dropped := 0
	var timer *time.Timer
	for _, ch := range es.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		if timer == nil {
			timer = time.NewTimer(es.handoff)
		} else {
			timer.Reset(es.handoff)
		}
		select {
		case ch <- ev:
			timer.Stop()
		case <-timer.C:
			dropped++
			eventsDropped.Inc()
		}
	}
	if timer != nil {
		timer.Stop()
	}
	return dropped
}

// Subscribers returns the number of active subscribers.
func (es *EventStream) Subscribers() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.subs)
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (es *EventStream) Close() {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.closed {
		return
	}
	es.closed = true
	for id, ch := range es.subs {
		delete(es.subs, id)
		close(ch)
	}
}
