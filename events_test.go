package uhf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventStreamDeliversInOrder(t *testing.T) {
	es := NewEventStream(0)
	ch, cancel := es.Subscribe(8)
	defer cancel()

	for i := 0; i < 3; i++ {
		es.Publish(Event{Type: EventStatus, Status: string(rune('a' + i))})
	}
	for i := 0; i < 3; i++ {
		ev := <-ch
		if ev.Status != string(rune('a'+i)) {
			t.Errorf("event %d status = %q", i, ev.Status)
		}
		if ev.At.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
}

func TestEventStreamFanOut(t *testing.T) {
	es := NewEventStream(0)
	a, cancelA := es.Subscribe(1)
	b, cancelB := es.Subscribe(1)
	defer cancelA()
	defer cancelB()

	es.Publish(Event{Type: EventTag, Tag: &Tag{EPC: []byte{0xAB}}})
	for _, ch := range []<-chan Event{a, b} {
		ev := <-ch
		if ev.Type != EventTag || ev.Tag.ID() != "AB" {
			t.Errorf("got %v", ev)
		}
	}
}

func TestEventStreamDropsOnSlowSubscriber(t *testing.T) {
	es := NewEventStream(10 * time.Millisecond)
	_, cancel := es.Subscribe(1)
	defer cancel()

	before := testutil.ToFloat64(eventsDropped)
	if n := es.Publish(Event{Type: EventStatus, Status: "1"}); n != 0 {
		t.Fatalf("first event dropped")
	}
	start := time.Now()
	if n := es.Publish(Event{Type: EventStatus, Status: "2"}); n != 1 {
		t.Fatalf("Publish on full subscriber dropped %d, want 1", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Publish blocked for %v", elapsed)
	}
	if got := testutil.ToFloat64(eventsDropped) - before; got != 1 {
		t.Errorf("dropped counter advanced by %v, want 1", got)
	}
}

func TestEventStreamHandoffWaitsForReader(t *testing.T) {
	es := NewEventStream(time.Second)
	ch, cancel := es.Subscribe(0)
	defer cancel()

	got := make(chan Event, 1)
	go func() { got <- <-ch }()
	if n := es.Publish(Event{Type: EventStatus, Status: "ready"}); n != 0 {
		t.Fatalf("event dropped with a waiting reader")
	}
	if ev := <-got; ev.Status != "ready" {
		t.Errorf("status = %q", ev.Status)
	}
}

func TestEventStreamCancelAndClose(t *testing.T) {
	es := NewEventStream(0)
	ch, cancel := es.Subscribe(1)
	if es.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d", es.Subscribers())
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel open after cancel")
	}
	if es.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after cancel", es.Subscribers())
	}

	other, _ := es.Subscribe(1)
	es.Close()
	es.Close()
	if _, ok := <-other; ok {
		t.Error("channel open after Close")
	}
	es.Publish(Event{Type: EventStatus})

	late, _ := es.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscription after Close is open")
	}
}

func TestEventString(t *testing.T) {
	testCases := []struct {
		ev   Event
		want string
	}{
		{Event{Type: EventTag, Tag: &Tag{EPC: []byte{0xE2, 0x00}}}, "tag EPC=E200"},
		{Event{Type: EventTag, Tag: &Tag{EPC: []byte{0xE2, 0x00}, TID: []byte{0x01}}}, "tag EPC=E200 TID=01"},
		{Event{Type: EventStatus, Status: "Scan stopped"}, "status Scan stopped"},
		{Event{Type: EventError, Err: errors.New("boom")}, "error [unknown] boom"},
	}
	for _, tc := range testCases {
		if got := tc.ev.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
