package jobs

import "testing"

// TestEventBusSince verifies incremental event reads by sequence.
func TestEventBusSince(t *testing.T) {
	bus := NewEventBus(3)
	bus.Publish(Event{Type: EventTypeStatus, RunID: "run-1", Message: "1"})
	bus.Publish(Event{Type: EventTypeProgress, RunID: "run-1", Message: "2"})
	bus.Publish(Event{Type: EventTypeResult, RunID: "run-1", Message: "3"})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
	if events[0].RunID != "run-1" {
		t.Fatalf("run id = %q, want run-1", events[0].RunID)
	}
}

// TestEventBusNotifyReceivesEachEvent verifies the push hook sees every
// published event with its assigned sequence.
func TestEventBusNotifyReceivesEachEvent(t *testing.T) {
	bus := NewEventBus(10)

	var pushed []Event
	bus.SetNotify(func(event Event) {
		pushed = append(pushed, event)
	})

	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})

	if len(pushed) != 2 {
		t.Fatalf("pushed = %d, want 2", len(pushed))
	}
	if pushed[0].Seq != 1 || pushed[1].Seq != 2 {
		t.Fatalf("unexpected seqs: %+v", pushed)
	}
}

// TestEventBusCapsHistory verifies buffer limit trimming behavior.
func TestEventBusCapsHistory(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
