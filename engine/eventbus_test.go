package engine

import "testing"

func TestEventBusFilterAndUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	var all, saved int
	bus.Subscribe(func(Event) { all++ })
	id := bus.SubscribeTypes(func(Event) { saved++ }, EventSessionSaved)

	bus.Emit(Event{Type: EventSessionSaved})
	bus.Emit(Event{Type: EventProductChanged})
	if all != 2 || saved != 1 {
		t.Fatalf("all = %d, saved = %d, want 2 and 1", all, saved)
	}

	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventSessionSaved})
	if saved != 1 {
		t.Errorf("saved = %d after unsubscribe, want 1", saved)
	}
	if all != 3 {
		t.Errorf("all = %d, want 3", all)
	}
}
