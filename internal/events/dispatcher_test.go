package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var order []string
	d.Subscribe(EventAccessGranted, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(EventAccessGranted, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(EventAccessDenied, func(_ context.Context, _ Event) error {
		order = append(order, "unrelated")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventAccessGranted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v", order)
	}
}

func TestDispatcherContinuesPastFailures(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var reached bool
	d.Subscribe(EventVisitorCreated, func(_ context.Context, _ Event) error {
		return errors.New("handler broke")
	})
	d.Subscribe(EventVisitorCreated, func(_ context.Context, _ Event) error {
		reached = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventVisitorCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !reached {
		t.Error("failing handler blocked the next one")
	}
}
