package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventTransfer)

	bus.Publish(&TransferEvent{
		BaseEvent: NewBase(EventTransfer),
		TaskType:  "upload",
		Name:      "report.docx",
		Progress:  0.5,
	})

	select {
	case received := <-ch:
		ev, ok := received.(*TransferEvent)
		if !ok {
			t.Fatal("Expected TransferEvent")
		}
		if ev.Name != "report.docx" {
			t.Errorf("Expected name 'report.docx', got '%s'", ev.Name)
		}
		if ev.Progress != 0.5 {
			t.Errorf("Expected progress 0.5, got %f", ev.Progress)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultiTypeSubscription(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventLog, EventError)

	bus.PublishLog(InfoLevel, "test", "hello", nil)
	bus.Publish(&LogEvent{BaseEvent: NewBase(EventError), Level: ErrorLevel, Error: errors.New("boom")})
	bus.Publish(&TransferEvent{BaseEvent: NewBase(EventTransfer)})

	got := 0
	timeout := time.After(100 * time.Millisecond)
	for got < 2 {
		select {
		case <-ch:
			got++
		case <-timeout:
			t.Fatalf("received %d events, want 2", got)
		}
	}

	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %v", ev.Type())
	default:
	}
}

func TestEventBus_FullBufferDrops(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventLog)
	bus.PublishLog(InfoLevel, "test", "first", nil)
	bus.PublishLog(InfoLevel, "test", "second", nil)

	if got := bus.DroppedEventCount(); got != 1 {
		t.Errorf("DroppedEventCount() = %d, want 1", got)
	}
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventLog, EventError)
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.PublishLog(InfoLevel, "test", "after", nil)
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(10)
	all := bus.SubscribeAll()
	multi := bus.Subscribe(EventLog, EventTransfer)

	bus.Close()
	bus.Close()

	if _, ok := <-all; ok {
		t.Error("SubscribeAll channel should be closed")
	}
	if _, ok := <-multi; ok {
		t.Error("multi-type channel should be closed")
	}

	late := bus.Subscribe(EventLog)
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed immediately")
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *EventBus
	bus.Publish(&LogEvent{BaseEvent: NewBase(EventLog)})
}
