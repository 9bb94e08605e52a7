package logstream

import (
	"testing"
	"time"
)

func TestConsumePreservesOrder(t *testing.T) {
	ch := NewChannel()
	ch.Publishf("first")
	ch.Publishf("second")
	ch.PublishTerminal()

	var got []Event
	for {
		evt, ok := ch.Consume(time.Second)
		if !ok {
			t.Fatal("unexpected consume timeout")
		}
		got = append(got, evt)
		if evt.Terminal {
			break
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("events out of order: %#v", got)
	}
	if !got[2].Terminal {
		t.Fatal("expected last event to be terminal")
	}
}

func TestConsumeTimesOutWhenIdle(t *testing.T) {
	ch := NewChannel()
	start := time.Now()
	if _, ok := ch.Consume(20 * time.Millisecond); ok {
		t.Fatal("expected timeout on empty channel")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("consume returned too early: %s", elapsed)
	}
}

func TestConsumeWakesOnPublish(t *testing.T) {
	ch := NewChannel()
	go func() {
		time.Sleep(10 * time.Millisecond)
		ch.Publishf("late arrival")
	}()
	evt, ok := ch.Consume(2 * time.Second)
	if !ok {
		t.Fatal("expected event before timeout")
	}
	if evt.Text != "late arrival" {
		t.Fatalf("unexpected event %#v", evt)
	}
}

func TestResetDropsStaleEvents(t *testing.T) {
	ch := NewChannel()
	ch.Publishf("stale")
	ch.PublishTerminal()
	ch.Reset()
	if ch.Len() != 0 {
		t.Fatalf("expected empty channel after reset, have %d", ch.Len())
	}
	ch.Publishf("fresh")
	evt, ok := ch.Consume(time.Second)
	if !ok || evt.Text != "fresh" {
		t.Fatalf("expected fresh event, got %#v ok=%v", evt, ok)
	}
}
