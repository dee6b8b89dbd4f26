package x11

import (
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

func TestPumpDispatchStopsAtFirstClaimingWindow(t *testing.T) {
	d, _ := newTestDisplay()
	first, _ := NewOverlayWindow(d, testParent)
	second, _ := NewOverlayWindow(d, xproto.Window(77))

	pump := NewPump(d)
	pump.Register(first)
	pump.Register(second)

	firstPainter := &countingPainter{}
	secondPainter := &countingPainter{}
	first.SetPainter(firstPainter)
	second.SetPainter(secondPainter)

	d.queue.(*stubQueue).events = []xgb.Event{
		xproto.ExposeEvent{Window: second.ID(), Count: 0},
	}

	if err := pump.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	claimed, err := pump.Dispatch()
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if !claimed {
		t.Fatalf("expected the event to be claimed")
	}
	if firstPainter.paints != 0 || secondPainter.paints != 1 {
		t.Fatalf("expected only the target window to draw, got %d/%d",
			firstPainter.paints, secondPainter.paints)
	}
}

func TestPumpDiscardsUnclaimedEvent(t *testing.T) {
	d, _ := newTestDisplay()
	w, _ := NewOverlayWindow(d, testParent)

	pump := NewPump(d)
	pump.Register(w)

	// Configure for a parent no registered window tracks. Without the
	// discard the pump would block on this event forever.
	d.queue.(*stubQueue).events = []xgb.Event{
		xproto.ConfigureNotifyEvent{Window: 999, Width: 10, Height: 10},
	}

	if err := pump.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	claimed, err := pump.Dispatch()
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if claimed {
		t.Fatalf("expected the event to go unclaimed")
	}
	if d.pending != nil {
		t.Fatalf("expected the unclaimed event to be discarded")
	}
}

func TestPumpWaitReturnsImmediatelyWithPendingEvent(t *testing.T) {
	d, _ := newTestDisplay()
	w, _ := NewOverlayWindow(d, testParent)

	pump := NewPump(d)
	pump.Register(w)

	d.queue.(*stubQueue).events = []xgb.Event{
		xproto.ExposeEvent{Window: w.ID(), Count: 0},
		xproto.ExposeEvent{Window: w.ID(), Count: 0},
	}

	if err := pump.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	// The event is peeked, not consumed: a second wait must not pull
	// another event off the queue.
	if err := pump.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	if got := len(d.queue.(*stubQueue).events); got != 1 {
		t.Fatalf("expected one event left queued, got %d", got)
	}
}

func TestPumpRunStopsWhenConnectionCloses(t *testing.T) {
	d, _ := newTestDisplay()
	w, _ := NewOverlayWindow(d, testParent)
	painter := &countingPainter{}
	w.SetPainter(painter)

	pump := NewPump(d)
	pump.Register(w)

	d.queue.(*stubQueue).events = []xgb.Event{
		xproto.ExposeEvent{Window: w.ID(), Count: 0},
		xproto.ConfigureNotifyEvent{Window: testParent, Width: 700, Height: 480},
	}

	if err := pump.Run(); err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}
	if painter.paints != 2 {
		t.Fatalf("expected two draws (exposure + growth), got %d", painter.paints)
	}
	if w.Width() != 700 {
		t.Fatalf("expected width 700 after run, got %d", w.Width())
	}
}

func TestWakeWindowIsCreatedOnceAndNeverMapped(t *testing.T) {
	d, fw := newTestDisplay()

	if err := d.createWakeWindow(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.wake == 0 {
		t.Fatalf("expected a wake window id")
	}
	first := d.wake

	if err := d.createWakeWindow(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.wake != first {
		t.Fatalf("expected a stable wake window id, got %d then %d", first, d.wake)
	}
	if len(fw.created) != 1 {
		t.Fatalf("expected exactly one created window, got %d", len(fw.created))
	}
	if len(fw.mapped) != 0 {
		t.Fatalf("the wake window must never be mapped, got %v", fw.mapped)
	}
}

// A wake exposure must unblock the loop even when no overlay window is
// registered, such as after a rebind in an unfocused tmux window found
// no terminals. The pump discards it and comes back around.
func TestPumpWithoutWindowsDiscardsWakeExposure(t *testing.T) {
	d, _ := newTestDisplay()
	if err := d.createWakeWindow(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pump := NewPump(d)
	d.queue.(*stubQueue).events = []xgb.Event{
		xproto.ExposeEvent{Window: d.wake, Count: 0},
	}

	if err := pump.Wait(); err != nil {
		t.Fatalf("unexpected wait error: %v", err)
	}
	claimed, err := pump.Dispatch()
	if err != nil {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if claimed {
		t.Fatalf("expected the wake exposure to go unclaimed")
	}
	if d.pending != nil {
		t.Fatalf("expected the wake exposure to be discarded")
	}
}

func TestPumpUnregisterRemovesWindow(t *testing.T) {
	d, _ := newTestDisplay()
	first, _ := NewOverlayWindow(d, testParent)
	second, _ := NewOverlayWindow(d, xproto.Window(77))

	pump := NewPump(d)
	pump.Register(first)
	pump.Register(second)
	pump.Unregister(first)

	if got := len(pump.Windows()); got != 1 {
		t.Fatalf("expected one registered window, got %d", got)
	}
	if pump.Windows()[0] != second {
		t.Fatalf("expected the second window to remain registered")
	}
}
