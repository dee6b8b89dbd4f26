package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// Pump drives event delivery for all overlay windows sharing a display.
// One goroutine owns the pump; it blocks in Wait, then offers the
// pending event to each registered window in registration order.
type Pump struct {
	display *Display
	windows []*OverlayWindow
}

// NewPump creates an event pump for the display.
func NewPump(d *Display) *Pump {
	return &Pump{display: d}
}

// Register adds a window to the dispatch order.
func (p *Pump) Register(w *OverlayWindow) {
	p.windows = append(p.windows, w)
}

// Unregister removes a window from the dispatch order.
func (p *Pump) Unregister(w *OverlayWindow) {
	for i, candidate := range p.windows {
		if candidate == w {
			p.windows = append(p.windows[:i], p.windows[i+1:]...)
			return
		}
	}
}

// Windows returns the registered windows in dispatch order.
func (p *Pump) Windows() []*OverlayWindow {
	return p.windows
}

// Wait blocks until an event is queued without consuming it. It fails
// with ErrConnectionClosed when the display is torn down, which is the
// shutdown path: there are no timeouts at this layer.
func (p *Pump) Wait() error {
	return p.display.WaitEvent()
}

// Dispatch offers the pending event to each window until one consumes
// it. An event targeting at most one window/parent pair means the first
// claimer is the only claimer. An event no window claims is discarded
// after the full pass; leaving it queued would make the next Wait spin
// on it forever.
func (p *Pump) Dispatch() (bool, error) {
	for _, w := range p.windows {
		processed, err := w.ProcessPendingEvent()
		if err != nil {
			return false, err
		}
		if processed {
			return true, nil
		}
	}

	ev, err := p.display.peekEvent()
	if err != nil {
		return false, err
	}
	if ev != nil {
		p.display.logger.Debug("discarding unclaimed event",
			"event", fmt.Sprintf("%T", ev))
		p.display.discardEvent()
	}
	return false, nil
}

// Run loops Wait and Dispatch until the connection closes. Closing the
// display is the only way to stop it, and reads as a clean shutdown.
func (p *Pump) Run() error {
	for {
		if err := p.Wait(); err != nil {
			if errors.Is(err, ErrConnectionClosed) {
				return nil
			}
			return err
		}
		if _, err := p.Dispatch(); err != nil {
			return err
		}
	}
}

// createWakeWindow creates the hidden helper window synthetic wake
// events are addressed to. It is never mapped, so it shows nothing, and
// its id stays valid for the lifetime of the display no matter how the
// overlay window set changes.
func (d *Display) createWakeWindow() error {
	if d.wake != 0 {
		return nil
	}
	id, err := d.wire.createWindow(d.root, 1, 1)
	if err != nil {
		return fmt.Errorf("failed to create wake window: %w", err)
	}
	d.wake = id
	return nil
}

// Wake unblocks a pump that is blocked in Wait by delivering a synthetic
// exposure to the hidden wake window. No overlay window claims it, so
// dispatch discards it; the point is purely that the loop comes back
// around to notice state changed outside the event stream.
func (d *Display) Wake() error {
	if d.info == nil {
		return ErrConnectionClosed
	}
	return d.SendExpose(d.wake)
}

// SendExpose delivers a synthetic zero-count exposure to the window over
// the info connection.
func (d *Display) SendExpose(win xproto.Window) error {
	ev := xproto.ExposeEvent{Window: win, Count: 0}
	err := xproto.SendEventChecked(
		d.info.Conn(), false, win,
		xproto.EventMaskExposure, string(ev.Bytes()),
	).Check()
	if err != nil {
		return fmt.Errorf("failed to send expose to window %d: %w", win, err)
	}
	return nil
}
