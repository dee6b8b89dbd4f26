package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// ErrNotBound is returned by overlay window operations that require a
// live window.
var ErrNotBound = errors.New("x11: overlay window is not bound")

// Painter composites pixel content into an overlay window. The window
// calls it from Draw before flushing; the usual implementation copies a
// shared-memory image onto the window.
type Painter interface {
	Paint(w *OverlayWindow) error
}

// OverlayWindow is a borderless child window parented into a terminal
// emulator's window, used purely as an image canvas.
//
// It is either unbound (no live window, id zero) or bound (window
// created, mapped, parent subscribed to structure changes). A bound
// window starts with empty visibility and input masks: invisible and
// inert until a caller sets masks and draws.
//
// Callers must serialize access per window; mutation and event
// processing from concurrent goroutines is not supported.
type OverlayWindow struct {
	display *Display
	parent  xproto.Window
	id      xproto.Window
	width   uint16
	height  uint16
	painter Painter
}

// NewOverlayWindow creates an overlay window bound under parent.
func NewOverlayWindow(d *Display, parent xproto.Window) (*OverlayWindow, error) {
	w := &OverlayWindow{}
	if err := w.Bind(d, parent); err != nil {
		return nil, err
	}
	return w, nil
}

// Bind creates the overlay window under parent, sized to the parent's
// current geometry. A bound window is finalized first, so re-binding
// against a new parent never leaks the old window.
func (w *OverlayWindow) Bind(d *Display, parent xproto.Window) error {
	if err := w.Finalize(); err != nil {
		return err
	}

	w.display = d
	w.parent = parent

	width, height, err := d.wire.geometry(parent)
	if err != nil {
		w.display = nil
		return fmt.Errorf("failed to query geometry of parent window %d: %w", parent, err)
	}
	w.width = width
	w.height = height

	id, err := d.wire.createWindow(parent, width, height)
	if err != nil {
		w.display = nil
		return fmt.Errorf("failed to create overlay window under parent %d: %w", parent, err)
	}
	w.id = id

	if err := d.wire.setEventMask(parent, xproto.EventMaskStructureNotify); err != nil {
		_ = w.Finalize()
		return fmt.Errorf("failed to subscribe parent window %d to structure changes: %w", parent, err)
	}
	if err := d.wire.setShape(maskInput, id, nil); err != nil {
		_ = w.Finalize()
		return fmt.Errorf("failed to clear input mask of window %d: %w", id, err)
	}
	if err := d.wire.setShape(maskVisibility, id, nil); err != nil {
		_ = w.Finalize()
		return fmt.Errorf("failed to clear visibility mask of window %d: %w", id, err)
	}
	if err := d.wire.mapWindow(id); err != nil {
		_ = w.Finalize()
		return fmt.Errorf("failed to map window %d: %w", id, err)
	}
	return nil
}

// Finalize unsubscribes the parent, destroys the window and drops the
// display reference. Calling it on an unbound window is a no-op.
func (w *OverlayWindow) Finalize() error {
	if w.display == nil {
		return nil
	}

	var errs []error
	if w.id != 0 {
		if err := w.display.wire.setEventMask(w.parent, xproto.EventMaskNoEvent); err != nil {
			errs = append(errs, fmt.Errorf("failed to unsubscribe parent window %d: %w", w.parent, err))
		}
		if err := w.display.wire.destroyWindow(w.id); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy window %d: %w", w.id, err))
		}
		w.display.wire.flush()
	}

	w.display = nil
	w.id = 0
	return errors.Join(errs...)
}

// SetPainter registers the compositing collaborator invoked by Draw.
func (w *OverlayWindow) SetPainter(p Painter) {
	w.painter = p
}

// SetVisibilityMask replaces the set of rectangles in which the window
// is visible. An empty set means nothing is visible.
func (w *OverlayWindow) SetVisibilityMask(area []xproto.Rectangle) error {
	if w.display == nil {
		return ErrNotBound
	}
	if err := w.display.wire.setShape(maskVisibility, w.id, area); err != nil {
		return fmt.Errorf("failed to set visibility mask of window %d: %w", w.id, err)
	}
	return nil
}

// SetInputMask replaces the set of rectangles in which the window
// accepts input. An empty set makes it click-through everywhere.
func (w *OverlayWindow) SetInputMask(area []xproto.Rectangle) error {
	if w.display == nil {
		return ErrNotBound
	}
	if err := w.display.wire.setShape(maskInput, w.id, area); err != nil {
		return fmt.Errorf("failed to set input mask of window %d: %w", w.id, err)
	}
	return nil
}

// Draw invokes the painter, if any, and flushes pending rendering. The
// window itself never paints pixels.
func (w *OverlayWindow) Draw() error {
	if w.display == nil {
		return ErrNotBound
	}
	if w.painter != nil {
		if err := w.painter.Paint(w); err != nil {
			return fmt.Errorf("failed to paint window %d: %w", w.id, err)
		}
	}
	w.display.wire.flush()
	return nil
}

// ID returns the window id, zero when unbound.
func (w *OverlayWindow) ID() xproto.Window { return w.id }

// ParentID returns the parent window id.
func (w *OverlayWindow) ParentID() xproto.Window { return w.parent }

// Width returns the last known window width in pixels.
func (w *OverlayWindow) Width() int { return int(w.width) }

// Height returns the last known window height in pixels.
func (w *OverlayWindow) Height() int { return int(w.height) }

// ProcessPendingEvent peeks the next queued event on the event
// connection. Events targeting neither this window nor its parent are
// left queued for other overlay windows sharing the connection and
// (false, nil) is returned. A claimed event is consumed and reacted to:
// exposure completes with a redraw, parent resizes propagate to the
// window. Returns true whenever an event was consumed.
func (w *OverlayWindow) ProcessPendingEvent() (bool, error) {
	if w.display == nil {
		return false, nil
	}

	ev, err := w.display.peekEvent()
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}

	switch e := ev.(type) {
	case xproto.ExposeEvent:
		if e.Window != w.id {
			return false, nil
		}
		w.display.discardEvent()
		// Intermediate exposures of the same repaint still follow;
		// only the terminal count-0 exposure triggers the redraw.
		if e.Count == 0 {
			return true, w.Draw()
		}
		return true, nil

	case xproto.ConfigureNotifyEvent:
		if e.Window != w.parent {
			return false, nil
		}
		w.display.discardEvent()
		return true, w.applyConfigure(e.Width, e.Height)
	}

	return false, nil
}

func (w *OverlayWindow) applyConfigure(newWidth, newHeight uint16) error {
	plan := planConfigure(w.width, w.height, newWidth, newHeight)
	if plan.resize {
		if err := w.display.wire.resizeWindow(w.id, newWidth, newHeight); err != nil {
			return fmt.Errorf("failed to resize window %d: %w", w.id, err)
		}
		w.width = newWidth
		w.height = newHeight
	}
	if plan.draw {
		return w.Draw()
	}
	w.display.wire.flush()
	return nil
}

// configurePlan is the reaction to a parent structure change.
type configurePlan struct {
	resize bool
	draw   bool
}

// planConfigure compares new against stored dimensions with signed
// arithmetic. An unchanged geometry is not a resize; a redraw is only
// warranted when a dimension strictly grew, since shrinking exposes no
// new area.
func planConfigure(oldWidth, oldHeight, newWidth, newHeight uint16) configurePlan {
	var plan configurePlan
	if newWidth != oldWidth || newHeight != oldHeight {
		plan.resize = true
	}
	if int(newWidth) > int(oldWidth) || int(newHeight) > int(oldHeight) {
		plan.draw = true
	}
	return plan
}
