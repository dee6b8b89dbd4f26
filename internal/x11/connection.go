package x11

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/res"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrConnectionClosed is returned by event waits once the event
// connection has been shut down.
var ErrConnectionClosed = errors.New("x11: event connection closed")

// identityAtoms holds the four atoms used to tell user-facing windows
// apart from helper windows. Interned once at Open.
type identityAtoms struct {
	class       xproto.Atom
	name        xproto.Atom
	localeName  xproto.Atom
	normalHints xproto.Atom
}

// Display owns a pair of connections to the same X server.
//
// Blocking on event delivery and issuing synchronous queries over a
// single connection can deadlock each other when they happen from
// different goroutines, so events live on a dedicated connection and
// information queries (geometry, properties, XRes) on another.
type Display struct {
	event *xgb.Conn
	info  *xgbutil.XUtil

	screenWidth  int
	screenHeight int
	scanlinePad  int
	scanlineUnit int
	rootDepth    byte
	rootVisual   xproto.Visualid
	root         xproto.Window

	atoms identityAtoms

	// Hidden helper window serving as the destination of synthetic wake
	// events. Created at Open, never mapped, id never changes.
	wake xproto.Window

	// Single-slot buffer holding the next undelivered event. Only the
	// goroutine driving the event pump may touch it.
	queue   eventQueue
	pending xgb.Event

	wire   wire
	logger *slog.Logger
}

// Open connects to the X server twice and negotiates the required
// extensions. Either both connections come up or Open fails as a whole;
// a failed Open leaves nothing behind to close.
//
// X-Resource (window ownership lookups) and MIT-SHM (shared-memory image
// transport) are hard requirements. Their absence is a capability error
// and is never retried here.
func Open() (*Display, error) {
	event, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to open event connection to the X server: %w", err)
	}

	info, err := xgbutil.NewConn()
	if err != nil {
		event.Close()
		return nil, fmt.Errorf("failed to open info connection to the X server: %w", err)
	}

	d := &Display{
		event:  event,
		info:   info,
		logger: slog.Default(),
	}
	d.queue = connQueue{conn: event, logger: d.logger}
	d.wire = xgbWire{d}

	if err := d.setup(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.createWakeWindow(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Display) setup() error {
	if err := res.Init(d.info.Conn()); err != nil {
		return fmt.Errorf("the X-Resource extension is required: %w", err)
	}
	if err := shm.Init(d.event); err != nil {
		return fmt.Errorf("the MIT-SHM extension is required: %w", err)
	}
	if err := shape.Init(d.event); err != nil {
		return fmt.Errorf("the Shape extension is required: %w", err)
	}

	setup := d.info.Setup()
	screen := d.info.Screen()
	d.screenWidth = int(screen.WidthInPixels)
	d.screenHeight = int(screen.HeightInPixels)
	d.scanlinePad = int(setup.BitmapFormatScanlinePad)
	d.scanlineUnit = int(setup.BitmapFormatScanlineUnit)
	d.rootDepth = screen.RootDepth
	d.rootVisual = screen.RootVisual
	d.root = d.info.RootWin()

	// Interned once so identity checks never round-trip for atoms again.
	for _, a := range []struct {
		name string
		dst  *xproto.Atom
	}{
		{"WM_CLASS", &d.atoms.class},
		{"WM_NAME", &d.atoms.name},
		{"WM_LOCALE_NAME", &d.atoms.localeName},
		{"WM_NORMAL_HINTS", &d.atoms.normalHints},
	} {
		atom, err := xprop.Atm(d.info, a.name)
		if err != nil {
			return fmt.Errorf("failed to intern atom %s: %w", a.name, err)
		}
		*a.dst = atom
	}
	return nil
}

// Close releases both connections. It is idempotent and safe to call on
// a partially failed Open. Closing the event connection unblocks a
// pending WaitEvent with ErrConnectionClosed.
func (d *Display) Close() {
	if d.event != nil {
		d.event.Close()
		d.event = nil
	}
	if d.info != nil {
		d.info.Conn().Close()
		d.info = nil
	}
}

// SetLogger replaces the logger used for event-pump diagnostics.
func (d *Display) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	d.logger = logger
	if q, ok := d.queue.(connQueue); ok {
		q.logger = logger
		d.queue = q
	}
}

// Root returns the default root window.
func (d *Display) Root() xproto.Window { return d.root }

// ScreenWidth returns the width in pixels of the default screen at the
// time the connection was opened.
func (d *Display) ScreenWidth() int { return d.screenWidth }

// ScreenHeight returns the height in pixels of the default screen at the
// time the connection was opened.
func (d *Display) ScreenHeight() int { return d.screenHeight }

// BitmapScanlinePad returns the bit multiple each image scanline must be
// padded to.
func (d *Display) BitmapScanlinePad() int { return d.scanlinePad }

// BitmapScanlineUnit returns the size in bits of a bitmap scanline unit.
func (d *Display) BitmapScanlineUnit() int { return d.scanlineUnit }

// WaitEvent blocks until at least one event is queued on the event
// connection without consuming it. It returns immediately when an event
// is already pending.
func (d *Display) WaitEvent() error {
	if d.pending != nil {
		return nil
	}
	ev, err := d.queue.Wait()
	if err != nil {
		return err
	}
	d.pending = ev
	return nil
}

// peekEvent returns the next queued event without consuming it, or nil
// when the queue is empty. Non-blocking.
func (d *Display) peekEvent() (xgb.Event, error) {
	if d.pending != nil {
		return d.pending, nil
	}
	ev, err := d.queue.Poll()
	if err != nil {
		return nil, err
	}
	d.pending = ev
	return ev, nil
}

// discardEvent consumes the pending event.
func (d *Display) discardEvent() {
	d.pending = nil
}

// eventQueue abstracts the event connection's delivery queue so the
// reaction machinery can be exercised without a live server.
type eventQueue interface {
	// Wait blocks until an event arrives.
	Wait() (xgb.Event, error)
	// Poll returns (nil, nil) when no event is queued.
	Poll() (xgb.Event, error)
}

type connQueue struct {
	conn   *xgb.Conn
	logger *slog.Logger
}

func (q connQueue) Wait() (xgb.Event, error) {
	for {
		ev, xerr := q.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return nil, ErrConnectionClosed
		}
		if xerr != nil {
			// Asynchronous X errors for earlier unchecked requests end
			// up here. They are not events; log and keep waiting.
			q.logger.Debug("x error on event connection", "error", xerr.Error())
			continue
		}
		return ev, nil
	}
}

func (q connQueue) Poll() (xgb.Event, error) {
	for {
		ev, xerr := q.conn.PollForEvent()
		if ev == nil && xerr == nil {
			return nil, nil
		}
		if xerr != nil {
			q.logger.Debug("x error on event connection", "error", xerr.Error())
			continue
		}
		return ev, nil
	}
}
