package x11

import (
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
)

// maskKind selects which shape of a window a rectangle set replaces.
type maskKind int

const (
	maskVisibility maskKind = iota
	maskInput
)

// wire is the set of server requests the overlay window state machine
// issues. The xgb-backed implementation is the only one outside tests;
// tests substitute a recording fake so the reaction rules can be checked
// without an X server.
type wire interface {
	geometry(win xproto.Window) (width, height uint16, err error)
	createWindow(parent xproto.Window, width, height uint16) (xproto.Window, error)
	destroyWindow(win xproto.Window) error
	setEventMask(win xproto.Window, mask uint32) error
	setShape(kind maskKind, win xproto.Window, area []xproto.Rectangle) error
	mapWindow(win xproto.Window) error
	resizeWindow(win xproto.Window, width, height uint16) error
	flush()
}

type xgbWire struct {
	d *Display
}

// geometry runs on the info connection: it is the one synchronous query
// the overlay window needs, and it must not share a socket with the
// blocking event wait.
func (x xgbWire) geometry(win xproto.Window) (uint16, uint16, error) {
	reply, err := xproto.GetGeometry(x.d.info.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, err
	}
	return reply.Width, reply.Height, nil
}

func (x xgbWire) createWindow(parent xproto.Window, width, height uint16) (xproto.Window, error) {
	conn := x.d.event

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}
	colormap, err := xproto.NewColormapId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateColormapChecked(
		conn, xproto.ColormapAllocNone, colormap, x.d.root, x.d.rootVisual,
	).Check(); err != nil {
		return 0, err
	}

	// Zero background and border so nothing paints until the image
	// transport does; exposure events drive redraws.
	err = xproto.CreateWindowChecked(
		conn, x.d.rootDepth, wid, parent,
		0, 0, width, height, 0,
		xproto.WindowClassInputOutput, x.d.rootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask|xproto.CwColormap,
		[]uint32{0, 0, xproto.EventMaskExposure, uint32(colormap)},
	).Check()
	if err != nil {
		return 0, err
	}
	return wid, nil
}

func (x xgbWire) destroyWindow(win xproto.Window) error {
	return xproto.DestroyWindowChecked(x.d.event, win).Check()
}

func (x xgbWire) setEventMask(win xproto.Window, mask uint32) error {
	return xproto.ChangeWindowAttributesChecked(
		x.d.event, win, xproto.CwEventMask, []uint32{mask},
	).Check()
}

func (x xgbWire) setShape(kind maskKind, win xproto.Window, area []xproto.Rectangle) error {
	var sk shape.Kind = shape.SkBounding
	if kind == maskInput {
		sk = shape.SkInput
	}
	return shape.RectanglesChecked(
		x.d.event, shape.SoSet, sk, xproto.ClipOrderingUnsorted,
		win, 0, 0, area,
	).Check()
}

func (x xgbWire) mapWindow(win xproto.Window) error {
	return xproto.MapWindowChecked(x.d.event, win).Check()
}

func (x xgbWire) resizeWindow(win xproto.Window, width, height uint16) error {
	return xproto.ConfigureWindowChecked(
		x.d.event, win,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)},
	).Check()
}

// flush forces the event connection to catch up with everything written
// so far. xgb has no client-side request buffer, so a full round trip is
// the flush equivalent.
func (x xgbWire) flush() {
	x.d.event.Sync()
}
