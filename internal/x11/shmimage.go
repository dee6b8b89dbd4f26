package x11

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BurntSushi/xgb/shm"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/sys/unix"
)

// ShmImage is the shared-memory pixel transport for one overlay window.
// The compositing side writes pixels through the draw.Image interface,
// Put copies the buffer into the window, and the overlay window's Draw
// flush makes it visible.
//
// The segment is created with IPC_PRIVATE, attached by both this process
// and the server, then immediately marked for removal so it cannot
// outlive its users.
type ShmImage struct {
	display *Display
	window  xproto.Window
	seg     shm.Seg
	gc      xproto.Gcontext
	data    []byte
	width   int
	height  int
	stride  int
	depth   byte
}

// NewShmImage allocates a segment sized for the window's current
// geometry, honouring the display's scanline padding.
func NewShmImage(d *Display, w *OverlayWindow) (*ShmImage, error) {
	if w.ID() == 0 {
		return nil, ErrNotBound
	}

	width, height := w.Width(), w.Height()
	stride := scanlineStride(width, d.scanlinePad)
	size := stride * height

	shmID, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %d byte shm segment: %w", size, err)
	}
	data, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)
		return nil, fmt.Errorf("failed to attach shm segment %d: %w", shmID, err)
	}

	img := &ShmImage{
		display: d,
		window:  w.ID(),
		data:    data,
		width:   width,
		height:  height,
		stride:  stride,
		depth:   d.rootDepth,
	}

	seg, err := shm.NewSegId(d.event)
	if err != nil {
		img.release(shmID)
		return nil, fmt.Errorf("failed to allocate shm segment id: %w", err)
	}
	img.seg = seg
	if err := shm.AttachChecked(d.event, seg, uint32(shmID), false).Check(); err != nil {
		img.release(shmID)
		return nil, fmt.Errorf("failed to attach shm segment %d on the server: %w", shmID, err)
	}

	// Both sides hold attachments now; removal only takes effect once
	// they detach.
	unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)

	gc, err := xproto.NewGcontextId(d.event)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("failed to allocate graphics context id: %w", err)
	}
	if err := xproto.CreateGCChecked(
		d.event, gc, xproto.Drawable(img.window), 0, nil,
	).Check(); err != nil {
		img.Close()
		return nil, fmt.Errorf("failed to create graphics context for window %d: %w", img.window, err)
	}
	img.gc = gc

	return img, nil
}

func (img *ShmImage) release(shmID int) {
	unix.SysvShmDetach(img.data)
	unix.SysvShmCtl(shmID, unix.IPC_RMID, nil)
	img.data = nil
}

// Put copies the whole buffer into the window. The caller is expected to
// follow up with the overlay window's Draw.
func (img *ShmImage) Put() error {
	if img.display.event == nil {
		return ErrConnectionClosed
	}
	err := shm.PutImageChecked(
		img.display.event, xproto.Drawable(img.window), img.gc,
		uint16(img.stride/4), uint16(img.height),
		0, 0, uint16(img.width), uint16(img.height),
		0, 0,
		img.depth, xproto.ImageFormatZPixmap,
		0, img.seg, 0,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to put shm image into window %d: %w", img.window, err)
	}
	return nil
}

// Paint implements Painter, so a bound overlay window repaints itself
// from the shared buffer whenever it is exposed.
func (img *ShmImage) Paint(*OverlayWindow) error {
	return img.Put()
}

// Close detaches the segment on both ends and frees the graphics
// context. Idempotent, and safe after the display itself was closed:
// the server-side detach is skipped then, the local one still happens.
func (img *ShmImage) Close() error {
	if img.data == nil {
		return nil
	}
	if conn := img.display.event; conn != nil {
		if img.gc != 0 {
			xproto.FreeGC(conn, img.gc)
		}
		if img.seg != 0 {
			shm.Detach(conn, img.seg)
		}
	}
	img.gc = 0
	img.seg = 0
	err := unix.SysvShmDetach(img.data)
	img.data = nil
	if err != nil {
		return fmt.Errorf("failed to detach shm segment: %w", err)
	}
	return nil
}

// ColorModel implements image.Image.
func (img *ShmImage) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (img *ShmImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, img.width, img.height)
}

// At implements image.Image. Pixels are stored BGRx as the server
// expects for 32-bit ZPixmap data on little-endian displays.
func (img *ShmImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(img.Bounds())) {
		return color.RGBA{}
	}
	i := y*img.stride + x*4
	return color.RGBA{B: img.data[i], G: img.data[i+1], R: img.data[i+2], A: 0xff}
}

// Set implements draw.Image.
func (img *ShmImage) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(img.Bounds())) {
		return
	}
	r, g, b, _ := c.RGBA()
	i := y*img.stride + x*4
	img.data[i] = byte(b >> 8)
	img.data[i+1] = byte(g >> 8)
	img.data[i+2] = byte(r >> 8)
	img.data[i+3] = 0
}

// scanlineStride returns the padded byte length of one 32 bpp scanline.
func scanlineStride(width, padBits int) int {
	if padBits <= 0 {
		padBits = 32
	}
	bits := width * 32
	padded := (bits + padBits - 1) / padBits * padBits
	return padded / 8
}
