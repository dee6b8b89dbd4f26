package terminal

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// CellGeometry describes a terminal's character grid and, when the
// emulator reports them, its pixel dimensions. Callers use it to
// translate cell coordinates into the pixel offsets the overlay core
// works in.
type CellGeometry struct {
	Rows    int
	Cols    int
	XPixels int
	YPixels int
}

// Size queries the cell geometry of the terminal behind f.
func Size(f *os.File) (CellGeometry, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return CellGeometry{}, fmt.Errorf("%s is not a terminal", f.Name())
	}
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return CellGeometry{}, fmt.Errorf("failed to query window size of %s: %w", f.Name(), err)
	}
	return CellGeometry{
		Rows:    int(ws.Row),
		Cols:    int(ws.Col),
		XPixels: int(ws.Xpixel),
		YPixels: int(ws.Ypixel),
	}, nil
}

// CellWidth returns the width of one cell in pixels, zero when the
// emulator does not report pixel sizes.
func (g CellGeometry) CellWidth() int {
	if g.Cols == 0 {
		return 0
	}
	return g.XPixels / g.Cols
}

// CellHeight returns the height of one cell in pixels, zero when the
// emulator does not report pixel sizes.
func (g CellGeometry) CellHeight() int {
	if g.Rows == 0 {
		return 0
	}
	return g.YPixels / g.Rows
}

// CellToPixel translates a cell position into pixel offsets.
func (g CellGeometry) CellToPixel(col, row int) (x, y int) {
	return col * g.CellWidth(), row * g.CellHeight()
}
