package terminal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/termlay/termlay/internal/x11"
)

// ParentWindow is a resolved terminal window an overlay can bind to,
// together with the pty of the client displaying it (empty when no pty
// could be determined).
type ParentWindow struct {
	Window xproto.Window
	PTY    string
}

// ParentWindows determines the window of each terminal emulator
// displaying this process. Inside tmux every attached client terminal
// counts; otherwise the WINDOWID environment variable wins, with a walk
// up this process's ancestry as the fallback.
func ParentWindows(d *x11.Display, t Tmux) ([]ParentWindow, error) {
	if t.InUse() {
		return tmuxParentWindows(d, t)
	}

	if wid := os.Getenv("WINDOWID"); wid != "" {
		id, err := strconv.ParseUint(wid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed WINDOWID %q: %w", wid, err)
		}
		return []ParentWindow{{Window: xproto.Window(id), PTY: ownPTY()}}, nil
	}

	windows, err := pidWindowMap(d)
	if err != nil {
		return nil, err
	}
	win, ok, err := youngestAncestorWindow(windows, os.Getpid())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []ParentWindow{{Window: win, PTY: ownPTY()}}, nil
}

// ownPTY determines the pty slave this process is attached to, best
// effort.
func ownPTY() string {
	pty, ok, err := PtySlave(os.Getpid())
	if err != nil || !ok {
		return ""
	}
	return pty
}

func tmuxParentWindows(d *x11.Display, t Tmux) ([]ParentWindow, error) {
	clients, err := t.ClientTTYsByPID()
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, nil
	}

	windows, err := pidWindowMap(d)
	if err != nil {
		return nil, err
	}

	var parents []ParentWindow
	for pid, tty := range clients {
		win, ok, err := youngestAncestorWindow(windows, pid)
		if err != nil {
			return nil, err
		}
		if ok {
			parents = append(parents, ParentWindow{Window: win, PTY: tty})
		}
	}
	return parents, nil
}

// pidWindowMap maps owning pids to user-facing windows, built from the
// root's children and the X-Resource ownership lookup. Windows without a
// discoverable owner are skipped.
func pidWindowMap(d *x11.Display) (map[int]xproto.Window, error) {
	children, err := d.ChildWindowIDs(0)
	if err != nil {
		return nil, err
	}
	windows := make(map[int]xproto.Window, len(children))
	for _, win := range children {
		if pid, ok := d.WindowPID(win); ok {
			windows[pid] = win
		}
	}
	return windows, nil
}

// youngestAncestorWindow finds the window owned by the youngest ancestor
// of pid, the terminal closest to the process in the tree.
func youngestAncestorWindow(windows map[int]xproto.Window, pid int) (xproto.Window, bool, error) {
	pids, err := ParentPIDs(pid)
	if err != nil {
		return 0, false, err
	}
	return windowForPIDs(windows, pids)
}

func windowForPIDs(windows map[int]xproto.Window, pids []int) (xproto.Window, bool, error) {
	for _, pid := range pids {
		if win, ok := windows[pid]; ok {
			return win, true, nil
		}
	}
	return 0, false, nil
}
