package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrTmuxNotAvailable is returned when tmux is not installed.
var ErrTmuxNotAvailable = errors.New("tmux is not available in PATH")

// Tmux wraps the tmux client commands needed to find the terminals that
// display the pane this process runs in.
type Tmux struct {
	command string
}

// NewTmux creates a tmux wrapper. An empty command defaults to "tmux"
// from PATH.
func NewTmux(command string) Tmux {
	if command == "" {
		command = "tmux"
	}
	return Tmux{command: command}
}

// Pane returns the identifier of the pane this process runs in, empty
// when not inside tmux.
func (t Tmux) Pane() string {
	return os.Getenv("TMUX_PANE")
}

// InUse reports whether this process runs inside tmux.
func (t Tmux) InUse() bool {
	return t.Pane() != ""
}

// Available reports whether the tmux binary can be found.
func (t Tmux) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

func (t Tmux) output(args ...string) (string, error) {
	if !t.Available() {
		return "", ErrTmuxNotAvailable
	}
	out, err := exec.Command(t.command, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s %s failed: %s", t.command, args[0],
				strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s %s failed: %w", t.command, args[0], err)
	}
	return string(out), nil
}

// WindowFocused reports whether the tmux window owning this pane is the
// active one. Overlays for unfocused windows would float over whatever
// covers them.
func (t Tmux) WindowFocused() (bool, error) {
	out, err := t.output("display", "-p", "-F", "#{window_active}", "-t", t.Pane())
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "1", nil
}

// ClientTTYsByPID maps the pid of each tmux client displaying this pane
// to the tty it is attached to. An unfocused window yields an empty map.
func (t Tmux) ClientTTYsByPID() (map[int]string, error) {
	focused, err := t.WindowFocused()
	if err != nil {
		return nil, err
	}
	if !focused {
		return map[int]string{}, nil
	}

	out, err := t.output("list-clients", "-F", "#{client_pid},#{client_tty}", "-t", t.Pane())
	if err != nil {
		return nil, err
	}
	return parseClientList(out)
}

func parseClientList(out string) (map[int]string, error) {
	clients := make(map[int]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		pidStr, tty, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("malformed client list line %q", line)
		}
		pid, err := strconv.Atoi(pidStr)
		if err != nil {
			return nil, fmt.Errorf("malformed client pid in %q: %w", line, err)
		}
		clients[pid] = tty
	}
	return clients, nil
}
