package terminal

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// NotifySiblings sends SIGUSR1 to each given pid that runs the same
// command as this process, asking running layer instances to re-resolve
// their windows. Dead or foreign pids are skipped silently.
func NotifySiblings(pids []int) error {
	ownPid := os.Getpid()
	ownCommand, err := Command(ownPid)
	if err != nil {
		return err
	}

	for _, pid := range pids {
		if err := notifySibling(ownCommand, pid); err != nil {
			return err
		}
	}
	return nil
}

func notifySibling(ownCommand string, pid int) error {
	// A pidfd pins the process identity, so the command check and the
	// signal cannot race against pid reuse.
	fd, err := unix.PidfdOpen(pid, 0)
	switch {
	case err == nil:
		defer unix.Close(fd)
		same, err := isSameCommand(ownCommand, pid)
		if err != nil || !same {
			return err
		}
		if err := unix.PidfdSendSignal(fd, unix.SIGUSR1, nil, 0); err != nil && err != unix.ESRCH {
			return err
		}
		return nil
	case errors.Is(err, unix.ESRCH):
		return nil
	case errors.Is(err, unix.ENOSYS):
		// Pre-pidfd kernel: fall back to plain kill.
		same, err := isSameCommand(ownCommand, pid)
		if err != nil || !same {
			return err
		}
		if err := unix.Kill(pid, unix.SIGUSR1); err != nil && err != unix.ESRCH {
			return err
		}
		return nil
	default:
		return err
	}
}

func isSameCommand(ownCommand string, pid int) (bool, error) {
	command, err := Command(pid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return command == ownCommand, nil
}
