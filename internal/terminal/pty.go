package terminal

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// The tty_nr field packs the device number as major and minor bits; the
// minor number lives in the low byte plus bits 20..31.
const minorDeviceNumberMask = 0b1111_1111_1111_0000_0000_0000_1111_1111

// ptySlaveFolders lists the directories in which the kernel creates pty
// slave device files, taken from /proc/tty/drivers.
func ptySlaveFolders() ([]string, error) {
	data, err := os.ReadFile("/proc/tty/drivers")
	if err != nil {
		return nil, fmt.Errorf("failed to read tty drivers: %w", err)
	}
	return parseTTYDrivers(data), nil
}

func parseTTYDrivers(data []byte) []string {
	var folders []string
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		fields := strings.Fields(string(line))
		// Driver names may contain spaces; the device path is the first
		// field under /dev.
		pathIndex := -1
		for i, field := range fields {
			if strings.HasPrefix(field, "/dev/") {
				pathIndex = i
				break
			}
		}
		if pathIndex < 1 {
			continue
		}
		name := strings.Join(fields[:pathIndex], " ")
		if name == "pty_slave" {
			folders = append(folders, fields[pathIndex])
		}
	}
	return folders
}

// PtySlave determines the control device file of the pty slave the
// process is attached to. The second return value is false when the
// process has no pty.
func PtySlave(pid int) (string, bool, error) {
	folders, err := ptySlaveFolders()
	if err != nil {
		return "", false, err
	}
	stat, err := ReadStat(pid)
	if err != nil {
		return "", false, err
	}

	minor := stat.TTYNr & minorDeviceNumberMask
	for _, folder := range folders {
		path := fmt.Sprintf("%s/%d", folder, minor)
		var st unix.Stat_t
		if unix.Stat(path, &st) != nil {
			continue
		}
		if st.Rdev == uint64(stat.TTYNr) {
			return path, true, nil
		}
	}
	return "", false, nil
}
