package terminal

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProcStat holds the leading fields of /proc/<pid>/stat needed to walk
// process ancestry and locate controlling terminals.
type ProcStat struct {
	PID     int
	Comm    string
	State   string
	PPID    int
	PGRP    int
	Session int
	TTYNr   int
}

// ReadStat reads and parses /proc/<pid>/stat.
func ReadStat(pid int) (ProcStat, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return ProcStat{}, fmt.Errorf("failed to read stat of process %d: %w", pid, err)
	}
	stat, err := parseStat(data)
	if err != nil {
		return ProcStat{}, fmt.Errorf("failed to parse stat of process %d: %w", pid, err)
	}
	return stat, nil
}

// parseStat handles the stat format's one quirk: comm is parenthesized
// and may itself contain spaces and parentheses, so the fields after it
// start past the last closing paren.
func parseStat(data []byte) (ProcStat, error) {
	start := bytes.IndexByte(data, '(')
	end := bytes.LastIndexByte(data, ')')
	if start < 0 || end < 0 || end < start {
		return ProcStat{}, fmt.Errorf("malformed stat line %q", data)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data[:start])))
	if err != nil {
		return ProcStat{}, fmt.Errorf("malformed pid field: %w", err)
	}

	rest := strings.Fields(string(data[end+1:]))
	if len(rest) < 5 {
		return ProcStat{}, fmt.Errorf("truncated stat line %q", data)
	}

	stat := ProcStat{
		PID:   pid,
		Comm:  string(data[start+1 : end]),
		State: rest[0],
	}
	for i, dst := range []*int{&stat.PPID, &stat.PGRP, &stat.Session, &stat.TTYNr} {
		value, err := strconv.Atoi(rest[i+1])
		if err != nil {
			return ProcStat{}, fmt.Errorf("malformed stat field %d: %w", i+1, err)
		}
		*dst = value
	}
	return stat, nil
}

// ParentPIDs returns the pid and its ancestors, youngest first, stopping
// before init.
func ParentPIDs(pid int) ([]int, error) {
	var pids []int
	for pid > 1 {
		pids = append(pids, pid)
		stat, err := ReadStat(pid)
		if err != nil {
			return nil, err
		}
		pid = stat.PPID
	}
	return pids, nil
}

// Command returns the command name of a process.
func Command(pid int) (string, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("failed to read command of process %d: %w", pid, err)
	}
	return strings.TrimSpace(string(data)), nil
}
