package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/termlay/termlay/internal/terminal"
	"github.com/termlay/termlay/internal/x11"
)

func runWindows(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "windows takes no arguments")
		return 2
	}

	display, err := x11.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer display.Close()

	children, err := display.ChildWindowIDs(0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WINDOW\tPID\tCLASS")
	for _, child := range children {
		owner := "-"
		if pid, ok := display.WindowPID(child); ok {
			owner = strconv.Itoa(pid)
		}
		class := "-"
		if c, ok := display.WindowClass(child); ok {
			class = c
		}
		fmt.Fprintf(w, "0x%x\t%s\t%s\n", uint32(child), owner, class)
	}
	w.Flush()
	return 0
}

func runPids(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: termlay pids <pid>...")
		return 2
	}

	pids := make([]int, 0, len(args))
	for _, arg := range args {
		pid, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid pid %q\n", arg)
			return 2
		}
		pids = append(pids, pid)
	}

	if err := terminal.NotifySiblings(pids); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
