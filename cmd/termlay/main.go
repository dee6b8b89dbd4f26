package main

import (
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "layer":
		os.Exit(runLayer(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "pids":
		os.Exit(runPids(os.Args[2:]))
	case "version":
		fmt.Println("termlay", version)
		os.Exit(0)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: termlay <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  layer               Run the overlay window process (foreground)")
	fmt.Fprintln(w, "  windows             List candidate terminal windows")
	fmt.Fprintln(w, "  pids <pid>...       Ask running layer processes to re-resolve their windows")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "  help                Show this help")
}
