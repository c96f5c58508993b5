// Command critique captures an image and asks a vision model for a critique.
//
//	critique scan [-prompt text] [-format terminal|markdown|html] <image>
//	critique chat <image>
//	critique mcp <image>
//	critique config set-key <key> | set-model <model> | show
//
// Instead of an image file, -browser-url (or -browser-control) snapshots a page
// in Chrome, optionally limited to -browser-selector.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "scan":
		err = runScan(args[1:], stdout, stderr)
	case "chat":
		err = runChat(args[1:], stderr)
	case "mcp":
		err = runMCP(args[1:], stderr)
	case "config":
		err = runConfig(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [options] <args>\n\n", "critique")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scan    Critique an image once and print the result")
	fmt.Fprintln(w, "  chat    Open the interactive critique panel")
	fmt.Fprintln(w, "  mcp     Serve capture_image and critique_image over MCP stdio")
	fmt.Fprintln(w, "  config  Show or change settings (set-key, set-model, show)")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Use '%s <command> -h' for command-specific help\n", "critique")
}
