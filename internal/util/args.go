package util

import (
	"fmt"
	"os"
	"text/tabwriter"
)

const appVersion = "consair 1.0"

// CadrOptions holds the parsed command line for the cadr AOT compiler:
// cadr <input> [-o <output>] | --help | --version
type CadrOptions struct {
	Src string // Path to source file.
	Out string // Path to output file. Defaults to Src with its extension replaced by .ll.
}

// ParseCadrArgs parses os.Args for the cadr binary. It exits the process
// directly for --help/--version, matching the donor's printHelp/os.Exit
// pattern.
func ParseCadrArgs() (CadrOptions, error) {
	var opt CadrOptions
	args := os.Args[1:]
	if len(args) == 0 {
		return opt, fmt.Errorf("expected a source file path")
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			printCadrHelp()
			os.Exit(0)
		case "-v", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-o":
			if i+1 >= len(args) {
				return opt, fmt.Errorf("got flag -o but no argument")
			}
			i++
			opt.Out = args[i]
		default:
			if opt.Src != "" {
				return opt, fmt.Errorf("unexpected extra argument: %s", args[i])
			}
			opt.Src = args[i]
		}
	}
	if opt.Src == "" {
		return opt, fmt.Errorf("expected a source file path")
	}
	return opt, nil
}

func printCadrHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: cadr <input> [-o <output>]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "-o\tPath of the generated LLVM IR file.")
	_, _ = fmt.Fprintln(w, "-h, --help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, --version\tPrints the compiler version and exits.")
	_ = w.Flush()
}

// ConsOptions holds the parsed command line for the cons REPL/interpreter:
// cons | cons <file> | cons --help
type ConsOptions struct {
	Src string // Optional path to a file to load and evaluate non-interactively.
}

// ParseConsArgs parses os.Args for the cons binary.
func ParseConsArgs() (ConsOptions, error) {
	var opt ConsOptions
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help":
			printConsHelp()
			os.Exit(0)
		case "-v", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		default:
			if opt.Src != "" {
				return opt, fmt.Errorf("unexpected extra argument: %s", args[i])
			}
			opt.Src = args[i]
		}
	}
	return opt, nil
}

func printConsHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: cons [file]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "With no arguments, starts an interactive read-eval-print loop.")
	_, _ = fmt.Fprintln(w, "With a file argument, evaluates every top-level form in source")
	_, _ = fmt.Fprintln(w, "order and prints the value of the last one.")
	_, _ = fmt.Fprintln(w, "-h, --help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "-v, --version\tPrints the version and exits.")
	_ = w.Flush()
}
