// Command cons is an interactive read-eval-print loop (and one-shot file
// evaluator) for the Lisp core, driven by the JIT compiler.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"

	"consair/internal/cache"
	"consair/internal/driver"
	"consair/internal/reader"
	"consair/internal/util"
)

const (
	newPrompt  = "\033[32m>\033[0m "
	contPrompt = "\033[32m.\033[0m "
)

// run loads and evaluates opt.Src non-interactively if given, otherwise
// starts the REPL.
func run(opt util.ConsOptions) error {
	j := driver.NewJIT(cache.DefaultConfig())
	if opt.Src != "" {
		return runFile(j, opt.Src)
	}
	return repl(j)
}

// runFile parses every top-level form in the file and evaluates them in
// source order via the JIT; only the value of the last form is printed.
func runFile(j *driver.JIT, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read source code: %s", err)
	}
	forms, err := reader.ReadAll(string(src))
	if err != nil {
		return fmt.Errorf("parse error: %s", err)
	}
	return j.EvalAll(context.Background(), forms)
}

// repl drives an interactive session: readline supplies history and
// line editing, accumulating input until reader.Complete reports a
// balanced top-level form, then evaluates it through the same JIT
// instance so definitions from earlier lines stay visible.
func repl(j *driver.JIT) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            newPrompt,
		HistoryFile:       ".consair-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	rl.CaptureExitSignal()

	var pending string
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if pending == "" {
				continue
			}
			pending = ""
			rl.SetPrompt(newPrompt)
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		pending += line + "\n"
		if !reader.Complete(pending) {
			rl.SetPrompt(contPrompt)
			continue
		}
		rl.SetPrompt(newPrompt)

		forms, err := reader.ReadAll(pending)
		pending = ""
		if err != nil {
			fmt.Printf("parse error: %s\n", err)
			continue
		}
		if len(forms) == 0 {
			continue
		}
		if err := j.EvalAll(context.Background(), forms); err != nil {
			fmt.Printf("Error: %s\n", err)
		}
	}
}

func main() {
	opt, err := util.ParseConsArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	if err := run(opt); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}
