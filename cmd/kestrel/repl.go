package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"

	"github.com/kestrel-lang/kestrel"
	"github.com/kestrel-lang/kestrel/errz"
	"github.com/kestrel-lang/kestrel/vm"
)

const (
	prompt         = ">>> "
	continuePrompt = "... "
	historyFile    = "~/.kestrel_history"
	maxHistory     = 1000
)

// repl reads lines in raw terminal mode and evaluates them in one VM.
// Lines ending in a colon open a block that is evaluated once an empty
// line is entered.
type repl struct {
	ctx     context.Context
	machine *kestrel.VM
	out     io.Writer

	line    []rune
	pending []string

	history     []string
	historyPos  int
	historyPath string

	exitErr error
}

func newRepl(ctx context.Context, machine *kestrel.VM, out io.Writer) *repl {
	r := &repl{ctx: ctx, machine: machine, out: out}
	if path, err := homedir.Expand(historyFile); err == nil {
		r.historyPath = path
		if data, err := os.ReadFile(path); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if line != "" {
					r.history = append(r.history, line)
				}
			}
		}
	}
	r.historyPos = len(r.history)
	return r
}

func runRepl(ctx context.Context, opts []kestrel.Option) error {
	machine, err := kestrel.NewVM(opts...)
	if err != nil {
		return err
	}
	defer machine.Close()
	r := newRepl(ctx, machine, os.Stdout)
	fmt.Fprintf(r.out, "kestrel %s\r\n", version)
	r.prompt()
	if err := keyboard.Listen(r.handleKey); err != nil {
		return err
	}
	fmt.Fprint(r.out, "\r\n")
	return r.exitErr
}

// write prints s in raw mode, where a newline needs a carriage return.
func (r *repl) write(s string) {
	fmt.Fprint(r.out, strings.ReplaceAll(s, "\n", "\r\n"))
}

func (r *repl) prompt() {
	if len(r.pending) > 0 {
		fmt.Fprint(r.out, continuePrompt)
	} else {
		fmt.Fprint(r.out, prompt)
	}
}

// redraw replaces the text of the current line.
func (r *repl) redraw() {
	fmt.Fprint(r.out, "\r\033[K")
	r.prompt()
	fmt.Fprint(r.out, string(r.line))
}

func (r *repl) handleKey(key keys.Key) (stop bool, err error) {
	switch key.Code {
	case keys.CtrlC:
		if len(r.line) == 0 && len(r.pending) == 0 {
			return true, nil
		}
		r.line, r.pending = nil, nil
		fmt.Fprint(r.out, "\r\n")
		r.prompt()
	case keys.CtrlD:
		if len(r.line) == 0 {
			return true, nil
		}
	case keys.Enter:
		fmt.Fprint(r.out, "\r\n")
		line := string(r.line)
		r.line = nil
		if r.submit(line) {
			return true, nil
		}
		r.prompt()
	case keys.Backspace:
		if len(r.line) > 0 {
			r.line = r.line[:len(r.line)-1]
			r.redraw()
		}
	case keys.Up:
		if r.historyPos > 0 {
			r.historyPos--
			r.line = []rune(r.history[r.historyPos])
			r.redraw()
		}
	case keys.Down:
		if r.historyPos < len(r.history) {
			r.historyPos++
			r.line = nil
			if r.historyPos < len(r.history) {
				r.line = []rune(r.history[r.historyPos])
			}
			r.redraw()
		}
	case keys.Tab:
		r.line = append(r.line, ' ', ' ')
		fmt.Fprint(r.out, "  ")
	case keys.Space:
		r.line = append(r.line, ' ')
		fmt.Fprint(r.out, " ")
	case keys.RuneKey:
		r.line = append(r.line, key.Runes...)
		fmt.Fprint(r.out, string(key.Runes))
	}
	return false, nil
}

// submit handles one entered line and reports whether the session should
// end.
func (r *repl) submit(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed != "" {
		r.remember(line)
	}
	if len(r.pending) > 0 {
		if trimmed != "" {
			r.pending = append(r.pending, line)
			return false
		}
		line = strings.Join(r.pending, "\n")
		r.pending = nil
	} else if strings.HasSuffix(trimmed, ":") {
		r.pending = []string{line}
		return false
	}
	if strings.TrimSpace(line) == "" {
		return false
	}
	result, err := r.machine.Eval(r.ctx, line)
	if err != nil {
		var exit *vm.ExitError
		if errors.As(err, &exit) {
			r.exitErr = err
			return true
		}
		r.printError(err)
		return false
	}
	if output, err := getOutput(result, ""); err == nil && output != "" {
		r.write(output + "\n")
	}
	return false
}

func (r *repl) printError(err error) {
	msg := err.Error()
	var structured *errz.StructuredError
	if errors.As(err, &structured) {
		msg = structured.FriendlyErrorMessage()
	}
	r.write(color.RedString(msg) + "\n")
}

func (r *repl) remember(line string) {
	if n := len(r.history); n == 0 || r.history[n-1] != line {
		r.history = append(r.history, line)
		if len(r.history) > maxHistory {
			r.history = r.history[len(r.history)-maxHistory:]
		}
		if r.historyPath != "" {
			if f, err := os.OpenFile(r.historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
				fmt.Fprintln(f, line)
				f.Close()
			}
		}
	}
	r.historyPos = len(r.history)
}
