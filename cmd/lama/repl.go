package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/lama/compiler"
	"github.com/chazu/lama/vm"
)

// scannerInput lets the program's read built-in share the REPL's line
// source.
type scannerInput struct {
	scanner *bufio.Scanner
}

func (in *scannerInput) ReadLine() (string, error) {
	if in.scanner.Scan() {
		return in.scanner.Text(), nil
	}
	if err := in.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// runREPL evaluates one input at a time in a single world. Functions
// persist between inputs; local variables do not.
func runREPL(engine *vm.Engine, in io.Reader, out io.Writer, prompt bool) {
	scanner := bufio.NewScanner(in)
	w := engine.NewWorld(&scannerInput{scanner: scanner}, vm.NewWriterOutput(out))
	defer w.Close()

	if prompt {
		fmt.Fprintln(out, "Lama REPL (type 'exit' to quit, ':help' for commands)")
	}

	var buf strings.Builder
	for {
		if prompt {
			if buf.Len() == 0 {
				fmt.Fprint(out, ">> ")
			} else {
				fmt.Fprint(out, ".. ")
			}
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				break
			}
			if strings.HasPrefix(trimmed, ":") {
				handleREPLCommand(w, trimmed, out)
				continue
			}
		}

		// Empty line executes accumulated input
		if strings.TrimSpace(line) == "" && buf.Len() > 0 {
			input := buf.String()
			buf.Reset()
			evalAndPrint(w, input, out)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)

		input := buf.String()
		if strings.TrimSpace(input) == "" {
			buf.Reset()
			continue
		}
		// Keep reading while the input stops mid-construct
		if incomplete(input) {
			continue
		}
		buf.Reset()
		evalAndPrint(w, input, out)
	}

	if prompt {
		fmt.Fprintln(out)
	}
}

// incomplete reports whether every syntax error in src is at its end,
// meaning more lines could complete it.
func incomplete(src string) bool {
	errs := compiler.Check(src)
	if len(errs) == 0 {
		return false
	}
	end := len(strings.TrimRight(src, " \t\r\n"))
	for _, e := range errs {
		if e.Pos.Offset < end {
			return false
		}
	}
	return true
}

func evalAndPrint(w *vm.World, input string, out io.Writer) {
	prog, err := compiler.Parse(w.Engine(), input)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	v, err := w.Run(prog)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", describeFault(err, input))
		return
	}
	if v != vm.Null {
		fmt.Fprintf(out, "=> %s\n", vm.Describe(v))
	}
}

// handleREPLCommand handles REPL meta-commands
func handleREPLCommand(w *vm.World, cmd string, out io.Writer) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :functions        List defined functions")
		fmt.Fprintln(out, "  :world            Show the world id")
		fmt.Fprintln(out, "  exit, quit        Exit REPL")
	case ":functions", ":f":
		for _, fn := range w.Registry().Functions() {
			if !fn.IsDefined() {
				continue
			}
			root := fn.Root()
			kind := "fun"
			if root.IsBuiltin() {
				kind = "builtin"
			}
			fmt.Fprintf(out, "  %s %s/%d\n", kind, fn.Name(), root.Arity)
		}
	case ":world":
		fmt.Fprintf(out, "world %s\n", w.ID())
	default:
		fmt.Fprintf(out, "Unknown command %s (try :help)\n", cmd)
	}
}
