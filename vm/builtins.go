package vm

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// World I/O
// ---------------------------------------------------------------------------

// Input is the line source read by the read built-in. ReadLine returns
// io.EOF once no lines remain.
type Input interface {
	ReadLine() (string, error)
}

// Output is the line sink written by the write built-in.
type Output interface {
	WriteLine(s string) error
}

type readerInput struct {
	r *bufio.Reader
}

// NewReaderInput reads lines from r, stripping the line terminator.
func NewReaderInput(r io.Reader) Input {
	return &readerInput{r: bufio.NewReader(r)}
}

func (in *readerInput) ReadLine() (string, error) {
	line, err := in.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type writerOutput struct {
	w io.Writer
}

// NewWriterOutput writes each line followed by a newline to w.
func NewWriterOutput(w io.Writer) Output {
	return &writerOutput{w: w}
}

func (out *writerOutput) WriteLine(s string) error {
	_, err := io.WriteString(out.w, s+"\n")
	return err
}

// LinesInput serves a fixed list of lines.
type LinesInput struct {
	mu    sync.Mutex
	lines []string
}

// NewLinesInput creates an input over lines.
func NewLinesInput(lines []string) *LinesInput {
	return &LinesInput{lines: append([]string(nil), lines...)}
}

func (in *LinesInput) ReadLine() (string, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.lines) == 0 {
		return "", io.EOF
	}
	line := in.lines[0]
	in.lines = in.lines[1:]
	return line, nil
}

// LineBuffer collects written lines in memory.
type LineBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *LineBuffer) WriteLine(s string) error {
	b.mu.Lock()
	b.lines = append(b.lines, s)
	b.mu.Unlock()
	return nil
}

// Lines returns a copy of everything written so far.
func (b *LineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// ---------------------------------------------------------------------------
// Built-in functions
// ---------------------------------------------------------------------------

// builtinRead returns the next input line, or "" at end of input.
func builtinRead(w *World, _ []Value) (Value, error) {
	line, err := w.in.ReadLine()
	if errors.Is(err, io.EOF) {
		return String(""), nil
	}
	if err != nil {
		return nil, &Fault{Kind: IOError, Operation: "read", Message: err.Error(), Cause: err}
	}
	return String(line), nil
}

// builtinWrite prints the display form of its argument and returns it.
func builtinWrite(w *World, args []Value) (Value, error) {
	if err := w.out.WriteLine(Display(args[0])); err != nil {
		return nil, &Fault{Kind: IOError, Operation: "write", Message: err.Error(), Cause: err}
	}
	return args[0], nil
}

func installBuiltins(r *FunctionRegistry) {
	r.Register("read", NewBuiltinRoot("read", 0, builtinRead))
	r.Register("write", NewBuiltinRoot("write", 1, builtinWrite))
}
