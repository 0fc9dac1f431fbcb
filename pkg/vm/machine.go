package vm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/agenthands/nbrain/pkg/core/token"
)

var ErrZeroCapacity = errors.New("vm: tape capacity must be positive")

// RuntimeError wraps an I/O failure raised while executing a program.
// Op is the operation that failed ("read", "write" or "exec").
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("vm: %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Machine executes resolved token programs against a fixed-size byte
// tape. The tape and cursor persist across Run calls, so several
// programs can run in sequence against one memory image. A Machine owns
// its tape exclusively and is not safe for concurrent use; callers
// needing cancellation must wrap the I/O streams.
type Machine struct {
	cursor int
	memory []byte
	input  io.Reader
	output io.Writer
}

// New allocates a machine with a zeroed tape of exactly capacity bytes,
// bound to the given streams.
func New(capacity int, input io.Reader, output io.Writer) (*Machine, error) {
	if capacity < 1 {
		return nil, ErrZeroCapacity
	}
	return &Machine{
		memory: make([]byte, capacity),
		input:  input,
		output: output,
	}, nil
}

// NewStandard returns a machine bound to process stdin and stdout.
func NewStandard(capacity int) (*Machine, error) {
	return New(capacity, os.Stdin, os.Stdout)
}

// Run interprets prog from the first token until the end of the sequence
// or the first error. Loop tokens carry their partner's index from parse
// time, so a zero-valued loop is skipped in a single jump and execution
// needs no loop stack or re-scanning. A program whose loop targets were
// never resolved must not be passed to Run.
func (m *Machine) Run(prog token.Program) error {
	// Cache hot fields in locals for the duration of the loop.
	cursor := m.cursor
	mem := m.memory
	size := len(mem)
	var buf [1]byte

	for pc := 0; pc < len(prog); pc++ {
		t := prog[pc]
		switch t.Kind {
		case token.KindNoOp:

		case token.KindIncrement:
			mem[cursor] += byte(t.Arg)

		case token.KindDecrement:
			mem[cursor] -= byte(t.Arg)

		case token.KindMoveRight:
			cursor = (cursor + t.Arg%size) % size

		case token.KindMoveLeft:
			cursor = (cursor - t.Arg%size + size) % size

		case token.KindLoopStart:
			if mem[cursor] == 0 {
				pc = t.Arg
			}

		case token.KindLoopEnd:
			if mem[cursor] != 0 {
				pc = t.Arg
			}

		case token.KindOutput:
			buf[0] = mem[cursor]
			if _, err := m.output.Write(buf[:]); err != nil {
				m.cursor = cursor
				return &RuntimeError{Op: "write", Err: err}
			}

		case token.KindInput:
			if _, err := io.ReadFull(m.input, buf[:]); err != nil {
				m.cursor = cursor
				return &RuntimeError{Op: "read", Err: err}
			}
			mem[cursor] = buf[0]

		default:
			m.cursor = cursor
			return &RuntimeError{Op: "exec", Err: fmt.Errorf("malformed token %v at %d", t.Kind, pc)}
		}
	}

	m.cursor = cursor
	return nil
}

// Cursor returns the current tape position.
func (m *Machine) Cursor() int { return m.cursor }

// Cell returns the byte at tape index i.
func (m *Machine) Cell(i int) byte { return m.memory[i] }

// Len returns the tape capacity in cells.
func (m *Machine) Len() int { return len(m.memory) }

// Reset zeroes the tape and returns the cursor home. The streams are kept.
func (m *Machine) Reset() {
	m.cursor = 0
	for i := range m.memory {
		m.memory[i] = 0
	}
}
