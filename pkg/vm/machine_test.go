package vm_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/agenthands/nbrain/pkg/compiler/parser"
	"github.com/agenthands/nbrain/pkg/core/token"
	"github.com/agenthands/nbrain/pkg/vm"
)

const helloWorld = "++++++++++[>+++++++>++++++++++>+++>+<<<<-]>++.>+.+++++++..+++.>++.<<+++++++++++++++.>.+++.------.--------.>+.>."

func newMachine(t *testing.T, capacity int, input string) (*vm.Machine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	m, err := vm.New(capacity, strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m, &out
}

func mustParse(t *testing.T, src string) token.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

func TestNewZeroCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := vm.New(capacity, strings.NewReader(""), io.Discard)
		if !errors.Is(err, vm.ErrZeroCapacity) {
			t.Errorf("capacity %d: expected ErrZeroCapacity, got %v", capacity, err)
		}
	}
}

func TestHelloWorld(t *testing.T) {
	m, out := newMachine(t, 255, "")

	if err := m.Run(mustParse(t, helloWorld)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "Hello World!\n" {
		t.Errorf("expected %q, got %q", "Hello World!\n", got)
	}
}

func TestClearCell(t *testing.T) {
	m, _ := newMachine(t, 255, "")

	if err := m.Run(mustParse(t, "++++++++++")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 10 {
		t.Fatalf("expected cell 0 = 10, got %d", m.Cell(0))
	}

	if err := m.Run(mustParse(t, "[-]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 0 {
		t.Errorf("expected cell 0 = 0, got %d", m.Cell(0))
	}
	if m.Cursor() != 0 {
		t.Errorf("expected cursor unchanged at 0, got %d", m.Cursor())
	}
}

func TestInputOutput(t *testing.T) {
	m, out := newMachine(t, 255, "t")

	if err := m.Run(mustParse(t, ",.")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "t" {
		t.Errorf("expected %q, got %q", "t", got)
	}
}

func TestBatchRuns(t *testing.T) {
	// Tape and cursor persist across Run calls on one machine.
	m, _ := newMachine(t, 255, "")

	if err := m.Run(mustParse(t, "[-]++++++++++")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 10 {
		t.Fatalf("expected cell 0 = 10, got %d", m.Cell(0))
	}

	if err := m.Run(mustParse(t, "[>+ <-]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 0 || m.Cell(1) != 10 {
		t.Fatalf("expected cells 0,10, got %d,%d", m.Cell(0), m.Cell(1))
	}

	if err := m.Run(mustParse(t, ">[-]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(1) != 0 {
		t.Errorf("expected cell 1 = 0, got %d", m.Cell(1))
	}
}

func TestCursorWraparound(t *testing.T) {
	m, _ := newMachine(t, 5, "")

	if err := m.Run(mustParse(t, "<")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cursor() != 4 {
		t.Errorf("moving left from 0 should wrap to 4, got %d", m.Cursor())
	}

	if err := m.Run(mustParse(t, ">")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cursor() != 0 {
		t.Errorf("moving right from 4 should wrap to 0, got %d", m.Cursor())
	}

	if err := m.Run(mustParse(t, ">>>>>")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cursor() != 0 {
		t.Errorf("moving right by the tape length should return to 0, got %d", m.Cursor())
	}
}

func TestCursorWraparoundCompressed(t *testing.T) {
	// A single counted move larger than the tape reduces modulo its length.
	m, _ := newMachine(t, 5, "")

	prog, err := parser.ParseCompress(">>>>>>>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Run(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", m.Cursor())
	}
}

func TestCellWraparound(t *testing.T) {
	m, _ := newMachine(t, 1, "")

	if err := m.Run(mustParse(t, "-")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 255 {
		t.Errorf("decrementing 0 should wrap to 255, got %d", m.Cell(0))
	}

	if err := m.Run(mustParse(t, "+")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Cell(0) != 0 {
		t.Errorf("incrementing 255 should wrap to 0, got %d", m.Cell(0))
	}
}

func TestFourByFour(t *testing.T) {
	m, _ := newMachine(t, 255, "")

	prog := mustParse(t, "++++>++++>[-]>[-]>[-]<<<<[->[->+>+<<]>>[-<<+>>]>+<<<<]>>>>[-<<<<+>>>>]<<<<")
	if err := m.Run(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Cell(0) != 4 || m.Cell(1) != 4 || m.Cell(2) != 16 {
		t.Errorf("expected 4*4=16, got cells %d,%d,%d", m.Cell(0), m.Cell(1), m.Cell(2))
	}
}

func TestAsciiTable(t *testing.T) {
	m, out := newMachine(t, 255, "")

	if err := m.Run(mustParse(t, ".+[.+]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := make([]byte, 256)
	for i := range want {
		want[i] = byte(i)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("expected all 256 byte values in order, got %d bytes", out.Len())
	}
}

func TestInputEOF(t *testing.T) {
	m, _ := newMachine(t, 255, "")

	err := m.Run(mustParse(t, ","))
	var runErr *vm.RuntimeError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected wrapped io.EOF, got %v", runErr.Err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("stream closed") }

func TestOutputFailure(t *testing.T) {
	m, err := vm.New(255, strings.NewReader(""), failWriter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runErr := m.Run(mustParse(t, "."))
	var wrapped *vm.RuntimeError
	if !errors.As(runErr, &wrapped) {
		t.Fatalf("expected RuntimeError, got %v", runErr)
	}
	if wrapped.Op != "write" {
		t.Errorf("expected write failure, got %q", wrapped.Op)
	}
}

func TestMalformedProgram(t *testing.T) {
	m, _ := newMachine(t, 255, "")

	err := m.Run(token.Program{{Kind: token.Kind(42)}})
	var runErr *vm.RuntimeError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
}

func TestMachineReset(t *testing.T) {
	m, _ := newMachine(t, 255, "")

	if err := m.Run(mustParse(t, "+++>++")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Reset()

	if m.Cursor() != 0 {
		t.Errorf("expected cursor 0 after reset, got %d", m.Cursor())
	}
	for i := 0; i < m.Len(); i++ {
		if m.Cell(i) != 0 {
			t.Fatalf("expected zeroed tape, cell %d = %d", i, m.Cell(i))
		}
	}
}

func TestProgramReuse(t *testing.T) {
	// One parsed program, many machines.
	prog := mustParse(t, helloWorld)

	for i := 0; i < 3; i++ {
		var out bytes.Buffer
		m, err := vm.New(255, strings.NewReader(""), &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := m.Run(prog); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if out.String() != "Hello World!\n" {
			t.Fatalf("run %d: expected %q, got %q", i, "Hello World!\n", out.String())
		}
	}
}
