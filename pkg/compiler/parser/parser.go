// Package parser turns source text into a resolved token sequence. Loop
// jump targets are computed here, once, so the machine never needs a
// runtime loop stack.
package parser

import (
	"fmt"

	"github.com/agenthands/nbrain/pkg/core/token"
)

// UnmatchedLoopError reports a loop command without a partner. Index is
// the position of the offending token: a close with no open loop is
// reported at its own index, an open that never closes is reported at the
// innermost still-open start.
type UnmatchedLoopError struct {
	Index int
}

func (e *UnmatchedLoopError) Error() string {
	return fmt.Sprintf("parser: unclosed loop at token %d", e.Index)
}

// Parse maps every source byte to a token 1:1 and resolves loop targets.
// Non-command bytes become NoOp tokens carrying the original byte.
func Parse(source string) (token.Program, error) {
	prog := make(token.Program, 0, len(source))
	for i := 0; i < len(source); i++ {
		prog = append(prog, tokenize(source[i]))
	}
	if err := resolveLoops(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// ParseCompress is Parse with run-length compression: consecutive
// increments and decrements collapse into one signed sum, consecutive
// cursor moves into one signed displacement. A pending sum is flushed by
// any token of another class (NoOps included) and at end of source; a
// zero sum is dropped entirely. The compressed program executes to the
// same machine state and I/O as the uncompressed one.
func ParseCompress(source string) (token.Program, error) {
	prog := make(token.Program, 0, len(source))
	delta := 0 // pending cell arithmetic
	shift := 0 // pending cursor displacement

	flushDelta := func() {
		if delta > 0 {
			prog = append(prog, token.Token{Kind: token.KindIncrement, Arg: delta})
		} else if delta < 0 {
			prog = append(prog, token.Token{Kind: token.KindDecrement, Arg: -delta})
		}
		delta = 0
	}
	flushShift := func() {
		if shift > 0 {
			prog = append(prog, token.Token{Kind: token.KindMoveRight, Arg: shift})
		} else if shift < 0 {
			prog = append(prog, token.Token{Kind: token.KindMoveLeft, Arg: -shift})
		}
		shift = 0
	}

	for i := 0; i < len(source); i++ {
		switch c := source[i]; c {
		case '+':
			flushShift()
			delta++
		case '-':
			flushShift()
			delta--
		case '>':
			flushDelta()
			shift++
		case '<':
			flushDelta()
			shift--
		default:
			flushDelta()
			flushShift()
			prog = append(prog, tokenize(c))
		}
	}
	flushDelta()
	flushShift()

	if err := resolveLoops(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func tokenize(c byte) token.Token {
	switch c {
	case '+':
		return token.Token{Kind: token.KindIncrement, Arg: 1}
	case '-':
		return token.Token{Kind: token.KindDecrement, Arg: 1}
	case '<':
		return token.Token{Kind: token.KindMoveLeft, Arg: 1}
	case '>':
		return token.Token{Kind: token.KindMoveRight, Arg: 1}
	case '[':
		return token.Token{Kind: token.KindLoopStart}
	case ']':
		return token.Token{Kind: token.KindLoopEnd}
	case '.':
		return token.Token{Kind: token.KindOutput}
	case ',':
		return token.Token{Kind: token.KindInput}
	}
	return token.Token{Kind: token.KindNoOp, Char: c}
}

// resolveLoops rewrites each loop token in place to carry the index of
// its partner. Single left-to-right scan over a stack of pending starts.
// A close with an empty stack fails immediately at the close index; a
// non-empty stack after the scan fails at its top, the innermost start
// still waiting for a close.
func resolveLoops(prog token.Program) error {
	var pending []int
	for i := range prog {
		switch prog[i].Kind {
		case token.KindLoopStart:
			pending = append(pending, i)
		case token.KindLoopEnd:
			if len(pending) == 0 {
				return &UnmatchedLoopError{Index: i}
			}
			start := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			prog[start].Arg = i
			prog[i].Arg = start
		}
	}
	if len(pending) > 0 {
		return &UnmatchedLoopError{Index: pending[len(pending)-1]}
	}
	return nil
}
