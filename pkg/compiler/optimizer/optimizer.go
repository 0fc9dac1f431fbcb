// Package optimizer shrinks source text before parsing without changing
// program semantics.
package optimizer

import (
	"github.com/agenthands/nbrain/pkg/core/token"
)

// Optimize strips every character that is not a command, then cancels
// adjacent inverse operations. Applying it to its own output is a no-op.
func Optimize(source string) string {
	return cancelInverses(stripComments(source))
}

// stripComments removes every non-command byte. Anything outside the
// eight-character vocabulary is a comment with no observable effect.
func stripComments(source string) string {
	buf := make([]byte, 0, len(source))
	for i := 0; i < len(source); i++ {
		if token.IsCommand(source[i]) {
			buf = append(buf, source[i])
		}
	}
	return string(buf)
}

// cancelInverses drops pairs of operations that undo each other. Each
// incoming character is checked against the current tail of the output
// buffer only, so cancellation is re-evaluated against whatever remains
// after each removal ("+-+" reduces to "+", not to "").
func cancelInverses(source string) string {
	buf := make([]byte, 0, len(source))
	for i := 0; i < len(source); i++ {
		c := source[i]
		if n := len(buf); n > 0 && buf[n-1] == inverseOf(c) {
			buf = buf[:n-1]
			continue
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func inverseOf(c byte) byte {
	switch c {
	case '+':
		return '-'
	case '-':
		return '+'
	case '<':
		return '>'
	case '>':
		return '<'
	}
	return 0
}
