package token

// Kind identifies the command class of a token.
type Kind uint8

const (
	KindNoOp Kind = iota
	KindIncrement
	KindDecrement
	KindMoveLeft
	KindMoveRight
	KindLoopStart
	KindLoopEnd
	KindOutput
	KindInput
)

var kindNames = [...]string{
	"NoOp", "Increment", "Decrement", "MoveLeft", "MoveRight",
	"LoopStart", "LoopEnd", "Output", "Input",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// Token is one executable unit of a program. Arg carries the repeat count
// for arithmetic and cursor moves, and the resolved index of the matching
// partner for loop tokens. Char preserves the original byte of a NoOp.
// Tokens are immutable once a program has been resolved.
type Token struct {
	Kind Kind
	Arg  int
	Char byte
}

// Program is a resolved token sequence. It is read-only during execution
// and may be reused across any number of machine runs.
type Program []Token

// IsCommand reports whether c is one of the eight command characters.
func IsCommand(c byte) bool {
	switch c {
	case '+', '-', '<', '>', ',', '.', '[', ']':
		return true
	}
	return false
}
