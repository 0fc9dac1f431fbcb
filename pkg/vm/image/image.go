// Package image serializes compiled programs to a compact CBOR container
// so they can be executed later without reparsing the source.
package image

import (
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/agenthands/nbrain/pkg/core/token"
)

// Version is the current image format version.
const Version = 1

const (
	argBits = 24
	argMask = 1<<argBits - 1

	// wideArg in the argument field means the real value travels in
	// the WideArgs side table.
	wideArg = argMask
)

// Image is the on-disk form of a compiled program. Tokens are packed
// into uint32 words, kind in the high byte and argument in the low 24
// bits. Arguments too large for 24 bits, and the original bytes of NoOp
// tokens, travel in side tables consumed in order of appearance.
type Image struct {
	Version  byte     `cbor:"1,keyasint"`
	TapeSize int      `cbor:"2,keyasint"`
	Code     []uint32 `cbor:"3,keyasint"`
	WideArgs []uint64 `cbor:"4,keyasint,omitempty"`
	Chars    []byte   `cbor:"5,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: cbor enc mode: %v", err))
	}
	encMode = em
}

// Pack converts a resolved program into an image targeting a tape of the
// given size. Every Token.Arg must be non-negative, as parser output
// guarantees; Unpack rejects images carrying anything else.
func Pack(prog token.Program, tapeSize int) *Image {
	img := &Image{
		Version:  Version,
		TapeSize: tapeSize,
		Code:     make([]uint32, 0, len(prog)),
	}
	for _, t := range prog {
		arg := uint32(wideArg)
		if uint64(t.Arg) < wideArg {
			arg = uint32(t.Arg)
		} else {
			img.WideArgs = append(img.WideArgs, uint64(t.Arg))
		}
		img.Code = append(img.Code, uint32(t.Kind)<<argBits|arg)
		if t.Kind == token.KindNoOp {
			img.Chars = append(img.Chars, t.Char)
		}
	}
	return img
}

// Unpack expands an image back into an executable program. Jump targets
// are verified so that a corrupt image cannot send the machine out of
// bounds.
func (img *Image) Unpack() (token.Program, error) {
	if img.Version != Version {
		return nil, fmt.Errorf("image: unsupported version %d", img.Version)
	}

	prog := make(token.Program, 0, len(img.Code))
	wide, chars := img.WideArgs, img.Chars
	for i, word := range img.Code {
		kind := token.Kind(word >> argBits)
		if kind > token.KindInput {
			return nil, fmt.Errorf("image: unknown token kind %d at word %d", kind, i)
		}

		arg := int(word & argMask)
		if word&argMask == wideArg {
			if len(wide) == 0 {
				return nil, fmt.Errorf("image: missing wide argument for word %d", i)
			}
			if wide[0] > uint64(math.MaxInt) {
				return nil, fmt.Errorf("image: wide argument overflows at word %d", i)
			}
			arg = int(wide[0])
			wide = wide[1:]
		}

		t := token.Token{Kind: kind, Arg: arg}
		if kind == token.KindNoOp {
			if len(chars) == 0 {
				return nil, fmt.Errorf("image: missing character for no-op at word %d", i)
			}
			t.Char = chars[0]
			chars = chars[1:]
		}
		prog = append(prog, t)
	}

	if len(wide) != 0 || len(chars) != 0 {
		return nil, fmt.Errorf("image: %d unused side-table entries", len(wide)+len(chars))
	}

	if err := verifyJumps(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// verifyJumps checks that every loop token points at a partner of the
// opposite kind that points back.
func verifyJumps(prog token.Program) error {
	for i := range prog {
		var want token.Kind
		switch prog[i].Kind {
		case token.KindLoopStart:
			want = token.KindLoopEnd
		case token.KindLoopEnd:
			want = token.KindLoopStart
		default:
			continue
		}
		tgt := prog[i].Arg
		if tgt < 0 || tgt >= len(prog) || prog[tgt].Kind != want || prog[tgt].Arg != i {
			return fmt.Errorf("image: bad jump target %d at word %d", tgt, i)
		}
	}
	return nil
}

// Marshal serializes an image to canonical CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal deserializes an image from CBOR bytes.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	return &img, nil
}

// Write serializes img to w.
func Write(w io.Writer, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read deserializes an image from r, consuming it to EOF.
func Read(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("image: read: %w", err)
	}
	return Unmarshal(data)
}
