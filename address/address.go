// Package address decodes base58 (Bitcoin alphabet) account addresses into
// raw 32-byte public keys.
package address

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Alphabet is the Bitcoin base58 alphabet. It omits 0, O, I and l.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Size is the decoded length of every address.
const Size = 32

// scratchGroups bounds the decoded length of any input this package accepts
// as a candidate key; 44 base-256 digits leave headroom over 32 bytes.
const scratchGroups = 44

var alphabetIndex = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		idx[Alphabet[i]] = int8(i)
	}
	return idx
}()

// PublicKey is a decoded 32-byte address.
type PublicKey [Size]byte

// String returns the base58 form of k.
func (k PublicKey) String() string { return base58.Encode(k[:]) }

// Bytes returns a copy of the key bytes.
func (k PublicKey) Bytes() []byte { return append([]byte(nil), k[:]...) }

// Kind classifies decode failures.
type Kind string

const (
	KindInvalidChar Kind = "InvalidChar"
	KindWrongLength Kind = "WrongLength"
)

// Error reports why an address could not be decoded.
type Error struct {
	Kind Kind
	// Char is the offending character for KindInvalidChar.
	Char rune
	// Got is the decoded length for KindWrongLength.
	Got int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidChar:
		return fmt.Sprintf("address: invalid base58 character %q", e.Char)
	case KindWrongLength:
		return fmt.Sprintf("address: expected %d bytes, got %d", Size, e.Got)
	default:
		return "address: " + string(e.Kind)
	}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Decode parses a base58 address into exactly 32 bytes.
//
// Each leading '1' stands for one leading zero byte. Any other decoded length
// is rejected with KindWrongLength.
func Decode(s string) (PublicKey, error) {
	var out PublicKey
	var scratch [scratchGroups]uint32

	for _, c := range s {
		if c >= 0x80 || alphabetIndex[c] < 0 {
			return out, &Error{Kind: KindInvalidChar, Char: c}
		}
		carry := uint32(alphabetIndex[c])
		for i := len(scratch) - 1; i >= 0; i-- {
			carry += scratch[i] * 58
			scratch[i] = carry & 0xff
			carry >>= 8
		}
		if carry != 0 {
			// The value no longer fits the scratch buffer; it cannot be 32 bytes.
			return out, &Error{Kind: KindWrongLength, Got: scratchGroups + 1}
		}
	}

	ones := 0
	for ones < len(s) && s[ones] == '1' {
		ones++
	}
	first := 0
	for first < len(scratch) && scratch[first] == 0 {
		first++
	}

	decoded := ones + len(scratch) - first
	if decoded != Size {
		return out, &Error{Kind: KindWrongLength, Got: decoded}
	}
	for i, d := range scratch[first:] {
		out[ones+i] = byte(d)
	}
	return out, nil
}

// MustDecode is like Decode but panics on error. It is intended for
// compile-time constants such as program addresses.
func MustDecode(s string) PublicKey {
	k, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return k
}
