// Package varint implements the zigzag variable-length integer encoding used
// by the data-item tag block.
//
// An integer n is zigzag-mapped ((n<<1) ^ (n>>63), i.e. 2n for the lengths and
// counts this module emits) and then written as an unsigned LEB128 varint:
// seven bits per byte, least-significant group first, with the continuation
// bit (0x80) set on every byte except the last.
package varint

import (
	"errors"
	"fmt"

	mvarint "github.com/multiformats/go-varint"
)

var (
	ErrTruncated = errors.New("varint: truncated input")
	ErrOverflow  = errors.New("varint: value overflows 63 bits")
	ErrNegative  = errors.New("varint: negative length")
)

func zigzag(n int64) uint64 { return uint64((n << 1) ^ (n >> 63)) }

func unzigzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

// Encode returns the zigzag varint encoding of n.
func Encode(n int64) []byte {
	return mvarint.ToUvarint(zigzag(n))
}

// Append appends the zigzag varint encoding of n to dst.
func Append(dst []byte, n int64) []byte {
	return append(dst, Encode(n)...)
}

// Decode reads one zigzag varint from the front of b.
// It returns the value and the number of bytes consumed.
func Decode(b []byte) (int64, int, error) {
	u, read, err := mvarint.FromUvarint(b)
	if err != nil {
		switch {
		case errors.Is(err, mvarint.ErrUnderflow):
			return 0, 0, ErrTruncated
		case errors.Is(err, mvarint.ErrOverflow):
			return 0, 0, ErrOverflow
		default:
			return 0, 0, fmt.Errorf("varint: %w", err)
		}
	}
	return unzigzag(u), read, nil
}

// EncodeBytes returns varint(len(b)) || b.
func EncodeBytes(b []byte) []byte {
	return AppendBytes(make([]byte, 0, len(b)+mvarint.MaxLenUvarint63), b)
}

// AppendBytes appends varint(len(b)) || b to dst.
func AppendBytes(dst, b []byte) []byte {
	dst = Append(dst, int64(len(b)))
	return append(dst, b...)
}

// DecodeBytes reads one length-prefixed byte string from the front of b.
// The returned slice aliases b.
func DecodeBytes(b []byte) ([]byte, int, error) {
	n, read, err := Decode(b)
	if err != nil {
		return nil, 0, err
	}
	if n < 0 {
		return nil, 0, ErrNegative
	}
	if n > int64(len(b)-read) {
		return nil, 0, ErrTruncated
	}
	end := read + int(n)
	return b[read:end], end, nil
}
