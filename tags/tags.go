// Package tags encodes the ordered name/value tag list carried by a data item.
//
// Layout of a non-empty list:
//
//	varint(count) || { varint_bytes(name) || varint_bytes(value) }* || 0x00
//
// The terminating zero byte is written once after the last pair. An empty list
// encodes to zero bytes (no count, no terminator).
package tags

import (
	"errors"
	"fmt"

	"xdao.co/arena/varint"
)

// Tag is a single name/value pair. Names need not be unique.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// List is an ordered tag sequence. Order is significant: it is hashed and
// transmitted verbatim.
type List []Tag

// ContentType is the tag name used for payload media types.
const ContentType = "Content-Type"

var (
	ErrTrailingBytes   = errors.New("tags: trailing bytes after terminator")
	ErrMissingTerminal = errors.New("tags: missing terminator")
	ErrBadCount        = errors.New("tags: invalid tag count")
)

// New builds a list from alternating name, value arguments.
// It panics on an odd number of arguments.
func New(kv ...string) List {
	if len(kv)%2 != 0 {
		panic("tags: New requires name/value pairs")
	}
	out := make(List, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		out = append(out, Tag{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

// WithContentType returns a single-tag list naming the payload media type.
func WithContentType(mediaType string) List {
	return List{{Name: ContentType, Value: mediaType}}
}

// Get returns the value of the first tag named name.
func (l List) Get(name string) (string, bool) {
	for _, t := range l {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// Encode serializes l.
func Encode(l List) []byte {
	if len(l) == 0 {
		return []byte{}
	}
	out := varint.Encode(int64(len(l)))
	for _, t := range l {
		out = varint.AppendBytes(out, []byte(t.Name))
		out = varint.AppendBytes(out, []byte(t.Value))
	}
	return append(out, 0x00)
}

// Decode parses the output of Encode.
func Decode(b []byte) (List, error) {
	if len(b) == 0 {
		return List{}, nil
	}
	count, off, err := varint.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("tags: count: %w", err)
	}
	if count <= 0 {
		return nil, ErrBadCount
	}
	// Each pair needs at least two length bytes.
	if count > int64(len(b)-off)/2 {
		return nil, ErrBadCount
	}

	out := make(List, 0, count)
	for i := int64(0); i < count; i++ {
		name, n, err := varint.DecodeBytes(b[off:])
		if err != nil {
			return nil, fmt.Errorf("tags: name %d: %w", i, err)
		}
		off += n
		value, n, err := varint.DecodeBytes(b[off:])
		if err != nil {
			return nil, fmt.Errorf("tags: value %d: %w", i, err)
		}
		off += n
		out = append(out, Tag{Name: string(name), Value: string(value)})
	}

	if off >= len(b) || b[off] != 0x00 {
		return nil, ErrMissingTerminal
	}
	if off+1 != len(b) {
		return nil, ErrTrailingBytes
	}
	return out, nil
}
