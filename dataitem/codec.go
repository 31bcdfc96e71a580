package dataitem

import (
	"encoding/binary"
	"strconv"

	"xdao.co/arena/tags"
)

// minHeader is the smallest possible envelope: both optional fields absent,
// empty tags, empty data.
const minHeader = 2 + SignatureSize + OwnerSize + 1 + 1 + 8 + 8

// Bytes serializes the signed envelope.
func (d *DataItem) Bytes() ([]byte, error) {
	if d.signature == nil {
		return nil, newError(KindCrypto, "data item is not signed")
	}
	return d.appendEnvelope(d.signature), nil
}

// UnsignedBytes serializes the envelope with a zeroed signature field. Every
// other byte is identical to Bytes, so it is stable across signers using the
// same owner, tags and data.
func (d *DataItem) UnsignedBytes() []byte {
	return d.appendEnvelope(make([]byte, SignatureSize))
}

func (d *DataItem) appendEnvelope(sig []byte) []byte {
	size := minHeader + len(d.target) + len(d.anchor) + len(d.tagBytes) + len(d.data)
	out := make([]byte, 0, size)

	out = binary.LittleEndian.AppendUint16(out, d.sigType)
	out = append(out, sig...)
	out = append(out, d.owner...)
	out = appendOptional(out, d.target)
	out = appendOptional(out, d.anchor)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(d.tags)))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(d.tagBytes)))
	out = append(out, d.tagBytes...)
	out = append(out, d.data...)
	return out
}

func appendOptional(out, field []byte) []byte {
	if field == nil {
		return append(out, 0)
	}
	out = append(out, 1)
	return append(out, field...)
}

// Parse decodes a signed envelope. It checks structure only; call Verify to
// check the signature.
func Parse(b []byte) (*DataItem, error) {
	if len(b) < minHeader {
		return nil, newError(KindParse, "envelope too short: "+strconv.Itoa(len(b))+" bytes")
	}
	r := reader{b: b}

	d := &DataItem{}
	d.sigType = binary.LittleEndian.Uint16(r.next(2))
	if d.sigType != SignatureTypeEd25519 {
		return nil, newError(KindParse, "unsupported signature type "+strconv.Itoa(int(d.sigType)))
	}
	d.signature = clone(r.next(SignatureSize))
	d.owner = clone(r.next(OwnerSize))

	var err error
	if d.target, err = r.optional("target", TargetSize); err != nil {
		return nil, err
	}
	if d.anchor, err = r.optional("anchor", AnchorSize); err != nil {
		return nil, err
	}

	if r.remaining() < 16 {
		return nil, newError(KindParse, "truncated tag header")
	}
	count := binary.LittleEndian.Uint64(r.next(8))
	tagLen := binary.LittleEndian.Uint64(r.next(8))
	if tagLen > uint64(r.remaining()) {
		return nil, newError(KindParse, "tag bytes length exceeds envelope")
	}
	d.tagBytes = clone(r.next(int(tagLen)))
	if d.tags, err = tags.Decode(d.tagBytes); err != nil {
		return nil, wrapError(KindParse, "tags", err)
	}
	if uint64(len(d.tags)) != count {
		return nil, newError(KindParse, "tag count mismatch: header "+strconv.FormatUint(count, 10)+", decoded "+strconv.Itoa(len(d.tags)))
	}
	d.data = clone(r.next(r.remaining()))
	return d, nil
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) next(n int) []byte {
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) optional(name string, size int) ([]byte, error) {
	if r.remaining() < 1 {
		return nil, newError(KindParse, "truncated "+name+" flag")
	}
	switch r.next(1)[0] {
	case 0:
		return nil, nil
	case 1:
		if r.remaining() < size {
			return nil, newError(KindParse, "truncated "+name)
		}
		return clone(r.next(size)), nil
	default:
		return nil, newError(KindParse, "invalid "+name+" presence flag")
	}
}
