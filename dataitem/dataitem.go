// Package dataitem builds, signs and parses signed binary data items.
//
// Envelope layout (all integers little-endian):
//
//	signature type   2 bytes
//	signature       64 bytes
//	owner           32 bytes
//	target flag      1 byte   (+32 bytes when 1)
//	anchor flag      1 byte   (+32 bytes when 1)
//	tag count        8 bytes
//	tag bytes len    8 bytes
//	tag bytes        variable (see package tags)
//	data             remainder of the envelope
//
// The signature covers the deep hash of
// ["dataitem", "1", sigType, owner, target, anchor, tagBytes, data], with
// absent target/anchor contributing empty blobs.
package dataitem

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"strconv"

	"xdao.co/arena/deephash"
	"xdao.co/arena/keys"
	"xdao.co/arena/tags"
)

const (
	SignatureTypeEd25519 = keys.SignatureTypeEd25519

	SignatureSize = keys.SignatureSize
	OwnerSize     = keys.PublicKeySize
	TargetSize    = 32
	AnchorSize    = 32

	formatName    = "dataitem"
	formatVersion = "1"
)

// Signer produces signatures for a single owner key.
type Signer interface {
	PublicKey() []byte
	SignatureType() uint16
	Sign(message []byte) ([]byte, error)
}

// Options carries the optional header fields.
type Options struct {
	// Target is an optional 32-byte recipient.
	Target []byte
	// Anchor is an optional 32-byte value, typically random, to make items unique.
	Anchor []byte
}

// DataItem is an envelope under construction or, once signed, an immutable
// signed envelope. Fields are only reachable through copying accessors.
type DataItem struct {
	sigType   uint16
	signature []byte
	owner     []byte
	target    []byte
	anchor    []byte
	tags      tags.List
	tagBytes  []byte
	data      []byte
}

// New returns an unsigned Ed25519 data item for owner.
func New(owner, data []byte, tagList tags.List, opts Options) (*DataItem, error) {
	if len(owner) != OwnerSize {
		return nil, newError(KindLayout, "owner must be "+strconv.Itoa(OwnerSize)+" bytes, got "+strconv.Itoa(len(owner)))
	}
	if opts.Target != nil && len(opts.Target) != TargetSize {
		return nil, newError(KindLayout, "target must be "+strconv.Itoa(TargetSize)+" bytes, got "+strconv.Itoa(len(opts.Target)))
	}
	if opts.Anchor != nil && len(opts.Anchor) != AnchorSize {
		return nil, newError(KindLayout, "anchor must be "+strconv.Itoa(AnchorSize)+" bytes, got "+strconv.Itoa(len(opts.Anchor)))
	}
	tl := append(tags.List(nil), tagList...)
	return &DataItem{
		sigType:  SignatureTypeEd25519,
		owner:    clone(owner),
		target:   clone(opts.Target),
		anchor:   clone(opts.Anchor),
		tags:     tl,
		tagBytes: tags.Encode(tl),
		data:     clone(data),
	}, nil
}

// Build creates, signs and serializes a data item in one step.
func Build(data []byte, tagList tags.List, signer Signer, opts Options) ([]byte, *DataItem, error) {
	if signer == nil {
		return nil, nil, newError(KindCrypto, "missing signer")
	}
	item, err := New(signer.PublicKey(), data, tagList, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := item.Sign(signer); err != nil {
		return nil, nil, err
	}
	raw, err := item.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return raw, item, nil
}

// SignatureData returns the deep-hash digest that Sign signs.
func (d *DataItem) SignatureData() [deephash.Size]byte {
	return deephash.Sum(deephash.List{
		deephash.String(formatName),
		deephash.String(formatVersion),
		deephash.String(strconv.Itoa(int(d.sigType))),
		deephash.Blob(d.owner),
		deephash.Blob(d.target),
		deephash.Blob(d.anchor),
		deephash.Blob(d.tagBytes),
		deephash.Blob(d.data),
	})
}

// Sign computes and attaches the signature. The signer's key must be the
// item's owner. Signing an already-signed item is rejected.
func (d *DataItem) Sign(signer Signer) error {
	if d.signature != nil {
		return newError(KindCrypto, "data item already signed")
	}
	if signer == nil {
		return newError(KindCrypto, "missing signer")
	}
	if signer.SignatureType() != d.sigType {
		return newError(KindCrypto, "unsupported signature type "+strconv.Itoa(int(signer.SignatureType())))
	}
	if !bytes.Equal(signer.PublicKey(), d.owner) {
		return newError(KindCrypto, "signer key does not match owner")
	}
	digest := d.SignatureData()
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return wrapError(KindCrypto, "sign", err)
	}
	if len(sig) != SignatureSize {
		return newError(KindCrypto, "signature must be "+strconv.Itoa(SignatureSize)+" bytes, got "+strconv.Itoa(len(sig)))
	}
	d.signature = clone(sig)
	return nil
}

// Verify checks the attached signature against the owner key.
func (d *DataItem) Verify() error {
	if d.signature == nil {
		return newError(KindCrypto, "data item is not signed")
	}
	if d.sigType != SignatureTypeEd25519 {
		return newError(KindCrypto, "unsupported signature type "+strconv.Itoa(int(d.sigType)))
	}
	digest := d.SignatureData()
	if !keys.Verify(d.owner, digest[:], d.signature) {
		return newError(KindCrypto, "signature invalid")
	}
	return nil
}

// ID returns the item identifier: unpadded base64url of sha256(signature).
// It is empty for unsigned items.
func (d *DataItem) ID() string {
	if d.signature == nil {
		return ""
	}
	sum := sha256.Sum256(d.signature)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (d *DataItem) Signed() bool          { return d.signature != nil }
func (d *DataItem) SignatureType() uint16 { return d.sigType }
func (d *DataItem) Signature() []byte     { return clone(d.signature) }
func (d *DataItem) Owner() []byte         { return clone(d.owner) }
func (d *DataItem) Target() []byte        { return clone(d.target) }
func (d *DataItem) Anchor() []byte        { return clone(d.anchor) }
func (d *DataItem) Tags() tags.List       { return append(tags.List(nil), d.tags...) }
func (d *DataItem) Data() []byte          { return clone(d.data) }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
