// Package deephash computes the recursive, order-sensitive SHA-384 digest used
// to sign data items.
//
//	blob b: H( H("blob" + len(b)) || H(b) )
//	list l: acc = H("list" + len(l)); acc = H(acc || Sum(item)) for each item
//
// Lengths are written as decimal ASCII with no separator.
package deephash

import (
	"crypto/sha512"
	"strconv"
)

// Size is the digest length in bytes.
const Size = sha512.Size384

// Node is either a Blob or a List. The set is closed.
type Node interface {
	deepHashNode()
}

// Blob is a leaf of raw bytes.
type Blob []byte

// List is an ordered sequence of nodes.
type List []Node

func (Blob) deepHashNode() {}
func (List) deepHashNode() {}

// String returns a Blob holding the bytes of s.
func String(s string) Blob { return Blob(s) }

// Sum returns the deep hash of n. A nil node hashes as an empty blob.
func Sum(n Node) [Size]byte {
	switch v := n.(type) {
	case List:
		acc := sha512.Sum384([]byte("list" + strconv.Itoa(len(v))))
		buf := make([]byte, 0, 2*Size)
		for _, item := range v {
			child := Sum(item)
			buf = append(buf[:0], acc[:]...)
			buf = append(buf, child[:]...)
			acc = sha512.Sum384(buf)
		}
		return acc
	case Blob:
		return sumBlob(v)
	default:
		return sumBlob(nil)
	}
}

func sumBlob(b []byte) [Size]byte {
	tag := sha512.Sum384([]byte("blob" + strconv.Itoa(len(b))))
	data := sha512.Sum384(b)
	buf := make([]byte, 0, 2*Size)
	buf = append(buf, tag[:]...)
	buf = append(buf, data[:]...)
	return sha512.Sum384(buf)
}
