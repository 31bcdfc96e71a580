// Package storage defines the content-addressed store that holds signed
// data-item envelopes, plus combinators over it.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// CAS is a content-addressable store of envelope bytes.
//
// Contract:
// - Put MUST be idempotent and return cidutil.Sum of the bytes.
// - Stored objects MUST be immutable.
// - Get MUST return ErrNotFound when the CID is absent and MUST NOT return
//   bytes whose CID differs from the one requested.
// - Has reports presence; it returns an error only when presence cannot be
//   determined (e.g. a remote store is unreachable).
type CAS interface {
	Put(ctx context.Context, b []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}
