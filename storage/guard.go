package storage

import (
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/arena/dataitem"
)

// Guarded admits only bytes accepted by Check. Reads pass through.
type Guarded struct {
	CAS   CAS
	Check func([]byte) error
}

func (g Guarded) Put(ctx context.Context, b []byte) (cid.Cid, error) {
	if g.Check != nil {
		if err := g.Check(b); err != nil {
			return cid.Undef, &RejectedError{Reason: err}
		}
	}
	return g.CAS.Put(ctx, b)
}

func (g Guarded) Get(ctx context.Context, id cid.Cid) ([]byte, error) { return g.CAS.Get(ctx, id) }

func (g Guarded) Has(ctx context.Context, id cid.Cid) (bool, error) { return g.CAS.Has(ctx, id) }

// VerifyDataItem accepts b only if it parses as a data item with a valid
// signature.
func VerifyDataItem(b []byte) error {
	item, err := dataitem.Parse(b)
	if err != nil {
		return err
	}
	return item.Verify()
}

// DataItems wraps cas so that only verifying data items can be stored.
func DataItems(cas CAS) Guarded { return Guarded{CAS: cas, Check: VerifyDataItem} }
