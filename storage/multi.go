package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"golang.org/x/sync/errgroup"

	"xdao.co/arena/cidutil"
)

// Backend associates a CAS with a stable name for error reporting.
type Backend struct {
	Name string
	CAS  CAS
}

// MultiCAS writes to every backend and reads with ordered fallback.
//
// Read order is the slice order; callers MUST supply a fixed order.
// Put succeeds only if every backend stores the bytes under the CID derived
// from them.
type MultiCAS struct {
	Backends []Backend
}

var _ CAS = MultiCAS{}

// PutAll writes b to all backends concurrently and returns the canonical CID
// plus the CID each backend reported.
func (m MultiCAS) PutAll(ctx context.Context, b []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.Sum(b)
	if err != nil {
		return cid.Undef, nil, err
	}
	if len(m.Backends) == 0 {
		return cid.Undef, nil, errors.New("storage: MultiCAS has no backends")
	}

	var mu sync.Mutex
	out := make(map[string]cid.Cid, len(m.Backends))
	g, gctx := errgroup.WithContext(ctx)
	for _, be := range m.Backends {
		if be.CAS == nil {
			return cid.Undef, nil, fmt.Errorf("storage: nil CAS for backend %q", be.Name)
		}
		g.Go(func() error {
			got, err := be.CAS.Put(gctx, b)
			if err != nil {
				return fmt.Errorf("storage: backend %q: %w", be.Name, err)
			}
			mu.Lock()
			out[be.Name] = got
			mu.Unlock()
			if got != want {
				return fmt.Errorf("storage: backend %q returned %s: %w", be.Name, got, ErrCIDMismatch)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cid.Undef, out, err
	}
	return want, out, nil
}

func (m MultiCAS) Put(ctx context.Context, b []byte) (cid.Cid, error) {
	id, _, err := m.PutAll(ctx, b)
	return id, err
}

func (m MultiCAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, be := range m.Backends {
		if be.CAS == nil {
			continue
		}
		b, err := be.CAS.Get(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, fmt.Errorf("storage: backend %q: %w", be.Name, err)
	}
	return nil, ErrNotFound
}

// Has is true if any backend has id. Backend errors are reported only when
// no backend answers true.
func (m MultiCAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	var errs []error
	for _, be := range m.Backends {
		if be.CAS == nil {
			continue
		}
		ok, err := be.CAS.Has(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("storage: backend %q: %w", be.Name, err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
