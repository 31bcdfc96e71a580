// Package testkit holds the conformance suite every storage.CAS must pass.
package testkit

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/arena/cidutil"
	"xdao.co/arena/dataitem"
	"xdao.co/arena/keys"
	"xdao.co/arena/storage"
	"xdao.co/arena/tags"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// Envelope returns a signed data item carrying payload, built with a fixed
// key so repeated calls yield identical bytes.
func Envelope(t *testing.T, payload string) []byte {
	t.Helper()
	kp, err := keys.FromSeed(bytes.Repeat([]byte{7}, keys.SeedSize))
	if err != nil {
		t.Fatalf("FromSeed failed: %v", err)
	}
	raw, _, err := dataitem.Build([]byte(payload), tags.WithContentType("text/plain"), kp, dataitem.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return raw
}

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := Envelope(t, "hello, arena storage")

		id, err := cas.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.Sum(want)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if item, err := dataitem.Parse(got); err != nil || item.Verify() != nil {
			t.Fatalf("stored envelope no longer verifies: %v", err)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := Envelope(t, "same bytes")

		id1, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := Envelope(t, "missing")
		id, err := cidutil.Sum(b)
		if err != nil {
			t.Fatalf("Sum failed: %v", err)
		}

		if ok, err := cas.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has for missing CID: ok=%v err=%v", ok, err)
		}
		_, err = cas.Get(ctx, id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if ok, err := cas.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has after Put: ok=%v err=%v", ok, err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if ok, _ := cas.Has(ctx, undef); ok {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		cas := newCAS(t)
		var wg sync.WaitGroup
		ids := make([]cid.Cid, 8)
		errs := make([]error, 8)
		b := Envelope(t, "contended")
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i], errs[i] = cas.Put(ctx, b)
			}(i)
		}
		wg.Wait()
		for i := range ids {
			if errs[i] != nil {
				t.Fatalf("Put %d failed: %v", i, errs[i])
			}
			if ids[i] != ids[0] {
				t.Fatalf("Put %d returned %s, want %s", i, ids[i], ids[0])
			}
		}
	})
}
