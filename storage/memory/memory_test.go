package memory

import (
	"context"
	"testing"

	"xdao.co/arena/storage"
	"xdao.co/arena/storage/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return New()
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cas := New()
	in := []byte("payload")
	id, err := cas.Put(ctx, in)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	in[0] = 'X'

	got, err := cas.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("stored bytes aliased caller buffer: %q", got)
	}
	got[0] = 'Y'
	again, _ := cas.Get(ctx, id)
	if string(again) != "payload" {
		t.Fatalf("Get returned aliased bytes: %q", again)
	}
	if cas.Len() != 1 {
		t.Fatalf("Len = %d, want 1", cas.Len())
	}
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Put(ctx, []byte("x")); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
