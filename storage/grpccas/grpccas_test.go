package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/arena/cidutil"
	"xdao.co/arena/storage"
	"xdao.co/arena/storage/localfs"
	"xdao.co/arena/storage/memory"
	"xdao.co/arena/storage/testkit"
)

func startServer(t *testing.T, backend storage.CAS) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(nil)))
	RegisterEnvelopeStoreServer(srv, NewServer(backend))

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return startServer(t, memory.New())
	})
}

func TestGRPCCAS_LocalFS_RoundTrip(t *testing.T) {
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := startServer(t, cas)
	ctx := context.Background()

	env := testkit.Envelope(t, "hello grpccas")
	id, err := client.Put(ctx, env)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := client.Has(ctx, id); err != nil || !ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(env) {
		t.Fatalf("payload mismatch")
	}
	// The server stored through to the filesystem.
	if ok, _ := cas.Has(ctx, id); !ok {
		t.Fatalf("envelope missing from backing store")
	}
}

func TestGRPCCAS_RejectsUnsignedBytes(t *testing.T) {
	mem := memory.New()
	client := startServer(t, mem)

	_, err := client.Put(context.Background(), []byte("not a data item"))
	if !errors.Is(err, storage.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var rej *storage.RejectedError
	if !errors.As(err, &rej) || rej.Reason == nil || rej.Reason.Error() == "" {
		t.Fatalf("expected rejection reason, got %#v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("rejected bytes reached the backing store")
	}
}

func TestGRPCCAS_NotFound(t *testing.T) {
	client := startServer(t, memory.New())
	id, err := cidutil.Sum([]byte("absent"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if _, err := client.Get(context.Background(), id); !storage.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
