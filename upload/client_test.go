package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/arena/dataitem"
	"xdao.co/arena/tags"
)

type recorded struct {
	contentType string
	body        []byte
}

func newRecordingServer(t *testing.T, status int, respBody string) (*httptest.Server, *[]recorded, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, recorded{contentType: r.Header.Get("Content-Type"), body: b})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &mu
}

func TestUploadPostsSignedEnvelope(t *testing.T) {
	srv, got, _ := newRecordingServer(t, http.StatusOK, `{"id":"abc123"}`)
	c := New(WithEndpoint(srv.URL), WithGateway("https://gw.example"))

	res, err := c.Upload(context.Background(), []byte("hello"), tags.WithContentType("text/plain"))
	require.NoError(t, err)
	require.Equal(t, "abc123", res.ID)
	require.Equal(t, "https://gw.example/abc123", res.URL)

	require.Len(t, *got, 1)
	req := (*got)[0]
	require.Equal(t, "application/octet-stream", req.contentType)

	item, err := dataitem.Parse(req.body)
	require.NoError(t, err)
	require.NoError(t, item.Verify())
	require.Equal(t, []byte("hello"), item.Data())
	ct, ok := item.Tags().Get(tags.ContentType)
	require.True(t, ok)
	require.Equal(t, "text/plain", ct)
}

func TestUploadAcceptsAnyTwoHundred(t *testing.T) {
	srv, _, _ := newRecordingServer(t, http.StatusCreated, `{"id":"x","timestamp":1}`)
	res, err := New(WithEndpoint(srv.URL)).Upload(context.Background(), []byte("p"), nil)
	require.NoError(t, err)
	require.Equal(t, "x", res.ID)
	require.Equal(t, DefaultGateway+"/x", res.URL)
}

func TestUploadRemoteRejected(t *testing.T) {
	srv, _, _ := newRecordingServer(t, http.StatusPaymentRequired, "Not enough balance for transaction")
	_, err := New(WithEndpoint(srv.URL)).Upload(context.Background(), []byte("p"), nil)
	require.Error(t, err)
	require.True(t, IsKind(err, KindRemoteRejected), "got %v", err)

	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, http.StatusPaymentRequired, e.Status)
	require.Equal(t, "Not enough balance for transaction", e.Body)
}

func TestUploadRemoteRejectedBodyIsBounded(t *testing.T) {
	srv, _, _ := newRecordingServer(t, http.StatusInternalServerError, strings.Repeat("x", 4096))
	_, err := New(WithEndpoint(srv.URL)).Upload(context.Background(), []byte("p"), nil)

	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, KindRemoteRejected, e.Kind)
	require.LessOrEqual(t, len(e.Body), maxExcerpt+len("..."))
}

func TestUploadMalformedResponse(t *testing.T) {
	for _, body := range []string{"not json", `{"status":"ok"}`, `{"id":""}`, ""} {
		srv, _, _ := newRecordingServer(t, http.StatusOK, body)
		_, err := New(WithEndpoint(srv.URL)).Upload(context.Background(), []byte("p"), nil)
		require.True(t, IsKind(err, KindMalformedResponse), "body %q: got %v", body, err)
	}
}

func TestUploadNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(WithEndpoint(url)).Upload(context.Background(), []byte("p"), nil)
	require.True(t, IsKind(err, KindNetworkFailure), "got %v", err)
}

func TestUploadCanceledContext(t *testing.T) {
	srv, got, _ := newRecordingServer(t, http.StatusOK, `{"id":"x"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithEndpoint(srv.URL)).Upload(ctx, []byte("p"), nil)
	require.True(t, IsKind(err, KindNetworkFailure), "got %v", err)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, *got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestUploadSigningFailure(t *testing.T) {
	srv, got, _ := newRecordingServer(t, http.StatusOK, `{"id":"x"}`)
	_, err := New(WithEndpoint(srv.URL), WithEntropy(failingReader{})).Upload(context.Background(), []byte("p"), nil)
	require.True(t, IsKind(err, KindSigningFailure), "got %v", err)
	require.Empty(t, *got, "no request may be sent when signing fails")
}

func TestUploadUsesFreshKeyPerCall(t *testing.T) {
	srv, got, _ := newRecordingServer(t, http.StatusOK, `{"id":"x"}`)
	c := New(WithEndpoint(srv.URL))

	for i := 0; i < 2; i++ {
		_, err := c.Upload(context.Background(), []byte("same"), nil)
		require.NoError(t, err)
	}
	require.Len(t, *got, 2)

	a, err := dataitem.Parse((*got)[0].body)
	require.NoError(t, err)
	b, err := dataitem.Parse((*got)[1].body)
	require.NoError(t, err)
	require.NotEqual(t, a.Owner(), b.Owner())
}

func TestConcurrentUploads(t *testing.T) {
	var n atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		item, err := dataitem.Parse(b)
		if err != nil || item.Verify() != nil {
			http.Error(w, "bad item", http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":%q}`, fmt.Sprintf("item-%d", n.Add(1)))
	}))
	defer srv.Close()

	c := New(WithEndpoint(srv.URL))
	var wg sync.WaitGroup
	ids := make([]string, 16)
	errs := make([]error, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Upload(context.Background(), []byte(fmt.Sprintf("payload %d", i)), tags.WithContentType("text/plain"))
			ids[i], errs[i] = res.ID, err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range ids {
		require.NoError(t, errs[i])
		require.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}
	require.EqualValues(t, 16, n.Load())
}

func TestURLForTrimsTrailingSlash(t *testing.T) {
	c := New(WithGateway("https://gw.example/"))
	require.Equal(t, "https://gw.example/abc", c.URLFor("abc"))
}
