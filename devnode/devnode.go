// Package devnode is a local stand-in for a bundling service. It accepts
// signed data items over HTTP, verifies them, stores the envelopes in a
// storage.CAS and serves their payloads back by content id.
package devnode

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"xdao.co/arena/address"
	"xdao.co/arena/cidutil"
	"xdao.co/arena/dataitem"
	"xdao.co/arena/storage"
	"xdao.co/arena/tags"
)

const DefaultMaxBodyBytes = 16 << 20

// Options configures a Node.
type Options struct {
	Store storage.CAS
	Log   *zap.Logger
	// MaxBodyBytes caps upload bodies; zero selects DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// RateLimit is the per-client request rate. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
}

// Node serves the upload and gateway endpoints:
//
//	POST /tx               upload a data item
//	POST /tx/{currency}    same; currency is only logged
//	GET  /tx/{id}          describe a stored item as JSON
//	GET  /{id}             the item's payload with its Content-Type tag
type Node struct {
	store   storage.CAS
	log     *zap.Logger
	maxBody int64
	limit   rate.Limit
	burst   int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(opts Options) (*Node, error) {
	if opts.Store == nil {
		return nil, errors.New("devnode: store is required")
	}
	n := &Node{
		store:    opts.Store,
		log:      opts.Log,
		maxBody:  opts.MaxBodyBytes,
		limit:    opts.RateLimit,
		burst:    opts.RateBurst,
		limiters: make(map[string]*rate.Limiter),
	}
	if n.log == nil {
		n.log = zap.NewNop()
	}
	if n.maxBody <= 0 {
		n.maxBody = DefaultMaxBodyBytes
	}
	if n.limit > 0 && n.burst <= 0 {
		n.burst = 1
	}
	return n, nil
}

func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tx", n.handleUpload)
	mux.HandleFunc("POST /tx/{currency}", n.handleUpload)
	mux.HandleFunc("GET /tx/{id}", n.handleInfo)
	mux.HandleFunc("GET /{id}", n.handlePayload)
	return n.rateLimited(mux)
}

func (n *Node) limiterFor(ip string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.limiters[ip]
	if !ok {
		l = rate.NewLimiter(n.limit, n.burst)
		n.limiters[ip] = l
	}
	return l
}

func (n *Node) rateLimited(next http.Handler) http.Handler {
	if n.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !n.limiterFor(ip).Allow() {
			n.log.Debug("rate limited", zap.String("remote", ip))
			writeError(w, http.StatusTooManyRequests, ErrRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	// ID is the CID of the stored envelope; GET /{id} serves its payload.
	ID string `json:"id"`
	// DataItemID is base64url(sha256(signature)).
	DataItemID string `json:"dataitem_id"`
}

func (n *Node) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, n.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, ErrInvalidRequest, err.Error())
		return
	}

	item, err := dataitem.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidDataItem, err.Error())
		return
	}
	if err := item.Verify(); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidDataItem, err.Error())
		return
	}

	id, err := n.store.Put(r.Context(), body)
	if err != nil {
		if errors.Is(err, storage.ErrRejected) {
			writeError(w, http.StatusBadRequest, ErrInvalidDataItem, err.Error())
			return
		}
		n.log.Error("store failed", zap.String("dataitem", item.ID()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrInternal, "store failed")
		return
	}

	ct, _ := item.Tags().Get(tags.ContentType)
	n.log.Info("stored data item",
		zap.String("id", id.String()),
		zap.String("dataitem", item.ID()),
		zap.String("currency", r.PathValue("currency")),
		zap.String("content_type", ct),
		zap.Int("bytes", len(body)),
	)
	writeJSON(w, http.StatusOK, UploadResponse{ID: id.String(), DataItemID: item.ID()})
}

// load fetches and parses the envelope named by the {id} path value. On
// failure it has already written the response.
func (n *Node) load(w http.ResponseWriter, r *http.Request) (string, *dataitem.DataItem, bool) {
	raw := r.PathValue("id")
	id, err := cidutil.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidCID, fmt.Sprintf("invalid id %q", raw))
		return "", nil, false
	}
	b, err := n.store.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", id))
			return "", nil, false
		}
		n.log.Error("load failed", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrInternal, "load failed")
		return "", nil, false
	}
	item, err := dataitem.Parse(b)
	if err != nil {
		n.log.Error("stored envelope does not parse", zap.String("id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrInternal, "stored envelope is corrupt")
		return "", nil, false
	}
	return id.String(), item, true
}

func (n *Node) handlePayload(w http.ResponseWriter, r *http.Request) {
	_, item, ok := n.load(w, r)
	if !ok {
		return
	}
	ct, ok := item.Tags().Get(tags.ContentType)
	if !ok || ct == "" {
		ct = "application/octet-stream"
	}
	data := item.Data()
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Header().Set("X-Data-Item-Id", item.ID())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ItemInfo describes a stored envelope.
type ItemInfo struct {
	ID            string    `json:"id"`
	DataItemID    string    `json:"dataitem_id"`
	SignatureType uint16    `json:"signature_type"`
	Owner         string    `json:"owner"`
	Tags          tags.List `json:"tags"`
	Size          int       `json:"size"`
}

func (n *Node) handleInfo(w http.ResponseWriter, r *http.Request) {
	id, item, ok := n.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ItemInfo{
		ID:            id,
		DataItemID:    item.ID(),
		SignatureType: item.SignatureType(),
		Owner:         ownerString(item.Owner()),
		Tags:          item.Tags(),
		Size:          len(item.Data()),
	})
}

func ownerString(owner []byte) string {
	var k address.PublicKey
	copy(k[:], owner)
	return k.String()
}
