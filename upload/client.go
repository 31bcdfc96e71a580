// Package upload sends signed data items to a bundling service and turns the
// returned identifier into a retrieval URL.
//
// Every Upload call generates its own ephemeral Ed25519 keypair, signs one
// envelope with it and discards it. A Client holds only read-only
// configuration and is safe for concurrent use.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"xdao.co/arena/dataitem"
	"xdao.co/arena/keys"
	"xdao.co/arena/tags"
)

const (
	// DefaultEndpoint accepts Ed25519 data items on the devnet bundler.
	DefaultEndpoint = "https://devnet.irys.xyz/tx/solana"
	// DefaultGateway serves uploaded items by id.
	DefaultGateway = "https://gateway.irys.xyz"

	contentTypeOctetStream = "application/octet-stream"
)

// Result identifies an uploaded item.
type Result struct {
	ID  string
	URL string
}

// Client posts data items to Endpoint.
//
// The zero value is not usable; construct with New.
type Client struct {
	endpoint string
	gateway  string
	http     *http.Client
	log      *zap.Logger
	entropy  io.Reader
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the upload URL.
func WithEndpoint(u string) Option { return func(c *Client) { c.endpoint = u } }

// WithGateway sets the base URL that ids are appended to.
func WithGateway(u string) Option { return func(c *Client) { c.gateway = u } }

// WithHTTPClient sets the HTTP client. No timeout is added by this package.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithEntropy sets the randomness source for ephemeral keys. Tests use this
// to get reproducible envelopes; production code should leave it unset.
func WithEntropy(r io.Reader) Option { return func(c *Client) { c.entropy = r } }

func New(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		gateway:  DefaultGateway,
		http:     http.DefaultClient,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }
func (c *Client) Gateway() string  { return c.gateway }

// URLFor returns the retrieval URL for id.
func (c *Client) URLFor(id string) string {
	return strings.TrimRight(c.gateway, "/") + "/" + id
}

// Upload signs payload and tagList with a fresh keypair and posts the
// envelope. It makes exactly one request; failures are not retried.
func (c *Client) Upload(ctx context.Context, payload []byte, tagList tags.List) (Result, error) {
	kp, err := keys.GenerateEphemeral(c.entropy)
	if err != nil {
		return Result{}, &Error{Kind: KindSigningFailure, Cause: err}
	}
	envelope, item, err := dataitem.Build(payload, tagList, kp, dataitem.Options{})
	if err != nil {
		return Result{}, &Error{Kind: KindSigningFailure, Cause: err}
	}

	log := c.log.With(
		zap.String("endpoint", c.endpoint),
		zap.String("item", item.ID()),
		zap.Int("payload_bytes", len(payload)),
		zap.Int("envelope_bytes", len(envelope)),
	)
	log.Debug("posting data item")

	id, err := c.post(ctx, envelope)
	if err != nil {
		log.Warn("upload failed", zap.Error(err))
		return Result{}, err
	}

	res := Result{ID: id, URL: c.URLFor(id)}
	log.Info("upload complete", zap.String("id", res.ID), zap.String("url", res.URL))
	return res, nil
}

type response struct {
	ID string `json:"id"`
}

func (c *Client) post(ctx context.Context, envelope []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Cause: err}
	}
	req.Header.Set("Content-Type", contentTypeOctetStream)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Status: resp.StatusCode, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindRemoteRejected, Status: resp.StatusCode, Body: excerpt(body)}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Body: excerpt(body), Cause: err}
	}
	if out.ID == "" {
		return "", &Error{Kind: KindMalformedResponse, Status: resp.StatusCode, Body: excerpt(body), Cause: errors.New(`missing "id"`)}
	}
	return out.ID, nil
}
