// Package config loads arena client and dev-node settings from a JSONC file
// (JSON with // comments, /* block comments */ and trailing commas).
//
// Example:
//
//	{
//	  // devnet bundler
//	  "endpoint": "https://devnet.irys.xyz/tx/solana",
//	  "gateway": "https://gateway.irys.xyz",
//	  "log_level": "info",
//	  "node": {
//	    "listen": "127.0.0.1:8090",
//	    "grpc_listen": "127.0.0.1:8091",
//	    "stores": [
//	      {"kind": "localfs", "dir": "/var/lib/arena"},
//	      {"kind": "grpc", "id": "mirror", "target": "10.0.0.2:8091", "timeout": "5s"},
//	      {"kind": "ipfs", "repo": "/var/lib/arena/ipfs"},
//	    ],
//	  },
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/arena/upload"
)

const (
	DefaultListen       = "127.0.0.1:8090"
	DefaultMaxBodyBytes = 16 << 20
	DefaultRateLimit    = 10
	DefaultRateBurst    = 20
)

// Config is the top-level file layout.
type Config struct {
	Endpoint string `json:"endpoint,omitempty"`
	Gateway  string `json:"gateway,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	Node     Node   `json:"node"`
}

// Node configures the dev upload node.
type Node struct {
	Listen     string `json:"listen,omitempty"`
	GRPCListen string `json:"grpc_listen,omitempty"`
	// PublicURL is the base that gateway URLs in logs are built from.
	// Empty means http://<listen>.
	PublicURL    string  `json:"public_url,omitempty"`
	MaxBodyBytes int64   `json:"max_body_bytes,omitempty"`
	RateLimit    float64 `json:"rate_limit,omitempty"`
	RateBurst    int     `json:"rate_burst,omitempty"`
	Stores       []Store `json:"stores,omitempty"`
}

// Store kinds.
const (
	StoreMemory  = "memory"
	StoreLocalFS = "localfs"
	StoreGRPC    = "grpc"
	StoreIPFS    = "ipfs"
)

// Store selects one envelope store backend.
type Store struct {
	Kind string `json:"kind"`
	// ID is an optional stable alias used in error messages. If empty, Kind is used.
	ID      string `json:"id,omitempty"`
	Dir     string `json:"dir,omitempty"`
	Target  string `json:"target,omitempty"`
	Timeout string `json:"timeout,omitempty"`
	// Bin and Repo apply to the ipfs kind. Repo sets IPFS_PATH for the
	// spawned commands; empty means the binary's own default.
	Bin  string `json:"bin,omitempty"`
	Repo string `json:"repo,omitempty"`
}

func (s Store) name() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Kind
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Endpoint: upload.DefaultEndpoint,
		Gateway:  upload.DefaultGateway,
		LogLevel: "info",
		Node: Node{
			Listen:       DefaultListen,
			MaxBodyBytes: DefaultMaxBodyBytes,
			RateLimit:    DefaultRateLimit,
			RateBurst:    DefaultRateBurst,
			Stores:       []Store{{Kind: StoreMemory}},
		},
	}
}

// Parse overlays the JSONC document data onto Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	// Stores in the file replace the default list rather than appending to it.
	cfg.Node.Stores = nil
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if len(cfg.Node.Stores) == 0 {
		cfg.Node.Stores = Default().Node.Stores
	}
	return cfg, cfg.Validate()
}

func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: endpoint is required")
	}
	if c.Gateway == "" {
		return errors.New("config: gateway is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return c.Node.Validate()
}

func (n Node) Validate() error {
	if n.MaxBodyBytes < 0 {
		return fmt.Errorf("config: max_body_bytes must not be negative (got %d)", n.MaxBodyBytes)
	}
	if n.RateLimit < 0 || n.RateBurst < 0 {
		return errors.New("config: rate_limit and rate_burst must not be negative")
	}
	if len(n.Stores) == 0 {
		return errors.New("config: at least one store is required")
	}
	seen := make(map[string]struct{}, len(n.Stores))
	for _, s := range n.Stores {
		switch s.Kind {
		case StoreMemory:
		case StoreLocalFS:
			if s.Dir == "" {
				return fmt.Errorf("config: store %q: dir is required", s.name())
			}
		case StoreGRPC:
			if s.Target == "" {
				return fmt.Errorf("config: store %q: target is required", s.name())
			}
			if s.Timeout != "" {
				if _, err := time.ParseDuration(s.Timeout); err != nil {
					return fmt.Errorf("config: store %q: timeout: %w", s.name(), err)
				}
			}
		case StoreIPFS:
		case "":
			return errors.New("config: store kind is required")
		default:
			return fmt.Errorf("config: unknown store kind %q", s.Kind)
		}
		if _, ok := seen[s.name()]; ok {
			return fmt.Errorf("config: duplicate store id %q", s.name())
		}
		seen[s.name()] = struct{}{}
	}
	return nil
}

// Level parses LogLevel; empty means info.
func (c Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return lvl, fmt.Errorf("config: log_level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a zap logger at the configured level. Development loggers
// write human-readable console output; production loggers write JSON.
func (c Config) NewLogger(development bool) (*zap.Logger, error) {
	lvl, err := c.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// UploadOptions returns the upload.Client options for the configured
// endpoint and gateway.
func (c Config) UploadOptions() []upload.Option {
	return []upload.Option{upload.WithEndpoint(c.Endpoint), upload.WithGateway(c.Gateway)}
}
