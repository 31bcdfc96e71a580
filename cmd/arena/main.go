// Command arena uploads signed data items and publishes character metadata.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"xdao.co/arena/config"
	"xdao.co/arena/tags"
	"xdao.co/arena/upload"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "upload":
		return cmdUpload(args[1:], out, errOut)
	case "mint-metadata":
		return cmdMintMetadata(args[1:], out, errOut)
	case "collection-metadata":
		return cmdCollectionMetadata(args[1:], out, errOut)
	case "roster":
		return cmdRoster(args[1:], out, errOut)
	case "render":
		return cmdRender(args[1:], out, errOut)
	case "fallback-uri":
		return cmdFallbackURI(args[1:], out, errOut)
	case "decode-pubkey":
		return cmdDecodePubkey(args[1:], out, errOut)
	case "dataitem":
		return cmdDataItem(args[1:], out, errOut)
	case "cid":
		return cmdCID(args[1:], out, errOut)
	case "archive":
		return cmdArchive(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "arena: signed data-item uploads and character metadata")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  arena upload [--content-type <t>] [--tag K=V ...] [--concurrency N] <file> [<file> ...]")
	fmt.Fprintln(w, "  arena mint-metadata (--character <name> | --all)")
	fmt.Fprintln(w, "  arena collection-metadata [--name <n>] [--description <d>]")
	fmt.Fprintln(w, "  arena roster [--json]")
	fmt.Fprintln(w, "  arena render --character <name>")
	fmt.Fprintln(w, "  arena fallback-uri (character <name> | collection [<name>] | profile <name>)")
	fmt.Fprintln(w, "  arena decode-pubkey <base58>")
	fmt.Fprintln(w, "  arena dataitem build [--seed-hex <64hex> | --key-file <path>] [--content-type <t>] [--tag K=V ...] [--target <hex>] [--anchor <hex>] --out <file> <payload>")
	fmt.Fprintln(w, "  arena dataitem inspect <file>")
	fmt.Fprintln(w, "  arena cid <file>")
	fmt.Fprintln(w, "  arena archive export (--store-dir <dir> | --store-grpc <addr>) [--out <file>] [--no-index] <cid> [<cid> ...]")
	fmt.Fprintln(w, "  arena archive import (--store-dir <dir> | --store-grpc <addr>) [--ignore-unknown] <archive.tar>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common upload flags:")
	fmt.Fprintln(w, "  --config <file.jsonc>  --endpoint <url>  --gateway <url>  -v/--verbose")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - every upload is signed with a fresh ephemeral ed25519 key")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - collection-metadata falls back to an inline data URI if the upload fails;")
	fmt.Fprintln(w, "    mint-metadata never does")
}

// clientFlags are shared by every command that talks to the upload service.
type clientFlags struct {
	configPath string
	endpoint   string
	gateway    string
	verbose    bool
}

func (c *clientFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "JSONC config file")
	fs.StringVar(&c.endpoint, "endpoint", "", "upload endpoint (overrides config)")
	fs.StringVar(&c.gateway, "gateway", "", "retrieval gateway (overrides config)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")
}

// client resolves config file and flag overrides into an upload client.
func (c *clientFlags) client() (*upload.Client, *zap.Logger, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(c.configPath); err != nil {
			return nil, nil, err
		}
	}
	if c.endpoint != "" {
		cfg.Endpoint = c.endpoint
	}
	if c.gateway != "" {
		cfg.Gateway = c.gateway
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := zap.NewNop()
	if c.verbose {
		var err error
		if log, err = cfg.NewLogger(true); err != nil {
			return nil, nil, err
		}
	}
	opts := append(cfg.UploadOptions(), upload.WithLogger(log))
	return upload.New(opts...), log, nil
}

func newFlagSet(name string, errOut io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

// parseTags builds a tag list from --content-type and repeated --tag K=V.
// Content-Type comes first when set.
func parseTags(contentType string, kvs []string) (tags.List, error) {
	var l tags.List
	if contentType != "" {
		l = append(l, tags.Tag{Name: tags.ContentType, Value: contentType})
	}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --tag %q (want Key=Value)", kv)
		}
		l = append(l, tags.Tag{Name: k, Value: v})
	}
	return l, nil
}
