package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/arena/cidutil"
	"xdao.co/arena/config"
	"xdao.co/arena/storage"
	"xdao.co/arena/storage/bundle"
)

func cmdArchive(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: arena archive <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdArchiveExport(args[1:], out, errOut)
	case "import":
		return cmdArchiveImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown archive subcommand: %s\n", args[0])
		return 2
	}
}

// openStore opens a single envelope store from --store-dir or --store-grpc.
func openStore(dir, target string) (storage.CAS, func() error, error) {
	switch {
	case dir != "" && target != "":
		return nil, nil, fmt.Errorf("--store-dir and --store-grpc are mutually exclusive")
	case dir != "":
		return config.Node{Stores: []config.Store{{Kind: config.StoreLocalFS, Dir: dir}}}.OpenStores()
	case target != "":
		return config.Node{Stores: []config.Store{{Kind: config.StoreGRPC, Target: target}}}.OpenStores()
	default:
		return nil, nil, fmt.Errorf("one of --store-dir or --store-grpc is required")
	}
}

func cmdArchiveExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("archive export", errOut)
	dir := fs.String("store-dir", "", "localfs store directory")
	target := fs.String("store-grpc", "", "remote EnvelopeStore host:port")
	outPath := fs.String("out", "", "archive path (default stdout)")
	noIndex := fs.Bool("no-index", false, "omit index.json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: arena archive export (--store-dir <dir> | --store-grpc <addr>) [--out <file>] <cid> [<cid> ...]")
		return 2
	}
	ids := make([]cid.Cid, 0, fs.NArg())
	for _, s := range fs.Args() {
		id, err := cidutil.Parse(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid %q: %v\n", s, err)
			return 2
		}
		ids = append(ids, id)
	}

	cas, closeFn, err := openStore(*dir, *target)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = closeFn() }()

	w := out
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := bundle.Export(context.Background(), w, cas, ids, bundle.ExportOptions{IncludeIndex: !*noIndex}); err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	return 0
}

func cmdArchiveImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("archive import", errOut)
	dir := fs.String("store-dir", "", "localfs store directory")
	target := fs.String("store-grpc", "", "remote EnvelopeStore host:port")
	ignoreUnknown := fs.Bool("ignore-unknown", false, "skip entries that are not envelopes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: arena archive import (--store-dir <dir> | --store-grpc <addr>) <archive.tar>")
		return 2
	}

	cas, closeFn, err := openStore(*dir, *target)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = closeFn() }()

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	defer f.Close()

	ids, err := bundle.Import(context.Background(), f, cas, bundle.ImportOptions{IgnoreUnknown: *ignoreUnknown})
	for _, id := range ids {
		_, _ = fmt.Fprintln(out, id)
	}
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	return 0
}
