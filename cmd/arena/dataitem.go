package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"xdao.co/arena/address"
	"xdao.co/arena/cidutil"
	"xdao.co/arena/dataitem"
	"xdao.co/arena/keys"
	"xdao.co/arena/tags"
)

func cmdDataItem(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: arena dataitem <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: build, inspect")
		return 2
	}
	switch args[0] {
	case "build":
		return cmdDataItemBuild(args[1:], out, errOut)
	case "inspect":
		return cmdDataItemInspect(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown dataitem subcommand: %s\n", args[0])
		return 2
	}
}

func cmdDataItemBuild(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("dataitem build", errOut)
	seedHex := fs.String("seed-hex", "", "ed25519 seed (64 hex chars); default is a fresh ephemeral key")
	keyFile := fs.String("key-file", "", "file holding a hex seed")
	contentType := fs.String("content-type", "", "Content-Type tag")
	tagKVs := fs.StringArray("tag", nil, "extra tag Key=Value (repeatable)")
	targetHex := fs.String("target", "", "32-byte target (hex)")
	anchorHex := fs.String("anchor", "", "32-byte anchor (hex)")
	outPath := fs.String("out", "", "write the envelope here")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *outPath == "" {
		fmt.Fprintln(errOut, "usage: arena dataitem build [flags] --out <file> <payload>")
		return 2
	}
	if *seedHex != "" && *keyFile != "" {
		fmt.Fprintln(errOut, "--seed-hex and --key-file are mutually exclusive")
		return 2
	}

	var signer *keys.Keypair
	var err error
	switch {
	case *seedHex != "":
		var seed []byte
		if seed, err = keys.ParseSeedHex(*seedHex); err == nil {
			signer, err = keys.FromSeed(seed)
		}
	case *keyFile != "":
		var seed []byte
		if seed, err = keys.ReadSeedFile(*keyFile); err == nil {
			signer, err = keys.FromSeed(seed)
		}
	default:
		signer, err = keys.GenerateEphemeral(nil)
	}
	if err != nil {
		fmt.Fprintf(errOut, "key: %v\n", err)
		return 2
	}

	var opts dataitem.Options
	if opts.Target, err = optionalHex("target", *targetHex); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if opts.Anchor, err = optionalHex("anchor", *anchorHex); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	tl, err := parseTags(*contentType, *tagKVs)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	payload, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read payload: %v\n", err)
		return 1
	}
	raw, item, err := dataitem.Build(payload, tl, signer, opts)
	if err != nil {
		fmt.Fprintf(errOut, "build: %v\n", err)
		return 1
	}
	if err := os.WriteFile(*outPath, raw, 0o644); err != nil {
		fmt.Fprintf(errOut, "write: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, item.ID())
	return 0
}

func optionalHex(name, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return b, nil
}

type inspection struct {
	ID            string    `json:"id"`
	CID           string    `json:"cid"`
	SignatureType uint16    `json:"signature_type"`
	Owner         string    `json:"owner"`
	Target        string    `json:"target,omitempty"`
	Anchor        string    `json:"anchor,omitempty"`
	Tags          tags.List `json:"tags"`
	DataSize      int       `json:"data_size"`
	Verified      bool      `json:"verified"`
	VerifyError   string    `json:"verify_error,omitempty"`
}

func cmdDataItemInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("dataitem inspect", errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: arena dataitem inspect <file>")
		return 2
	}
	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	item, err := dataitem.Parse(raw)
	if err != nil {
		fmt.Fprintf(errOut, "parse: %v\n", err)
		return 1
	}

	var owner address.PublicKey
	copy(owner[:], item.Owner())
	info := inspection{
		ID:            item.ID(),
		CID:           cidutil.String(raw),
		SignatureType: item.SignatureType(),
		Owner:         owner.String(),
		Target:        hex.EncodeToString(item.Target()),
		Anchor:        hex.EncodeToString(item.Anchor()),
		Tags:          item.Tags(),
		DataSize:      len(item.Data()),
		Verified:      true,
	}
	if err := item.Verify(); err != nil {
		info.Verified = false
		info.VerifyError = err.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	if !info.Verified {
		return 1
	}
	return 0
}
