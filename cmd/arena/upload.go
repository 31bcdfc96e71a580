package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xdao.co/arena/metadata"
)

func cmdUpload(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("upload", errOut)
	var cf clientFlags
	cf.register(fs)
	contentType := fs.String("content-type", "", "Content-Type tag (default: guessed per file)")
	tagKVs := fs.StringArray("tag", nil, "extra tag Key=Value (repeatable)")
	concurrency := fs.Int("concurrency", 4, "maximum uploads in flight")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: arena upload [flags] <file> [<file> ...]")
		return 2
	}
	if *concurrency < 1 {
		fmt.Fprintln(errOut, "--concurrency must be at least 1")
		return 2
	}

	client, log, err := cf.client()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	files := fs.Args()
	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)
	for i, path := range files {
		g.Go(func() error {
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			ct := *contentType
			if ct == "" {
				ct = guessContentType(path, b)
			}
			tl, err := parseTags(ct, *tagKVs)
			if err != nil {
				return err
			}
			res, err := client.Upload(ctx, b, tl)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			log.Debug("uploaded", zap.String("file", path), zap.String("id", res.ID))
			urls[i] = res.URL
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(errOut, "upload failed: %v\n", err)
		return 1
	}
	for i, path := range files {
		if len(files) == 1 {
			_, _ = fmt.Fprintln(out, urls[i])
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", path, urls[i])
	}
	return 0
}

func guessContentType(path string, b []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(b)
}

func cmdMintMetadata(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("mint-metadata", errOut)
	var cf clientFlags
	cf.register(fs)
	character := fs.String("character", "", "roster character name")
	all := fs.Bool("all", false, "publish metadata for the whole roster")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*character == "") == !*all || fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: arena mint-metadata (--character <name> | --all)")
		return 2
	}

	type entry struct {
		idx  int
		tmpl metadata.Template
	}
	var todo []entry
	if *all {
		for i, t := range metadata.Roster() {
			todo = append(todo, entry{i, t})
		}
	} else {
		t, i, ok := metadata.Lookup(*character)
		if !ok {
			fmt.Fprintf(errOut, "unknown character %q\n", *character)
			return 2
		}
		todo = append(todo, entry{i, t})
	}

	client, log, err := cf.client()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()
	o := metadata.NewOrchestrator(client, nil, log)

	// Characters are published one after another; each one's two uploads are
	// already strictly ordered.
	for _, e := range todo {
		u, err := o.UploadCharacterMetadata(context.Background(), e.idx, e.tmpl.Name, e.tmpl.Description, e.tmpl.HP, e.tmpl.ATK, e.tmpl.DEF)
		if err != nil {
			fmt.Fprintf(errOut, "%s: upload failed: %v\n", e.tmpl.Name, err)
			return 1
		}
		if len(todo) == 1 {
			_, _ = fmt.Fprintln(out, u)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", e.tmpl.Name, u)
	}
	return 0
}

func cmdCollectionMetadata(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("collection-metadata", errOut)
	var cf clientFlags
	cf.register(fs)
	name := fs.String("name", metadata.CollectionName, "collection name")
	description := fs.String("description", metadata.CollectionDescription, "collection description")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client, log, err := cf.client()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()
	o := metadata.NewOrchestrator(client, nil, log)

	uri, usedFallback := o.UploadTextOrFallback(context.Background(),
		metadata.CollectionMetadataJSON(*name, *description), "application/json",
		metadata.CollectionDataURI(*name))
	if usedFallback {
		fmt.Fprintln(errOut, "upload failed; using inline metadata")
	}
	_, _ = fmt.Fprintln(out, uri)
	return 0
}
