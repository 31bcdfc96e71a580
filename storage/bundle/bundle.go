// Package bundle moves stored envelopes between stores as a deterministic
// TAR archive:
//
//	items/<cid>   one signed data item per entry
//	index.json    optional, non-authoritative summary of the items
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/arena/cidutil"
	"xdao.co/arena/dataitem"
	"xdao.co/arena/storage"
	"xdao.co/arena/tags"
)

// FormatVersion is the current index schema version.
const FormatVersion = 1

const itemsDir = "items/"

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes the envelopes named by ids from cas to w.
//
// Entry order is lexicographic by CID and TAR headers are normalized, so the
// same set of ids always yields the same bytes. Every envelope is checked
// against its CID and must verify as a data item.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	slices.Sort(names)

	tw := tar.NewWriter(w)
	fail := func(err error) error {
		_ = tw.Close()
		return err
	}

	entries := make([]IndexEntry, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		b, err := cas.Get(ctx, id)
		if err != nil {
			return fail(fmt.Errorf("bundle: %s: %w", s, err))
		}
		got, err := cidutil.Sum(b)
		if err != nil {
			return fail(err)
		}
		if got != id {
			return fail(storage.ErrCIDMismatch)
		}
		item, err := dataitem.Parse(b)
		if err != nil {
			return fail(fmt.Errorf("bundle: %s: %w", s, err))
		}
		if err := item.Verify(); err != nil {
			return fail(fmt.Errorf("bundle: %s: %w", s, err))
		}

		if err := writeFile(tw, itemsDir+s, b); err != nil {
			return fail(err)
		}
		ct, _ := item.Tags().Get(tags.ContentType)
		entries = append(entries, IndexEntry{CID: s, DataItemID: item.ID(), Size: len(b), ContentType: ct})
	}

	if opts.IncludeIndex {
		b, err := json.Marshal(Index{Version: FormatVersion, Items: entries})
		if err != nil {
			return fail(err)
		}
		if err := writeFile(tw, "index.json", append(b, '\n')); err != nil {
			return fail(err)
		}
	}
	return tw.Close()
}

// Index is the layout of index.json.
type Index struct {
	Version int          `json:"version"`
	Items   []IndexEntry `json:"items"`
}

type IndexEntry struct {
	CID         string `json:"cid"`
	DataItemID  string `json:"dataitem_id"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r into cas and returns the imported CIDs in
// archive order.
//
// Each entry must hash to the CID in its name and verify as a data item;
// the first bad entry stops the import. Entries already imported stay in cas.
func Import(ctx context.Context, r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, fmt.Errorf("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	seen := map[cid.Cid]struct{}{}
	var imported []cid.Cid

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			continue
		}
		if !strings.HasPrefix(name, itemsDir) {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		id, err := cidutil.Parse(strings.TrimPrefix(name, itemsDir))
		if err != nil {
			return imported, storage.ErrInvalidCID
		}
		if _, ok := seen[id]; ok {
			return imported, fmt.Errorf("bundle: duplicate item entry: %s", id)
		}
		seen[id] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		got, err := cidutil.Sum(payload)
		if err != nil {
			return imported, err
		}
		if got != id {
			return imported, storage.ErrCIDMismatch
		}
		if err := storage.VerifyDataItem(payload); err != nil {
			return imported, fmt.Errorf("bundle: %s: %w", id, err)
		}

		putID, err := cas.Put(ctx, payload)
		if err != nil {
			return imported, err
		}
		if putID != id {
			return imported, storage.ErrCIDMismatch
		}
		imported = append(imported, id)
	}
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
