// Package store reads and writes the catalog document. Loading is permissive: a
// missing or unreadable document is an empty catalog, and malformed item records are
// repaired or skipped rather than rejected.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"horse.fit/bundlefeed/internal/catalog"
	"horse.fit/bundlefeed/internal/language"
)

// ErrCorrupt reports a catalog document that could not be decoded. The accompanying
// Snapshot is empty and safe to use.
var ErrCorrupt = errors.New("catalog document is corrupt")

// Snapshot is a loaded catalog plus what had to be repaired along the way.
type Snapshot struct {
	Catalog catalog.Catalog
	// Skipped counts item records that were not JSON objects.
	Skipped int
	// Backfilled counts items that had no id and got one computed on load.
	Backfilled int
}

// Load reads the catalog at path. A missing file yields an empty snapshot and no
// error. A corrupt file yields an empty snapshot and an error wrapping ErrCorrupt.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses a catalog document. Both {"meta":..,"items":[..]} and a bare item
// array are accepted.
func Decode(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Snapshot{}, nil
	}

	var rawItems []json.RawMessage
	var snap Snapshot

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &rawItems); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	case '{':
		var doc struct {
			Meta  json.RawMessage `json:"meta"`
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(doc.Meta) > 0 {
			// Meta is informational only; a bad one is dropped.
			_ = json.Unmarshal(doc.Meta, &snap.Catalog.Meta)
		}
		if len(doc.Items) > 0 {
			if err := json.Unmarshal(doc.Items, &rawItems); err != nil {
				rawItems = nil
			}
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: unexpected leading byte %q", ErrCorrupt, trimmed[0])
	}

	items := make([]catalog.Item, 0, len(rawItems))
	for _, raw := range rawItems {
		record, ok := decodeObject(raw)
		if !ok {
			snap.Skipped++
			continue
		}
		it := itemFromRecord(record)
		if it.ID == "" {
			catalog.EnsureID(&it)
			snap.Backfilled++
		}
		items = append(items, it)
	}
	snap.Catalog.Items = items
	return snap, nil
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil || record == nil {
		return nil, false
	}
	return record, true
}

func itemFromRecord(record map[string]any) catalog.Item {
	return catalog.Item{
		ID:           stringField(record, "id"),
		Bundle:       stringField(record, "bundle"),
		Query:        stringField(record, "query"),
		Title:        stringField(record, "title"),
		Source:       stringField(record, "source"),
		URL:          stringField(record, "url"),
		CanonicalURL: stringField(record, "canonical_url"),
		GUID:         stringField(record, "guid"),
		PublishedTS:  intField(record, "published_ts"),
		Blurb:        catalog.Optional(stringField(record, "blurb")),
		ImageURL:     catalog.Optional(stringField(record, "image_url")),
		PDFPath:      catalog.Optional(stringField(record, "pdf_path")),
		Lang:         catalog.Optional(language.NormalizeTag(stringField(record, "lang"))),
	}
}

func stringField(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intField(record map[string]any, key string) int64 {
	var raw string
	switch v := record[key].(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f)
	}
	return 0
}

// Save writes cat to path atomically: the document goes to a temporary sibling that
// is synced and renamed over path. Parent directories are created as needed.
func Save(path string, cat catalog.Catalog) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if cat.Items == nil {
		cat.Items = []catalog.Item{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cat); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open temp catalog: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace catalog: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, syscall.ENOTSUP) && !errors.Is(err, syscall.EINVAL) {
		return fmt.Errorf("sync catalog dir: %w", err)
	}
	return nil
}
