package bridge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sential-dev/sential/internal/discover"
	"github.com/sential-dev/sential/internal/fileutil"
)

// The payload is JSON Lines: one header record, then context records in
// priority order, then file summaries in path order.
const payloadVersion = "1"

type record struct {
	Type     string `json:"type"`
	Version  string `json:"version,omitempty"`
	Root     string `json:"root,omitempty"`
	Language string `json:"language,omitempty"`

	// context_file fields
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`

	// file fields
	Size             int64    `json:"size,omitempty"`
	Fingerprint      string   `json:"fingerprint,omitempty"`
	Symbols          []string `json:"symbols,omitempty"`
	SymbolsTruncated bool     `json:"symbols_truncated,omitempty"`
}

// Encode serializes the bridge deterministically. No timestamps: identical
// bridges must be byte-identical.
func Encode(b *Bridge) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// Encoding into an in-memory buffer cannot fail for these types.
	_ = enc.Encode(record{Type: "bridge", Version: payloadVersion, Root: b.Root, Language: b.Language})
	for _, c := range b.Context {
		_ = enc.Encode(record{Type: "context_file", Path: c.Path, Content: c.Content})
	}
	for _, f := range b.Files {
		_ = enc.Encode(record{
			Type:             "file",
			Path:             f.Path,
			Language:         f.Language,
			Size:             f.Size,
			Fingerprint:      f.Fingerprint,
			Symbols:          f.Symbols,
			SymbolsTruncated: f.SymbolsTruncated,
		})
	}
	return buf.Bytes()
}

// Decode parses a payload produced by Encode.
func Decode(r io.Reader) (*Bridge, error) {
	b := &Bridge{}
	sawHeader := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("bridge payload line %d: %w", line, err)
		}
		switch rec.Type {
		case "bridge":
			if rec.Version != payloadVersion {
				return nil, fmt.Errorf("unsupported bridge payload version %q", rec.Version)
			}
			b.Root = rec.Root
			b.Language = rec.Language
			sawHeader = true
		case "context_file":
			b.Context = append(b.Context, discover.ContextFile{Path: rec.Path, Content: rec.Content})
		case "file":
			b.Files = append(b.Files, FileSummary{
				Path:             rec.Path,
				Language:         rec.Language,
				Size:             rec.Size,
				Fingerprint:      rec.Fingerprint,
				Symbols:          rec.Symbols,
				SymbolsTruncated: rec.SymbolsTruncated,
			})
		default:
			return nil, fmt.Errorf("bridge payload line %d: unknown record type %q", line, rec.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("bridge payload has no header record")
	}
	return b, nil
}

// WriteFile persists the payload, skipping the write when unchanged.
func WriteFile(path string, b *Bridge) error {
	_, err := fileutil.WriteIfChanged(path, Encode(b))
	return err
}

// ReadFile loads a payload from disk.
func ReadFile(path string) (*Bridge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
