package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// HashBytes returns a short content fingerprint suitable for cache keys.
func HashBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// HashFile fingerprints a file without loading it fully into memory.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// IsBinary sniffs the first KB of a file for a NUL byte or invalid UTF-8.
func IsBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	chunk := make([]byte, 1024)
	n, err := f.Read(chunk)
	if err != nil && err != io.EOF {
		return true
	}
	chunk = chunk[:n]
	if bytes.IndexByte(chunk, 0) >= 0 {
		return true
	}
	// A multi-byte rune may be cut at the chunk boundary; trim up to three
	// trailing bytes before judging validity.
	for i := 0; i < 4 && len(chunk) > 0; i++ {
		if utf8.Valid(chunk) {
			return false
		}
		chunk = chunk[:len(chunk)-1]
	}
	return true
}

// ReadCapped reads a text file up to limit characters. Content beyond the
// limit is replaced with an explicit truncation notice so downstream prompts
// know the file was cut. Binary files yield an empty string.
func ReadCapped(path string, limit int) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if IsBinary(path) {
		return "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Read limit+1 so truncation is detectable.
	buf := make([]byte, limit+1)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	content := string(buf[:n])
	if len(content) > limit {
		return content[:limit] + fmt.Sprintf("\n\n... [truncated: file exceeded %d chars] ...", limit), nil
	}
	return content, nil
}

// WriteIfChanged writes data only when it differs from the file's current
// content, creating parent directories as needed.
func WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}

func EnsureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// DedupeStrings preserves first-seen order.
func DedupeStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// NormalizePath converts a repo-relative path to slash form without leading
// "./" so paths compare equal regardless of origin.
func NormalizePath(path string) string {
	path = filepath.ToSlash(strings.TrimSpace(path))
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
