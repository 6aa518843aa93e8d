// Package symbols normalizes raw extracted code symbols into a per-file
// index. The extraction backend is a collaborator: per-file failures count as
// "no symbols for this file", never as a fatal error.
package symbols

import (
	"context"
	"fmt"
	"sort"
)

// Kind classifies a code symbol.
type Kind int

const (
	KindFunction Kind = iota
	KindMethod
	KindClass
	KindStruct
	KindInterface
	KindType
	KindConstant
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "func"
	case KindMethod:
		return "method"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindInterface:
		return "interface"
	case KindType:
		return "type"
	case KindConstant:
		return "const"
	case KindVariable:
		return "var"
	default:
		return "unknown"
	}
}

// Priority orders kinds for deterministic truncation: lower sorts first and
// survives longer when a symbol list must be cut.
func (k Kind) Priority() int {
	switch k {
	case KindClass, KindStruct, KindInterface:
		return 0
	case KindType:
		return 1
	case KindFunction:
		return 2
	case KindMethod:
		return 3
	case KindConstant:
		return 4
	case KindVariable:
		return 5
	default:
		return 6
	}
}

// Record is one extracted symbol with its line span.
type Record struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Tag renders the compact "kind name" form used in bridge summaries.
func (r Record) Tag() string {
	return fmt.Sprintf("%s %s", r.Kind, r.Name)
}

// Index maps a repo-relative file path to its symbols.
type Index map[string][]Record

// Extractor yields symbol records for a set of repository files.
type Extractor interface {
	Extract(ctx context.Context, root string, paths []string) (Index, error)
}

// SortForTruncation orders records by kind priority, then name, then line,
// so deterministic truncation keeps the most structural symbols.
func SortForTruncation(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		pi, pj := records[i].Kind.Priority(), records[j].Kind.Priority()
		if pi != pj {
			return pi < pj
		}
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].StartLine < records[j].StartLine
	})
}
