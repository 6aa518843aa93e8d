// Package bridge assembles discovery output, the symbol index and designated
// context files into a single bounded payload: the input to planning.
package bridge

import (
	"fmt"
	"sort"

	"github.com/sential-dev/sential/internal/discover"
	"github.com/sential-dev/sential/internal/symbols"
)

// FileSummary is the planning-time view of one source file: path, language
// and a compact symbol list, never full content.
type FileSummary struct {
	Path             string   `json:"path"`
	Language         string   `json:"language"`
	Size             int64    `json:"size"`
	Fingerprint      string   `json:"fingerprint"`
	Symbols          []string `json:"symbols,omitempty"`
	SymbolsTruncated bool     `json:"symbols_truncated,omitempty"`
}

// Bridge is the bounded payload handed to the planner.
type Bridge struct {
	Root     string
	Language string
	Files    []FileSummary
	Context  []discover.ContextFile
}

// Universe maps every known file path to its content fingerprint. Syllabus
// validation and needs-list filtering are both checked against it.
func (b *Bridge) Universe() map[string]string {
	out := make(map[string]string, len(b.Files))
	for _, f := range b.Files {
		out[f.Path] = f.Fingerprint
	}
	return out
}

// Budget bounds the assembled payload.
type Budget struct {
	MaxBytes          int
	MaxSymbolsPerFile int
}

// BudgetExceededError is fatal to the run: the caller must narrow scope
// (module or language selection) and retry.
type BudgetExceededError struct {
	Size   int
	Budget int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("bridge payload is %d bytes, exceeding the %d byte budget even after symbol truncation; narrow the scan scope", e.Size, e.Budget)
}

// Assemble merges the inventory and symbol index into a Bridge. It is a pure
// transformation: identical inputs and budget yield a byte-identical payload.
// Files are ordered lexically by path; oversized symbol lists are truncated
// by kind priority then name. If the payload still exceeds the budget with
// symbol lists fully dropped, assembly fails with BudgetExceededError.
func Assemble(inv *discover.Inventory, idx symbols.Index, budget Budget) (*Bridge, error) {
	if budget.MaxSymbolsPerFile <= 0 {
		budget.MaxSymbolsPerFile = 64
	}

	files := append([]discover.FileRecord(nil), inv.Source...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	build := func(symbolCap int) *Bridge {
		b := &Bridge{
			Root:     inv.Root,
			Language: string(inv.Language),
			Files:    make([]FileSummary, 0, len(files)),
			Context:  inv.Context,
		}
		for _, f := range files {
			summary := FileSummary{
				Path:        f.Path,
				Language:    f.Language,
				Size:        f.Size,
				Fingerprint: f.Fingerprint,
			}
			records := append([]symbols.Record(nil), idx[f.Path]...)
			symbols.SortForTruncation(records)
			if len(records) > symbolCap {
				records = records[:symbolCap]
				summary.SymbolsTruncated = true
			}
			for _, r := range records {
				summary.Symbols = append(summary.Symbols, r.Tag())
			}
			b.Files = append(b.Files, summary)
		}
		return b
	}

	symbolCap := budget.MaxSymbolsPerFile
	for {
		b := build(symbolCap)
		size := len(Encode(b))
		if budget.MaxBytes <= 0 || size <= budget.MaxBytes {
			return b, nil
		}
		if symbolCap == 0 {
			return nil, &BudgetExceededError{Size: size, Budget: budget.MaxBytes}
		}
		symbolCap /= 2
	}
}
