package plan

import (
	"fmt"
	"strings"

	"github.com/sential-dev/sential/internal/bridge"
)

const plannerSystem = `You are a software architect planning an onboarding document for a codebase.
You answer with a single JSON object and nothing else.`

// buildPrompt renders the bridge for the planner: context files verbatim,
// then one line per source file with its compact symbol list.
func buildPrompt(b *bridge.Bridge) string {
	var sb strings.Builder

	sb.WriteString("Plan an onboarding document for the repository below.\n")
	sb.WriteString("Partition the codebase into 4-10 topical chapters covering its core subsystems.\n")
	sb.WriteString("Chapters may share files. Reference only paths listed under SOURCE FILES.\n\n")
	sb.WriteString(`Answer with JSON: {"chapters":[{"title":"...", "files":["path", ...]}, ...]}` + "\n\n")

	if len(b.Context) > 0 {
		sb.WriteString("## CONTEXT FILES\n\n")
		for _, c := range b.Context {
			fmt.Fprintf(&sb, "### %s\n\n%s\n\n", c.Path, c.Content)
		}
	}

	sb.WriteString("## SOURCE FILES\n\n")
	for _, f := range b.Files {
		if len(f.Symbols) > 0 {
			fmt.Fprintf(&sb, "- %s [%s]", f.Path, strings.Join(f.Symbols, ", "))
			if f.SymbolsTruncated {
				sb.WriteString(" (truncated)")
			}
			sb.WriteString("\n")
			continue
		}
		fmt.Fprintf(&sb, "- %s\n", f.Path)
	}

	return sb.String()
}
