// Package build synthesizes one chapter's markdown from its resolved file
// contents. The synthesis call is instructed to end with a structured
// "needs" block naming additional files it believes are required but absent;
// malformed responses degrade to "no needs" with the raw text kept verbatim.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/llm"
)

// FileContent pairs a repo-relative path with its full (capped) content.
type FileContent struct {
	Path    string
	Content string
}

// Builder delegates chapter synthesis to the language-model collaborator.
type Builder struct {
	client llm.Client
	log    *zap.Logger
}

func NewBuilder(client llm.Client, log *zap.Logger) *Builder {
	return &Builder{client: client, log: log}
}

const builderSystem = `You write one chapter of an onboarding document for a software codebase.
Write clear markdown grounded strictly in the files you are shown.
If files you need are referenced (imported, called) but not shown, list their paths
in a fenced block at the very end of your answer:
` + "```needs\n[\"path/one\", \"path/two\"]\n```" + `
If nothing is missing, end with an empty block: ` + "```needs\n[]\n```"

// Synthesize produces the chapter markdown and the needs-list parsed from the
// response. It never fails on formatting: a response without a parseable
// needs block is used verbatim with an empty needs-list.
func (b *Builder) Synthesize(ctx context.Context, title string, files []FileContent) (string, []string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the chapter %q based on these files.\n\n", title)
	for _, f := range files {
		fmt.Fprintf(&sb, "### FILE: %s\n\n%s\n\n", f.Path, f.Content)
	}

	raw, err := b.client.Complete(ctx, llm.Request{System: builderSystem, Prompt: sb.String()})
	if err != nil {
		return "", nil, err
	}

	content, needs := splitNeeds(raw)
	if len(needs) > 0 {
		b.log.Debug("chapter requested additional files",
			zap.String("chapter", title), zap.Strings("needs", needs))
	}
	return content, needs, nil
}

var needsFence = regexp.MustCompile("(?s)```needs\\s*(.*?)```\\s*$")

// splitNeeds strips a trailing fenced needs block from the draft and parses
// it. Accepts a bare JSON array or an object with a "needs" key.
func splitNeeds(raw string) (string, []string) {
	match := needsFence.FindStringSubmatchIndex(raw)
	if match == nil {
		return strings.TrimSpace(raw), nil
	}

	body := strings.TrimSpace(raw[match[2]:match[3]])
	content := strings.TrimSpace(raw[:match[0]])

	var paths []string
	if err := json.Unmarshal([]byte(body), &paths); err != nil {
		var wrapped struct {
			Needs []string `json:"needs"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			// Malformed block: keep the full raw text, report no needs.
			return strings.TrimSpace(raw), nil
		}
		paths = wrapped.Needs
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return content, out
}
