// Package plan turns a bridge into a syllabus: an ordered list of topical
// chapters, each naming a title and a set of file paths. Planning sees file
// summaries and context files, never full source contents.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/bridge"
	"github.com/sential-dev/sential/internal/llm"
)

// Chapter is a topical unit of the onboarding document.
type Chapter struct {
	Title string   `json:"title"`
	Files []string `json:"files"`
}

// Syllabus is the ordered chapter plan for one run.
type Syllabus struct {
	Chapters []Chapter `json:"chapters"`
}

// PlanningError is fatal to the run: no chapter-level isolation exists for
// the planning phase.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("planning failed (%s)", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

const (
	ReasonEmptySyllabus = "empty syllabus"
	ReasonSchema        = "schema violation"
)

// Planner delegates chapter planning to the language-model collaborator and
// validates the candidate syllabus against the bridge's file universe.
type Planner struct {
	client llm.Client
	log    *zap.Logger
}

func NewPlanner(client llm.Client, log *zap.Logger) *Planner {
	return &Planner{client: client, log: log}
}

// Plan produces a validated syllabus. The underlying model call is retried
// exactly once, as a schema-repair re-prompt carrying the validation error;
// exhausting that attempt is fatal for the phase.
func (p *Planner) Plan(ctx context.Context, b *bridge.Bridge) (*Syllabus, error) {
	prompt := buildPrompt(b)
	universe := b.Universe()

	raw, err := p.client.Complete(ctx, llm.Request{
		System:     plannerSystem,
		Prompt:     prompt,
		JSONOutput: true,
	})
	if err != nil {
		return nil, &PlanningError{Reason: "model call", Err: err}
	}

	syllabus, validationErr := p.parseAndValidate(raw, universe)
	if validationErr == nil {
		return syllabus, nil
	}

	p.log.Warn("syllabus rejected, attempting schema repair", zap.Error(validationErr))
	repairPrompt := fmt.Sprintf("%s\n\nYour previous answer was rejected: %v\nReturn a corrected JSON object in the required schema.", prompt, validationErr)
	raw, err = p.client.Complete(ctx, llm.Request{
		System:     plannerSystem,
		Prompt:     repairPrompt,
		JSONOutput: true,
	})
	if err != nil {
		return nil, &PlanningError{Reason: "model call", Err: err}
	}

	syllabus, validationErr = p.parseAndValidate(raw, universe)
	if validationErr != nil {
		return nil, validationErr
	}
	return syllabus, nil
}

// parseAndValidate enforces the syllabus invariants:
//   - non-empty title and file list per chapter (schema conformance);
//   - unknown paths dropped from the chapter, chapter dropped if emptied;
//   - duplicate titles disambiguated with an index suffix;
//   - resulting syllabus non-empty.
func (p *Planner) parseAndValidate(raw string, universe map[string]string) (*Syllabus, *PlanningError) {
	var candidate Syllabus
	if err := json.Unmarshal([]byte(extractJSON(raw)), &candidate); err != nil {
		return nil, &PlanningError{Reason: ReasonSchema, Err: err}
	}

	out := &Syllabus{}
	titleCounts := make(map[string]int)
	for _, ch := range candidate.Chapters {
		title := strings.TrimSpace(ch.Title)
		if title == "" || len(ch.Files) == 0 {
			return nil, &PlanningError{
				Reason: ReasonSchema,
				Err:    fmt.Errorf("every chapter needs a non-empty title and a non-empty file list"),
			}
		}

		kept := make([]string, 0, len(ch.Files))
		for _, path := range ch.Files {
			path = strings.TrimSpace(path)
			if _, known := universe[path]; !known {
				p.log.Debug("dropping unknown path from chapter",
					zap.String("chapter", title), zap.String("path", path))
				continue
			}
			kept = append(kept, path)
		}
		if len(kept) == 0 {
			p.log.Warn("dropping chapter with no known files", zap.String("chapter", title))
			continue
		}

		titleCounts[title]++
		if n := titleCounts[title]; n > 1 {
			title = fmt.Sprintf("%s (%d)", title, n)
		}
		out.Chapters = append(out.Chapters, Chapter{Title: title, Files: dedupe(kept)})
	}

	if len(out.Chapters) == 0 {
		return nil, &PlanningError{Reason: ReasonEmptySyllabus}
	}
	return out, nil
}

// extractJSON tolerates models that wrap the object in a markdown fence.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw, "\n"); idx >= 0 {
			raw = raw[idx+1:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	return strings.TrimSpace(raw)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
