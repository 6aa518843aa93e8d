// Package artifact renders the final onboarding document: a table of
// contents followed by chapter sections in syllabus order. Each section is
// wrapped in managed markers so a later run can regenerate a subset of
// chapters and splice them into a prior document, leaving the rest unchanged.
package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sential-dev/sential/internal/fileutil"
	"github.com/sential-dev/sential/internal/resolve"
)

const (
	chapterStartFmt = "<!-- sential:chapter:%s:start -->"
	chapterEndFmt   = "<!-- sential:chapter:%s:end -->"
	tocStart        = "<!-- sential:toc:start -->"
	tocEnd          = "<!-- sential:toc:end -->"
)

// Slug normalizes a chapter title into a stable marker identifier.
func Slug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteRune('-')
		}
	}
	return strings.Trim(regexp.MustCompile(`-+`).ReplaceAllString(b.String(), "-"), "-")
}

// Assemble renders a complete document from scratch.
func Assemble(repoName string, chapters []resolve.ResolvedChapter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Onboarding Guide: %s\n\n", repoName)
	sb.WriteString(renderTOC(chapters))
	sb.WriteString("\n")
	for _, ch := range chapters {
		sb.WriteString(renderChapter(ch))
		sb.WriteString("\n")
	}
	return fileutil.EnsureTrailingNewline(strings.TrimRight(sb.String(), "\n"))
}

// Merge splices regenerated chapters into a prior document. Sections are
// matched by chapter title (via slug); chapters absent from the prior
// document are appended. The table of contents is rebuilt afterwards.
func Merge(prior string, updated []resolve.ResolvedChapter) string {
	doc := prior
	for _, ch := range updated {
		section := renderChapter(ch)
		slug := Slug(ch.Chapter.Title)
		start := fmt.Sprintf(chapterStartFmt, slug)
		end := fmt.Sprintf(chapterEndFmt, slug)

		si := strings.Index(doc, start)
		ei := strings.Index(doc, end)
		if si >= 0 && ei >= si {
			doc = doc[:si] + section + doc[ei+len(end):]
			doc = strings.TrimRight(doc, "\n") + "\n"
			continue
		}
		doc = fileutil.EnsureTrailingNewline(doc) + "\n" + section
	}
	return rebuildTOC(doc)
}

// renderChapter wraps one chapter in its managed markers. A failed chapter
// gets a placeholder section; every chapter carries a fidelity note so the
// document describes its own quality.
func renderChapter(ch resolve.ResolvedChapter) string {
	slug := Slug(ch.Chapter.Title)
	var sb strings.Builder
	fmt.Fprintf(&sb, chapterStartFmt+"\n", slug)
	fmt.Fprintf(&sb, "## %s\n\n", ch.Chapter.Title)
	fmt.Fprintf(&sb, "> fidelity: %s\n\n", fidelityNote(ch))

	content := strings.TrimSpace(ch.Content)
	if ch.Status == resolve.StatusFailed || content == "" {
		content = failedPlaceholder(ch)
	}
	sb.WriteString(content)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, chapterEndFmt+"\n", slug)
	return sb.String()
}

func fidelityNote(ch resolve.ResolvedChapter) string {
	note := string(ch.Fidelity)
	if note == "" {
		note = string(resolve.FidelityFailedPlaceholder)
	}
	if ch.FromCache {
		note += " (cached)"
	}
	return note
}

func failedPlaceholder(ch resolve.ResolvedChapter) string {
	reason := "synthesis failed"
	if ch.Err != nil {
		reason = ch.Err.Error()
	}
	return fmt.Sprintf("_This chapter could not be generated: %s. Re-run generation with `--chapter %q` to retry it._", reason, ch.Chapter.Title)
}

func renderTOC(chapters []resolve.ResolvedChapter) string {
	var sb strings.Builder
	sb.WriteString(tocStart + "\n")
	sb.WriteString("## Contents\n\n")
	for i, ch := range chapters {
		fmt.Fprintf(&sb, "%d. [%s](#%s)\n", i+1, ch.Chapter.Title, Slug(ch.Chapter.Title))
	}
	sb.WriteString(tocEnd + "\n")
	return sb.String()
}

var (
	chapterBlockRe = regexp.MustCompile(`(?s)<!-- sential:chapter:[a-z0-9-]*:start -->.*?<!-- sential:chapter:[a-z0-9-]*:end -->`)
	chapterHeadRe  = regexp.MustCompile(`(?m)^## (.+)$`)
	tocBlockRe     = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(tocStart) + `.*?` + regexp.QuoteMeta(tocEnd))
)

// rebuildTOC regenerates the contents block from the chapter sections
// actually present in the document, in document order.
func rebuildTOC(doc string) string {
	var entries []string
	for i, block := range chapterBlockRe.FindAllString(doc, -1) {
		head := chapterHeadRe.FindStringSubmatch(block)
		if head == nil {
			continue
		}
		title := strings.TrimSpace(head[1])
		entries = append(entries, fmt.Sprintf("%d. [%s](#%s)", i+1, title, Slug(title)))
	}

	toc := tocStart + "\n## Contents\n\n" + strings.Join(entries, "\n") + "\n" + tocEnd
	if tocBlockRe.MatchString(doc) {
		return tocBlockRe.ReplaceAllString(doc, toc)
	}
	return doc
}
