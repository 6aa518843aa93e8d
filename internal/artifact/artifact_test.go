package artifact

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sential-dev/sential/internal/plan"
	"github.com/sential-dev/sential/internal/resolve"
)

func ready(title, content string) resolve.ResolvedChapter {
	return resolve.ResolvedChapter{
		Chapter:  plan.Chapter{Title: title},
		Status:   resolve.StatusReady,
		Fidelity: resolve.FidelityComplete,
		Content:  content,
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Getting Started", "getting-started"},
		{"HTTP / API Layer", "http-api-layer"},
		{"  Core  ", "core"},
		{"Config & Defaults!", "config-defaults"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestAssembleStructure(t *testing.T) {
	doc := Assemble("demo", []resolve.ResolvedChapter{
		ready("Getting Started", "Intro prose."),
		ready("Core Model", "Model prose."),
	})

	assert.True(t, strings.HasPrefix(doc, "# Onboarding Guide: demo\n"))
	assert.Contains(t, doc, "1. [Getting Started](#getting-started)")
	assert.Contains(t, doc, "2. [Core Model](#core-model)")
	assert.Contains(t, doc, "<!-- sential:chapter:getting-started:start -->")
	assert.Contains(t, doc, "<!-- sential:chapter:core-model:end -->")
	assert.Contains(t, doc, "> fidelity: complete")
	// Chapters appear in syllabus order.
	assert.True(t, strings.Index(doc, "Intro prose.") < strings.Index(doc, "Model prose."))
}

func TestAssembleFailedChapterPlaceholder(t *testing.T) {
	failed := resolve.ResolvedChapter{
		Chapter:  plan.Chapter{Title: "Broken"},
		Status:   resolve.StatusFailed,
		Fidelity: resolve.FidelityFailedPlaceholder,
		Err:      errors.New("model unavailable"),
	}
	doc := Assemble("demo", []resolve.ResolvedChapter{ready("Fine", "ok"), failed})

	assert.Contains(t, doc, "> fidelity: failed-placeholder")
	assert.Contains(t, doc, "model unavailable")
	assert.Contains(t, doc, `--chapter "Broken"`)
}

func TestFidelityNoteCachedSuffix(t *testing.T) {
	ch := ready("Core", "prose")
	ch.FromCache = true
	assert.Equal(t, "complete (cached)", fidelityNote(ch))
}

func TestMergeReplacesSectionAndKeepsOthers(t *testing.T) {
	prior := Assemble("demo", []resolve.ResolvedChapter{
		ready("Getting Started", "Old intro."),
		ready("Core Model", "Model prose."),
	})

	merged := Merge(prior, []resolve.ResolvedChapter{
		ready("Getting Started", "New intro."),
	})

	assert.Contains(t, merged, "New intro.")
	assert.NotContains(t, merged, "Old intro.")
	assert.Contains(t, merged, "Model prose.")
	// Only one marker pair per chapter survives the splice.
	assert.Equal(t, 1, strings.Count(merged, "<!-- sential:chapter:getting-started:start -->"))
}

func TestMergeAppendsUnknownChapterAndRebuildsTOC(t *testing.T) {
	prior := Assemble("demo", []resolve.ResolvedChapter{
		ready("Getting Started", "Intro."),
	})

	merged := Merge(prior, []resolve.ResolvedChapter{
		ready("Deployment", "Ship it."),
	})

	assert.Contains(t, merged, "Ship it.")
	assert.Contains(t, merged, "1. [Getting Started](#getting-started)")
	assert.Contains(t, merged, "2. [Deployment](#deployment)")
}

func TestMergePreservesUnmanagedText(t *testing.T) {
	prior := Assemble("demo", []resolve.ResolvedChapter{ready("Core", "prose")})
	prior += "\nHand-written appendix.\n"

	merged := Merge(prior, []resolve.ResolvedChapter{ready("Core", "new prose")})
	assert.Contains(t, merged, "Hand-written appendix.")
	assert.Contains(t, merged, "new prose")
	require.NotContains(t, merged, "\nprose\n")
}
