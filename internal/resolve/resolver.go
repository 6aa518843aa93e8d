// Package resolve drives one chapter from its planned file set to a fixed
// point. Each iteration synthesizes a draft, scans it for declared missing
// files, and grows the requested set. Monotonic growth plus a hard iteration
// ceiling guarantees termination; unknown paths are filtered against the
// bridge universe so hallucinated references cannot cause loops.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/build"
	"github.com/sential-dev/sential/internal/cache"
	"github.com/sential-dev/sential/internal/fileutil"
	"github.com/sential-dev/sential/internal/llm"
	"github.com/sential-dev/sential/internal/plan"
)

// Status tracks the chapter state machine:
// planned → resolving → ready | failed.
type Status int

const (
	StatusPlanned Status = iota
	StatusResolving
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "planned"
	case StatusResolving:
		return "resolving"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fidelity records how faithful the chapter content is, so the artifact can
// describe its own quality.
type Fidelity string

const (
	FidelityComplete           Fidelity = "complete"
	FidelityConvergenceLimit   Fidelity = "converged-with-limit"
	FidelityTimeoutPlaceholder Fidelity = "timed-out-placeholder"
	FidelityFailedPlaceholder  Fidelity = "failed-placeholder"
)

// ResolvedChapter is the terminal state of one chapter's resolution.
type ResolvedChapter struct {
	Chapter    plan.Chapter
	Status     Status
	Fidelity   Fidelity
	Content    string
	Requested  []string // final requested set, growth order
	Iterations int
	FromCache  bool // true when no synthesis call was issued at all
	Err        error
}

// Synthesizer is what the resolver needs from the builder.
type Synthesizer interface {
	Synthesize(ctx context.Context, title string, files []build.FileContent) (content string, needs []string, err error)
}

// Resolver resolves chapters against one repository root. Safe for
// concurrent use: per-chapter state lives entirely in Resolve.
type Resolver struct {
	root          string
	synth         Synthesizer
	store         *cache.Store
	maxIterations int
	fileCap       int
	log           *zap.Logger
}

const (
	defaultMaxIterations = 3
	defaultFileCap       = 50_000
)

func NewResolver(root string, synth Synthesizer, store *cache.Store, maxIterations, fileCap int, log *zap.Logger) *Resolver {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if fileCap <= 0 {
		fileCap = defaultFileCap
	}
	return &Resolver{
		root:          root,
		synth:         synth,
		store:         store,
		maxIterations: maxIterations,
		fileCap:       fileCap,
		log:           log,
	}
}

// Resolve runs the bounded resolution loop for one chapter. universe maps
// every known file path to its content fingerprint.
func (r *Resolver) Resolve(ctx context.Context, ch plan.Chapter, universe map[string]string) ResolvedChapter {
	out := ResolvedChapter{Chapter: ch, Status: StatusResolving}
	requested := fileutil.DedupeStrings(ch.Files)
	synthesized := false

	var lastDraft string
	for iter := 1; iter <= r.maxIterations; iter++ {
		out.Iterations = iter
		if err := ctx.Err(); err != nil {
			return r.fail(out, requested, err)
		}

		content, needs, hit, err := r.draft(ctx, ch.Title, requested, universe)
		if err != nil {
			if llm.IsTimeout(err) && ctx.Err() == nil {
				r.log.Warn("synthesis timed out, emitting placeholder",
					zap.String("chapter", ch.Title), zap.Int("iteration", iter))
				out.Status = StatusReady
				out.Fidelity = FidelityTimeoutPlaceholder
				out.Content = timeoutPlaceholder(ch.Title)
				out.Requested = requested
				return out
			}
			return r.fail(out, requested, err)
		}
		if !hit {
			synthesized = true
		}
		lastDraft = content

		grown := mergeKnownNeeds(requested, needs, universe, r.log, ch.Title)
		if len(grown) == len(requested) {
			// Fixed point: nothing new was requested.
			out.Status = StatusReady
			out.Fidelity = FidelityComplete
			out.Content = lastDraft
			out.Requested = requested
			out.FromCache = !synthesized
			return out
		}
		requested = grown
	}

	// Iteration cap reached without convergence: best-effort output is
	// preferable to failing the chapter.
	r.log.Warn("convergence limit reached",
		zap.String("chapter", ch.Title),
		zap.Int("iterations", r.maxIterations),
		zap.Int("requested_files", len(requested)))
	out.Status = StatusReady
	out.Fidelity = FidelityConvergenceLimit
	out.Content = lastDraft
	out.Requested = requested
	out.FromCache = !synthesized
	return out
}

// draft returns the synthesis result for the current requested set,
// consulting the cache first and storing after every successful call.
func (r *Resolver) draft(ctx context.Context, title string, requested []string, universe map[string]string) (string, []string, bool, error) {
	key := cache.Key(title, keyFiles(requested, universe))
	if entry, ok, err := r.store.Lookup(key); err != nil {
		r.log.Warn("cache lookup failed", zap.String("chapter", title), zap.Error(err))
	} else if ok {
		r.log.Debug("cache hit", zap.String("chapter", title), zap.Int("files", len(requested)))
		return entry.Content, entry.Needs, true, nil
	}

	files, err := r.loadContents(requested)
	if err != nil {
		return "", nil, false, err
	}
	content, needs, err := r.synth.Synthesize(ctx, title, files)
	if err != nil {
		return "", nil, false, err
	}

	if err := r.store.Store(key, cache.Entry{Content: content, Needs: needs}); err != nil {
		r.log.Warn("cache store failed", zap.String("chapter", title), zap.Error(err))
	}
	return content, needs, false, nil
}

// loadContents reads full file contents from the repository, not the bridge.
func (r *Resolver) loadContents(requested []string) ([]build.FileContent, error) {
	paths := append([]string(nil), requested...)
	sort.Strings(paths)

	out := make([]build.FileContent, 0, len(paths))
	for _, rel := range paths {
		content, err := fileutil.ReadCapped(filepath.Join(r.root, rel), r.fileCap)
		if err != nil {
			// The file was in the universe at scan time but is gone now.
			r.log.Warn("requested file unreadable", zap.String("path", rel), zap.Error(err))
			continue
		}
		out = append(out, build.FileContent{Path: rel, Content: content})
	}
	if len(out) == 0 {
		return nil, errors.New("no requested files could be read")
	}
	return out, nil
}

func (r *Resolver) fail(out ResolvedChapter, requested []string, err error) ResolvedChapter {
	out.Status = StatusFailed
	out.Fidelity = FidelityFailedPlaceholder
	out.Requested = requested
	out.Err = err
	r.log.Error("chapter resolution failed",
		zap.String("chapter", out.Chapter.Title), zap.Error(err))
	return out
}

// mergeKnownNeeds filters the needs-list to paths present in the universe and
// not yet requested, then appends them. The requested set only ever grows.
func mergeKnownNeeds(requested, needs []string, universe map[string]string, log *zap.Logger, title string) []string {
	have := make(map[string]bool, len(requested))
	for _, p := range requested {
		have[p] = true
	}

	out := requested
	for _, need := range needs {
		need = fileutil.NormalizePath(need)
		if need == "" || have[need] {
			continue
		}
		if _, known := universe[need]; !known {
			log.Debug("discarding unknown needs-list path",
				zap.String("chapter", title), zap.String("path", need))
			continue
		}
		have[need] = true
		out = append(out, need)
	}
	return out
}

func keyFiles(requested []string, universe map[string]string) []cache.KeyFile {
	out := make([]cache.KeyFile, 0, len(requested))
	for _, p := range requested {
		out = append(out, cache.KeyFile{Path: p, Fingerprint: universe[p]})
	}
	return out
}

func timeoutPlaceholder(title string) string {
	return fmt.Sprintf("_The chapter %q could not be synthesized because the language model timed out. Re-run generation to retry this chapter._", title)
}
