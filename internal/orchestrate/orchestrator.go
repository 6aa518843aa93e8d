// Package orchestrate sequences the pipeline phases. Discovery, extraction,
// assembly and planning run synchronously in order; chapter resolution fans
// out across a bounded worker pool; completed chapters are aggregated in
// syllabus order regardless of completion order.
package orchestrate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sential-dev/sential/internal/artifact"
	"github.com/sential-dev/sential/internal/bridge"
	"github.com/sential-dev/sential/internal/build"
	"github.com/sential-dev/sential/internal/cache"
	"github.com/sential-dev/sential/internal/config"
	"github.com/sential-dev/sential/internal/discover"
	"github.com/sential-dev/sential/internal/llm"
	"github.com/sential-dev/sential/internal/plan"
	"github.com/sential-dev/sential/internal/resolve"
	"github.com/sential-dev/sential/internal/symbols"
)

// Orchestrator owns the syllabus and all resolution state for one run. The
// cache store is shared process-wide state handed in at construction.
type Orchestrator struct {
	cfg       *config.Config
	store     *cache.Store
	client    llm.Client
	extractor symbols.Extractor
	log       *zap.Logger
}

func New(cfg *config.Config, store *cache.Store, client llm.Client, extractor symbols.Extractor, log *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, client: client, extractor: extractor, log: log}
}

// ScanOptions configures the scan phase.
type ScanOptions struct {
	Root        string
	Language    discover.Language
	Modules     []string
	IgnoreRules []string
}

// Scan runs Discovery → Extraction → Assembly and returns the bridge.
func (o *Orchestrator) Scan(ctx context.Context, opts ScanOptions) (*bridge.Bridge, error) {
	inv, err := discover.Run(discover.Options{
		Root:           opts.Root,
		Language:       opts.Language,
		Modules:        opts.Modules,
		IgnoreRules:    opts.IgnoreRules,
		ContextFileCap: o.cfg.Bridge.ContextFileCap,
	}, o.log)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if len(inv.Source) == 0 {
		return nil, fmt.Errorf("no %s source files found under %s; check language and module selection", opts.Language, opts.Root)
	}

	paths := make([]string, 0, len(inv.Source))
	for _, f := range inv.Source {
		paths = append(paths, f.Path)
	}
	idx, err := o.extractor.Extract(ctx, inv.Root, paths)
	if err != nil {
		return nil, fmt.Errorf("symbol extraction failed: %w", err)
	}
	o.log.Info("symbol extraction complete", zap.Int("files_with_symbols", len(idx)))

	b, err := bridge.Assemble(inv, idx, bridge.Budget{
		MaxBytes:          o.cfg.Bridge.BudgetBytes,
		MaxSymbolsPerFile: o.cfg.Bridge.MaxSymbolsPerFile,
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("bridge assembled",
		zap.Int("files", len(b.Files)),
		zap.Int("context_files", len(b.Context)),
		zap.Int("bytes", len(bridge.Encode(b))))
	return b, nil
}

// GenerateOptions configures the generate phase.
type GenerateOptions struct {
	// Root overrides the repository root recorded in the bridge, for
	// payloads moved between machines.
	Root string
	// Only restricts generation to the named chapter titles. The remaining
	// sections are carried over from PriorArtifact.
	Only []string
	// PriorArtifact is the previous document content, used to splice
	// regenerated chapters in subset mode.
	PriorArtifact string
}

// RunResult is the aggregated outcome of one generation run.
type RunResult struct {
	Chapters []resolve.ResolvedChapter
	Failed   int
}

// Generate runs Planning and fans chapter resolution out over the worker
// pool. A single chapter's failure never aborts the run; cancellation does.
func (o *Orchestrator) Generate(ctx context.Context, b *bridge.Bridge, opts GenerateOptions) (string, *RunResult, error) {
	root := opts.Root
	if root == "" {
		root = b.Root
	}

	planner := plan.NewPlanner(o.client, o.log)
	syllabus, err := planner.Plan(ctx, b)
	if err != nil {
		return "", nil, err
	}
	o.log.Info("syllabus planned", zap.Int("chapters", len(syllabus.Chapters)))

	chapters := syllabus.Chapters
	if len(opts.Only) > 0 {
		chapters, err = selectChapters(chapters, opts.Only)
		if err != nil {
			return "", nil, err
		}
	}

	universe := b.Universe()
	resolver := resolve.NewResolver(
		root,
		build.NewBuilder(o.client, o.log),
		o.store,
		o.cfg.Resolver.MaxIterations,
		o.cfg.Resolver.SourceFileCap,
		o.log,
	)

	results := make([]resolve.ResolvedChapter, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Pipeline.Workers)
	for i, ch := range chapters {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = resolver.Resolve(gctx, ch, universe)
			// Chapter failure is isolated; only cancellation propagates.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		// Cancelled: abandon partial state, write nothing.
		return "", nil, err
	}

	result := &RunResult{Chapters: results}
	for _, rc := range results {
		if rc.Status == resolve.StatusFailed {
			result.Failed++
		}
		o.log.Info("chapter finished",
			zap.String("chapter", rc.Chapter.Title),
			zap.String("status", rc.Status.String()),
			zap.String("fidelity", string(rc.Fidelity)),
			zap.Int("iterations", rc.Iterations),
			zap.Bool("from_cache", rc.FromCache))
	}

	var doc string
	if len(opts.Only) > 0 && opts.PriorArtifact != "" {
		doc = artifact.Merge(opts.PriorArtifact, results)
	} else {
		doc = artifact.Assemble(filepath.Base(root), results)
	}
	return doc, result, nil
}

// selectChapters filters the syllabus to the requested titles (matched
// case-insensitively), preserving syllabus order.
func selectChapters(chapters []plan.Chapter, only []string) ([]plan.Chapter, error) {
	wanted := make(map[string]string, len(only))
	for _, title := range only {
		title = strings.TrimSpace(title)
		wanted[strings.ToLower(title)] = title
	}

	out := make([]plan.Chapter, 0, len(only))
	for _, ch := range chapters {
		if _, ok := wanted[strings.ToLower(ch.Title)]; ok {
			out = append(out, ch)
			delete(wanted, strings.ToLower(ch.Title))
		}
	}
	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, title := range wanted {
			missing = append(missing, title)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("requested chapters not in the planned syllabus: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
