// Package discover enumerates the files of a repository, applies ignore rules
// and language heuristics, and detects monorepo module boundaries. Git-aware:
// tracked files come from the repository index via go-git, untracked files
// from a worktree walk filtered through the ignore matcher. Directories that
// are not git repositories fall back to the walk alone.
package discover

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/fileutil"
)

// FileRecord describes one discovered source file. Content is never held
// here; downstream stages load it lazily from the repository.
type FileRecord struct {
	Path        string `json:"path"`
	Language    string `json:"language"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
}

// ContextFile carries the verbatim (capped) content of a designated context
// file such as a README or a manifest.
type ContextFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Module is a monorepo subdivision found via manifest heuristics. It scopes
// discovery and has no runtime behavior beyond filtering.
type Module struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// Inventory is the complete discovery output for one scan.
type Inventory struct {
	Root     string
	Language Language
	Source   []FileRecord
	Context  []ContextFile
	Modules  []Module
}

// Options configures a discovery run.
type Options struct {
	Root           string
	Language       Language
	Modules        []string // module roots to include; empty means all
	IgnoreRules    []string // extra gitignore-style rules
	ContextFileCap int      // max chars read per context file
}

const defaultContextFileCap = 100_000

// Run walks the repository at opts.Root and produces an Inventory.
func Run(opts Options, log *zap.Logger) (*Inventory, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("discovery root must be a directory")
	}

	cap := opts.ContextFileCap
	if cap <= 0 {
		cap = defaultContextFileCap
	}

	paths, err := listFiles(root, opts.IgnoreRules, log)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{Root: root, Language: opts.Language}
	inv.Modules = detectModules(opts.Language, paths)
	paths = filterByModules(paths, opts.Modules)

	for _, rel := range paths {
		name := filepath.Base(rel)
		abs := filepath.Join(root, rel)

		switch {
		case isSourceFile(opts.Language, name):
			st, err := os.Stat(abs)
			if err != nil {
				log.Warn("skipping unreadable file", zap.String("path", rel), zap.Error(err))
				continue
			}
			fp, err := fileutil.HashFile(abs)
			if err != nil {
				log.Warn("skipping unhashable file", zap.String("path", rel), zap.Error(err))
				continue
			}
			inv.Source = append(inv.Source, FileRecord{
				Path:        rel,
				Language:    string(opts.Language),
				Size:        st.Size(),
				Fingerprint: fp,
			})
		case isContextFile(opts.Language, name):
			content, err := fileutil.ReadCapped(abs, cap)
			if err != nil || content == "" {
				continue
			}
			inv.Context = append(inv.Context, ContextFile{Path: rel, Content: content})
		}
	}

	sort.Slice(inv.Source, func(i, j int) bool { return inv.Source[i].Path < inv.Source[j].Path })
	orderContextFiles(opts.Language, inv.Context)

	log.Info("discovery complete",
		zap.String("root", root),
		zap.Int("source_files", len(inv.Source)),
		zap.Int("context_files", len(inv.Context)),
		zap.Int("modules", len(inv.Modules)))
	return inv, nil
}

// listFiles returns repo-relative slash paths: tracked files from the git
// HEAD tree plus untracked-but-not-ignored files from a worktree walk.
func listFiles(root string, extraRules []string, log *zap.Logger) ([]string, error) {
	matcher := ignoreMatcher(root, extraRules)
	seen := make(map[string]bool)
	var out []string

	tracked, err := listTracked(root)
	switch {
	case err == nil:
		for _, rel := range tracked {
			if matcher.Match(rel, false) {
				continue
			}
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
		}
	case errors.Is(err, git.ErrRepositoryNotExists):
		log.Debug("not a git repository, walking worktree only", zap.String("root", root))
	default:
		log.Warn("git enumeration failed, walking worktree only", zap.Error(err))
	}

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matcher.Match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(out)
	return out, nil
}

func listTracked(root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		// Fresh repository with no commits yet; nothing is tracked.
		return nil, nil
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}

	var paths []string
	err = tree.Files().ForEach(func(f *object.File) error {
		paths = append(paths, filepath.ToSlash(f.Name))
		return nil
	})
	return paths, err
}

// detectModules finds module roots by locating language manifests, mirroring
// monorepo layouts where each subproject carries its own manifest.
func detectModules(lang Language, paths []string) []Module {
	roots := make(map[string]bool)
	for _, rel := range paths {
		if isManifest(lang, filepath.Base(rel)) {
			dir := filepath.ToSlash(filepath.Dir(rel))
			roots[dir] = true
		}
	}

	out := make([]Module, 0, len(roots))
	for dir := range roots {
		name := dir
		if dir == "." {
			name = "(root)"
		}
		out = append(out, Module{Name: name, Root: dir})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

func filterByModules(paths, modules []string) []string {
	if len(modules) == 0 {
		return paths
	}

	prefixes := make([]string, 0, len(modules))
	includeRoot := false
	for _, m := range modules {
		m = fileutil.NormalizePath(m)
		if m == "" || m == "." || m == "(root)" {
			includeRoot = true
			continue
		}
		prefixes = append(prefixes, m+"/")
	}

	out := make([]string, 0, len(paths))
	for _, rel := range paths {
		if includeRoot && !strings.Contains(rel, "/") {
			out = append(out, rel)
			continue
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(rel, prefix) {
				out = append(out, rel)
				break
			}
		}
	}
	return out
}

// orderContextFiles sorts context files so manifests and README variants come
// first, shallower paths before deeper ones, then lexically.
func orderContextFiles(lang Language, files []ContextFile) {
	rank := func(f ContextFile) int {
		name := strings.ToLower(filepath.Base(f.Path))
		switch {
		case isManifest(lang, name):
			return 0
		case strings.HasPrefix(name, "readme"):
			return 1
		case universalContextFiles[name]:
			return 2
		default:
			return 3
		}
	}
	depth := func(p string) int { return strings.Count(p, "/") }

	sort.SliceStable(files, func(i, j int) bool {
		ri, rj := rank(files[i]), rank(files[j])
		if ri != rj {
			return ri < rj
		}
		di, dj := depth(files[i].Path), depth(files[j].Path)
		if di != dj {
			return di < dj
		}
		return files[i].Path < files[j].Path
	})
}
