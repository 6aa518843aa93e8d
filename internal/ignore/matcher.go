// Package ignore applies gitignore-style exclusion rules during worktree
// walks. It backs discovery for untracked files and for directories that are
// not git repositories at all.
package ignore

import (
	"path/filepath"
	"regexp"
	"strings"
)

// defaultDirs are excluded in every scan unless a user rule re-includes them.
var defaultDirs = []string{
	".git/",
	".svn/",
	".hg/",
	".venv/",
	"venv/",
	"__pycache__/",
	".pytest_cache/",
	".mypy_cache/",
	".tox/",
	"node_modules/",
	".next/",
	".nuxt/",
	".idea/",
	".vscode/",
	"build/",
	"dist/",
	"target/",
	"out/",
	"obj/",
	".gradle/",
	"vendor/",
	"bower_components/",
	".cache/",
	"tmp/",
	".terraform/",
	".sential/",
}

type rule struct {
	re      *regexp.Regexp
	raw     string
	negated bool
	dirOnly bool
	rooted  bool
	slashed bool
}

// Matcher evaluates rules in order with "last rule wins" semantics, the same
// contract gitignore uses.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from user-supplied rule lines. Default directory
// excludes are prepended so user negations can override them.
func NewMatcher(userRules []string) *Matcher {
	lines := make([]string, 0, len(defaultDirs)+len(userRules))
	lines = append(lines, defaultDirs...)
	lines = append(lines, userRules...)

	m := &Matcher{rules: make([]rule, 0, len(lines))}
	for _, line := range lines {
		if r, ok := compileRule(line); ok {
			m.rules = append(m.rules, r)
		}
	}
	return m
}

// Match reports whether relPath should be excluded from the scan.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	relPath = normalize(relPath)
	if relPath == "" || relPath == "." {
		return false
	}

	excluded := false
	for _, r := range m.rules {
		if ruleApplies(r, relPath, isDir) {
			excluded = !r.negated
		}
	}
	return excluded
}

func compileRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var r rule
	if strings.HasPrefix(line, "!") {
		r.negated = true
		line = line[1:]
	}
	if strings.HasPrefix(line, "/") {
		r.rooted = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	line = normalize(line)
	if line == "" {
		return rule{}, false
	}
	r.raw = line
	r.slashed = strings.Contains(line, "/")
	r.re = regexp.MustCompile("^" + globToRegex(line) + "$")
	return r, true
}

func ruleApplies(r rule, relPath string, isDir bool) bool {
	if r.dirOnly {
		// Matches the directory itself or anything beneath it.
		if isDir && r.re.MatchString(filepath.Base(relPath)) {
			return true
		}
		return matchesDirPrefix(r, relPath)
	}

	if r.rooted {
		return r.re.MatchString(relPath)
	}

	if r.slashed {
		// Try the full path and every tail-aligned sub-path.
		if r.re.MatchString(relPath) {
			return true
		}
		parts := strings.Split(relPath, "/")
		for i := 1; i < len(parts); i++ {
			if r.re.MatchString(strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if r.re.MatchString(segment) {
			return true
		}
	}
	return false
}

func matchesDirPrefix(r rule, relPath string) bool {
	parts := strings.Split(relPath, "/")
	if r.rooted {
		for i := range parts {
			if r.re.MatchString(strings.Join(parts[:i+1], "/")) {
				return true
			}
		}
		return false
	}
	for i := range parts {
		if r.re.MatchString(parts[i]) {
			return true
		}
		if r.slashed && r.re.MatchString(strings.Join(parts[:i+1], "/")) {
			return true
		}
	}
	return false
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		case strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)):
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func normalize(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.Trim(path, "/")
}
