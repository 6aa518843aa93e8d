package ignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDirectoryExcludes(t *testing.T) {
	m := NewMatcher(nil)

	assert.True(t, m.Match("node_modules", true))
	assert.True(t, m.Match("node_modules/lodash/index.js", false))
	assert.True(t, m.Match("src/web/node_modules/pkg/a.js", false))
	assert.True(t, m.Match(".git/HEAD", false))
	assert.True(t, m.Match("__pycache__/mod.cpython-312.pyc", false))

	assert.False(t, m.Match("src/main.py", false))
	assert.False(t, m.Match("README.md", false))
}

func TestUserRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []string
		path    string
		isDir   bool
		ignored bool
	}{
		{"glob extension", []string{"*.log"}, "logs/app.log", false, true},
		{"anchored rule", []string{"/docs"}, "docs", true, true},
		{"anchored misses nested", []string{"/docs"}, "pkg/docs", true, false},
		{"dir only rule", []string{"generated/"}, "generated/api.go", false, true},
		{"slashed rule", []string{"internal/gen/*.go"}, "internal/gen/api.go", false, true},
		{"double star", []string{"**/fixtures"}, "a/b/fixtures", true, true},
		{"comment skipped", []string{"# a comment", "*.tmp"}, "x.tmp", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.rules)
			assert.Equal(t, tt.ignored, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestLastRuleWins(t *testing.T) {
	m := NewMatcher([]string{"*.md", "!README.md"})

	assert.True(t, m.Match("docs/notes.md", false))
	assert.False(t, m.Match("README.md", false))
}

func TestNegationReincludesDefault(t *testing.T) {
	m := NewMatcher([]string{"!vendor/"})
	assert.False(t, m.Match("vendor/lib/a.go", false))
}
