package discover

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sential-dev/sential/internal/ignore"
)

// ignoreFiles are read from the repository root, in order. Untracked-file
// walks honor them; tracked files honor gitignore implicitly by being
// tracked.
var ignoreFiles = []string{".gitignore", ".sentialignore"}

func ignoreMatcher(root string, extra []string) *ignore.Matcher {
	var rules []string
	for _, name := range ignoreFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		rules = append(rules, strings.Split(string(data), "\n")...)
	}
	rules = append(rules, extra...)
	return ignore.NewMatcher(rules)
}
