package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func tags(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Tag())
	}
	return out
}

func TestExtractPython(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"app.py": "class Widget:\n    def render(self):\n        pass\n\ndef main():\n    pass\n",
	})

	idx, err := NewTreeSitter(zap.NewNop()).Extract(context.Background(), root, []string{"app.py"})
	require.NoError(t, err)
	require.Contains(t, idx, "app.py")
	assert.ElementsMatch(t, []string{"class Widget", "func render", "func main"}, tags(idx["app.py"]))

	for _, r := range idx["app.py"] {
		if r.Name == "Widget" {
			assert.Equal(t, 1, r.StartLine)
			assert.Equal(t, 3, r.EndLine)
		}
	}
}

func TestExtractGo(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"pkg.go": `package pkg

type Server struct{}

type Handler interface{ Serve() }

func New() *Server { return nil }

func (s *Server) Run() error { return nil }
`,
	})

	idx, err := NewTreeSitter(zap.NewNop()).Extract(context.Background(), root, []string{"pkg.go"})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"struct Server", "interface Handler", "func New", "method Run"},
		tags(idx["pkg.go"]))
}

func TestExtractTypeScript(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"mod.ts": "interface Shape { area(): number }\nclass Circle {\n  area(): number { return 0 }\n}\nfunction describe(s: Shape): string { return '' }\n",
	})

	idx, err := NewTreeSitter(zap.NewNop()).Extract(context.Background(), root, []string{"mod.ts"})
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"interface Shape", "class Circle", "method area", "func describe"},
		tags(idx["mod.ts"]))
}

func TestExtractSkipsUnsupportedAndMissingFiles(t *testing.T) {
	root := writeFiles(t, map[string]string{"data.csv": "a,b\n1,2\n"})

	idx, err := NewTreeSitter(zap.NewNop()).Extract(context.Background(), root, []string{"data.csv", "gone.py"})
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestExtractCancelledContext(t *testing.T) {
	root := writeFiles(t, map[string]string{"app.py": "def f(): pass\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTreeSitter(zap.NewNop()).Extract(ctx, root, []string{"app.py"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSortForTruncation(t *testing.T) {
	records := []Record{
		{Name: "zvar", Kind: KindVariable},
		{Name: "bfunc", Kind: KindFunction},
		{Name: "afunc", Kind: KindFunction},
		{Name: "Thing", Kind: KindClass},
	}
	SortForTruncation(records)
	assert.Equal(t, []string{"Thing", "afunc", "bfunc", "zvar"}, []string{
		records[0].Name, records[1].Name, records[2].Name, records[3].Name,
	})
}
