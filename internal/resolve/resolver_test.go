package resolve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sential-dev/sential/internal/build"
	"github.com/sential-dev/sential/internal/cache"
	"github.com/sential-dev/sential/internal/llm"
	"github.com/sential-dev/sential/internal/plan"
)

// scriptSynth replays canned responses keyed by the sorted requested paths.
type scriptSynth struct {
	responses map[string]scriptResponse
	calls     int
}

type scriptResponse struct {
	content string
	needs   []string
	err     error
}

func (s *scriptSynth) Synthesize(_ context.Context, _ string, files []build.FileContent) (string, []string, error) {
	s.calls++
	key := ""
	for _, f := range files {
		key += f.Path + ";"
	}
	resp, ok := s.responses[key]
	if !ok {
		return "", nil, fmt.Errorf("unexpected synthesis request for %q", key)
	}
	return resp.content, resp.needs, resp.err
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.OpenInMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResolveConvergesAfterGrowth(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def a(): pass\n",
		"b.py": "def b(): pass\n",
	})
	universe := map[string]string{"a.py": "fp-a", "b.py": "fp-b"}
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;":      {content: "draft one", needs: []string{"b.py"}},
		"a.py;b.py;": {content: "draft two", needs: nil},
	}}

	r := NewResolver(root, synth, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(context.Background(), plan.Chapter{Title: "Core", Files: []string{"a.py"}}, universe)

	assert.Equal(t, StatusReady, out.Status)
	assert.Equal(t, FidelityComplete, out.Fidelity)
	assert.Equal(t, "draft two", out.Content)
	assert.Equal(t, []string{"a.py", "b.py"}, out.Requested)
	assert.Equal(t, 2, out.Iterations)
	assert.False(t, out.FromCache)
	assert.Equal(t, 2, synth.calls)
}

func TestResolveDiscardsUnknownNeeds(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "x = 1\n"})
	universe := map[string]string{"a.py": "fp-a"}
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;": {content: "draft", needs: []string{"c.py", "./a.py"}},
	}}

	r := NewResolver(root, synth, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(context.Background(), plan.Chapter{Title: "Core", Files: []string{"a.py"}}, universe)

	// c.py is outside the universe and a.py is already requested, so the
	// set does not grow and the first draft is final.
	assert.Equal(t, FidelityComplete, out.Fidelity)
	assert.Equal(t, []string{"a.py"}, out.Requested)
	assert.Equal(t, 1, out.Iterations)
}

func TestResolveIterationCapKeepsLastDraft(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "1", "b.py": "2", "c.py": "3", "d.py": "4",
	})
	universe := map[string]string{"a.py": "fa", "b.py": "fb", "c.py": "fc", "d.py": "fd"}
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;":           {content: "one", needs: []string{"b.py"}},
		"a.py;b.py;":      {content: "two", needs: []string{"c.py"}},
		"a.py;b.py;c.py;": {content: "three", needs: []string{"d.py"}},
	}}

	r := NewResolver(root, synth, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(context.Background(), plan.Chapter{Title: "Core", Files: []string{"a.py"}}, universe)

	assert.Equal(t, StatusReady, out.Status)
	assert.Equal(t, FidelityConvergenceLimit, out.Fidelity)
	assert.Equal(t, "three", out.Content)
	assert.Equal(t, 3, out.Iterations)
}

func TestResolveTimeoutEmitsPlaceholder(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "x"})
	universe := map[string]string{"a.py": "fa"}
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;": {err: fmt.Errorf("completion: %w", llm.ErrTimeout)},
	}}

	r := NewResolver(root, synth, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(context.Background(), plan.Chapter{Title: "Slow", Files: []string{"a.py"}}, universe)

	assert.Equal(t, StatusReady, out.Status)
	assert.Equal(t, FidelityTimeoutPlaceholder, out.Fidelity)
	assert.Contains(t, out.Content, "Slow")
	assert.Nil(t, out.Err)
}

func TestResolveErrorFailsChapter(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "x"})
	universe := map[string]string{"a.py": "fa"}
	boom := errors.New("model unavailable")
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;": {err: boom},
	}}

	r := NewResolver(root, synth, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(context.Background(), plan.Chapter{Title: "Broken", Files: []string{"a.py"}}, universe)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, FidelityFailedPlaceholder, out.Fidelity)
	assert.ErrorIs(t, out.Err, boom)
}

func TestResolveCancelledContextFails(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(root, &scriptSynth{}, openStore(t), 3, 0, zap.NewNop())
	out := r.Resolve(ctx, plan.Chapter{Title: "Core", Files: []string{"a.py"}}, map[string]string{"a.py": "fa"})

	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestResolveRerunReplaysFromCache(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py": "def a(): pass\n",
		"b.py": "def b(): pass\n",
	})
	universe := map[string]string{"a.py": "fp-a", "b.py": "fp-b"}
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;":      {content: "draft one", needs: []string{"b.py"}},
		"a.py;b.py;": {content: "draft two", needs: nil},
	}}
	store := openStore(t)
	ch := plan.Chapter{Title: "Core", Files: []string{"a.py"}}

	r := NewResolver(root, synth, store, 3, 0, zap.NewNop())
	first := r.Resolve(context.Background(), ch, universe)
	require.Equal(t, FidelityComplete, first.Fidelity)
	require.Equal(t, 2, synth.calls)

	// A second run must replay every iteration, intermediate drafts
	// included, without issuing any synthesis call.
	second := r.Resolve(context.Background(), ch, universe)
	assert.Equal(t, FidelityComplete, second.Fidelity)
	assert.Equal(t, "draft two", second.Content)
	assert.True(t, second.FromCache)
	assert.Equal(t, 2, synth.calls)
}

func TestResolveFingerprintChangeInvalidatesCache(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": "x = 1\n"})
	synth := &scriptSynth{responses: map[string]scriptResponse{
		"a.py;": {content: "draft", needs: nil},
	}}
	store := openStore(t)
	ch := plan.Chapter{Title: "Core", Files: []string{"a.py"}}

	r := NewResolver(root, synth, store, 3, 0, zap.NewNop())
	r.Resolve(context.Background(), ch, map[string]string{"a.py": "fp-1"})
	require.Equal(t, 1, synth.calls)

	out := r.Resolve(context.Background(), ch, map[string]string{"a.py": "fp-2"})
	assert.False(t, out.FromCache)
	assert.Equal(t, 2, synth.calls)
}
