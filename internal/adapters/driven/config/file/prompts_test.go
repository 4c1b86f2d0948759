package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".distill", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptSummarize)
	require.NoError(t, err)

	for _, f := range []string{"summarize.txt", "synthesize.txt", "chat.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_DefaultsDescribeJSONShape(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name   string
		fields []string
	}{
		{driven.PromptSummarize, []string{`"summary"`, `"highlights"`, `"openLoops"`}},
		{driven.PromptSynthesize, []string{`"synthesis"`, `"citations"`}},
		{driven.PromptChat, []string{`"answer"`, `"citations"`, `"usedArtifactIds"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := store.Load(tt.name)
			require.NoError(t, err)
			assert.Contains(t, prompt, "single JSON object")
			for _, f := range tt.fields {
				assert.Contains(t, prompt, f)
			}
			assert.NotContains(t, prompt, "%s")
		})
	}
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Summarise tersely. Respond with JSON."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summarize.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSummarize)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, _ = store.Load(driven.PromptChat)
	require.NoError(t, os.Remove(filepath.Join(dir, "chat.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptChat)

	require.NoError(t, err)
	assert.Equal(t, defaultPrompts[driven.PromptChat], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptSynthesize)
	require.NoError(t, err)

	modified := "synthesize differently"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "synthesize.txt"), []byte(modified), 0600))

	cached, err := store.Load(driven.PromptSynthesize)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptSynthesize)
	require.NoError(t, err)
	assert.Equal(t, modified, fresh)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Load(driven.PromptSummarize)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := "pre-existing custom prompt"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.txt"), []byte(custom), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, _ = store.Load(driven.PromptSummarize)

	data, err := os.ReadFile(filepath.Join(dir, "chat.txt"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.txt"), []byte("\n\n  prompt content  \n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptChat)

	require.NoError(t, err)
	assert.Equal(t, "prompt content", prompt)
}
