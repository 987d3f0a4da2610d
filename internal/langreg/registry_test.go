package langreg

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFor(t *testing.T) {
	r := New()

	cases := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"app.py", "python"},
		{"index.ts", "typescript"},
		{"component.tsx", "tsx"},
		{"script.js", "javascript"},
		{"lib.rs", "rust"},
		{"Main.java", "java"},
		{"index.php", "php"},
		{"Rakefile", "ruby"},
		{"core.c", "c"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			lang, ok := r.LanguageFor(tc.path)
			require.True(t, ok)
			assert.Equal(t, tc.want, lang.ID)
		})
	}
}

func TestLanguageFor_Unknown(t *testing.T) {
	r := New()
	_, ok := r.LanguageFor("README.md")
	assert.False(t, ok)
}

func TestEnsureGrammar_GoHasNoGrammar(t *testing.T) {
	r := New()
	lang, err := r.EnsureGrammar(context.Background(), "go")
	require.NoError(t, err)
	assert.Nil(t, lang)
}

func TestEnsureGrammar_UnknownLanguage(t *testing.T) {
	r := New()
	_, err := r.EnsureGrammar(context.Background(), "cobol")
	require.Error(t, err)
}

func TestEnsureGrammar_ConcurrentCallsShareOneLoad(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	results := make([]bool, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lang, err := r.EnsureGrammar(context.Background(), "python")
			results[i] = err == nil && lang != nil
		}(i)
	}
	wg.Wait()
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestLoadOverrideFile(t *testing.T) {
	r := New()
	dir := t.TempDir()
	path := dir + "/languages.yml"
	require.NoError(t, os.WriteFile(path, []byte("languages:\n  - id: zig\n    extensions: [\".zig\"]\n    tier: optional\n"), 0644))

	require.NoError(t, LoadOverrideFile(r, path))
	lang, ok := r.LanguageFor("main.zig")
	require.True(t, ok)
	assert.Equal(t, TierOptional, lang.Tier)
}

func TestLoadOverrideFile_MissingFileIsNotAnError(t *testing.T) {
	r := New()
	require.NoError(t, LoadOverrideFile(r, "/nonexistent/languages.yml"))
}

func TestRegisterOverride(t *testing.T) {
	r := New()
	r.Register(Language{ID: "zig", Extensions: []string{".zig"}, Tier: TierOptional})
	lang, ok := r.LanguageFor("main.zig")
	require.True(t, ok)
	assert.Equal(t, TierOptional, lang.Tier)
}
