package chunker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcerack/sourcerack/internal/langreg"
)

func TestChunk_Go(t *testing.T) {
	src := `package demo

type Greeter struct {
	Name string
}

func (g Greeter) Hello() string {
	return "hi " + g.Name
}

func New(name string) Greeter {
	return Greeter{Name: name}
}

const MaxRetries = 3
`
	c := New(langreg.New())
	chunks, err := c.Chunk(context.Background(), "demo.go", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	byName := map[string]Chunk{}
	for _, ch := range chunks {
		byName[ch.Symbol] = ch
	}
	require.Contains(t, byName, "Greeter")
	assert.Equal(t, "class", byName["Greeter"].SymbolType)
	require.Contains(t, byName, "Hello")
	assert.Equal(t, "method", byName["Hello"].SymbolType)
	require.Contains(t, byName, "New")
	assert.Equal(t, "function", byName["New"].SymbolType)
	require.Contains(t, byName, "MaxRetries")
	assert.Equal(t, "constant", byName["MaxRetries"].SymbolType)
}

func TestChunk_Python(t *testing.T) {
	src := `def greet(name):
    return "hi " + name


class Greeter:
    def hello(self):
        return "hi"
`
	c := New(langreg.New())
	chunks, err := c.Chunk(context.Background(), "demo.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var sawFunc, sawClass bool
	for _, ch := range chunks {
		if ch.Symbol == "greet" && ch.SymbolType == "function" {
			sawFunc = true
		}
		if ch.Symbol == "Greeter" && ch.SymbolType == "class" {
			sawClass = true
		}
	}
	assert.True(t, sawFunc)
	assert.True(t, sawClass)
}

func TestChunk_UnsupportedLanguageFallsBackToWholeFile(t *testing.T) {
	c := New(langreg.New())
	chunks, err := c.Chunk(context.Background(), "notes.md", []byte("# hello\n"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "file", chunks[0].SymbolType)
}

func TestChunk_UnparsableGoFallsBackToWholeFile(t *testing.T) {
	c := New(langreg.New())
	chunks, err := c.Chunk(context.Background(), "broken.go", []byte("package demo\nfunc ( {{{"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "file", chunks[0].SymbolType)
}
