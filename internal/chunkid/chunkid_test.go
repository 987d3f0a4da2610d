package chunkid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims trailing whitespace per line", "a \nb\t\n", "a\nb"},
		{"normalizes crlf", "a\r\nb\r\n", "a\nb"},
		{"normalizes bare cr", "a\rb", "a\nb"},
		{"trims leading/trailing blank lines", "\n\na\nb\n\n", "a\nb"},
		{"empty stays empty", "", ""},
		{"all blank collapses to empty", "\n\n\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestID_DeterministicAndStable(t *testing.T) {
	id1 := ID("go", "pkg/a.go", "Foo", "func Foo() {}\n")
	id2 := ID("go", "pkg/a.go", "Foo", "func Foo() {}  \n")
	assert.Equal(t, id1, id2, "whitespace-only differences must share an ID")

	id3 := ID("go", "pkg/a.go", "Foo", "func Foo() { return }\n")
	assert.NotEqual(t, id1, id3, "content changes must change the ID")

	id4 := ID("go", "pkg/b.go", "Foo", "func Foo() {}\n")
	assert.NotEqual(t, id1, id4, "path changes must change the ID")

	id5 := ID("go", "pkg/a.go", "Bar", "func Foo() {}\n")
	assert.NotEqual(t, id1, id5, "symbol changes must change the ID")

	id6 := ID("python", "pkg/a.go", "Foo", "func Foo() {}\n")
	assert.NotEqual(t, id1, id6, "language changes must change the ID")
}

func TestDeduplicate(t *testing.T) {
	chunks := []Chunk{
		{Language: "go", Path: "a.go", Symbol: "Foo", Content: "func Foo() {}"},
		{Language: "go", Path: "a.go", Symbol: "Foo", Content: "func Foo() {}  "}, // same after normalize
		{Language: "go", Path: "a.go", Symbol: "Bar", Content: "func Bar() {}"},
	}
	deduped := Deduplicate(chunks)
	require.Len(t, deduped, 2)
	assert.Equal(t, "Foo", deduped[0].Chunk.Symbol)
	assert.Equal(t, "Bar", deduped[1].Chunk.Symbol)
}

func TestNewIDs(t *testing.T) {
	chunks := []Chunk{
		{Language: "go", Path: "a.go", Symbol: "Foo", Content: "func Foo() {}"},
		{Language: "go", Path: "a.go", Symbol: "Bar", Content: "func Bar() {}"},
	}
	deduped := Deduplicate(chunks)

	existing := map[uuid.UUID]struct{}{deduped[0].ID: {}}
	fresh := NewIDs(deduped, existing)
	require.Len(t, fresh, 1)
	assert.Equal(t, "Bar", fresh[0].Chunk.Symbol)
}
