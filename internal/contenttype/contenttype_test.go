package contenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Type
	}{
		{"README.md", Docs},
		{"docs/guide.rst", Docs},
		{"config.json", Config},
		{"service.yaml", Config},
		{"settings.toml", Config},
		{".bashrc", Config},
		{"main.go", Code},
		{"app.py", Code},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.path, "go"))
		})
	}
}
