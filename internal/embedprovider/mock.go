package embedprovider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// Mock is a deterministic, dependency-free Provider for tests and for
// `skip_embeddings`-adjacent dry runs that still want vectors of the right
// shape. Grounded on the teacher's internal/embed/mock.go hash-derived
// vector generation.
type Mock struct {
	dims int
}

// NewMock builds a Mock producing dims-wide vectors.
func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = 384
	}
	return &Mock{dims: dims}
}

func (m *Mock) Initialize(ctx context.Context) error { return nil }

func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	return hashVector(text, m.dims), nil
}

func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t, m.dims)
	}
	return out, nil
}

func (m *Mock) Dimensions() int { return m.dims }

func (m *Mock) MaxTokens() int { return 0 }

func (m *Mock) Close() error { return nil }

func hashVector(text string, dims int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vec := make([]float32, dims)
	for j := 0; j < dims; j++ {
		offset := (j * 4) % len(hash)
		val := binary.BigEndian.Uint32(hash[offset : offset+4])
		vec[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
	}
	return vec
}

var _ Provider = (*Mock)(nil)
