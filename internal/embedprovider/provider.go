// Package embedprovider implements the external Embedding Provider boundary
// (spec §6, C11 step 6): converting chunk text into vectors. It is
// intentionally carried at the boundary only — no embedding model runs
// in-process.
//
// Grounded on the teacher's internal/embed/provider.go Provider interface,
// widened from the teacher's query/passage EmbedMode split into the spec's
// single-purpose passage embedding plus explicit Initialize/MaxTokens.
package embedprovider

import "context"

// Provider converts text into vectors.
type Provider interface {
	// Initialize prepares the provider (starting a local process,
	// health-probing a remote endpoint). Safe to call more than once.
	Initialize(ctx context.Context) error

	// Embed embeds a single piece of text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds many texts in one round trip where the
	// implementation supports it, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the vector width this provider produces.
	Dimensions() int

	// MaxTokens reports the maximum input length this provider accepts,
	// in the provider's own token accounting; 0 means no known limit.
	MaxTokens() int

	// Close releases any resources (a spawned process, a pooled client).
	Close() error
}
