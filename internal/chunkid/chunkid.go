// Package chunkid implements content-addressed chunk identity and batch
// deduplication (spec §3.1, §4.6, C6). It is pure and side-effect-free:
// no I/O, no global state.
package chunkid

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

// namespace is a fixed, module-local UUID used as the v5 namespace for
// every chunk ID. Any value works as long as it never changes across
// releases, since chunk IDs must stay stable across commits and machines.
var namespace = uuid.MustParse("6f6e6b4a-0c6b-4f2a-8e2a-0b1a9c7d5e3f")

// Chunk is the minimal shape chunkid needs to compute an identity; callers
// pass their richer chunk type through an adapter or embed this directly.
type Chunk struct {
	Language string
	Path     string
	Symbol   string
	Content  string
}

// Normalize applies the normalization rules of spec §3.1: strip trailing
// whitespace per line, normalize line endings to "\n", and trim leading/
// trailing blank lines.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	start := 0
	for start < len(lines) && lines[start] == "" {
		start++
	}
	end := len(lines)
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// ID computes the deterministic chunk_id for (language, path, symbol,
// content), normalizing content first.
func ID(language, path, symbol, content string) uuid.UUID {
	normalized := Normalize(content)
	key := language + ":" + path + ":" + symbol + ":" + normalized
	sum := sha256.Sum256([]byte(key))
	// uuid.NewSHA1 takes an arbitrary byte source; feeding it the SHA-256
	// digest (rather than raw content) keeps the UUID derivation decoupled
	// from the hash algorithm choice used for addressing.
	return uuid.NewSHA1(namespace, sum[:])
}

// Identified pairs a chunk with its computed ID.
type Identified struct {
	Chunk Chunk
	ID    uuid.UUID
}

// Deduplicate computes IDs for a batch and removes duplicates within the
// batch, keeping the first occurrence of each ID.
func Deduplicate(chunks []Chunk) []Identified {
	seen := make(map[uuid.UUID]struct{}, len(chunks))
	out := make([]Identified, 0, len(chunks))
	for _, c := range chunks {
		id := ID(c.Language, c.Path, c.Symbol, c.Content)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Identified{Chunk: c, ID: id})
	}
	return out
}

// NewIDs set-differences a deduplicated batch against an already-known ID
// set, returning only the chunks that are genuinely new.
func NewIDs(chunks []Identified, existing map[uuid.UUID]struct{}) []Identified {
	out := make([]Identified, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := existing[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
