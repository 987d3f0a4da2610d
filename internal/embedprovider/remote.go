package embedprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Remote talks to a user-configured embedding HTTP endpoint, bearer-authed.
// Grounded on the teacher's internal/embed/local.go HTTP client shape,
// retargeted from a locally spawned process onto an externally managed one.
type Remote struct {
	baseURL   string
	apiKey    string
	dims      int
	maxTokens int
	client    *http.Client
}

// NewRemote builds a Remote provider against baseURL, sent as a bearer
// token on every request when apiKey is non-empty.
func NewRemote(baseURL, apiKey string, dims, maxTokens int) *Remote {
	return &Remote{
		baseURL:   baseURL,
		apiKey:    apiKey,
		dims:      dims,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Remote) Initialize(ctx context.Context) error {
	if p.probe(ctx, "/info") || p.probe(ctx, "/health") {
		return nil
	}
	return sqerr.New(sqerr.KindEmbeddingFailed, p.baseURL, fmt.Errorf("endpoint did not respond to /info or /health"))
}

func (p *Remote) probe(ctx context.Context, path string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := p.newRequest(reqCtx, http.MethodGet, path, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *Remote) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (p *Remote) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "marshal request", err)
	}
	req, err := p.newRequest(ctx, http.MethodPost, "/embed", body)
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "build request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, p.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, p.baseURL, fmt.Errorf("status %d", resp.StatusCode))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "decode response", err)
	}
	return out.Embeddings, nil
}

func (p *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "embed", fmt.Errorf("empty response"))
	}
	return vecs[0], nil
}

func (p *Remote) Dimensions() int { return p.dims }

func (p *Remote) MaxTokens() int { return p.maxTokens }

func (p *Remote) Close() error { return nil }

var _ Provider = (*Remote)(nil)
