package embedprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/sourcerack/sourcerack/internal/sqerr"
)

// Local manages a locally installed embedding server binary, starting it on
// Initialize and talking to it over HTTP. Grounded on the teacher's
// internal/embed/local.go process-manage-and-health-probe shape.
type Local struct {
	binaryPath string
	port       int
	dims       int
	maxTokens  int

	mu          sync.Mutex
	cmd         *exec.Cmd
	client      *http.Client
	initialized bool
}

// NewLocal builds a Local provider that will run binaryPath on the given
// port once Initialize is called.
func NewLocal(binaryPath string, port, dims, maxTokens int) *Local {
	return &Local{
		binaryPath: binaryPath,
		port:       port,
		dims:       dims,
		maxTokens:  maxTokens,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Local) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if !p.isHealthy(ctx) {
		if err := p.startServer(ctx); err != nil {
			return sqerr.New(sqerr.KindEmbeddingFailed, p.binaryPath, err)
		}
		if err := p.waitForHealthy(ctx, 60*time.Second); err != nil {
			return sqerr.New(sqerr.KindEmbeddingFailed, p.binaryPath, err)
		}
	}
	p.initialized = true
	return nil
}

func (p *Local) startServer(ctx context.Context) error {
	p.cmd = exec.CommandContext(ctx, p.binaryPath, "--port", fmt.Sprint(p.port))
	p.cmd.Stdout = os.Stdout
	p.cmd.Stderr = os.Stderr
	return p.cmd.Start()
}

func (p *Local) isHealthy(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, p.baseURL()+"/health", nil)
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *Local) waitForHealthy(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p.isHealthy(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("embedding server on port %d never became healthy", p.port)
}

func (p *Local) baseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", p.port)
}

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *Local) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, p.baseURL(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, p.baseURL(), fmt.Errorf("status %d", resp.StatusCode))
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "decode response", err)
	}
	return out.Embeddings, nil
}

func (p *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, sqerr.New(sqerr.KindEmbeddingFailed, "embed", fmt.Errorf("empty response"))
	}
	return vecs[0], nil
}

func (p *Local) Dimensions() int { return p.dims }

func (p *Local) MaxTokens() int { return p.maxTokens }

func (p *Local) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

var _ Provider = (*Local)(nil)
