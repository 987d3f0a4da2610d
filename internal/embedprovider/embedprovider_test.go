package embedprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_EmbedIsDeterministic(t *testing.T) {
	m := NewMock(16)
	v1, err := m.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	v2, err := m.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 16)
}

func TestMock_EmbedBatchPreservesOrder(t *testing.T) {
	m := NewMock(8)
	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	single, err := m.Embed(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])
}

func TestRemote_InitializeProbesInfoThenHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, "", 8, 0)
	require.NoError(t, p.Initialize(context.Background()))
}

func TestRemote_EmbedBatchSendsBearerAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embedResponse{Embeddings: make([][]float32, len(req.Texts))}
		for i := range req.Texts {
			resp.Embeddings[i] = []float32{float32(i)}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, "secret", 1, 0)
	vecs, err := p.EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, float32(0), vecs[0][0])
	assert.Equal(t, float32(1), vecs[1][0])
}

func TestRemote_EmbedBatchEmptyIsNoop(t *testing.T) {
	p := NewRemote("http://unused.invalid", "", 8, 0)
	vecs, err := p.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
