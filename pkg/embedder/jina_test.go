package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perbu/scoutrag/pkg/scoutrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJinaEmbedBatch(t *testing.T) {
	var got jinaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0, 1]},
			{"index": 0, "embedding": [1, 0]}
		]}`))
	}))
	defer srv.Close()

	e, err := NewJinaEmbedder("secret", "", srv.URL, srv.Client())
	require.NoError(t, err)

	vectors, err := e.EmbedBatch(context.Background(), []string{"first", "second"}, Passage)
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, DefaultJinaModel, got.Model)
	assert.Equal(t, "retrieval.passage", got.Task)
	assert.False(t, got.LateChunking)
	assert.Equal(t, []string{"first", "second"}, got.Input)
}

func TestJinaQueryTask(t *testing.T) {
	var task string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jinaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		task = req.Task
		_, _ = w.Write([]byte(`{"data": [{"index": 0, "embedding": [0.5, 0.5]}]}`))
	}))
	defer srv.Close()

	e, err := NewJinaEmbedder("secret", "jina-embeddings-v3", srv.URL, nil)
	require.NoError(t, err)

	v, err := NewClient(e).EmbedQuery(context.Background(), "who wins pistols")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, v)
	assert.Equal(t, "retrieval.query", task)
}

func TestJinaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"internal"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := NewJinaEmbedder("secret", "", srv.URL, nil)
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"x"}, Passage)
	require.Error(t, err)

	var pErr *scoutrag.ProviderError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, http.StatusInternalServerError, pErr.Status)
	assert.Equal(t, `{"detail":"internal"}`, pErr.Body)
	assert.Equal(t, `jina embedding error: 500 - {"detail":"internal"}`, err.Error())
}

func TestJinaTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e, err := NewJinaEmbedder("secret", "", url, nil)
	require.NoError(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"x"}, Passage)
	var pErr *scoutrag.ProviderError
	require.True(t, errors.As(err, &pErr))
	assert.Zero(t, pErr.Status)
	assert.NotNil(t, pErr.Err)
}

func TestJinaRequiresKey(t *testing.T) {
	_, err := NewJinaEmbedder("", "", "", nil)
	assert.ErrorContains(t, err, "JINA_API_KEY")
}
