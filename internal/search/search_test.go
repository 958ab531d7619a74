package search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu       sync.Mutex
	calls    []string
	indexed  []string
	mapping  string
	lastBody string
	exists   bool
	fail     bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != "/" {
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	}

	switch {
	case f.fail:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		f.lastBody = string(body)
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_source":{"id":"Joker","metadata":{"title":"Joker","movieIMDbRating":8.4}}}]}}`))
	case strings.HasSuffix(r.URL.Path, "/_refresh"):
		_, _ = w.Write([]byte(`{"_shards":{"total":1,"successful":1,"failed":0}}`))
	case strings.Contains(r.URL.Path, "/_doc/"):
		f.indexed = append(f.indexed, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodPut:
		if f.exists {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"},"status":400}`))
			return
		}
		f.mapping = string(body)
		f.exists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	default:
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	}
}

func newFakeIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), ClientConfig{URL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotNil(t, client)
	return NewIndex(client, "movies"), fake
}

func TestNewClient_EmptyURLDisablesSearch(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), ClientConfig{}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestIndex_IndexMovies(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	err := idx.IndexMovies(context.Background(), []models.Movie{{ID: "Joker"}, {ID: "Heat"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/movies/_doc/Joker", "/movies/_doc/Heat"}, fake.indexed)
	assert.Equal(t, []string{
		"PUT /movies",
		"PUT /movies/_doc/Joker",
		"PUT /movies/_doc/Heat",
		"POST /movies/_refresh",
	}, fake.calls)
}

func TestIndex_IndexMovies_CreatesTypedMapping(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	whole := models.Movie{ID: "Whole", Metadata: models.MovieMetadata{Title: "Whole", MovieIMDbRating: 8}}
	require.NoError(t, idx.IndexMovies(context.Background(), []models.Movie{whole}))

	var m struct {
		Mappings struct {
			Properties struct {
				Metadata struct {
					Properties map[string]struct {
						Type   string                    `json:"type"`
						Fields map[string]map[string]any `json:"fields"`
					} `json:"properties"`
				} `json:"metadata"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(fake.mapping), &m))
	props := m.Mappings.Properties.Metadata.Properties

	assert.Equal(t, "double", props["movieIMDbRating"].Type)
	assert.Equal(t, "text", props["title"].Type)
	require.Contains(t, props["title"].Fields, "keyword")
	assert.Equal(t, "keyword", props["title"].Fields["keyword"]["type"])
	assert.NotContains(t, props["title"].Fields["keyword"], "ignore_above")
}

func TestIndex_EnsureIndex_ExistingIndexIsKept(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	fake.mu.Lock()
	fake.exists = true
	fake.mu.Unlock()

	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.Empty(t, fake.mapping)
}

func TestIndex_IndexMovies_FailsWhenIndexCannotBeCreated(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	err := idx.IndexMovies(context.Background(), []models.Movie{{ID: "Joker"}})
	require.Error(t, err)
	assert.Empty(t, fake.indexed)
}

func TestIndex_SearchTitles(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	minRating := 8.0
	movies, err := idx.SearchTitles(context.Background(), "jok", &minRating)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Joker", movies[0].ID)
	assert.Equal(t, 8.4, movies[0].Metadata.MovieIMDbRating)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.lastBody), &sent))
	assert.Contains(t, fake.lastBody, `"*jok*"`)
	assert.Contains(t, fake.lastBody, `"gte":8`)
}

func TestIndex_SearchTitles_ErrorStatus(t *testing.T) {
	t.Parallel()

	idx, fake := newFakeIndex(t)
	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	_, err := idx.SearchTitles(context.Background(), "x", nil)
	assert.Error(t, err)
}

func TestSearchBody_MatchAllWithoutFilters(t *testing.T) {
	t.Parallel()

	body := searchBody("", nil)
	assert.Equal(t, map[string]any{"match_all": map[string]any{}}, body["query"])
}

func TestEscapeWildcard(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a\*b\?c`, escapeWildcard("a*b?c"))
}
