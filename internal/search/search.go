package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
)

const maxHits = 500

// Index mirrors the movie catalog into one Elasticsearch index.
type Index struct {
	es    *elasticsearch.Client
	index string
}

func NewIndex(es *elasticsearch.Client, index string) *Index {
	return &Index{es: es, index: index}
}

// movieMapping pins the fields the search query depends on. Ratings are
// double so a whole-number first document cannot make the field a long, and
// the title keyword has no ignore_above so long titles stay matchable.
const movieMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "metadata": {
        "properties": {
          "title": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
          "movieIMDbRating": {"type": "double"},
          "totalRatingCount": {"type": "long"},
          "movieGenres": {"type": "keyword"},
          "datePublished": {"type": "keyword"}
        }
      }
    }
  }
}`

// EnsureIndex creates the index with the movie mapping. An index that already
// exists is left as is.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(movieMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	defer res.Body.Close()
	if !res.IsError() {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
		return nil
	}
	return fmt.Errorf("create index %s: %s: %s", i.index, res.Status(), body)
}

// IndexMovies writes every movie and refreshes the index, so the documents
// are searchable when it returns.
func (i *Index) IndexMovies(ctx context.Context, movies []models.Movie) error {
	if err := i.EnsureIndex(ctx); err != nil {
		return err
	}
	for _, m := range movies {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(m); err != nil {
			return fmt.Errorf("encode movie %s: %w", m.ID, err)
		}
		res, err := i.es.Index(i.index, &buf,
			i.es.Index.WithContext(ctx),
			i.es.Index.WithDocumentID(m.ID),
		)
		if err != nil {
			return fmt.Errorf("index movie %s: %w", m.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index movie %s: %s", m.ID, res.Status())
		}
	}

	res, err := i.es.Indices.Refresh(
		i.es.Indices.Refresh.WithContext(ctx),
		i.es.Indices.Refresh.WithIndex(i.index),
	)
	if err != nil {
		return fmt.Errorf("refresh index %s: %w", i.index, err)
	}
	res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refresh index %s: %s", i.index, res.Status())
	}
	return nil
}

func searchBody(title string, minRating *float64) map[string]any {
	var must, filter []any
	if title != "" {
		must = append(must, map[string]any{
			"wildcard": map[string]any{
				"metadata.title.keyword": map[string]any{
					"value":            "*" + escapeWildcard(title) + "*",
					"case_insensitive": true,
				},
			},
		})
	}
	if minRating != nil {
		filter = append(filter, map[string]any{
			"range": map[string]any{
				"metadata.movieIMDbRating": map[string]any{"gte": *minRating},
			},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 || len(filter) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must, "filter": filter}}
	}
	return map[string]any{
		"query": query,
		"size":  maxHits,
		"sort":  []any{map[string]any{"_doc": "asc"}},
	}
}

func (i *Index) SearchTitles(ctx context.Context, title string, minRating *float64) ([]models.Movie, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchBody(title, minRating)); err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search movies: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search movies: %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Movie `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	movies := make([]models.Movie, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		movies[n] = hit.Source
	}
	return movies, nil
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func escapeWildcard(s string) string {
	return wildcardEscaper.Replace(s)
}
