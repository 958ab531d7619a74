package repo

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/models"
)

var ErrMovieNotFound = errors.New("movie not found")

const (
	metadataFile = "metadata.json"
	reviewsFile  = "movieReviews.csv"
)

const (
	colDate = iota
	colUser
	colUsefulness
	colTotalVotes
	colRating
	colTitle
	colReview
	colUnknown
)

// canonicalHeader is written when a reviews file is created.
var canonicalHeader = []string{"date", "user", "usefulness_vote", "total_votes", "rating", "title", "review"}

var headerColumns = map[string]int{
	"date":                    colDate,
	"date of review":          colDate,
	"user":                    colUser,
	"usefulness_vote":         colUsefulness,
	"usefulness vote":         colUsefulness,
	"total_votes":             colTotalVotes,
	"total votes":             colTotalVotes,
	"rating":                  colRating,
	"user's rating out of 10": colRating,
	"title":                   colTitle,
	"review title":            colTitle,
	"review":                  colReview,
}

// MovieRepo reads the on-disk catalog: one directory per movie holding
// metadata.json and an optional movieReviews.csv.
type MovieRepo struct {
	dir string

	appendMu sync.Mutex
}

func NewMovieRepo(dir string) *MovieRepo {
	return &MovieRepo{dir: dir}
}

func (r *MovieRepo) List(ctx context.Context) ([]models.Movie, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Movie{}, nil
		}
		return nil, fmt.Errorf("read movies dir: %w", err)
	}

	l := logging.FromContext(ctx)
	movies := make([]models.Movie, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		m, err := r.readMovie(e.Name())
		if err != nil {
			if !errors.Is(err, ErrMovieNotFound) {
				l.Warn("movie_skipped", "movie_id", e.Name(), "err", err)
			}
			continue
		}
		movies = append(movies, *m)
	}
	return movies, nil
}

func (r *MovieRepo) Get(ctx context.Context, id string) (*models.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validMovieID(id) {
		return nil, ErrMovieNotFound
	}
	return r.readMovie(id)
}

func (r *MovieRepo) readMovie(id string) (*models.Movie, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, id, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("read metadata %s: %w", id, err)
	}
	var meta models.MovieMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", id, err)
	}
	return &models.Movie{ID: id, Metadata: meta}, nil
}

// Reviews returns every row of the movie's reviews file. A missing file means
// no reviews.
func (r *MovieRepo) Reviews(ctx context.Context, id string) ([]models.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validMovieID(id) {
		return nil, ErrMovieNotFound
	}

	f, err := os.Open(filepath.Join(r.dir, id, reviewsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Review{}, nil
		}
		return nil, fmt.Errorf("open reviews %s: %w", id, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Review{}, nil
		}
		return nil, fmt.Errorf("read reviews header %s: %w", id, err)
	}
	cols := mapHeader(header)

	reviews := []models.Review{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reviews %s: %w", id, err)
		}
		reviews = append(reviews, parseReview(cols, rec))
	}
	return reviews, nil
}

// AppendReview adds one row, writing the header first when the file is new.
// Rows follow the column order of the existing header.
func (r *MovieRepo) AppendReview(ctx context.Context, id string, rv models.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validMovieID(id) {
		return ErrMovieNotFound
	}

	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	path := filepath.Join(r.dir, id, reviewsFile)
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read reviews %s: %w", id, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	cols := mapHeader(canonicalHeader)
	if len(bytes.TrimSpace(existing)) == 0 {
		if err := w.Write(canonicalHeader); err != nil {
			return err
		}
	} else {
		header, err := csv.NewReader(bytes.NewReader(existing)).Read()
		if err != nil {
			return fmt.Errorf("read reviews header %s: %w", id, err)
		}
		cols = mapHeader(header)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	if err := w.Write(formatReview(cols, rv)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode review: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open reviews %s: %w", id, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append review %s: %w", id, err)
	}
	return f.Close()
}

func validMovieID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func mapHeader(header []string) []int {
	cols := make([]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := headerColumns[h]; ok {
			cols[i] = c
		} else {
			cols[i] = colUnknown
		}
	}
	return cols
}

func parseReview(cols []int, rec []string) models.Review {
	var rv models.Review
	for i, v := range rec {
		if i >= len(cols) {
			break
		}
		v = strings.TrimSpace(v)
		switch cols[i] {
		case colDate:
			rv.Date = v
		case colUser:
			rv.User = v
		case colUsefulness:
			rv.UsefulnessVote = parseOptInt(v)
		case colTotalVotes:
			rv.TotalVotes = parseOptInt(v)
		case colRating:
			rv.Rating = parseOptFloat(v)
		case colTitle:
			rv.Title = v
		case colReview:
			rv.Review = v
		}
	}
	return rv
}

func formatReview(cols []int, rv models.Review) []string {
	row := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case colDate:
			row[i] = rv.Date
		case colUser:
			row[i] = rv.User
		case colUsefulness:
			row[i] = formatOptInt(rv.UsefulnessVote)
		case colTotalVotes:
			row[i] = formatOptInt(rv.TotalVotes)
		case colRating:
			if rv.Rating != nil {
				row[i] = strconv.FormatFloat(*rv.Rating, 'f', -1, 64)
			}
		case colTitle:
			row[i] = rv.Title
		case colReview:
			row[i] = rv.Review
		}
	}
	return row
}

func parseOptInt(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func parseOptFloat(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
