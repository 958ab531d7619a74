package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/movie_reviews/internal/events"
	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/metrics"
	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/Skotchmaster/movie_reviews/internal/repo"
	"github.com/Skotchmaster/movie_reviews/internal/util"
)

const (
	DefaultReviewLimit = 50
	MaxReviewLimit     = 500

	ReviewDateLayout = "02 January 2006"
)

var reviewDateLayouts = []string{ReviewDateLayout, "2 January 2006", "2006-01-02", "January 2, 2006"}

// MovieSearcher is an external title index. Nil means local scan only.
type MovieSearcher interface {
	SearchTitles(ctx context.Context, title string, minRating *float64) ([]models.Movie, error)
}

type MovieFilter struct {
	Genre     string
	MinRating *float64
	MaxRating *float64
	SortBy    string
	Order     string
	Page      int
	Size      int
}

type MoviePage struct {
	Items []models.Movie
	Meta  util.PageMeta
}

type ReviewFilter struct {
	User          string
	StartDate     *time.Time
	EndDate       *time.Time
	MinRating     *float64
	MaxRating     *float64
	MinUsefulness *int
	MinTotalVotes *int
	Skip          int
	Limit         int
}

type ReviewPage struct {
	Items []models.Review
	Total int
	Skip  int
	Limit int
}

type ReviewInput struct {
	Title  string
	Text   string
	Rating *int
}

type CatalogService struct {
	Movies *repo.MovieRepo
	Users  repo.UserStore
	Events events.Publisher

	searchMu sync.RWMutex
	search   MovieSearcher

	now func() time.Time
}

func NewCatalogService(movies *repo.MovieRepo, users repo.UserStore, search MovieSearcher, pub events.Publisher) *CatalogService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &CatalogService{Movies: movies, Users: users, search: search, Events: pub, now: time.Now}
}

// SetSearcher swaps the external index in or out at runtime. Install it only
// once the index is populated; an empty index answers without error.
func (s *CatalogService) SetSearcher(ms MovieSearcher) {
	s.searchMu.Lock()
	s.search = ms
	s.searchMu.Unlock()
}

func (s *CatalogService) searcher() MovieSearcher {
	s.searchMu.RLock()
	defer s.searchMu.RUnlock()
	return s.search
}

func (s *CatalogService) ListMovies(ctx context.Context, f MovieFilter) (*MoviePage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list_movies")

	switch f.SortBy {
	case "", "rating", "date":
	default:
		return nil, validationError("sort_by must be rating or date")
	}
	switch f.Order {
	case "":
		f.Order = "asc"
	case "asc", "desc":
	default:
		return nil, validationError("order must be asc or desc")
	}

	movies, err := s.Movies.List(ctx)
	if err != nil {
		l.Error("list_movies_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("list movies: %w", err)
	}

	movies = slices.DeleteFunc(movies, func(m models.Movie) bool {
		md := m.Metadata
		if f.Genre != "" && !slices.ContainsFunc(md.MovieGenres, func(g string) bool { return strings.EqualFold(g, f.Genre) }) {
			return true
		}
		if f.MinRating != nil && md.MovieIMDbRating < *f.MinRating {
			return true
		}
		if f.MaxRating != nil && md.MovieIMDbRating > *f.MaxRating {
			return true
		}
		return false
	})

	desc := f.Order == "desc"
	switch f.SortBy {
	case "rating":
		slices.SortStableFunc(movies, func(a, b models.Movie) int {
			return orderBy(compareFloat(a.Metadata.MovieIMDbRating, b.Metadata.MovieIMDbRating), desc)
		})
	case "date":
		slices.SortStableFunc(movies, func(a, b models.Movie) int {
			return orderBy(publishedAt(a).Compare(publishedAt(b)), desc)
		})
	}

	offset, limit := util.Calculate(f.Page, f.Size)
	page := &MoviePage{
		Items: util.Slice(movies, offset, limit),
		Meta:  util.NewPageMeta(f.Page, f.Size, len(movies)),
	}
	l.Info("list_movies_success", "total", len(movies))
	return page, nil
}

func (s *CatalogService) GetMovie(ctx context.Context, id string) (*models.Movie, error) {
	m, err := s.Movies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrMovieNotFound) {
			return nil, fmt.Errorf("%w: movie %q", ErrNotFound, id)
		}
		logging.FromContext(ctx).Error("get_movie_failed", "movie_id", id, "err", err)
		return nil, err
	}
	return m, nil
}

// SearchMovies matches a case-insensitive title substring and a minimum
// rating. The external index is tried first when present.
func (s *CatalogService) SearchMovies(ctx context.Context, title string, minRating *float64) ([]models.Movie, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")
	title = strings.TrimSpace(title)

	if ms := s.searcher(); ms != nil {
		movies, err := ms.SearchTitles(ctx, title, minRating)
		if err == nil {
			l.Info("search_success", "source", "index", "hits", len(movies))
			return movies, nil
		}
		metrics.SearchFallbacks.Inc()
		l.Warn("search_index_failed", "err", err)
	}

	movies, err := s.Movies.List(ctx)
	if err != nil {
		l.Error("search_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("list movies: %w", err)
	}
	needle := strings.ToLower(title)
	movies = slices.DeleteFunc(movies, func(m models.Movie) bool {
		if needle != "" && !strings.Contains(strings.ToLower(m.Metadata.Title), needle) {
			return true
		}
		return minRating != nil && m.Metadata.MovieIMDbRating < *minRating
	})
	l.Info("search_success", "source", "scan", "hits", len(movies))
	return movies, nil
}

func (s *CatalogService) ListReviews(ctx context.Context, movieID string, f ReviewFilter) (*ReviewPage, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.list_reviews", "movie_id", movieID)

	if f.Skip < 0 {
		return nil, validationError("skip must not be negative")
	}
	if f.Limit < 0 {
		return nil, validationError("limit must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = DefaultReviewLimit
	}
	if f.Limit > MaxReviewLimit {
		f.Limit = MaxReviewLimit
	}

	if _, err := s.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}
	reviews, err := s.Movies.Reviews(ctx, movieID)
	if err != nil {
		l.Error("list_reviews_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	user := strings.ToLower(f.User)
	dated := f.StartDate != nil || f.EndDate != nil
	reviews = slices.DeleteFunc(reviews, func(r models.Review) bool {
		if user != "" && !strings.Contains(strings.ToLower(r.User), user) {
			return true
		}
		if dated {
			d, ok := ParseReviewDate(r.Date)
			if !ok {
				return true
			}
			if f.StartDate != nil && d.Before(*f.StartDate) {
				return true
			}
			if f.EndDate != nil && d.After(*f.EndDate) {
				return true
			}
		}
		if f.MinRating != nil && (r.Rating == nil || *r.Rating < *f.MinRating) {
			return true
		}
		if f.MaxRating != nil && (r.Rating == nil || *r.Rating > *f.MaxRating) {
			return true
		}
		if f.MinUsefulness != nil && (r.UsefulnessVote == nil || *r.UsefulnessVote < *f.MinUsefulness) {
			return true
		}
		if f.MinTotalVotes != nil && (r.TotalVotes == nil || *r.TotalVotes < *f.MinTotalVotes) {
			return true
		}
		return false
	})

	l.Debug("list_reviews_success", "total", len(reviews))
	return &ReviewPage{
		Items: util.Slice(reviews, f.Skip, f.Limit),
		Total: len(reviews),
		Skip:  f.Skip,
		Limit: f.Limit,
	}, nil
}

func (s *CatalogService) AddReview(ctx context.Context, p *Principal, movieID string, in ReviewInput) (*models.Review, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.add_review", "movie_id", movieID)

	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	switch {
	case in.Rating == nil || in.Title == "" || in.Text == "":
		return nil, validationError("missing required fields: rating, review_title, review_text")
	case *in.Rating < 0 || *in.Rating > 10:
		return nil, validationError("rating must be between 0 and 10")
	}

	if _, err := s.GetMovie(ctx, movieID); err != nil {
		return nil, err
	}

	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		l.Error("add_review_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("load users: %w", err)
	}
	u, _ := repo.FindByID(users, p.UserID)
	if u == nil {
		l.Warn("add_review_failed", "status", 404, "reason", "user not found", "user_id", p.UserID)
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	zero := 0
	rating := float64(*in.Rating)
	rv := models.Review{
		Date:           s.now().UTC().Format(ReviewDateLayout),
		User:           u.Username,
		UsefulnessVote: &zero,
		TotalVotes:     &zero,
		Rating:         &rating,
		Title:          in.Title,
		Review:         in.Text,
	}
	if err := s.Movies.AppendReview(ctx, movieID, rv); err != nil {
		l.Error("add_review_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("append review: %w", err)
	}

	metrics.ReviewsCreated.Inc()
	l.Info("add_review_success", "user_id", u.ID)
	if err := s.Events.PublishEvent(ctx, events.TopicReviews, movieID, events.ReviewEvent{
		Type: events.ReviewCreated, MovieID: movieID, UserID: u.ID, Username: u.Username, Rating: *in.Rating, At: s.now().UTC(),
	}); err != nil {
		metrics.EventPublishErrors.WithLabelValues(events.TopicReviews).Inc()
		l.Warn("event_publish_failed", "topic", events.TopicReviews, "err", err)
	}
	return &rv, nil
}

// ParseReviewDate accepts the layouts found in review files.
func ParseReviewDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func publishedAt(m models.Movie) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(m.Metadata.DatePublished))
	if err != nil {
		return time.Time{}
	}
	return t
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func orderBy(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}
