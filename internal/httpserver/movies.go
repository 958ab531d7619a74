package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	mwauth "github.com/Skotchmaster/movie_reviews/internal/middleware/auth"
	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/Skotchmaster/movie_reviews/internal/transport"
	"github.com/Skotchmaster/movie_reviews/internal/util"
	"github.com/labstack/echo/v4"
)

type MoviesHTTP struct {
	Svc *service.CatalogService
}

func (h *MoviesHTTP) ListMovies(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list_movies")

	minRating, err := queryFloat(c, "min_rating")
	if err != nil {
		l.Warn("list_movies_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	maxRating, err := queryFloat(c, "max_rating")
	if err != nil {
		l.Warn("list_movies_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	page, err := h.Svc.ListMovies(ctx, service.MovieFilter{
		Genre:     c.QueryParam("genre"),
		MinRating: minRating,
		MaxRating: maxRating,
		SortBy:    c.QueryParam("sort_by"),
		Order:     c.QueryParam("order"),
		Page:      util.ParseIntDefault(c.QueryParam("page"), 1),
		Size:      util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.MovieListResponse{Movies: page.Items, Meta: page.Meta})
}

func (h *MoviesHTTP) GetMovie(c echo.Context) error {
	m, err := h.Svc.GetMovie(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MoviesHTTP) SearchMovies(c echo.Context) error {
	ctx := c.Request().Context()

	rating, err := queryFloat(c, "rating")
	if err != nil {
		logging.FromContext(ctx).Warn("search_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	movies, err := h.Svc.SearchMovies(ctx, c.QueryParam("title"), rating)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.MovieSearchResponse{Movies: movies})
}

func (h *MoviesHTTP) ListReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list_reviews")

	f, err := reviewFilter(c)
	if err != nil {
		l.Warn("list_reviews_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	page, err := h.Svc.ListReviews(ctx, c.Param("id"), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.ReviewListResponse{
		Reviews: page.Items,
		Total:   page.Total,
		Skip:    page.Skip,
		Limit:   page.Limit,
	})
}

func (h *MoviesHTTP) AddReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add_review")

	p, ok := mwauth.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req transport.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_review_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("add_review_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields: rating, review_title, review_text")
	}

	rv, err := h.Svc.AddReview(ctx, p, c.Param("id"), service.ReviewInput{
		Title:  req.ReviewTitle,
		Text:   req.ReviewText,
		Rating: req.Rating,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, transport.CreateReviewResponse{
		Message: "Review added successfully",
		Review:  *rv,
	})
}

func reviewFilter(c echo.Context) (service.ReviewFilter, error) {
	var (
		f   service.ReviewFilter
		err error
	)
	f.User = c.QueryParam("user")
	if f.StartDate, err = queryDate(c, "start_date"); err != nil {
		return f, err
	}
	if f.EndDate, err = queryDate(c, "end_date"); err != nil {
		return f, err
	}
	if f.MinRating, err = queryFloat(c, "min_rating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = queryFloat(c, "max_rating"); err != nil {
		return f, err
	}
	if f.MinUsefulness, err = queryInt(c, "min_usefulness_vote"); err != nil {
		return f, err
	}
	if f.MinTotalVotes, err = queryInt(c, "min_total_votes"); err != nil {
		return f, err
	}
	f.Skip = util.ParseIntDefault(c.QueryParam("skip"), 0)
	f.Limit = util.ParseIntDefault(c.QueryParam("limit"), service.DefaultReviewLimit)
	return f, nil
}

func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}

func queryInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", name)
	}
	return &v, nil
}
