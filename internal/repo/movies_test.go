package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jokerMetadata = `{"title":"Joker","movieIMDbRating":8.4,"totalRatingCount":1100000,"totalUserReviews":"10.2K","totalCriticReviews":"697","metaScore":"59","movieGenres":["Crime","Drama"],"directors":["Todd Phillips"],"datePublished":"2019-10-04","creators":["Todd Phillips"],"mainStars":["Joaquin Phoenix"],"description":"A clown.","duration":122}`

const imdbReviews = "Date of Review,User,Usefulness Vote,Total Votes,User's rating out of 10,Review Title,Review\n" +
	"05 October 2019,MovieFan,\"1,204\",1500,10,Masterpiece,\"Loved it, truly.\"\n" +
	"12 November 2019,critic_1,3,10,,Meh,Not for me\n"

func writeMovie(t *testing.T, root, id, metadata, reviews string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataFile), []byte(metadata), 0o644))
	if reviews != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, reviewsFile), []byte(reviews), 0o644))
	}
}

func TestMovieRepo_ListAndGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMovie(t, root, "Joker", jokerMetadata, "")
	writeMovie(t, root, "Broken", `{"title":`, "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "NoMetadata"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	r := NewMovieRepo(root)
	ctx := context.Background()

	movies, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Joker", movies[0].ID)
	assert.Equal(t, 8.4, movies[0].Metadata.MovieIMDbRating)
	assert.Equal(t, []string{"Crime", "Drama"}, movies[0].Metadata.MovieGenres)

	m, err := r.Get(ctx, "Joker")
	require.NoError(t, err)
	assert.Equal(t, "Joker", m.Metadata.Title)

	for _, id := range []string{"Missing", "NoMetadata", "../Joker", ""} {
		_, err = r.Get(ctx, id)
		assert.ErrorIs(t, err, ErrMovieNotFound, id)
	}
}

func TestMovieRepo_List_MissingDir(t *testing.T) {
	t.Parallel()

	movies, err := NewMovieRepo(filepath.Join(t.TempDir(), "absent")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestMovieRepo_Reviews_ImdbHeader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMovie(t, root, "Joker", jokerMetadata, imdbReviews)

	reviews, err := NewMovieRepo(root).Reviews(context.Background(), "Joker")
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	first := reviews[0]
	assert.Equal(t, "05 October 2019", first.Date)
	assert.Equal(t, "MovieFan", first.User)
	require.NotNil(t, first.UsefulnessVote)
	assert.Equal(t, 1204, *first.UsefulnessVote)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 10.0, *first.Rating)
	assert.Equal(t, "Loved it, truly.", first.Review)

	assert.Nil(t, reviews[1].Rating)
}

func TestMovieRepo_Reviews_NoFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMovie(t, root, "Joker", jokerMetadata, "")

	reviews, err := NewMovieRepo(root).Reviews(context.Background(), "Joker")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestMovieRepo_AppendReview_NewFileWritesHeader(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMovie(t, root, "Joker", jokerMetadata, "")
	r := NewMovieRepo(root)
	ctx := context.Background()

	zero, rating := 0, 7.0
	rv := models.Review{
		Date:           "01 October 2025",
		User:           "alice",
		UsefulnessVote: &zero,
		TotalVotes:     &zero,
		Rating:         &rating,
		Title:          "Good",
		Review:         "Dark, but good",
	}
	require.NoError(t, r.AppendReview(ctx, "Joker", rv))

	data, err := os.ReadFile(filepath.Join(root, "Joker", reviewsFile))
	require.NoError(t, err)
	assert.Equal(t, "date,user,usefulness_vote,total_votes,rating,title,review\n"+
		"01 October 2025,alice,0,0,7,Good,\"Dark, but good\"\n", string(data))

	reviews, err := r.Reviews(ctx, "Joker")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, rv, reviews[0])
}

func TestMovieRepo_AppendReview_ExistingImdbFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeMovie(t, root, "Joker", jokerMetadata, imdbReviews[:len(imdbReviews)-1])
	r := NewMovieRepo(root)
	ctx := context.Background()

	rating := 6.0
	require.NoError(t, r.AppendReview(ctx, "Joker", models.Review{
		Date:   "02 October 2025",
		User:   "bob",
		Rating: &rating,
		Title:  "Fine",
		Review: "ok",
	}))

	reviews, err := r.Reviews(ctx, "Joker")
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, "Meh", reviews[1].Title)
	assert.Equal(t, "bob", reviews[2].User)
	require.NotNil(t, reviews[2].Rating)
	assert.Equal(t, 6.0, *reviews[2].Rating)
}
