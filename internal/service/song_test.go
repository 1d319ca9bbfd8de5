package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
)

func seedSongs(t *testing.T, repo *fakeSongRepo, n int) []model.Song {
	t.Helper()
	out := make([]model.Song, 0, n)
	for i := 0; i < n; i++ {
		s := &model.Song{Title: "t", Artist: "a", ImageURL: "img", AudioURL: "mp3", Duration: 100 + i}
		require.NoError(t, repo.Create(context.Background(), s))
		out = append(out, *s)
	}
	return out
}

func TestSongService_Rails(t *testing.T) {
	repo := newFakeSongRepo()
	seedSongs(t, repo, 10)
	svc := NewSongService(repo, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(context.Context) ([]model.SongCard, error)
		want int
	}{
		{"featured", svc.Featured, FeaturedCount},
		{"made for you", svc.MadeForYou, MadeForYouCount},
		{"trending", svc.Trending, TrendingCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := tt.fn(ctx)
			require.NoError(t, err)
			assert.Len(t, cards, tt.want)
			for _, c := range cards {
				assert.NotEmpty(t, c.ID)
				assert.Equal(t, "mp3", c.AudioURL)
			}
		})
	}
}

func TestSongService_RailsWithFewSongs(t *testing.T) {
	repo := newFakeSongRepo()
	seedSongs(t, repo, 2)
	svc := NewSongService(repo, testLogger())

	cards, err := svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestSongService_RailsEmptyCatalogue(t *testing.T) {
	svc := NewSongService(newFakeSongRepo(), testLogger())

	cards, err := svc.Trending(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards, "an empty rail must encode as [] not null")
	assert.Empty(t, cards)
}

func TestSongService_GetByID(t *testing.T) {
	repo := newFakeSongRepo()
	seeded := seedSongs(t, repo, 1)
	svc := NewSongService(repo, testLogger())
	ctx := context.Background()

	song, err := svc.GetByID(ctx, seeded[0].ID)
	require.NoError(t, err)
	assert.Equal(t, seeded[0].ID, song.ID)

	_, err = svc.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetByID(ctx, "  ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSongService_ListNewestFirst(t *testing.T) {
	repo := newFakeSongRepo()
	seeded := seedSongs(t, repo, 3)
	svc := NewSongService(repo, testLogger())

	songs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, songs, 3)
	assert.Equal(t, seeded[2].ID, songs[0].ID)
	assert.Equal(t, seeded[0].ID, songs[2].ID)
}
