// Package service holds the business rules between the HTTP handlers and the
// repositories.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces invariants, orchestrates
//	Repository      → reads/writes the store (SQLite or MongoDB)
//
// Services take repository interfaces, never a concrete store, so tests pass
// in-memory fakes and server.New picks the backend once.
//
// Methods accept plain Go values and return apperror types. They know
// nothing about status codes, cookies or multipart bodies.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

// Sizes of the home-page rails.
const (
	FeaturedCount   = 6
	MadeForYouCount = 4
	TrendingCount   = 4
)

// SongService serves the read side of the song catalogue.
type SongService struct {
	songs  repository.SongRepository
	logger *slog.Logger
}

func NewSongService(songs repository.SongRepository, logger *slog.Logger) *SongService {
	return &SongService{songs: songs, logger: logger}
}

// List returns every song, newest first.
func (s *SongService) List(ctx context.Context) ([]model.Song, error) {
	songs, err := s.songs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return songs, nil
}

// GetByID returns apperror.ErrNotFound if the song doesn't exist.
func (s *SongService) GetByID(ctx context.Context, id string) (*model.Song, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "song ID is required")
	}
	return s.songs.GetByID(ctx, id)
}

func (s *SongService) Featured(ctx context.Context) ([]model.SongCard, error) {
	return s.sample(ctx, "featured", FeaturedCount)
}

func (s *SongService) MadeForYou(ctx context.Context) ([]model.SongCard, error) {
	return s.sample(ctx, "made for you", MadeForYouCount)
}

// Trending is a random pick like the other rails; there is no play-count signal yet.
func (s *SongService) Trending(ctx context.Context) ([]model.SongCard, error) {
	return s.sample(ctx, "trending", TrendingCount)
}

func (s *SongService) sample(ctx context.Context, rail string, n int) ([]model.SongCard, error) {
	songs, err := s.songs.Sample(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sampling %s songs: %w", rail, err)
	}

	cards := make([]model.SongCard, len(songs))
	for i, song := range songs {
		cards[i] = song.Card()
	}
	return cards, nil
}
