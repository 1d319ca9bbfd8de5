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

// AlbumService serves the read side of albums.
type AlbumService struct {
	albums repository.AlbumRepository
	songs  repository.SongRepository
	logger *slog.Logger
}

func NewAlbumService(albums repository.AlbumRepository, songs repository.SongRepository, logger *slog.Logger) *AlbumService {
	return &AlbumService{albums: albums, songs: songs, logger: logger}
}

func (s *AlbumService) List(ctx context.Context) ([]model.Album, error) {
	albums, err := s.albums.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	return albums, nil
}

// GetDetail returns the album with its songs resolved in list order.
// IDs in the list that no longer resolve are skipped rather than failing the
// whole page.
func (s *AlbumService) GetDetail(ctx context.Context, id string) (*model.AlbumDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("albumId", "album ID is required")
	}

	album, err := s.albums.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	songs, err := s.songs.ListByIDs(ctx, album.SongIDs)
	if err != nil {
		return nil, fmt.Errorf("loading songs of album %s: %w", id, err)
	}

	if len(songs) != len(album.SongIDs) {
		s.logger.Warn("album lists songs that no longer exist",
			slog.String("albumID", id),
			slog.Int("listed", len(album.SongIDs)),
			slog.Int("found", len(songs)),
		)
	}

	return &model.AlbumDetail{Album: *album, Songs: songs}, nil
}
