package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
	"github.com/sakif/music-server/internal/storage"
	"github.com/sakif/music-server/internal/upload"
	"github.com/sakif/music-server/internal/validation"
)

// Media folders inside the storage backend.
const (
	AudioFolder = "songs/audio"
	ImageFolder = "songs/images"
	AlbumFolder = "albums"
)

// CatalogService performs the admin writes. It owns the song ⇄ album
// invariant: a song's AlbumID and the album's SongIDs list change together.
//
// There is no transaction spanning the song and the album (the Mongo store
// has none to offer), so each write is ordered to leave the smallest mess if
// the second half fails.
type CatalogService struct {
	songs     repository.SongRepository
	albums    repository.AlbumRepository
	uploader  storage.Uploader
	pool      pond.Pool
	validator *validation.Validator
	logger    *slog.Logger
}

func NewCatalogService(
	songs repository.SongRepository,
	albums repository.AlbumRepository,
	uploader storage.Uploader,
	pool pond.Pool,
	validator *validation.Validator,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		songs:     songs,
		albums:    albums,
		uploader:  uploader,
		pool:      pool,
		validator: validator,
		logger:    logger,
	}
}

// CreateSongInput is the admin song form.
type CreateSongInput struct {
	Title    string `json:"title"    validate:"required,max=200"`
	Artist   string `json:"artist"   validate:"required,max=200"`
	AlbumID  string `json:"albumId"  validate:"max=64"`
	Duration int    `json:"duration" validate:"gte=0"`

	Audio *upload.File `json:"-"`
	Image *upload.File `json:"-"`
}

// CreateSong uploads both files, stores the song and, if AlbumID is set,
// appends it to the album.
//
// ORDER:
//  1. validate form, require both files
//  2. album must exist (404 before anything is uploaded)
//  3. upload audio and image concurrently
//  4. insert song
//  5. push song ID onto the album; on failure the song is removed again
func (s *CatalogService) CreateSong(ctx context.Context, in CreateSongInput) (*model.Song, error) {
	if in.Audio == nil || in.Image == nil {
		return nil, apperror.ValidationFailed("files", "files are required")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.AlbumID = strings.TrimSpace(in.AlbumID)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	if in.AlbumID != "" {
		if _, err := s.albums.GetByID(ctx, in.AlbumID); err != nil {
			return nil, err
		}
	}

	var audioURL, imageURL string
	group := s.pool.NewGroupContext(ctx)
	group.SubmitErr(
		func() (err error) {
			audioURL, err = s.uploader.Upload(ctx, AudioFolder, in.Audio)
			return err
		},
		func() (err error) {
			imageURL, err = s.uploader.Upload(ctx, ImageFolder, in.Image)
			return err
		},
	)
	if err := group.Wait(); err != nil {
		s.logger.Error("song upload failed", slog.String("title", in.Title), slog.String("error", err.Error()))
		return nil, err
	}

	song := &model.Song{
		Title:    in.Title,
		Artist:   in.Artist,
		AudioURL: audioURL,
		ImageURL: imageURL,
		Duration: in.Duration,
	}
	if in.AlbumID != "" {
		albumID := in.AlbumID
		song.AlbumID = &albumID
	}

	if err := s.songs.Create(ctx, song); err != nil {
		return nil, fmt.Errorf("creating song: %w", err)
	}

	if song.AlbumID != nil {
		if err := s.albums.AddSong(ctx, *song.AlbumID, song.ID); err != nil {
			// The album vanished between the check and now. Undo the insert so
			// no song points at a missing album.
			if delErr := s.songs.Delete(ctx, song.ID); delErr != nil {
				s.logger.Error("rolling back song after album push failed",
					slog.String("songID", song.ID),
					slog.String("error", delErr.Error()),
				)
			}
			return nil, fmt.Errorf("adding song to album: %w", err)
		}
	}

	s.logger.Info("song created",
		slog.String("id", song.ID),
		slog.String("title", song.Title),
	)
	return song, nil
}

// DeleteSong pulls the song from its album first, then deletes it.
func (s *CatalogService) DeleteSong(ctx context.Context, id string) error {
	song, err := s.songs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if song.AlbumID != nil {
		if err := s.albums.RemoveSong(ctx, *song.AlbumID, song.ID); err != nil {
			return fmt.Errorf("removing song from album: %w", err)
		}
	}

	if err := s.songs.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting song: %w", err)
	}

	s.logger.Info("song deleted", slog.String("id", id))
	return nil
}

// CreateAlbumInput is the admin album form.
type CreateAlbumInput struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Artist      string `json:"artist"      validate:"required,max=200"`
	ReleaseYear int    `json:"releaseYear" validate:"gte=1000,lte=9999"`

	Image *upload.File `json:"-"`
}

func (s *CatalogService) CreateAlbum(ctx context.Context, in CreateAlbumInput) (*model.Album, error) {
	if in.Image == nil {
		return nil, apperror.ValidationFailed("imageFile", "files are required")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	imageURL, err := s.uploader.Upload(ctx, AlbumFolder, in.Image)
	if err != nil {
		s.logger.Error("album cover upload failed", slog.String("title", in.Title), slog.String("error", err.Error()))
		return nil, err
	}

	album := &model.Album{
		Title:       in.Title,
		Artist:      in.Artist,
		ReleaseYear: in.ReleaseYear,
		ImageURL:    imageURL,
		SongIDs:     []string{},
	}
	if err := s.albums.Create(ctx, album); err != nil {
		return nil, fmt.Errorf("creating album: %w", err)
	}

	s.logger.Info("album created", slog.String("id", album.ID), slog.String("title", album.Title))
	return album, nil
}

// DeleteAlbum removes every song that references the album, then the album.
// Songs go first: a crash in between leaves an empty album, never songs
// pointing at nothing.
func (s *CatalogService) DeleteAlbum(ctx context.Context, id string) error {
	if _, err := s.albums.GetByID(ctx, id); err != nil {
		return err
	}

	n, err := s.songs.DeleteByAlbum(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting songs of album %s: %w", id, err)
	}

	if err := s.albums.Delete(ctx, id); err != nil {
		// Someone else deleted it after our check; the end state is the same.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting album: %w", err)
	}

	s.logger.Info("album deleted", slog.String("id", id), slog.Int64("songsDeleted", n))
	return nil
}
