package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/sakif/music-server/internal/apperror"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/upload"
)

// =========================================================================
// IN-MEMORY FAKES
// =========================================================================
//
// Hand-written fakes of the repository interfaces. They store copies so a
// test cannot reach into "the database" through a returned pointer.

type fakeSongRepo struct {
	mu     sync.Mutex
	songs  map[string]model.Song
	nextID int
	clock  time.Time

	createErr error
}

func newFakeSongRepo() *fakeSongRepo {
	return &fakeSongRepo{songs: make(map[string]model.Song), clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeSongRepo) Create(_ context.Context, song *model.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	song.ID = fmt.Sprintf("song-%d", f.nextID)
	song.CreatedAt, song.UpdatedAt = f.clock, f.clock
	f.songs[song.ID] = *song
	return nil
}

func (f *fakeSongRepo) GetByID(_ context.Context, id string) (*model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.songs[id]
	if !ok {
		return nil, apperror.NotFound("song", id)
	}
	return &s, nil
}

func (f *fakeSongRepo) List(_ context.Context) ([]model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSongRepo) ListByIDs(_ context.Context, ids []string) ([]model.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Song{}
	for _, id := range ids {
		if s, ok := f.songs[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSongRepo) Sample(ctx context.Context, n int) ([]model.Song, error) {
	all, _ := f.List(ctx)
	if n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (f *fakeSongRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.songs[id]; !ok {
		return apperror.NotFound("song", id)
	}
	delete(f.songs, id)
	return nil
}

func (f *fakeSongRepo) DeleteByAlbum(_ context.Context, albumID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.songs {
		if s.AlbumID != nil && *s.AlbumID == albumID {
			delete(f.songs, id)
			n++
		}
	}
	return n, nil
}

type fakeAlbumRepo struct {
	mu     sync.Mutex
	albums map[string]model.Album
	nextID int

	addSongErr error
}

func newFakeAlbumRepo() *fakeAlbumRepo {
	return &fakeAlbumRepo{albums: make(map[string]model.Album)}
}

func (f *fakeAlbumRepo) Create(_ context.Context, album *model.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	album.ID = fmt.Sprintf("album-%d", f.nextID)
	if album.SongIDs == nil {
		album.SongIDs = []string{}
	}
	stored := *album
	stored.SongIDs = append([]string{}, album.SongIDs...)
	f.albums[album.ID] = stored
	return nil
}

func (f *fakeAlbumRepo) GetByID(_ context.Context, id string) (*model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[id]
	if !ok {
		return nil, apperror.NotFound("album", id)
	}
	a.SongIDs = append([]string{}, a.SongIDs...)
	return &a, nil
}

func (f *fakeAlbumRepo) List(_ context.Context) ([]model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Album, 0, len(f.albums))
	for _, a := range f.albums {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlbumRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.albums[id]; !ok {
		return apperror.NotFound("album", id)
	}
	delete(f.albums, id)
	return nil
}

func (f *fakeAlbumRepo) AddSong(_ context.Context, albumID, songID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addSongErr != nil {
		return f.addSongErr
	}
	a, ok := f.albums[albumID]
	if !ok {
		return apperror.NotFound("album", albumID)
	}
	for _, id := range a.SongIDs {
		if id == songID {
			return nil
		}
	}
	a.SongIDs = append(a.SongIDs, songID)
	f.albums[albumID] = a
	return nil
}

func (f *fakeAlbumRepo) RemoveSong(_ context.Context, albumID, songID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[albumID]
	if !ok {
		return nil
	}
	kept := a.SongIDs[:0]
	for _, id := range a.SongIDs {
		if id != songID {
			kept = append(kept, id)
		}
	}
	a.SongIDs = kept
	f.albums[albumID] = a
	return nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	byExt  map[string]*model.User // "provider:externalID"
	nextID int

	upsertErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), byExt: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := user.Provider + ":" + user.ExternalID
	if existing, ok := f.byExt[key]; ok {
		existing.FullName = user.FullName
		existing.Email = user.Email
		existing.ImageURL = user.ImageURL
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.byExt[key] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) List(_ context.Context, excludeID string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for id, u := range f.users {
		if id != excludeID {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeStatsRepo struct {
	songs, albums, users, artists int64
	err                           error
}

func (f *fakeStatsRepo) CountSongs(context.Context) (int64, error)   { return f.songs, f.err }
func (f *fakeStatsRepo) CountAlbums(context.Context) (int64, error)  { return f.albums, nil }
func (f *fakeStatsRepo) CountUsers(context.Context) (int64, error)   { return f.users, nil }
func (f *fakeStatsRepo) CountArtists(context.Context) (int64, error) { return f.artists, nil }

// fakeUploader records calls and returns a predictable URL.
type fakeUploader struct {
	mu      sync.Mutex
	folders []string
	failOn  string // folder name that fails
}

func (f *fakeUploader) Upload(_ context.Context, folder string, file *upload.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, folder)
	if folder == f.failOn {
		return "", errors.New("failed to upload file")
	}
	return "https://cdn.test/" + folder + "/" + file.Filename, nil
}

func (f *fakeUploader) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folders)
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPool(t *testing.T) pond.Pool {
	t.Helper()
	pool := pond.NewPool(4)
	t.Cleanup(pool.StopAndWait)
	return pool
}
