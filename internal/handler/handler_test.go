package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/handler"
	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository/sqlite"
	"github.com/sakif/music-server/internal/service"
	"github.com/sakif/music-server/internal/storage"
	"github.com/sakif/music-server/internal/upload"
	"github.com/sakif/music-server/internal/validation"
)

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================
//
// Handlers run against the real services on an in-memory SQLite store and a
// disk uploader in a temp dir. Auth middleware is replaced by asUser, which
// puts a fixed user ID on the context; the gate itself is tested in
// internal/auth and end to end in internal/server.

type testEnv struct {
	db       *sqlite.DB
	router   chi.Router
	provider *fakeProvider
	tokens   *auth.TokenService
	userID   string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := quietLogger()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := pond.NewPool(4)
	t.Cleanup(pool.StopAndWait)

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)

	errs := handler.NewErrors(false, logger)
	uploader := storage.NewDisk(t.TempDir(), "http://media.test")
	provider := &fakeProvider{}

	songs := handler.NewSongHandler(service.NewSongService(db.Songs(), logger), errs)
	albums := handler.NewAlbumHandler(service.NewAlbumService(db.Albums(), db.Songs(), logger), errs)
	users := handler.NewUserHandler(service.NewUserService(db.Users(), nil, logger), errs)
	stats := handler.NewStatsHandler(service.NewStatsService(db.Stats(), pool, logger), errs)
	admin := handler.NewAdminHandler(
		service.NewCatalogService(db.Songs(), db.Albums(), uploader, pool, validation.New(), logger),
		errs,
	)
	authHandler := handler.NewAuthHandler(
		provider,
		service.NewAuthService(db.Users(), tokens, logger),
		"http://app.test/home",
		false,
		errs,
		logger,
	)

	env := &testEnv{db: db, provider: provider, tokens: tokens}

	me := &model.User{Provider: "github", ExternalID: "1", FullName: "Me", Email: "me@example.com"}
	require.NoError(t, db.Users().Upsert(context.Background(), me))
	env.userID = me.ID

	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), env.userID)))
		})
	}
	uploads := upload.NewMiddleware(t.TempDir(), 1<<20, errs.Write, logger)

	r := chi.NewRouter()
	r.Get("/healthz", handler.HandleHealth)
	r.Get("/api/auth/login", authHandler.HandleLogin)
	r.Get("/api/auth/callback", authHandler.HandleCallback)
	r.Post("/api/auth/logout", authHandler.HandleLogout)
	r.Get("/api/songs/featured", songs.HandleFeatured)
	r.Group(func(r chi.Router) {
		r.Use(asUser)
		r.Get("/api/auth/me", authHandler.HandleMe)
		r.Get("/api/users", users.HandleList)
		r.Get("/api/songs", songs.HandleList)
		r.Get("/api/songs/{id}", songs.HandleGet)
		r.Get("/api/albums", albums.HandleList)
		r.Get("/api/albums/{albumId}", albums.HandleGet)
		r.Get("/api/stats", stats.HandleGet)
		r.Get("/api/admin/check", admin.HandleCheck)
		r.With(uploads.Handler).Post("/api/admin/songs", admin.HandleCreateSong)
		r.Delete("/api/admin/songs/{id}", admin.HandleDeleteSong)
		r.With(uploads.Handler).Post("/api/admin/albums", admin.HandleCreateAlbum)
		r.Delete("/api/admin/albums/{id}", admin.HandleDeleteAlbum)
	})
	env.router = r

	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// multipartRequest builds a form post. files maps field name → file content.
func multipartRequest(t *testing.T, path string, values map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".bin")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, decodeInto(rr, &v), rr.Body.String())
	return v
}

func decodeInto(rr *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rr.Body).Decode(v)
}

func (e *testEnv) createAlbum(t *testing.T) model.Album {
	t.Helper()
	rr := e.do(multipartRequest(t, "/api/admin/albums",
		map[string]string{"title": "Blue", "artist": "Joni Mitchell", "releaseYear": "1971"},
		map[string]string{"imageFile": "\x89PNG\r\n\x1a\n"},
	))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Album](t, rr)
}

func (e *testEnv) createSong(t *testing.T, albumID string) model.Song {
	t.Helper()
	rr := e.do(multipartRequest(t, "/api/admin/songs",
		map[string]string{"title": "River", "artist": "Joni Mitchell", "albumId": albumID, "duration": "240"},
		map[string]string{"audioFile": "ID3 audio", "imageFile": "image"},
	))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Song](t, rr)
}

type fakeProvider struct {
	identity *auth.Identity
	err      error
	gotCode  string
}

func (f *fakeProvider) AuthURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	f.gotCode = code
	return f.identity, f.err
}
