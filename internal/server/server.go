// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → repository.Store (sqlite or mongo)
//	  → storage.Uploader (disk or s3)
//	  → services (song, album, catalog, user, stats, auth)
//	  → handlers
//	  → chi router
//
// Everything is wired here and nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/music-server/internal/auth"
	"github.com/sakif/music-server/internal/config"
	"github.com/sakif/music-server/internal/handler"
	"github.com/sakif/music-server/internal/middleware"
	"github.com/sakif/music-server/internal/repository"
	mongoRepo "github.com/sakif/music-server/internal/repository/mongo"
	sqliteRepo "github.com/sakif/music-server/internal/repository/sqlite"
	"github.com/sakif/music-server/internal/service"
	"github.com/sakif/music-server/internal/storage"
	"github.com/sakif/music-server/internal/upload"
	"github.com/sakif/music-server/internal/validation"
)

const (
	shutdownTimeout = 30 * time.Second
	workerPoolSize  = 16
)

// Server owns every long-lived resource: the store, the worker pool and the
// temp sweeper. Close releases them in reverse order of creation.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	store   repository.Store
	pool    pond.Pool
	sweeper *upload.Sweeper

	closeOnce sync.Once
	closeErr  error
}

// New builds the whole dependency graph from cfg. On error nothing is left
// open.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating uploader: %w", err)
	}

	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		store.Close()
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.WithTTL(cfg.SessionTTL()))
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		pool:   pond.NewPool(workerPoolSize),
		sweeper: upload.NewSweeper(
			cfg.TempDir,
			time.Duration(cfg.TempSweepMinutes)*time.Minute,
			time.Duration(cfg.TempMaxAgeMinutes)*time.Minute,
			logger,
		),
	}

	s.setupRoutes(uploader, tokens)
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.DBDriver == config.DriverMongo {
		db, err := mongoRepo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func newUploader(ctx context.Context, cfg config.Config) (storage.Uploader, error) {
	if cfg.StorageBackend == config.StorageS3 {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Endpoint:        cfg.AwsEndpointUrl,
			Region:          cfg.AwsRegion,
			AccessKeyID:     cfg.AwsAccessKeyId,
			SecretAccessKey: cfg.AwsSecretAccessKey,
			Bucket:          cfg.AwsBucket,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return storage.NewDisk(cfg.MediaDir, cfg.PublicBaseURL), nil
}

// setupRoutes mounts middleware and routes.
//
// ROUTES:
//
//	GET    /healthz
//	GET    /media/*                       (disk storage only)
//	GET    /api/auth/login | /callback     POST /api/auth/logout
//	GET    /api/auth/me                    auth
//	GET    /api/users                      auth
//	GET    /api/songs                      admin
//	GET    /api/songs/featured | /made-for-you | /trending
//	GET    /api/songs/{id}                 auth
//	GET    /api/albums, /api/albums/{albumId}   auth
//	GET    /api/stats                      admin
//	*      /api/admin/...                  admin
//	GET    /*                              built client (production, STATIC_DIR set)
//
// MIDDLEWARE ORDER:
// RequestID first so the logger can print it; Recoverer inside Logger so a
// panic is logged with its 500.
func (s *Server) setupRoutes(uploader storage.Uploader, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	errs := handler.NewErrors(s.config.ShouldExposeErrors(), s.logger)
	validator := validation.New()

	// === Services ===
	songService := service.NewSongService(s.store.Songs(), s.logger)
	albumService := service.NewAlbumService(s.store.Albums(), s.store.Songs(), s.logger)
	catalogService := service.NewCatalogService(s.store.Songs(), s.store.Albums(), uploader, s.pool, validator, s.logger)
	userService := service.NewUserService(s.store.Users(), s.config.AdminEmailList(), s.logger)
	statsService := service.NewStatsService(s.store.Stats(), s.pool, s.logger)
	authService := service.NewAuthService(s.store.Users(), tokens, s.logger)

	provider := auth.NewOAuthProvider(auth.OAuthConfig{
		ClientID:     s.config.OAuthClientID,
		ClientSecret: s.config.OAuthClientSecret,
		RedirectURL:  s.config.OAuthCallbackURL,
		AuthURL:      s.config.OAuthAuthURL,
		TokenURL:     s.config.OAuthTokenURL,
		UserInfoURL:  s.config.OAuthUserInfoURL,
		Scopes:       s.config.OAuthScopeList(),
	})

	// === Handlers ===
	songs := handler.NewSongHandler(songService, errs)
	albums := handler.NewAlbumHandler(albumService, errs)
	users := handler.NewUserHandler(userService, errs)
	stats := handler.NewStatsHandler(statsService, errs)
	admin := handler.NewAdminHandler(catalogService, errs)
	authHandler := handler.NewAuthHandler(provider, authService, s.config.FrontendURL, s.config.IsProduction(), errs, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	requireAdmin := auth.RequireAdmin(userService, s.logger)
	uploads := upload.NewMiddleware(
		s.config.TempDir,
		int64(s.config.MaxUploadMB)<<20,
		errs.Write,
		s.logger,
	).Handler

	s.router.Get("/healthz", handler.HandleHealth)

	if disk, ok := uploader.(*storage.Disk); ok {
		media := http.StripPrefix(storage.MediaPrefix, http.FileServer(http.Dir(disk.Root())))
		s.router.Handle(storage.MediaPrefix+"*", media)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.HandleLogin)
			r.Get("/callback", authHandler.HandleCallback)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.With(requireAuth).Get("/users", users.HandleList)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/featured", songs.HandleFeatured)
			r.Get("/made-for-you", songs.HandleMadeForYou)
			r.Get("/trending", songs.HandleTrending)
			r.With(requireAuth, requireAdmin).Get("/", songs.HandleList)
			r.With(requireAuth).Get("/{id}", songs.HandleGet)
		})

		r.Route("/albums", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", albums.HandleList)
			r.Get("/{albumId}", albums.HandleGet)
		})

		r.With(requireAuth, requireAdmin).Get("/stats", stats.HandleGet)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/check", admin.HandleCheck)

			r.With(uploads).Post("/songs", admin.HandleCreateSong)
			r.Delete("/songs/{id}", admin.HandleDeleteSong)
			// singular paths are what older clients call
			r.With(uploads).Post("/song", admin.HandleCreateSong)
			r.Delete("/song/{id}", admin.HandleDeleteSong)

			r.With(uploads).Post("/albums", admin.HandleCreateAlbum)
			r.Delete("/albums/{id}", admin.HandleDeleteAlbum)
		})
	})

	if s.config.IsProduction() && s.config.StaticDir != "" {
		s.router.Get("/*", spaHandler(s.config.StaticDir))
	}
}

// spaHandler serves files from dir and falls back to index.html so the
// client-side router can handle deep links.
func spaHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and releases everything New opened.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: uploads of up to MAX_UPLOAD_MB on a slow link
		// would be cut off.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	s.sweeper.Start()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.config.AppEnv),
			slog.String("store", s.config.DBDriver),
			slog.String("storage", s.config.StorageBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops the sweeper, drains the worker pool and closes the store.
// Later calls return the first result.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.sweeper.Stop()
		s.pool.StopAndWait()
		if err := s.store.Close(); err != nil {
			s.closeErr = fmt.Errorf("closing store: %w", err)
		}
	})
	return s.closeErr
}
