package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"

	"github.com/sakif/music-server/internal/model"
	"github.com/sakif/music-server/internal/repository"
)

// StatsService builds the admin dashboard summary.
type StatsService struct {
	stats  repository.StatsRepository
	pool   pond.Pool
	logger *slog.Logger
}

func NewStatsService(stats repository.StatsRepository, pool pond.Pool, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, pool: pool, logger: logger}
}

// Get runs the four counts concurrently on the shared worker pool.
// The first failure fails the whole call; the counts are not a snapshot of
// one instant.
func (s *StatsService) Get(ctx context.Context) (*model.Stats, error) {
	var out model.Stats

	count := func(dst *int64, name string, fn func(context.Context) (int64, error)) func() error {
		return func() error {
			n, err := fn(ctx)
			if err != nil {
				return fmt.Errorf("counting %s: %w", name, err)
			}
			*dst = n
			return nil
		}
	}

	group := s.pool.NewGroupContext(ctx)
	group.SubmitErr(
		count(&out.TotalSongs, "songs", s.stats.CountSongs),
		count(&out.TotalUsers, "users", s.stats.CountUsers),
		count(&out.TotalAlbums, "albums", s.stats.CountAlbums),
		count(&out.TotalArtists, "artists", s.stats.CountArtists),
	)
	if err := group.Wait(); err != nil {
		s.logger.Error("stats failed", slog.String("error", err.Error()))
		return nil, err
	}

	return &out, nil
}
