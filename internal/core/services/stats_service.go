package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

const topIntentsLimit = 5

// StatsServiceImpl assembles the dashboard overview. The independent
// aggregate scans run concurrently; an empty store yields zeroed metrics.
type StatsServiceImpl struct {
	stats  ports.StatsRepository
	logger *slog.Logger
}

var _ ports.StatsService = (*StatsServiceImpl)(nil)

func NewStatsService(stats ports.StatsRepository, logger *slog.Logger) *StatsServiceImpl {
	return &StatsServiceImpl{stats: stats, logger: logger.With("component", "stats_service")}
}

func (s *StatsServiceImpl) Overview(ctx context.Context) (*domain.Stats, error) {
	var (
		total     int64
		escalated int64
		result    domain.Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = s.stats.CountTickets(gctx)
		return err
	})
	g.Go(func() (err error) {
		escalated, err = s.stats.CountEscalated(gctx)
		return err
	})
	g.Go(func() (err error) {
		result.AverageConfidence, err = s.stats.AverageConfidence(gctx)
		return err
	})
	g.Go(func() (err error) {
		result.StatusCounts, err = s.stats.StatusCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		result.PriorityCounts, err = s.stats.PriorityCounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		result.TopIntents, err = s.stats.TopIntents(gctx, topIntentsLimit)
		return err
	})
	g.Go(func() (err error) {
		result.AgentPerformance, err = s.stats.AgentPerformance(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("aggregate stats: %w", err))
	}

	result.TotalTickets = total
	if total > 0 {
		result.EscalationRatePercent = float64(escalated) / float64(total) * 100
	}
	return &result, nil
}
