package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// StatsRepository runs the aggregate scans behind the dashboard overview.
// Every query degrades to zero values on an empty database.
type StatsRepository struct {
	pool *pgxpool.Pool
}

var _ ports.StatsRepository = (*StatsRepository)(nil)

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) CountTickets(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	return n, err
}

func (r *StatsRepository) CountEscalated(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE escalated`).Scan(&n)
	return n, err
}

func (r *StatsRepository) AverageConfidence(ctx context.Context) (float64, error) {
	var avg pgtype.Float8
	err := r.pool.QueryRow(ctx, `SELECT AVG(confidence) FROM tickets WHERE confidence IS NOT NULL`).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (r *StatsRepository) StatusCounts(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.TicketStatus(status)] = count
	}
	return counts, rows.Err()
}

func (r *StatsRepository) PriorityCounts(ctx context.Context) (map[domain.TicketPriority]int64, error) {
	const query = `SELECT priority, COUNT(*) FROM tickets WHERE priority IS NOT NULL GROUP BY priority`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketPriority]int64)
	for rows.Next() {
		var (
			priority string
			count    int64
		)
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[domain.TicketPriority(priority)] = count
	}
	return counts, rows.Err()
}

func (r *StatsRepository) TopIntents(ctx context.Context, limit int) (map[string]int64, error) {
	if limit <= 0 {
		limit = 5
	}
	const query = `
SELECT intent, COUNT(*)
FROM tickets
WHERE intent IS NOT NULL
GROUP BY intent
ORDER BY COUNT(*) DESC, intent
LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			intent string
			count  int64
		)
		if err := rows.Scan(&intent, &count); err != nil {
			return nil, err
		}
		counts[intent] = count
	}
	return counts, rows.Err()
}

func (r *StatsRepository) AgentPerformance(ctx context.Context) (map[domain.AgentName]domain.AgentPerformance, error) {
	const query = `
SELECT agent_name, AVG(execution_time_ms), COUNT(*)
FROM agent_traces
GROUP BY agent_name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perf := make(map[domain.AgentName]domain.AgentPerformance)
	for rows.Next() {
		var (
			name  string
			avg   float64
			count int64
		)
		if err := rows.Scan(&name, &avg, &count); err != nil {
			return nil, err
		}
		perf[domain.AgentName(name)] = domain.AgentPerformance{
			AvgExecutionMs:  avg,
			TotalExecutions: count,
		}
	}
	return perf, rows.Err()
}
