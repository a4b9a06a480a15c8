package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	apperrors "github.com/lorrc/support-agents-backend/internal/core/errors"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// TraceRepository is the durable append-only trace ledger.
type TraceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TraceLedger = (*TraceRepository)(nil)

func NewTraceRepository(pool *pgxpool.Pool) *TraceRepository {
	return &TraceRepository{pool: pool}
}

// Append inserts one entry inside a transaction that first verifies the step
// number extends the ticket's ledger by exactly one. The ticket row is
// locked for the duration so two concurrent appends cannot both pass the
// check; the unique (ticket_id, step_number) constraint is the backstop.
func (r *TraceRepository) Append(ctx context.Context, trace *domain.AgentTrace) (*domain.AgentTrace, error) {
	if err := trace.Validate(); err != nil {
		return nil, err
	}

	toolsJSON, err := json.Marshal(toolsOrEmpty(trace.ToolsUsed))
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}
	outputJSON, err := json.Marshal(outputOrEmpty(trace.Output))
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1 FOR UPDATE)`,
		trace.TicketID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTicketNotFound
	}

	var nextStep int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(step_number), 0) + 1 FROM agent_traces WHERE ticket_id = $1`,
		trace.TicketID,
	).Scan(&nextStep); err != nil {
		return nil, err
	}
	if trace.StepNumber != nextStep {
		return nil, fmt.Errorf("%w: step %d, ledger expects %d", apperrors.ErrTraceOutOfOrder, trace.StepNumber, nextStep)
	}

	const insert = `
INSERT INTO agent_traces (id, ticket_id, step_number, agent_name,
                          execution_time_ms, confidence, reasoning,
                          tools_used, output, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := tx.Exec(ctx, insert,
		trace.ID,
		trace.TicketID,
		trace.StepNumber,
		string(trace.AgentName),
		trace.ExecutionTimeMs,
		trace.Confidence,
		trace.Reasoning,
		toolsJSON,
		outputJSON,
		trace.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrTraceOutOfOrder
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return trace, nil
}

func (r *TraceRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]*domain.AgentTrace, error) {
	const query = `
SELECT id, ticket_id, step_number, agent_name, execution_time_ms,
       confidence, reasoning, tools_used, output, created_at
FROM agent_traces
WHERE ticket_id = $1
ORDER BY step_number`

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	traces := make([]*domain.AgentTrace, 0)
	for rows.Next() {
		var (
			tr         domain.AgentTrace
			agentName  string
			toolsJSON  []byte
			outputJSON []byte
		)
		if err := rows.Scan(
			&tr.ID,
			&tr.TicketID,
			&tr.StepNumber,
			&agentName,
			&tr.ExecutionTimeMs,
			&tr.Confidence,
			&tr.Reasoning,
			&toolsJSON,
			&outputJSON,
			&tr.CreatedAt,
		); err != nil {
			return nil, err
		}
		tr.AgentName = domain.AgentName(agentName)
		if err := json.Unmarshal(toolsJSON, &tr.ToolsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal tools: %w", err)
		}
		if err := json.Unmarshal(outputJSON, &tr.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
		traces = append(traces, &tr)
	}
	return traces, rows.Err()
}

func toolsOrEmpty(tools []string) []string {
	if tools == nil {
		return []string{}
	}
	return tools
}

func outputOrEmpty(output map[string]any) map[string]any {
	if output == nil {
		return map[string]any{}
	}
	return output
}
