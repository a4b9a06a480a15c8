package domain

// AgentPerformance aggregates trace timings for one agent, system-wide.
type AgentPerformance struct {
	AvgExecutionMs  float64 `json:"avg_execution_time_ms"`
	TotalExecutions int64   `json:"total_executions"`
}

// Stats is the read-only dashboard summary derived from the ticket store.
// An empty store yields the zero value, not an error.
type Stats struct {
	TotalTickets          int64                          `json:"total_tickets"`
	AverageConfidence     float64                        `json:"average_confidence"`
	EscalationRatePercent float64                        `json:"escalation_rate_percent"`
	StatusCounts          map[TicketStatus]int64         `json:"status_breakdown"`
	PriorityCounts        map[TicketPriority]int64       `json:"priority_breakdown"`
	TopIntents            map[string]int64               `json:"top_intents"`
	AgentPerformance      map[AgentName]AgentPerformance `json:"agent_performance"`
}
