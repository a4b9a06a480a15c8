package http

import (
	"log/slog"
	"net/http"

	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// StatsHandler serves the dashboard statistics endpoint.
type StatsHandler struct {
	statsService ports.StatsService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

func NewStatsHandler(statsService ports.StatsService, errorHandler *ErrorHandler, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "stats"),
	}
}

// HandleGetStats handles GET /stats
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Overview(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
