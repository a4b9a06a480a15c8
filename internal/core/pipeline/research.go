package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

// ResearchStage searches the knowledge base for material relevant to the
// classified intent. It never hard-fails: an empty result set is valid and
// simply lowers confidence.
type ResearchStage struct {
	kb           ports.KnowledgeBase
	resultsLimit int
}

func NewResearchStage(kb ports.KnowledgeBase, resultsLimit int) *ResearchStage {
	if resultsLimit <= 0 {
		resultsLimit = 3
	}
	return &ResearchStage{kb: kb, resultsLimit: resultsLimit}
}

func (s *ResearchStage) Name() domain.AgentName { return domain.AgentResearch }

func (s *ResearchStage) Run(ctx context.Context, state *State) (*Result, error) {
	queries := []string{state.Ticket.Subject}
	if state.Triage != nil {
		queries = append(queries, strings.ReplaceAll(state.Triage.Intent, "_", " ")+" policy")
	}

	seen := make(map[string]bool)
	var snippets []domain.Snippet
	for _, query := range queries {
		hits, err := s.kb.Search(ctx, query, s.resultsLimit)
		if err != nil {
			// A broken knowledge base degrades to an empty result rather
			// than failing the run.
			continue
		}
		for _, hit := range hits {
			if seen[hit.Source] {
				continue
			}
			seen[hit.Source] = true
			snippets = append(snippets, hit)
		}
	}
	if len(snippets) > s.resultsLimit {
		snippets = snippets[:s.resultsLimit]
	}

	confidence := 0.3
	if len(snippets) > 0 {
		confidence = 0.6 + 0.1*float64(len(snippets))
		if confidence > 0.9 {
			confidence = 0.9
		}
	}

	sources := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		sources = append(sources, sn.Source)
	}
	summary := "no relevant knowledge base material found"
	if len(sources) > 0 {
		summary = fmt.Sprintf("found %d relevant article(s): %s", len(sources), strings.Join(sources, ", "))
	}

	state.Research = &ResearchOutput{
		Snippets:   snippets,
		Queries:    queries,
		Confidence: confidence,
		Summary:    summary,
	}

	return &Result{
		Confidence: confidence,
		Reasoning:  summary,
		ToolsUsed:  []string{"search_knowledge_base"},
		Output: map[string]any{
			"queries": queries,
			"sources": sources,
			"matches": len(snippets),
		},
	}, nil
}
