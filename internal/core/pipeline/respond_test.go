package pipeline_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/pipeline"
)

func respondState(intent string, verdict domain.PolicyVerdict) *pipeline.State {
	state := policyState(intent, nil)
	state.Policy = &pipeline.PolicyOutput{
		Verdict:    verdict,
		Confidence: 0.8,
		Reason:     "test verdict",
	}
	return state
}

func TestResponseStage_ApprovedRefundNamesTheAmount(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := respondState(pipeline.IntentRefundRequest, domain.VerdictAllowed)
	amount := 149.99
	state.Policy.RefundAmount = &amount

	result, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.Contains(t, state.Response.Text, "Hi Jane Doe")
	assert.Contains(t, state.Response.Text, "$149.99")
	assert.Contains(t, state.Response.Text, "refund request has been approved")
	assert.Equal(t, state.Response.Confidence, result.Confidence)
}

func TestResponseStage_DeniedUsesFallbackTemplate(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := respondState(pipeline.IntentRefundRequest, domain.VerdictDenied)
	state.Policy.Reason = "outside the 30-day refund window"

	_, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.Contains(t, state.Response.Text, "unable to approve it")
	assert.Contains(t, state.Response.Text, "outside the 30-day refund window")
}

func TestResponseStage_DeniedWithoutFallbackFails(t *testing.T) {
	stage := pipeline.NewResponseStage(false)
	state := respondState(pipeline.IntentRefundRequest, domain.VerdictDenied)

	result, err := stage.Run(context.Background(), state)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Nil(t, state.Response)
}

func TestResponseStage_NeedsReviewDraftsForTheReviewer(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := respondState(pipeline.IntentRefundRequest, domain.VerdictNeedsReview)

	result, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.Contains(t, state.Response.Text, "closer look from our support team")
	// A draft under review is worth less than a confident answer.
	assert.Less(t, result.Confidence, 0.85)
}

func TestResponseStage_IncludesResearchSnippets(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := respondState(pipeline.IntentShippingInquiry, domain.VerdictAllowed)
	state.Research = &pipeline.ResearchOutput{
		Snippets: []domain.Snippet{
			{Source: "shipping-faq.md", Content: "Standard shipping takes 5-7 business days. Expedited options exist."},
		},
		Confidence: 0.7,
	}

	_, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.Contains(t, state.Response.Text, "This may help in the meantime")
	assert.Contains(t, state.Response.Text, "Standard shipping takes 5-7 business days.")
	// Only the first sentence of each snippet is quoted.
	assert.NotContains(t, state.Response.Text, "Expedited options exist")
}

func TestResponseStage_TruncatesUnpunctuatedSnippetsOnRuneBoundaries(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := respondState(pipeline.IntentGeneralInquiry, domain.VerdictAllowed)
	state.Research = &pipeline.ResearchOutput{
		Snippets: []domain.Snippet{
			// No sentence terminator, 300 multi-byte runes.
			{Source: "guide.md", Content: strings.Repeat("ü", 300)},
		},
		Confidence: 0.7,
	}

	_, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.True(t, utf8.ValidString(state.Response.Text))
	assert.Contains(t, state.Response.Text, strings.Repeat("ü", 200))
	assert.NotContains(t, state.Response.Text, strings.Repeat("ü", 201))
}

func TestResponseStage_MissingPolicyIsTreatedAsNeedsReview(t *testing.T) {
	stage := pipeline.NewResponseStage(true)
	state := policyState(pipeline.IntentGeneralInquiry, nil)
	state.Policy = nil

	result, err := stage.Run(context.Background(), state)

	require.NoError(t, err)
	require.NotNil(t, state.Response)
	assert.Contains(t, state.Response.Text, "closer look from our support team")
	assert.InDelta(t, 0.6, result.Confidence, 0.001)
}
