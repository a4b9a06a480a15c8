// Package knowledge implements the research stage's article search over a
// built-in help-center corpus. Scoring is plain token overlap; the port
// keeps the door open for a real vector search behind the same interface.
package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/lorrc/support-agents-backend/internal/core/domain"
	"github.com/lorrc/support-agents-backend/internal/core/ports"
)

type article struct {
	source  string
	content string
	tokens  map[string]struct{}
}

// Base is the in-process knowledge base.
type Base struct {
	articles []article
}

var _ ports.KnowledgeBase = (*Base)(nil)

// NewBase indexes the default help-center articles.
func NewBase() *Base {
	b := &Base{}
	for source, content := range defaultArticles {
		b.articles = append(b.articles, article{
			source:  source,
			content: content,
			tokens:  tokenize(content + " " + source),
		})
	}
	sort.Slice(b.articles, func(i, j int) bool { return b.articles[i].source < b.articles[j].source })
	return b
}

// Search returns up to limit articles ranked by token overlap with the
// query. Articles with no overlap at all are omitted.
func (b *Base) Search(ctx context.Context, query string, limit int) ([]domain.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	type scored struct {
		article article
		score   float64
	}
	var hits []scored
	for _, a := range b.articles {
		overlap := 0
		for tok := range queryTokens {
			if _, ok := a.tokens[tok]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		hits = append(hits, scored{article: a, score: float64(overlap) / float64(len(queryTokens))})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	snippets := make([]domain.Snippet, 0, len(hits))
	for _, h := range hits {
		snippets = append(snippets, domain.Snippet{
			Source:  h.article.source,
			Content: h.article.content,
			Score:   h.score,
		})
	}
	return snippets, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "how": {}, "i": {},
	"in": {}, "is": {}, "it": {}, "my": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "was": {}, "what": {}, "with": {}, "you": {}, "your": {},
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(field) < 2 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

// defaultArticles mirrors the help-center markdown corpus the support team
// publishes. Keyed by source document name.
var defaultArticles = map[string]string{
	"refund-policy.md": "Refunds are available within 30 days of the order date for items in delivered or shipped status. " +
		"Approved refunds are issued to the original payment method within 5-10 business days. " +
		"Orders outside the 30-day window require a support specialist review.",
	"shipping-faq.md": "Standard shipping takes 3-5 business days and express shipping 1-2 business days. " +
		"Every shipment confirmation email includes a tracking link. " +
		"If a package shows delivered but has not arrived, wait 24 hours before contacting support as carriers sometimes scan early.",
	"account-help.md": "Password resets are self-service from the sign-in page and the reset link is valid for one hour. " +
		"Accounts lock after five failed sign-in attempts and unlock automatically after 15 minutes. " +
		"For a locked or compromised account, support can restore access after verifying the email on file.",
	"product-care.md": "All hardware products carry a one-year limited warranty against manufacturing defects. " +
		"Warranty claims need the order number and a short description of the defect. " +
		"Consumable accessories such as cables are covered for 90 days.",
	"contact-hours.md": "Support specialists are available Monday through Friday, 9am to 6pm US Eastern. " +
		"Tickets submitted outside business hours are answered the next business day in the order received.",
}
