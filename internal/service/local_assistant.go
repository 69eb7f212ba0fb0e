package service

import (
	"context"
	"time"

	"asesor/internal/domain"
)

// LocalAssistant answers offline from the knowledge base.
type LocalAssistant struct {
	search  *SearchService
	latency time.Duration
}

// NewLocalAssistant wraps a search service. A positive latency delays every
// answer to mimic a network round trip; the wait ends early if ctx is done.
func NewLocalAssistant(search *SearchService, latency time.Duration) *LocalAssistant {
	return &LocalAssistant{search: search, latency: latency}
}

func (a *LocalAssistant) Name() string { return "local" }

// Ask searches with the last message of q; the history is not used.
func (a *LocalAssistant) Ask(ctx context.Context, q domain.Query) domain.Answer {
	if a.latency > 0 {
		t := time.NewTimer(a.latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	return a.search.Search(q.Question(), q.CompanyID)
}
