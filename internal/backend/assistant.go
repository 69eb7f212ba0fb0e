package backend

import (
	"context"

	"github.com/rs/zerolog"

	"asesor/internal/domain"
)

const (
	// ConnectionErrorMessage replaces any failure of the remote engine in the
	// chat transcript.
	ConnectionErrorMessage = "Lo siento, ha ocurrido un error al conectar con el servidor de inteligencia legal. Por favor inténtalo de nuevo."

	defaultCategory = "Documentación General"
	defaultTopic    = "Referencia"
)

// RemoteAssistant answers through the backend chat endpoint.
type RemoteAssistant struct {
	client     *Client
	logger     zerolog.Logger
	production bool
}

// NewRemoteAssistant wraps a client. In production the cause of a failed
// request is not logged.
func NewRemoteAssistant(client *Client, logger zerolog.Logger, production bool) *RemoteAssistant {
	return &RemoteAssistant{client: client, logger: logger, production: production}
}

func (a *RemoteAssistant) Name() string { return "remote" }

// Ask sends the last message as the question and the rest as history. It
// never fails: errors become ConnectionErrorMessage with no sources.
func (a *RemoteAssistant) Ask(ctx context.Context, q domain.Query) domain.Answer {
	history := q.History()
	req := ChatRequest{
		Query:       q.Question(),
		History:     make([]HistoryMessage, 0, len(history)),
		CompanySlug: q.CompanyID,
	}
	for _, m := range history {
		req.History = append(req.History, HistoryMessage{Role: string(m.Role), Content: m.Content})
	}
	if q.UserContext != nil && !q.UserContext.IsZero() {
		req.UserContext = q.UserContext
	}

	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		if !a.production {
			a.logger.Error().Err(err).Str("company", q.CompanyID).Msg("chat request failed")
		}
		return domain.Answer{Answer: ConnectionErrorMessage, Sources: []domain.Source{}}
	}
	return ToAnswer(resp)
}

// ToAnswer maps a backend response to the assistant answer shown in chat.
func ToAnswer(resp *ChatResponse) domain.Answer {
	out := domain.Answer{Answer: resp.Answer, Sources: make([]domain.Source, 0, len(resp.Sources))}
	for _, s := range resp.Sources {
		src := domain.Source{Category: s.DocumentID, Topic: s.ArticleRef, Content: s.Content}
		if src.Category == "" {
			src.Category = defaultCategory
		}
		if src.Topic == "" {
			src.Topic = defaultTopic
		}
		out.Sources = append(out.Sources, src)
	}
	return out
}
