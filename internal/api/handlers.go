package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"asesor/internal/backend"
	"asesor/internal/domain"
)

// maxChatBody limits a chat request, history included.
const maxChatBody = 1 << 20

// Handler serves the backend contract on top of an Assistant.
type Handler struct {
	logger    zerolog.Logger
	assistant domain.Assistant
	companies domain.CompanyDirectory
}

func NewHandler(logger zerolog.Logger, assistant domain.Assistant, companies domain.CompanyDirectory) *Handler {
	return &Handler{logger: logger, assistant: assistant, companies: companies}
}

// CompanyDTO is one entry of GET /api/companies.
type CompanyDTO struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"assistant": h.assistant.Name(),
	})
}

// Companies handles GET /api/companies.
func (h *Handler) Companies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.Companies(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list companies failed")
		h.writeError(w, http.StatusInternalServerError, "could not list companies")
		return
	}
	out := make([]CompanyDTO, 0, len(companies))
	for _, c := range companies {
		out = append(out, CompanyDTO{ID: c.ID, Slug: c.ID, Name: c.Name, Color: c.Color})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// Chat handles POST /api/articulos/search/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req backend.ChatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	q := domain.Query{
		Messages:    make([]domain.Message, 0, len(req.History)+1),
		CompanyID:   req.CompanySlug,
		UserContext: req.UserContext,
	}
	for _, m := range req.History {
		q.Messages = append(q.Messages, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}
	q.Messages = append(q.Messages, domain.Message{Role: domain.RoleUser, Content: req.Query})

	ans := h.assistant.Ask(r.Context(), q)

	resp := backend.ChatResponse{Answer: ans.Answer, Sources: make([]backend.ChatSource, 0, len(ans.Sources))}
	for _, s := range ans.Sources {
		resp.Sources = append(resp.Sources, backend.ChatSource{
			DocumentID: s.Category,
			ArticleRef: s.Topic,
			Content:    s.Content,
		})
	}
	h.logger.Debug().
		Str("company", req.CompanySlug).
		Int("history", len(req.History)).
		Int("sources", len(resp.Sources)).
		Msg("chat answered")
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("write response failed")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}
