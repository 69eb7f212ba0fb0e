// Package backend is the HTTP client of the Asistente Handling API, the
// production answer engine.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"asesor/internal/domain"
)

const (
	chatPath      = "/api/articulos/search/chat"
	companiesPath = "/api/companies"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %s: %s", e.Status, e.Detail)
	}
	return "backend returned " + e.Status
}

// ErrStatus matches any *StatusError with errors.Is.
var ErrStatus = errors.New("backend status error")

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// HistoryMessage is one prior turn sent along with a question.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/articulos/search/chat.
type ChatRequest struct {
	Query       string              `json:"query"`
	History     []HistoryMessage    `json:"history"`
	CompanySlug string              `json:"company_slug,omitempty"`
	UserContext *domain.UserContext `json:"user_context,omitempty"`
}

// ChatSource is a citation as returned by the backend.
type ChatSource struct {
	DocumentID string `json:"document_id,omitempty"`
	ArticleRef string `json:"article_ref,omitempty"`
	Content    string `json:"content"`
}

// ChatResponse is the body the chat endpoint answers with.
type ChatResponse struct {
	Answer  string       `json:"answer"`
	Sources []ChatSource `json:"sources"`
}

type companyDTO struct {
	ID    json.RawMessage `json:"id"`
	Slug  string          `json:"slug"`
	Name  string          `json:"name"`
	Color string          `json:"color"`
}

// Config configures the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// MaxBackoff caps the wait between attempts; zero means DefaultMaxBackoff.
	MaxBackoff time.Duration
	HTTPClient *http.Client
}

// Client talks to the backend over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	maxBackoff time.Duration
	logger     zerolog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base URL is empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("backend base URL %q must start with http:// or https://", base)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		t := cfg.Timeout
		if t == 0 {
			t = 60 * time.Second
		}
		hc = &http.Client{Timeout: t}
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	limit := cfg.MaxBackoff
	if limit <= 0 {
		limit = DefaultMaxBackoff
	}
	return &Client{baseURL: base, client: hc, maxRetries: retries, maxBackoff: limit, logger: logger}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Chat sends a question with its history and returns the backend's answer.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.History == nil {
		req.History = []HistoryMessage{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	payload, err := c.do(ctx, http.MethodPost, chatPath, body)
	if err != nil {
		return nil, err
	}
	var out ChatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if out.Answer == "" {
		return nil, errors.New("decode chat response: empty answer")
	}
	return &out, nil
}

// Companies lists the companies known to the backend.
func (c *Client) Companies(ctx context.Context) ([]domain.Company, error) {
	payload, err := c.do(ctx, http.MethodGet, companiesPath, nil)
	if err != nil {
		return nil, err
	}
	var dtos []companyDTO
	if err := json.Unmarshal(payload, &dtos); err != nil {
		return nil, fmt.Errorf("decode companies: %w", err)
	}
	out := make([]domain.Company, 0, len(dtos))
	for _, d := range dtos {
		id := d.Slug
		if id == "" {
			// The id may be a string slug or a numeric key; only slugs are selectable.
			_ = json.Unmarshal(d.ID, &id)
		}
		if id == "" {
			continue
		}
		out = append(out, domain.Company{ID: id, Name: d.Name, Color: d.Color})
	}
	return out, nil
}

// do performs a request, retrying transport errors, 429 and 5xx responses
// with capped exponential backoff.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug().Int("attempt", attempt).Str("url", url).Err(lastErr).Msg("retrying backend request")
		}
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt < c.maxRetries && sleep(ctx, backoff(attempt, "", c.maxBackoff)) == nil {
				continue
			}
			return nil, err
		}

		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = statusError(resp, payload)
			if attempt < c.maxRetries {
				if err := sleep(ctx, backoff(attempt, resp.Header.Get("Retry-After"), c.maxBackoff)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp, payload)
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return payload, nil
	}
	return nil, lastErr
}

// statusError extracts the FastAPI-style {"detail": ...} message when present.
func statusError(resp *http.Response, payload []byte) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	var body struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(payload, &body) == nil {
		if s, ok := body.Detail.(string); ok {
			e.Detail = s
		}
	}
	return e
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultMaxBackoff bounds every wait between attempts, including one
// requested by the server through Retry-After, unless Config overrides it.
const DefaultMaxBackoff = 5 * time.Second

// backoff returns the wait before retry number attempt+1: the server's
// Retry-After seconds when parseable, otherwise 200ms doubled per attempt.
// The result never exceeds limit.
func backoff(attempt int, retryAfter string, limit time.Duration) time.Duration {
	d := 200 * time.Millisecond << min(max(attempt, 0), 8)
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil {
		d = time.Duration(max(secs, 0)) * time.Second
	}
	return min(d, limit)
}
