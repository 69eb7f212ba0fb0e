package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asesor/internal/backend"
	"asesor/internal/domain"
	"asesor/internal/knowledge"
	"asesor/internal/observability"
	"asesor/internal/relevance"
	"asesor/internal/service"
	"asesor/internal/textnorm"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	kb, err := knowledge.Builtin()
	require.NoError(t, err)

	search := service.NewSearchService(kb, textnorm.Default(), relevance.New(relevance.DefaultWeights()), observability.Nop())
	router := NewRouter(observability.Nop(), service.NewLocalAssistant(search, 0), kb.Directory(), Config{
		RequestTimeout: 5 * time.Second,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/api/articulos/search/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "local", body["assistant"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-Id"))
}

func TestChat(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantRef    string
		wantDoc    string
	}{
		{
			name:       "global article",
			body:       `{"query":"¿Cuántos días de vacaciones tengo?","history":[]}`,
			wantStatus: http.StatusOK,
			wantRef:    "Artículo 38. Vacaciones anuales",
			wantDoc:    knowledge.GlobalSourceName,
		},
		{
			name:       "company agreement",
			body:       `{"query":"billetes de avion con descuento","history":[{"role":"user","content":"hola"}],"company_slug":"iberia"}`,
			wantStatus: http.StatusOK,
			wantDoc:    "Convenio Iberia",
		},
		{
			name:       "empty query",
			body:       `{"query":"   ","history":[]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"query":`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postChat(t, srv.URL, tc.body)
			require.Equal(t, tc.wantStatus, resp.StatusCode)

			if tc.wantStatus != http.StatusOK {
				assert.NotEmpty(t, body["detail"])
				return
			}
			sources, ok := body["sources"].([]any)
			require.True(t, ok)
			require.Len(t, sources, 1)
			src := sources[0].(map[string]any)
			assert.Equal(t, tc.wantDoc, src["document_id"])
			if tc.wantRef != "" {
				assert.Equal(t, tc.wantRef, src["article_ref"])
			}
			assert.Contains(t, body["answer"], src["content"])
		})
	}
}

func TestChat_BodyTooLarge(t *testing.T) {
	kb, err := knowledge.Builtin()
	require.NoError(t, err)
	search := service.NewSearchService(kb, textnorm.Default(), relevance.New(relevance.DefaultWeights()), observability.Nop())
	h := NewHandler(observability.Nop(), service.NewLocalAssistant(search, 0), kb.Directory())

	body := `{"query":"vacaciones","history":[{"role":"user","content":"` + strings.Repeat("a", maxChatBody) + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/articulos/search/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var out map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "request body too large", out["detail"])
}

func TestChat_NotFoundHasEmptySources(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postChat(t, srv.URL, `{"query":"xyzzy plugh","history":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.NotFoundMessage, body["answer"])
	assert.Equal(t, []any{}, body["sources"])
}

func TestCompanies(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/companies")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []CompanyDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 6)
	assert.Equal(t, "azul", got[0].Slug)
	assert.Equal(t, got[0].ID, got[0].Slug)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/articulos/search/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

// The remote assistant talking to the offline server must give the same
// answer as the local search.
func TestRoundTripThroughBackendClient(t *testing.T) {
	srv := newTestServer(t)

	client, err := backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, observability.Nop())
	require.NoError(t, err)

	companies, err := client.Companies(context.Background())
	require.NoError(t, err)
	assert.Len(t, companies, 6)

	remote := backend.NewRemoteAssistant(client, observability.Nop(), true)
	ans := remote.Ask(context.Background(), domain.Query{
		Messages:  []domain.Message{{Role: domain.RoleUser, Content: "me echan del trabajo"}},
		CompanyID: "azul",
	})

	require.Len(t, ans.Sources, 1)
	assert.Equal(t, knowledge.GlobalSourceName, ans.Sources[0].Category)
	assert.Equal(t, "Artículo 56. Despido improcedente", ans.Sources[0].Topic)
	assert.True(t, strings.HasPrefix(ans.Answer, "He encontrado esto en la normativa:"))
}
