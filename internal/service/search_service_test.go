package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asesor/internal/domain"
	"asesor/internal/knowledge"
	"asesor/internal/observability"
	"asesor/internal/relevance"
	"asesor/internal/textnorm"
)

func newBuiltinService(t *testing.T) *SearchService {
	t.Helper()
	kb, err := knowledge.Builtin()
	require.NoError(t, err)
	return NewSearchService(kb, textnorm.Default(), relevance.New(relevance.DefaultWeights()), observability.Nop())
}

type staticPool []domain.Candidate

func (p staticPool) Pool(string) []domain.Candidate { return p }

func TestSearch_HolidaysWithoutCompany(t *testing.T) {
	svc := newBuiltinService(t)

	ans := svc.Search("¿Cuántos días de vacaciones tengo?", "")

	require.Len(t, ans.Sources, 1)
	assert.Equal(t, knowledge.GlobalSourceName, ans.Sources[0].Category)
	assert.Equal(t, "Artículo 38. Vacaciones anuales", ans.Sources[0].Topic)
	assert.Equal(t, "He encontrado esto en la normativa:\n\n\""+ans.Sources[0].Content+"\"", ans.Answer)
}

func TestSearch_DismissalWithCompany(t *testing.T) {
	svc := newBuiltinService(t)

	ans := svc.Search("me echan del trabajo", "azul")

	require.Len(t, ans.Sources, 1)
	src := ans.Sources[0]
	assert.Equal(t, "Estatuto de los Trabajadores / Jurisprudencia", src.Category)
	assert.Equal(t, "Artículo 56. Despido improcedente", src.Topic)
	assert.Contains(t, ans.Answer, src.Content)
}

func TestSearch_NoMatch(t *testing.T) {
	svc := newBuiltinService(t)

	for _, company := range []string{"", "azul", "iberia", "menzies", "desconocida"} {
		t.Run("company="+company, func(t *testing.T) {
			ans := svc.Search("xyzzy plugh", company)
			assert.Equal(t, NotFoundMessage, ans.Answer)
			assert.NotNil(t, ans.Sources)
			assert.Empty(t, ans.Sources)
		})
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := newBuiltinService(t)

	for _, r := range svc.Rank("", "azul") {
		assert.Zero(t, r.Score(), r.Candidate.Article.ID)
	}
	assert.Equal(t, NotFound(), svc.Search("  ¿? ", "azul"))
}

func TestSearch_CompanyWithoutAgreementFallsBackToGlobal(t *testing.T) {
	svc := newBuiltinService(t)

	ranked := svc.Rank("jornada horas", "menzies")
	require.Len(t, ranked, 9)
	for _, r := range ranked {
		assert.Equal(t, knowledge.GlobalSourceName, r.Candidate.SourceName)
	}
	assert.Equal(t, svc.Search("jornada horas", ""), svc.Search("jornada horas", "menzies"))
}

func TestSearch_CompanyArticleCanWin(t *testing.T) {
	svc := newBuiltinService(t)

	ans := svc.Search("billetes de avion con descuento", "iberia")
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "Convenio Iberia", ans.Sources[0].Category)
	assert.Equal(t, "Billetes con descuento", ans.Sources[0].Topic)

	assert.Equal(t, NotFoundMessage, svc.Search("billetes de avion con descuento", "azul").Answer)
}

func TestRank_TiesKeepPoolOrder(t *testing.T) {
	pool := staticPool{
		{Article: domain.Article{ID: "first", Title: "Permiso", Content: "x"}, SourceName: "A"},
		{Article: domain.Article{ID: "second", Title: "Permiso", Content: "x"}, SourceName: "B"},
		{Article: domain.Article{ID: "best", Title: "Permiso retribuido", Content: "permiso"}, SourceName: "C"},
		{Article: domain.Article{ID: "third", Title: "Permiso", Content: "x"}, SourceName: "D"},
	}
	svc := NewSearchService(pool, textnorm.Default(), relevance.New(relevance.DefaultWeights()), observability.Nop())

	ranked := svc.Rank("permiso retribuido", "")
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Candidate.Article.ID
	}
	assert.Equal(t, []string{"best", "first", "second", "third"}, ids)
}

func TestSearch_ThresholdAndEmptyPool(t *testing.T) {
	n := textnorm.Default()
	s := relevance.New(relevance.DefaultWeights())

	empty := NewSearchService(staticPool{}, n, s, observability.Nop())
	assert.Equal(t, NotFound(), empty.Search("vacaciones", ""))

	penalised := NewSearchService(staticPool{
		{Article: domain.Article{ID: "g", Title: "Garantía", Content: "horas"}, SourceName: "X"},
	}, n, s, observability.Nop())
	ranked := penalised.Rank("maximo de horas", "")
	require.Len(t, ranked, 1)
	assert.Less(t, ranked[0].Score(), MinScore)
	assert.Equal(t, NotFoundMessage, penalised.Search("maximo de horas", "").Answer)
}

func TestLocalAssistant_Ask(t *testing.T) {
	svc := newBuiltinService(t)
	a := NewLocalAssistant(svc, 0)

	q := domain.Query{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "hola"},
			{Role: domain.RoleAssistant, Content: "¿En qué te ayudo?"},
			{Role: domain.RoleUser, Content: "me echan del trabajo"},
		},
		CompanyID: "azul",
	}
	ans := a.Ask(context.Background(), q)
	assert.Equal(t, svc.Search("me echan del trabajo", "azul"), ans)
	assert.Equal(t, "local", a.Name())
}

func TestLocalAssistant_LatencyHonoursCancellation(t *testing.T) {
	a := NewLocalAssistant(newBuiltinService(t), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan domain.Answer, 1)
	go func() {
		done <- a.Ask(ctx, domain.Query{Messages: []domain.Message{{Role: domain.RoleUser, Content: "vacaciones"}}})
	}()

	select {
	case ans := <-done:
		assert.Len(t, ans.Sources, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after cancellation")
	}
}
