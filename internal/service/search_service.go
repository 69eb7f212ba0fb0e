package service

import (
	"sort"

	"github.com/rs/zerolog"

	"asesor/internal/domain"
	"asesor/internal/relevance"
	"asesor/internal/textnorm"
)

const (
	// MinScore is the lowest top score that still counts as a match.
	MinScore = 1.0

	NotFoundMessage = "Lo siento, he leído los documentos de tu empresa y el Estatuto, pero no encuentro ningún artículo que hable específicamente de eso."
	answerPrefix    = "He encontrado esto en la normativa:\n\n"
)

// CandidateSource builds the candidate pool for a company selection.
type CandidateSource interface {
	Pool(companyID string) []domain.Candidate
}

// Ranked is a candidate together with how its score was obtained.
type Ranked struct {
	Candidate domain.Candidate
	Breakdown relevance.Breakdown
}

// Score returns the total relevance score.
func (r Ranked) Score() float64 { return r.Breakdown.Total }

// SearchService answers questions from the static knowledge base by keyword
// relevance. It holds no mutable state.
type SearchService struct {
	pool       CandidateSource
	normalizer *textnorm.Normalizer
	scorer     *relevance.Scorer
	logger     zerolog.Logger
}

func NewSearchService(pool CandidateSource, normalizer *textnorm.Normalizer, scorer *relevance.Scorer, logger zerolog.Logger) *SearchService {
	return &SearchService{pool: pool, normalizer: normalizer, scorer: scorer, logger: logger}
}

// Rank scores every candidate for the company and sorts them by descending
// score. Equal scores keep pool order: global articles in corpus order, then
// the company's articles.
func (s *SearchService) Rank(query, companyID string) []Ranked {
	q := s.normalizer.Terms(query)
	candidates := s.pool.Pool(companyID)
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Candidate: c, Breakdown: s.scorer.Score(c, q.Terms, q.Normalized)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score() > ranked[j].Score() })

	if e := s.logger.Debug(); e.Enabled() {
		top := ranked
		if len(top) > 3 {
			top = top[:3]
		}
		arr := zerolog.Arr()
		for _, r := range top {
			arr.Dict(zerolog.Dict().Str("id", r.Candidate.Article.ID).Float64("score", r.Score()))
		}
		e.Strs("terms", q.Terms).Str("company", companyID).Int("pool", len(candidates)).Array("top", arr).Msg("ranked candidates")
	}
	return ranked
}

// Search returns the best matching article wrapped as an answer, or the
// fixed not-found answer when nothing scores at least MinScore.
func (s *SearchService) Search(query, companyID string) domain.Answer {
	ranked := s.Rank(query, companyID)
	if len(ranked) == 0 || ranked[0].Score() < MinScore {
		return NotFound()
	}
	return Shape(ranked[0].Candidate)
}

// Shape wraps the winning article in the answer template.
func Shape(c domain.Candidate) domain.Answer {
	return domain.Answer{
		Answer: answerPrefix + "\"" + c.Article.Content + "\"",
		Sources: []domain.Source{{
			Category: c.SourceName,
			Topic:    c.Article.Title,
			Content:  c.Article.Content,
		}},
	}
}

// NotFound is the answer given when no article is relevant enough.
func NotFound() domain.Answer {
	return domain.Answer{Answer: NotFoundMessage, Sources: []domain.Source{}}
}
