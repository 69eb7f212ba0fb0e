// Package relevance scores knowledge-base articles against query terms.
package relevance

import (
	"strings"
	"unicode/utf8"

	"asesor/internal/domain"
	"asesor/internal/textnorm"
)

// Weights tunes how the field sub-scores combine into a total.
type Weights struct {
	Content      float64 `yaml:"content"`
	Title        float64 `yaml:"title"`
	Tags         float64 `yaml:"tags"`
	TitleBoost   float64 `yaml:"title_boost"`
	LimitPenalty float64 `yaml:"limit_penalty"`
}

// DefaultWeights returns the weights the assistant ships with.
func DefaultWeights() Weights {
	return Weights{Content: 1, Title: 2, Tags: 1.5, TitleBoost: 3, LimitPenalty: 5}
}

// Breakdown is the per-field contribution to one article's score.
type Breakdown struct {
	Content float64
	Title   float64
	Tags    float64
	Penalty float64
	Boosted bool
	Total   float64
}

var (
	// Case-law and anti-fraud articles outrank plain statute text.
	boostTitleMarkers = []string{"jurisprudencia"}
	boostTagMarkers   = []string{"fraude"}

	// Questions about ceilings should not be answered with minimum guarantees.
	limitQueryMarkers = []string{"maximo", "mas de", "limite"}
	limitTitleMarkers = []string{"garantia"}
)

// Scorer computes relevance scores. The zero value is not usable; use New.
type Scorer struct {
	weights Weights
}

// New returns a scorer with the given weights.
func New(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// FieldScore awards one point per term contained in the folded text and one
// more when that term is longer than three characters.
func FieldScore(text string, terms []string) float64 {
	if len(terms) == 0 || text == "" {
		return 0
	}
	folded := textnorm.Fold(text)
	score := 0.0
	for _, term := range terms {
		if !strings.Contains(folded, term) {
			continue
		}
		score++
		if utf8.RuneCountInString(term) > 3 {
			score++
		}
	}
	return score
}

// Score rates a candidate for the given terms. normalizedQuery is the
// expanded query the terms were taken from; contextual penalties inspect it.
func (s *Scorer) Score(c domain.Candidate, terms []string, normalizedQuery string) Breakdown {
	a := c.Article
	b := Breakdown{
		Content: FieldScore(a.Content, terms) * s.weights.Content,
		Title:   FieldScore(a.Title, terms) * s.weights.Title,
	}
	if len(a.Tags) > 0 {
		b.Tags = FieldScore(strings.Join(a.Tags, " "), terms) * s.weights.Tags
	}

	title := textnorm.Fold(a.Title)
	if containsAny(title, boostTitleMarkers) || anyTagContains(a.Tags, boostTagMarkers) {
		b.Title *= s.weights.TitleBoost
		b.Boosted = true
	}
	if containsAny(normalizedQuery, limitQueryMarkers) && containsAny(title, limitTitleMarkers) {
		b.Penalty = s.weights.LimitPenalty
	}

	b.Total = b.Content + b.Title + b.Tags - b.Penalty
	return b
}

func anyTagContains(tags []string, markers []string) bool {
	for _, t := range tags {
		if containsAny(textnorm.Fold(t), markers) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
