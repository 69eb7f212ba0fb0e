// Package textnorm turns free-form Spanish questions into matchable terms.
package textnorm

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SynonymRule appends Expansion to a query that contains any of Triggers.
type SynonymRule struct {
	Triggers  []string
	Expansion string
}

// Query is the result of preparing a raw question for scoring.
type Query struct {
	// Normalized is the folded, punctuation-free query with synonym
	// expansions appended. Contextual scoring rules look at it.
	Normalized string
	Terms      []string
}

// Normalizer holds the stopword and synonym tables. It is immutable and safe
// for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
	synonyms  []SynonymRule
}

// New builds a normalizer from the given tables. The tables are copied.
func New(stopwords []string, synonyms []SynonymRule) *Normalizer {
	sw := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		sw[Fold(w)] = struct{}{}
	}
	rules := make([]SynonymRule, 0, len(synonyms))
	for _, r := range synonyms {
		triggers := make([]string, len(r.Triggers))
		for i, t := range r.Triggers {
			triggers[i] = Fold(t)
		}
		rules = append(rules, SynonymRule{Triggers: triggers, Expansion: Fold(r.Expansion)})
	}
	return &Normalizer{stopwords: sw, synonyms: rules}
}

// Default returns a normalizer wired with the Spanish tables.
func Default() *Normalizer {
	return New(DefaultStopwords(), DefaultSynonyms())
}

var punctuation = strings.NewReplacer("¿", "", "?", "", "¡", "", "!", "", ".", "", ",", "")

// Normalize folds s and strips question/exclamation marks, dots and commas.
func (n *Normalizer) Normalize(s string) string {
	return strings.TrimFunc(punctuation.Replace(Fold(s)), isSpace)
}

// Expand appends the expansion of every synonym rule triggered by the
// normalized string. Rules fire independently, in table order.
func (n *Normalizer) Expand(normalized string) string {
	out := normalized
	for _, r := range n.synonyms {
		if containsAny(normalized, r.Triggers) {
			out += " " + r.Expansion
		}
	}
	return out
}

// Terms normalizes and expands raw, then keeps the tokens that are not
// stopwords and are either longer than two characters or numeric.
func (n *Normalizer) Terms(raw string) Query {
	expanded := n.Expand(n.Normalize(raw))
	fields := strings.FieldsFunc(expanded, isSpace)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := n.stopwords[f]; stop {
			continue
		}
		if utf8.RuneCountInString(f) > 2 || isNumber(f) {
			terms = append(terms, f)
		}
	}
	return Query{Normalized: expanded, Terms: terms}
}

// IsStopword reports whether the folded form of w is in the stopword table.
func (n *Normalizer) IsStopword(w string) bool {
	_, ok := n.stopwords[Fold(w)]
	return ok
}

// Fold lowercases s and removes combining diacritical marks, so "Días"
// becomes "dias" and "Garantía" becomes "garantia".
func Fold(s string) string {
	// transform.Chain keeps internal buffers, so each call gets its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isCombiningMark)))
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// isSpace also treats U+FEFF (byte order mark) as blank; pasted text often
// starts with one.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// U+0300..U+036F, the Combining Diacritical Marks block.
func isCombiningMark(r rune) bool {
	return r >= 0x0300 && r <= 0x036f
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f)
}
