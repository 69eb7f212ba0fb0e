// Package knowledge holds the static legal corpus the local assistant
// searches: the statute and case-law excerpts every company shares, plus one
// collective agreement per handling company.
package knowledge

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"asesor/internal/domain"
)

// GlobalSourceName is the citation category of every global article.
const GlobalSourceName = "Estatuto de los Trabajadores / Jurisprudencia"

// Base is an immutable, validated corpus. Every method is safe for
// concurrent use because nothing is written after Load returns.
type Base struct {
	companies []domain.Company
	global    []domain.LegalDocument
	byCompany map[string]domain.LegalDocument
	articles  int
}

// Companies returns the company registry in declaration order.
func (b *Base) Companies() []domain.Company {
	out := make([]domain.Company, len(b.companies))
	copy(out, b.companies)
	return out
}

// Directory exposes the registry as a domain.CompanyDirectory.
func (b *Base) Directory() domain.CompanyDirectory { return directory{b} }

type directory struct{ b *Base }

func (d directory) Companies(context.Context) ([]domain.Company, error) {
	return d.b.Companies(), nil
}

// Company looks up a registry entry by ID.
func (b *Base) Company(id string) (domain.Company, bool) {
	id = CanonicalCompanyID(id)
	for _, c := range b.companies {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Company{}, false
}

// HasAgreement reports whether a company-scoped document exists for id.
func (b *Base) HasAgreement(id string) bool {
	_, ok := b.byCompany[CanonicalCompanyID(id)]
	return ok
}

// Documents returns every document, global ones first.
func (b *Base) Documents() []domain.LegalDocument {
	out := make([]domain.LegalDocument, 0, len(b.global)+len(b.byCompany))
	out = append(out, b.global...)
	for _, c := range b.companies {
		if d, ok := b.byCompany[c.ID]; ok {
			out = append(out, d)
		}
	}
	for _, id := range sortedKeys(b.byCompany) {
		if _, known := b.Company(id); !known {
			out = append(out, b.byCompany[id])
		}
	}
	return out
}

// ArticleCount returns the number of articles across all documents.
func (b *Base) ArticleCount() int { return b.articles }

// Pool assembles the candidates eligible for a query. Global articles always
// come first, in corpus order. When companyID names a company with an
// agreement, that agreement's articles follow; otherwise the pool is
// global-only.
func (b *Base) Pool(companyID string) []domain.Candidate {
	pool := make([]domain.Candidate, 0, b.articles)
	for _, d := range b.global {
		for _, a := range d.Articles {
			pool = append(pool, domain.Candidate{Article: a, SourceName: GlobalSourceName})
		}
	}
	id := CanonicalCompanyID(companyID)
	if id == "" {
		return pool
	}
	d, ok := b.byCompany[id]
	if !ok {
		return pool
	}
	source := AgreementSourceName(id)
	for _, a := range d.Articles {
		pool = append(pool, domain.Candidate{Article: a, SourceName: source})
	}
	return pool
}

// AgreementSourceName is the citation category for a company's agreement:
// "Convenio " followed by the company ID with its first letter upper-cased.
func AgreementSourceName(companyID string) string {
	id := CanonicalCompanyID(companyID)
	r, size := utf8.DecodeRuneInString(id)
	if r == utf8.RuneError {
		return "Convenio"
	}
	return "Convenio " + string(unicode.ToUpper(r)) + id[size:]
}

// CanonicalCompanyID trims and lowercases a company slug.
func CanonicalCompanyID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
