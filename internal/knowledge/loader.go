package knowledge

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"asesor/internal/domain"
)

// ErrInvalidDocument is wrapped by every validation failure of Load.
var ErrInvalidDocument = errors.New("invalid knowledge document")

//go:embed data
var builtinData embed.FS

const documentsDir = "documents"

type articleFile struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	Content string   `json:"content" yaml:"content"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type documentFile struct {
	ID        string        `json:"id" yaml:"id"`
	Title     string        `json:"title" yaml:"title"`
	Scope     string        `json:"scope" yaml:"scope"`
	CompanyID string        `json:"company_id,omitempty" yaml:"company_id,omitempty"`
	Articles  []articleFile `json:"articles" yaml:"articles"`
}

type companyFile struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

var builtin = sync.OnceValues(func() (*Base, error) {
	sub, err := fs.Sub(builtinData, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
})

// Builtin returns the corpus compiled into the binary. It is parsed once and
// shared by every caller.
func Builtin() (*Base, error) {
	return builtin()
}

// LoadDir loads a corpus laid out on disk like the built-in one.
func LoadDir(dir string) (*Base, error) {
	return Load(os.DirFS(dir))
}

// Load reads an optional companies file (companies.json|yaml|yml) and every
// JSON or YAML file under documents/, then validates the result.
func Load(fsys fs.FS) (*Base, error) {
	companies, err := loadCompanies(fsys)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(fsys, documentsDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", documentsDir, err)
	}

	b := &Base{companies: companies, byCompany: make(map[string]domain.LegalDocument)}
	seenDocs := make(map[string]string)
	seenArticles := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isDataFile(e.Name()) {
			continue
		}
		name := path.Join(documentsDir, e.Name())
		var df documentFile
		if err := decodeFile(fsys, name, &df); err != nil {
			return nil, err
		}
		doc, err := toDocument(df)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seenDocs[doc.ID]; dup {
			return nil, fmt.Errorf("%w: document %q declared in %s and %s", ErrInvalidDocument, doc.ID, prev, name)
		}
		seenDocs[doc.ID] = name
		for _, a := range doc.Articles {
			if prev, dup := seenArticles[a.ID]; dup {
				return nil, fmt.Errorf("%w: article %q belongs to %s and %s", ErrInvalidDocument, a.ID, prev, doc.ID)
			}
			seenArticles[a.ID] = doc.ID
		}

		switch doc.Scope {
		case domain.ScopeGlobal:
			b.global = append(b.global, doc)
		case domain.ScopeCompany:
			if prev, dup := b.byCompany[doc.CompanyID]; dup {
				return nil, fmt.Errorf("%w: company %q has two agreements (%s, %s)", ErrInvalidDocument, doc.CompanyID, prev.ID, doc.ID)
			}
			b.byCompany[doc.CompanyID] = doc
		}
		b.articles += len(doc.Articles)
	}
	if len(seenDocs) == 0 {
		return nil, errors.New("no knowledge documents found")
	}
	return b, nil
}

func toDocument(df documentFile) (domain.LegalDocument, error) {
	doc := domain.LegalDocument{
		ID:        strings.TrimSpace(df.ID),
		Title:     strings.TrimSpace(df.Title),
		Scope:     domain.Scope(strings.ToLower(strings.TrimSpace(df.Scope))),
		CompanyID: CanonicalCompanyID(df.CompanyID),
	}
	if doc.ID == "" {
		return doc, fmt.Errorf("%w: missing document id", ErrInvalidDocument)
	}
	switch doc.Scope {
	case domain.ScopeGlobal:
		if doc.CompanyID != "" {
			return doc, fmt.Errorf("%w: global document %q must not name a company", ErrInvalidDocument, doc.ID)
		}
	case domain.ScopeCompany:
		if doc.CompanyID == "" {
			return doc, fmt.Errorf("%w: company document %q has no company_id", ErrInvalidDocument, doc.ID)
		}
	default:
		return doc, fmt.Errorf("%w: document %q has unknown scope %q", ErrInvalidDocument, doc.ID, df.Scope)
	}

	doc.Articles = make([]domain.Article, 0, len(df.Articles))
	for i, af := range df.Articles {
		a := domain.Article{
			ID:      strings.TrimSpace(af.ID),
			Title:   strings.TrimSpace(af.Title),
			Content: strings.TrimSpace(af.Content),
			Tags:    af.Tags,
		}
		if a.ID == "" {
			return doc, fmt.Errorf("%w: article #%d of %q has no id", ErrInvalidDocument, i, doc.ID)
		}
		if a.Content == "" {
			return doc, fmt.Errorf("%w: article %q has no content", ErrInvalidDocument, a.ID)
		}
		doc.Articles = append(doc.Articles, a)
	}
	return doc, nil
}

func loadCompanies(fsys fs.FS) ([]domain.Company, error) {
	for _, name := range []string{"companies.json", "companies.yaml", "companies.yml"} {
		if _, err := fs.Stat(fsys, name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		var files []companyFile
		if err := decodeFile(fsys, name, &files); err != nil {
			return nil, err
		}
		out := make([]domain.Company, 0, len(files))
		seen := make(map[string]bool)
		for _, f := range files {
			id := CanonicalCompanyID(f.ID)
			if id == "" || seen[id] {
				return nil, fmt.Errorf("%w: %s: empty or duplicate company id %q", ErrInvalidDocument, name, f.ID)
			}
			seen[id] = true
			out = append(out, domain.Company{ID: id, Name: f.Name, Color: f.Color})
		}
		return out, nil
	}
	return nil, nil
}

func decodeFile(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		err = json.Unmarshal(data, v)
	default:
		err = yaml.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func isDataFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func sortedKeys(m map[string]domain.LegalDocument) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
