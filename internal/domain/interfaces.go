package domain

import "context"

// Scope tells whether a legal document applies to every company or to one.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeCompany Scope = "company"
)

// Article is the atomic unit of legal or agreement text.
type Article struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

// LegalDocument groups the articles of one statute or collective agreement.
// CompanyID is set only for company-scoped documents.
type LegalDocument struct {
	ID        string
	Title     string
	Scope     Scope
	CompanyID string
	Articles  []Article
}

// Company is an entry of the handling company registry.
type Company struct {
	ID    string
	Name  string
	Color string
}

// Candidate is an article admitted to a query's candidate pool, annotated
// with the display name of the document it came from.
type Candidate struct {
	Article    Article
	SourceName string
}

// Source is a citation attached to an assistant answer.
type Source struct {
	Category string `json:"category"`
	Topic    string `json:"topic"`
	Content  string `json:"content"`
}

// Answer is what the assistant shows for one question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat transcript.
type Message struct {
	Role    Role
	Content string
	Sources []Source
}

// UserContext carries the job profile the backend uses to personalise answers.
type UserContext struct {
	JobGroup      string `json:"job_group,omitempty" yaml:"job_group"`
	SalaryLevel   string `json:"salary_level,omitempty" yaml:"salary_level"`
	ContractType  string `json:"contract_type,omitempty" yaml:"contract_type"`
	PreferredName string `json:"preferred_name,omitempty" yaml:"preferred_name"`
}

// IsZero reports whether no profile field is set.
func (u UserContext) IsZero() bool {
	return u == UserContext{}
}

// Query is a question asked in the context of a chat session. The last
// message is the question itself; earlier messages are the history.
type Query struct {
	Messages    []Message
	CompanyID   string
	UserContext *UserContext
}

// Question returns the content of the last message, or "" for an empty query.
func (q Query) Question() string {
	if len(q.Messages) == 0 {
		return ""
	}
	return q.Messages[len(q.Messages)-1].Content
}

// History returns every message except the last one.
func (q Query) History() []Message {
	if len(q.Messages) <= 1 {
		return nil
	}
	return q.Messages[:len(q.Messages)-1]
}

// Assistant answers questions. Implementations never surface raw errors in
// the answer text: failures become a fixed user-facing message.
type Assistant interface {
	Name() string
	Ask(ctx context.Context, q Query) Answer
}

// CompanyDirectory lists the companies a user can pick from.
type CompanyDirectory interface {
	Companies(ctx context.Context) ([]Company, error)
}
