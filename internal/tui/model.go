package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asesor/internal/domain"
	"asesor/internal/textnorm"
)

// Options configures a chat session.
type Options struct {
	Assistant domain.Assistant
	Companies []domain.Company
	// Company preselects a registry entry by ID; empty starts without one.
	Company string
	Profile domain.UserContext
	Timeout time.Duration
	Logger  zerolog.Logger
}

// answerMsg carries an assistant reply back into the update loop. session
// guards against replies that arrive after the transcript was reset.
type answerMsg struct {
	session string
	answer  domain.Answer
}

// Model is the Bubble Tea model of one chat session.
type Model struct {
	assistant domain.Assistant
	companies []domain.Company
	profile   *domain.UserContext
	timeout   time.Duration
	logger    zerolog.Logger

	session  string
	company  int // index into companies, -1 for none
	notice   string
	messages []domain.Message
	pending  bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	ready    bool
}

// New creates a chat session model.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}
	m := Model{
		assistant: opts.Assistant,
		companies: opts.Companies,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		company:   -1,
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    "Tab cambia de empresa · /empresa <id> · /limpiar · Ctrl+C para salir",
	}
	if !opts.Profile.IsZero() {
		p := opts.Profile
		m.profile = &p
	}
	m.reset()
	if opts.Company != "" {
		if i := m.findCompany(opts.Company); i >= 0 {
			m.selectCompany(i)
		} else {
			m.status = fmt.Sprintf("Empresa desconocida: %s", opts.Company)
		}
	}
	m.updatePlaceholder()
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and assistant events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and badge, status, input box, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		if msg.session != m.session {
			return m, nil
		}
		m.pending = false
		m.messages = append(m.messages, domain.Message{
			Role:    domain.RoleAssistant,
			Content: msg.answer.Answer,
			Sources: msg.answer.Sources,
		})
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyTab:
			if len(m.companies) > 0 {
				m.selectCompany((m.company + 1) % len(m.companies))
				m.refresh()
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if strings.HasPrefix(text, "/") {
				m.input.SetValue("")
				return m.command(text)
			}
			if m.pending {
				return m, nil
			}
			m.input.SetValue("")
			m.messages = append(m.messages, domain.Message{Role: domain.RoleUser, Content: text})
			m.pending = true
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask())
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Asesor Handling") +
		"  " + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("("+m.assistant.Name()+")")
	status := m.status
	if m.pending {
		status = m.spinner.View() + " Consultando la normativa..."
	}
	return header + "\n" +
		m.badge() + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) ask() tea.Cmd {
	q := domain.Query{
		Messages:    append([]domain.Message(nil), m.messages...),
		CompanyID:   m.companyID(),
		UserContext: m.profile,
	}
	assistant, timeout, session, logger := m.assistant, m.timeout, m.session, m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		ans := assistant.Ask(ctx, q)
		logger.Debug().
			Str("session", session).
			Str("company", q.CompanyID).
			Int("sources", len(ans.Sources)).
			Dur("took", time.Since(start)).
			Msg("answer received")
		return answerMsg{session: session, answer: ans}
	}
}

func (m Model) command(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/empresa":
		if len(fields) == 1 {
			m.company = -1
			m.reset()
			m.status = "Sin empresa: solo Estatuto y jurisprudencia"
			break
		}
		i := m.findCompany(fields[1])
		if i < 0 {
			m.status = fmt.Sprintf("Empresa desconocida: %s", fields[1])
			break
		}
		m.selectCompany(i)
	case "/limpiar":
		m.reset()
		m.status = "Conversación borrada"
	case "/salir":
		return m, tea.Quit
	default:
		m.status = "Comandos: /empresa [id], /limpiar, /salir"
	}
	m.updatePlaceholder()
	m.refresh()
	return m, nil
}

// selectCompany switches company and starts a fresh transcript.
func (m *Model) selectCompany(i int) {
	m.company = i
	m.reset()
	c := m.companies[i]
	m.notice = fmt.Sprintf("Cargando normativa de %s... Todo listo. ¿Qué quieres saber?", c.Name)
	m.status = "Empresa: " + c.Name
	m.updatePlaceholder()
}

// reset clears the transcript and opens a new session; answers still in
// flight for the old session are dropped.
func (m *Model) reset() {
	m.session = uuid.NewString()
	m.messages = nil
	m.pending = false
	m.notice = ""
	m.logger.Debug().Str("session", m.session).Str("company", m.companyID()).Msg("session started")
}

func (m *Model) updatePlaceholder() {
	if m.company >= 0 {
		m.input.Placeholder = fmt.Sprintf("Pregunta sobre %s...", m.companies[m.company].Name)
	} else {
		m.input.Placeholder = "Pregunta sobre el Estatuto de los Trabajadores..."
	}
}

func (m Model) findCompany(id string) int {
	id = strings.ToLower(strings.TrimSpace(id))
	for i, c := range m.companies {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) companyID() string {
	if m.company < 0 {
		return ""
	}
	return m.companies[m.company].ID
}

func (m Model) badge() string {
	if m.company < 0 {
		return badgeStyle.Background(lipgloss.Color("8")).Render("Sin empresa")
	}
	c := m.companies[m.company]
	color := c.Color
	if color == "" {
		color = "4"
	}
	return badgeStyle.Background(lipgloss.Color(color)).Render(c.Name)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	if m.notice != "" {
		b.WriteString(assistantStyle.Render("Asesor: ") + m.notice + "\n\n")
	}
	if m.notice == "" && len(m.messages) == 0 {
		b.WriteString(hintStyle.Render("Haz una pregunta sobre vacaciones, jornada, despidos, salarios..."))
		return b.String()
	}
	lastQuestion := ""
	for _, msg := range m.messages {
		if msg.Role == domain.RoleUser {
			lastQuestion = msg.Content
			b.WriteString(userStyle.Render("Tú: ") + msg.Content + "\n\n")
			continue
		}
		b.WriteString(assistantStyle.Render("Asesor: ") + msg.Content + "\n")
		for _, s := range msg.Sources {
			b.WriteString(sourceStyle.Render(fmt.Sprintf("  ▸ %s · %s", s.Category, s.Topic)) + "\n")
			b.WriteString("    " + highlightBestSentence(s.Content, lastQuestion) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	badgeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	wordRe             = regexp.MustCompile(`[\p{L}\p{N}]+`)
	sentenceRe         = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// highlightBestSentence emphasises the sentence of text sharing the most
// words with query. Accents and case are ignored when comparing.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(trimAll(sentences), " ")
	}
	bestIdx := 0
	bestScore := 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	out := trimAll(sentences)
	if bestScore > 0 {
		out[bestIdx] = highlightStyle.Render(out[bestIdx])
	}
	return strings.Join(out, " ")
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(textnorm.Fold(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if len([]rune(t)) > 2 {
			m[t] = struct{}{}
		}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := wordRe.FindAllString(textnorm.Fold(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
