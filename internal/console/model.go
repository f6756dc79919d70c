package console

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/constants"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/common"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pdftext"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

const previewChars = 160

// focusTarget is which input currently receives keystrokes.
type focusTarget int

const (
	focusTable focusTarget = iota
	focusDBPath
	focusFilePath
	focusPID
	focusOrder
)

// Deps are the external services the console needs.
type Deps struct {
	Extractor *pdftext.Extractor
	NER       *pseudo.NERClient
	// PseudoAvailable gates the commit action: without the NER service no
	// document may enter the database.
	PseudoAvailable bool
	Logger          *slog.Logger
}

type docRow struct {
	Path    string
	PID     string
	Order   string
	Preview string
	Status  constants.JobStatus
}

type extractDoneMsg struct {
	texts []string
	err   error
}

type pseudoStepMsg struct {
	index  int
	pseudo string
	err    error
}

type commitDoneMsg struct {
	committed int
	err       error
}

// Model is the bubbletea model for the intake console.
type Model struct {
	deps   Deps
	styles Styles

	dbPath    string
	dbInput   textinput.Model
	fileInput textinput.Model
	pidInput  textinput.Model
	ordInput  textinput.Model
	docTable  table.Model

	rows  []docRow
	focus focusTarget

	committing bool
	texts      []string
	pseudos    []string
	step       int

	status string
	errMsg string
}

// New builds the console model. dbPath may be empty.
func New(deps Deps, dbPath string) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	dbInput := textinput.New()
	dbInput.Placeholder = "path/to/database.csv"
	dbInput.CharLimit = 512
	dbInput.Width = 60
	dbInput.SetValue(dbPath)

	fileInput := textinput.New()
	fileInput.Placeholder = "path/to/report.pdf"
	fileInput.CharLimit = 512
	fileInput.Width = 60

	pidInput := textinput.New()
	pidInput.Placeholder = "patient id"
	pidInput.CharLimit = 64
	pidInput.Width = 20

	ordInput := textinput.New()
	ordInput.Placeholder = "order"
	ordInput.CharLimit = 8
	ordInput.Width = 8

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "File path", Width: 44},
			{Title: "PID", Width: 12},
			{Title: "ORDER", Width: 6},
			{Title: "Status", Width: 10},
			{Title: "Preview", Width: 40},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	status := "Ready."
	if !deps.PseudoAvailable {
		status = "Ready (pseudonymization service unavailable, commit disabled)."
	}

	return Model{
		deps:      deps,
		styles:    DefaultStyles(),
		dbPath:    dbPath,
		dbInput:   dbInput,
		fileInput: fileInput,
		pidInput:  pidInput,
		ordInput:  ordInput,
		docTable:  t,
		status:    status,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) refreshTable() {
	rows := make([]table.Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = table.Row{r.Path, r.PID, r.Order, string(r.Status), r.Preview}
	}
	m.docTable.SetRows(rows)
}

func (m *Model) setError(format string, args ...any) {
	m.errMsg = fmt.Sprintf(format, args...)
	m.status = "Error."
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case extractDoneMsg:
		if msg.err != nil {
			m.committing = false
			for i := range m.rows {
				m.rows[i].Status = constants.JobStatusFailed
			}
			m.refreshTable()
			m.setError("text extraction failed: %v", msg.err)
			return m, nil
		}
		m.texts = msg.texts
		m.pseudos = make([]string, len(m.rows))
		for i, text := range m.texts {
			m.rows[i].Preview = preview(text)
			m.rows[i].Status = constants.JobStatusTextOK
		}
		m.refreshTable()
		m.step = 0
		m.status = fmt.Sprintf("Pseudonymizing... (0/%d)", len(m.rows))
		return m, m.pseudoStepCmd(0)

	case pseudoStepMsg:
		if msg.err != nil {
			m.committing = false
			m.rows[msg.index].Status = constants.JobStatusFailed
			m.refreshTable()
			m.setError("pseudonymization failed for %s: %v",
				filepath.Base(m.rows[msg.index].Path), msg.err)
			return m, nil
		}
		m.pseudos[msg.index] = msg.pseudo
		m.step = msg.index + 1
		m.status = fmt.Sprintf("Pseudonymizing... (%d/%d)", m.step, len(m.rows))
		if m.step < len(m.rows) {
			return m, m.pseudoStepCmd(m.step)
		}
		m.status = "Committing to database..."
		return m, m.commitCmd()

	case commitDoneMsg:
		m.committing = false
		if msg.err != nil {
			for i := range m.rows {
				m.rows[i].Status = constants.JobStatusFailed
			}
			m.refreshTable()
			m.setError("commit failed: %v", msg.err)
			return m, nil
		}
		m.rows = nil
		m.texts = nil
		m.pseudos = nil
		m.refreshTable()
		m.errMsg = ""
		m.status = fmt.Sprintf("Committed %d document(s) to DB.", msg.committed)
		return m, nil
	}

	var cmd tea.Cmd
	m.docTable, cmd = m.docTable.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.focus != focusTable {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "d":
		m.focus = focusDBPath
		m.dbInput.Focus()
		return m, textinput.Blink
	case "n":
		path := strings.TrimSpace(m.dbInput.Value())
		if path == "" {
			m.setError("enter a database path first (press 'd')")
			return m, nil
		}
		if _, err := store.InitDB(path, nil); err != nil {
			m.setError("create database: %v", err)
			return m, nil
		}
		m.dbPath = path
		m.errMsg = ""
		m.status = fmt.Sprintf("Created DB: %s", path)
		return m, nil
	case "a":
		m.focus = focusFilePath
		m.fileInput.SetValue("")
		m.fileInput.Focus()
		return m, textinput.Blink
	case "p":
		if i := m.docTable.Cursor(); i >= 0 && i < len(m.rows) {
			m.focus = focusPID
			m.pidInput.SetValue(m.rows[i].PID)
			m.pidInput.Focus()
			return m, textinput.Blink
		}
	case "o":
		if i := m.docTable.Cursor(); i >= 0 && i < len(m.rows) {
			m.focus = focusOrder
			m.ordInput.SetValue(m.rows[i].Order)
			m.ordInput.Focus()
			return m, textinput.Blink
		}
	case "x", "delete":
		if i := m.docTable.Cursor(); i >= 0 && i < len(m.rows) {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			m.refreshTable()
			m.status = "Removed document."
		}
		return m, nil
	case "c":
		return m.startCommit()
	}

	var cmd tea.Cmd
	m.docTable, cmd = m.docTable.Update(msg)
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.blurAll()
		return m, nil
	case "enter":
		switch m.focus {
		case focusDBPath:
			m.dbPath = strings.TrimSpace(m.dbInput.Value())
			m.status = fmt.Sprintf("Selected DB: %s", m.dbPath)
		case focusFilePath:
			path := strings.TrimSpace(m.fileInput.Value())
			if path != "" && !m.hasPath(path) {
				m.rows = append(m.rows, docRow{Path: path, Status: constants.JobStatusQueued})
				m.refreshTable()
				m.status = "Loaded 1 file. Enter PID (ORDER only for known PID)."
			}
		case focusPID:
			if i := m.docTable.Cursor(); i >= 0 && i < len(m.rows) {
				m.rows[i].PID = store.NormalizePID(m.pidInput.Value())
				m.refreshTable()
			}
		case focusOrder:
			if i := m.docTable.Cursor(); i >= 0 && i < len(m.rows) {
				m.rows[i].Order = strings.TrimSpace(m.ordInput.Value())
				m.refreshTable()
			}
		}
		m.blurAll()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusDBPath:
		m.dbInput, cmd = m.dbInput.Update(msg)
	case focusFilePath:
		m.fileInput, cmd = m.fileInput.Update(msg)
	case focusPID:
		m.pidInput, cmd = m.pidInput.Update(msg)
	case focusOrder:
		m.ordInput, cmd = m.ordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) blurAll() {
	m.focus = focusTable
	m.dbInput.Blur()
	m.fileInput.Blur()
	m.pidInput.Blur()
	m.ordInput.Blur()
}

func (m Model) hasPath(path string) bool {
	for _, r := range m.rows {
		if r.Path == path {
			return true
		}
	}
	return false
}

// startCommit validates every queued row, then kicks off the extraction
// phase. Validation mirrors the ORDER semantics of the database: ORDER is
// required only for a PID that already has documents.
func (m Model) startCommit() (tea.Model, tea.Cmd) {
	if m.committing {
		return m, nil
	}
	if !m.deps.PseudoAvailable {
		m.setError("pseudonymization service is unavailable, commit disabled")
		return m, nil
	}
	if m.dbPath == "" {
		m.setError("select a database first (press 'd')")
		return m, nil
	}
	if len(m.rows) == 0 {
		m.setError("no documents loaded (press 'a')")
		return m, nil
	}

	db, err := store.Load(m.dbPath)
	if err != nil {
		m.setError("could not read DB: %v", err)
		return m, nil
	}

	orderByPID := map[string]int{}
	for _, r := range db.Rows {
		orderByPID[r.Fields["PID"]]++
	}

	for i, r := range m.rows {
		if r.Path == "" {
			m.setError("row %d: missing file path", i+1)
			return m, nil
		}
		if _, ok := constants.AllowedExtensions[constants.NormalizeExt(filepath.Ext(r.Path))]; !ok {
			m.setError("row %d: only PDF files are allowed: %s", i+1, r.Path)
			return m, nil
		}
		if _, err := os.Stat(r.Path); err != nil {
			m.setError("row %d: file does not exist: %s", i+1, r.Path)
			return m, nil
		}
		v := common.NewValidator().Field("PID", r.PID, common.Required, common.PatientID)
		if maxOrder, exists := orderByPID[r.PID]; exists {
			v.Field("ORDER", r.Order, common.Required, common.OrderInRange(maxOrder))
		}
		if err := v.Error(); err != nil {
			m.setError("row %d: %v", i+1, err)
			return m, nil
		}
	}

	m.committing = true
	m.errMsg = ""
	for i := range m.rows {
		m.rows[i].Status = constants.JobStatusRunning
	}
	m.refreshTable()
	workers := max(1, runtime.NumCPU()/2)
	m.status = fmt.Sprintf("Extracting text... (workers: %d)", workers)
	return m, m.extractCmd(workers)
}

func (m Model) extractCmd(workers int) tea.Cmd {
	rows := append([]docRow(nil), m.rows...)
	extractor := m.deps.Extractor
	return func() tea.Msg {
		texts := make([]string, len(rows))
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(workers)
		for i, r := range rows {
			g.Go(func() error {
				text, err := extractor.Extract(ctx, r.Path)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(r.Path), err)
				}
				if strings.TrimSpace(text) == "" {
					return fmt.Errorf("%s: empty extracted text", filepath.Base(r.Path))
				}
				texts[i] = text
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return extractDoneMsg{err: err}
		}
		return extractDoneMsg{texts: texts}
	}
}

func (m Model) pseudoStepCmd(i int) tea.Cmd {
	dbPath := m.dbPath
	ner := m.deps.NER
	logger := m.deps.Logger
	pid := m.rows[i].PID
	text := m.texts[i]
	return func() tea.Msg {
		salt, err := store.Salt(dbPath)
		if err != nil {
			return pseudoStepMsg{index: i, err: err}
		}
		p := pseudo.NewPseudonymizer(ner, salt, logger)
		out, err := p.Pseudonymize(context.Background(), text, pid, false)
		if err != nil {
			return pseudoStepMsg{index: i, err: err}
		}
		return pseudoStepMsg{index: i, pseudo: out}
	}
}

func (m Model) commitCmd() tea.Cmd {
	dbPath := m.dbPath
	rows := append([]docRow(nil), m.rows...)
	texts := append([]string(nil), m.texts...)
	pseudos := append([]string(nil), m.pseudos...)
	return func() tea.Msg {
		newRows := make([]map[string]string, 0, len(rows))
		for i, r := range rows {
			abs, err := filepath.Abs(r.Path)
			if err != nil {
				abs = r.Path
			}
			newRows = append(newRows, map[string]string{
				"PID":         r.PID,
				"SOURCE_FILE": abs,
				"DOCUMENT":    texts[i],
				"PSEUDO":      pseudos[i],
				"ORDER":       r.Order,
			})
		}
		if err := store.AppendRowsLocked(dbPath, newRows); err != nil {
			return commitDoneMsg{err: err}
		}
		return commitDoneMsg{committed: len(rows)}
	}
}

func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) > previewChars {
		return string(runes[:previewChars]) + "…"
	}
	return flat
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("BRIGHT Clinical Database — Document Intake"))
	b.WriteString("\n\n")

	db := m.dbPath
	if db == "" {
		db = "(none)"
	}
	b.WriteString(m.styles.Label.Render("Database: "))
	if m.focus == focusDBPath {
		b.WriteString(m.dbInput.View())
	} else {
		b.WriteString(db)
	}
	b.WriteString("\n")

	switch m.focus {
	case focusFilePath:
		b.WriteString(m.styles.Label.Render("Add file: "))
		b.WriteString(m.fileInput.View())
		b.WriteString("\n")
	case focusPID:
		b.WriteString(m.styles.Label.Render("PID: "))
		b.WriteString(m.pidInput.View())
		b.WriteString("\n")
	case focusOrder:
		b.WriteString(m.styles.Label.Render("ORDER: "))
		b.WriteString(m.ordInput.View())
		b.WriteString("\n")
	}

	b.WriteString(m.styles.TableBox.Render(m.docTable.View()))
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(m.styles.Error.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Status.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(
		"d: db path  n: create db  a: add pdf  p: edit pid  o: edit order  x: remove  c: commit  q: quit"))
	b.WriteString("\n")

	return b.String()
}
