// internal/tui/app.go
//
// The terminal UI for the hearing wizard. It uses bubbletea's Elm
// architecture: the App model holds all state, Update reacts to
// messages, View renders. All wizard logic is delegated to the state
// machine, the draft store and the output generator; this layer only
// renders snapshots and translates key presses into operations.

package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"specsmith/internal/catalog"
	"specsmith/internal/config"
	"specsmith/internal/draft"
	"specsmith/internal/i18n"
	"specsmith/internal/output"
	"specsmith/internal/validate"
	"specsmith/internal/wizard"
)

// screen represents which view we're on.
type screen int

const (
	screenWelcome    screen = iota // new hearing or resume a draft
	screenQuestion                 // one of the 15 questions
	screenReview                   // all answers before finalizing
	screenGenerating               // output generation in flight
	screenResult                   // rendered artifact
)

// saveStatusMsg carries the outcome of a (possibly debounced) save from
// the auto-saver goroutine into the update loop.
type saveStatusMsg struct{ err error }

// generatedMsg carries the output generation result.
type generatedMsg struct {
	artifact output.Artifact
	err      error
}

// menuItem implements list.Item for the welcome menu.
type menuItem struct {
	title   string
	desc    string
	draftID string // empty for "start new"
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// App is the main application model.
type App struct {
	screen  screen
	cfg     *config.Config
	bundle  *i18n.Bundle
	logger  *zap.Logger
	catalog *catalog.Catalog

	machine   *wizard.Machine
	store     *draft.Store
	saver     *draft.AutoSaver
	generator *output.Generator
	saveCh    chan error

	snap      wizard.Session
	fieldErrs []validate.FieldError

	menu     list.Model
	input    textinput.Model
	area     textarea.Model
	prog     progress.Model
	spin     spinner.Model
	cursor   int
	selected map[int]bool

	artifact     *output.Artifact
	rendered     string
	statusMsg    string
	warnMsg      string
	confirmReset bool

	width  int
	height int
}

// Deps bundles everything the App needs; the cmd layer constructs and
// owns the services.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Catalog   *catalog.Catalog
	Store     *draft.Store
	Generator *output.Generator
}

// NewApp builds the application model. The auto-saver is created here
// so its status callback can feed the update loop.
func NewApp(deps Deps) *App {
	bundle := i18n.ForLanguage(i18n.Language(deps.Config.Prefs.Language))

	menu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	menu.Title = bundle.T("welcome.title")
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)

	input := textinput.New()
	input.CharLimit = 0
	area := textarea.New()
	area.CharLimit = 0

	a := &App{
		screen:    screenWelcome,
		cfg:       deps.Config,
		bundle:    bundle,
		logger:    deps.Logger,
		catalog:   deps.Catalog,
		store:     deps.Store,
		generator: deps.Generator,
		saveCh:    make(chan error, 8),
		menu:      menu,
		input:     input,
		area:      area,
		prog:      progress.New(progress.WithDefaultGradient()),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		selected:  map[int]bool{},
	}
	a.saver = draft.NewAutoSaver(deps.Store, deps.Logger, func(err error) {
		select {
		case a.saveCh <- err:
		default:
		}
	})
	a.refreshMenu()
	return a
}

// Resume loads a stored draft and opens it at its saved step, skipping
// the welcome menu. Used by the `resume` subcommand.
func (a *App) Resume(sessionID string) error {
	session, err := a.store.Load(sessionID)
	if err != nil {
		return err
	}
	m, err := wizard.Restore(a.catalog, session)
	if err != nil {
		return err
	}
	a.attachMachine(m)
	a.screen = screenQuestion
	return nil
}

// Close flushes and releases the auto-saver.
func (a *App) Close() {
	if a.saver != nil {
		_ = a.saver.Flush()
		a.saver.Close()
	}
}

func (a *App) refreshMenu() {
	items := []list.Item{
		menuItem{title: a.bundle.T("welcome.new"), desc: "15 questions, about 10 minutes"},
	}
	drafts, err := a.store.List()
	if err != nil {
		a.logger.Warn("list drafts failed", zap.Error(err))
	}
	for _, d := range drafts {
		items = append(items, menuItem{
			title:   fmt.Sprintf("%s (step %d/%d)", a.bundle.T("welcome.resume"), d.CurrentStep, catalog.TotalQuestions),
			desc:    fmt.Sprintf("%s · %d answered · saved %s", shortID(d.SessionID), d.AnsweredCount, d.SavedAt.Local().Format("2006-01-02 15:04")),
			draftID: d.SessionID,
		})
	}
	a.menu.SetItems(items)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Init starts the save-status listener.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.listenSaves(), a.spin.Tick)
}

func (a *App) listenSaves() tea.Cmd {
	return func() tea.Msg {
		err, ok := <-a.saveCh
		if !ok {
			return nil
		}
		return saveStatusMsg{err}
	}
}

// attachMachine wires a machine into the app: snapshot subscription for
// auto-save plus the initial widget state.
func (a *App) attachMachine(m *wizard.Machine) {
	a.machine = m
	if a.cfg.Prefs.AutoSave {
		m.Subscribe(a.saver.Notify)
	}
	a.snap = m.Snapshot()
	a.fieldErrs = nil
	a.loadWidgets()
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.menu.SetSize(msg.Width-4, msg.Height-4)
		a.prog.Width = min(msg.Width-8, 50)
		a.area.SetWidth(min(msg.Width-8, 76))
		a.input.Width = min(msg.Width-12, 60)
		return a, nil

	case saveStatusMsg:
		if msg.err != nil {
			a.warnMsg = a.bundle.T("warn.no_persist")
		} else {
			a.warnMsg = ""
			a.statusMsg = a.bundle.T("status.saved")
		}
		return a, a.listenSaves()

	case spinner.TickMsg:
		if a.screen == screenGenerating {
			var cmd tea.Cmd
			a.spin, cmd = a.spin.Update(msg)
			return a, cmd
		}
		return a, nil

	case generatedMsg:
		return a.onGenerated(msg)

	case tea.KeyMsg:
		return a.onKey(msg)
	}

	return a.updateWidgets(msg)
}

func (a *App) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.Close()
		return a, tea.Quit
	}

	if a.confirmReset {
		switch msg.String() {
		case "y", "Y":
			a.confirmReset = false
			return a.doReset()
		default:
			a.confirmReset = false
			return a, nil
		}
	}

	switch a.screen {
	case screenWelcome:
		return a.keyWelcome(msg)
	case screenQuestion:
		return a.keyQuestion(msg)
	case screenReview:
		return a.keyReview(msg)
	case screenResult:
		return a.keyResult(msg)
	}
	return a, nil
}

func (a *App) keyWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		item, ok := a.menu.SelectedItem().(menuItem)
		if !ok {
			return a, nil
		}
		if item.draftID == "" {
			a.attachMachine(wizard.New(a.catalog))
			a.screen = screenQuestion
			return a, nil
		}
		session, err := a.store.Load(item.draftID)
		if err != nil {
			a.warnMsg = fmt.Sprintf("%v", err)
			a.refreshMenu()
			return a, nil
		}
		m, err := wizard.Restore(a.catalog, session)
		if err != nil {
			a.logger.Error("draft restore failed", zap.String("sessionId", item.draftID), zap.Error(err))
			a.warnMsg = fmt.Sprintf("%v", err)
			return a, nil
		}
		a.attachMachine(m)
		a.screen = screenQuestion
		return a, nil
	case "q":
		a.Close()
		return a, tea.Quit
	}
	var cmd tea.Cmd
	a.menu, cmd = a.menu.Update(msg)
	return a, cmd
}

func (a *App) keyQuestion(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := a.currentQuestion()

	switch msg.String() {
	case "esc":
		a.commitAnswer(q)
		a.retreatSkippingHidden()
		return a, nil
	case "ctrl+s":
		a.commitAnswer(q)
		if err := a.saver.SaveNow(a.machine.Snapshot()); err == nil {
			a.statusMsg = a.bundle.T("status.saved")
		}
		return a, nil
	case "ctrl+r":
		a.confirmReset = true
		return a, nil
	case "enter":
		if q.Type == catalog.TypeSingleChoice && !q.HasOption(a.cursorOption(q)) {
			return a, nil
		}
		a.commitAnswer(q)
		return a.advance()
	case " ":
		if q.Type == catalog.TypeMultiChoice {
			a.selected[a.cursor] = !a.selected[a.cursor]
			a.commitAnswer(q)
			return a, nil
		}
	case "up", "k":
		if q.IsChoice() {
			if a.cursor > 0 {
				a.cursor--
			}
			return a, nil
		}
	case "down", "j":
		if q.IsChoice() {
			if a.cursor < len(q.Options)-1 {
				a.cursor++
			}
			return a, nil
		}
	}

	if q.IsChoice() {
		return a, nil
	}
	return a.updateWidgets(msg)
}

func (a *App) keyReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.screen = screenQuestion
		a.loadWidgets()
		return a, nil
	case "enter":
		result := a.machine.Complete()
		a.snap = a.machine.Snapshot()
		if !result.Completed {
			return a, nil
		}
		a.screen = screenGenerating
		a.statusMsg = a.bundle.T("status.generating")
		return a, tea.Batch(a.spin.Tick, a.generateCmd(a.snap))
	}
	return a, nil
}

func (a *App) keyResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		if a.artifact != nil {
			if err := clipboard.WriteAll(a.artifact.SummaryText); err != nil {
				a.warnMsg = fmt.Sprintf("clipboard: %v", err)
			} else {
				a.statusMsg = a.bundle.T("result.copied")
			}
		}
		return a, nil
	case "s":
		if a.artifact != nil {
			dir, err := output.NewExporter(a.cfg.OutDir).Export(a.snap.ID, *a.artifact)
			if err != nil {
				a.warnMsg = fmt.Sprintf("%v", err)
			} else {
				a.statusMsg = fmt.Sprintf("%s %s", a.bundle.T("result.written"), dir)
			}
		}
		return a, nil
	case "q", "enter":
		a.Close()
		return a, tea.Quit
	}
	return a, nil
}

// advance runs the machine transition and skips questions that are not
// visible under the current answers.
func (a *App) advance() (tea.Model, tea.Cmd) {
	result := a.machine.Advance()
	a.snap = a.machine.Snapshot()
	if !result.Moved {
		switch result.Reason {
		case wizard.ReasonValidation:
			a.fieldErrs = result.Errors
		case wizard.ReasonAtLast:
			a.fieldErrs = nil
			a.screen = screenReview
		}
		return a, nil
	}
	a.fieldErrs = nil
	a.skipHiddenForward()
	a.loadWidgets()
	return a, nil
}

// skipHiddenForward moves past questions whose visibility predicate is
// false. Advancing over a hidden question never fails validation.
func (a *App) skipHiddenForward() {
	for {
		q := a.currentQuestion()
		if validate.Visible(q, a.snap.Answers) {
			return
		}
		result := a.machine.Advance()
		a.snap = a.machine.Snapshot()
		if !result.Moved {
			if result.Reason == wizard.ReasonAtLast {
				a.screen = screenReview
			}
			return
		}
	}
}

func (a *App) retreatSkippingHidden() {
	for {
		result := a.machine.Retreat()
		a.snap = a.machine.Snapshot()
		if !result.Moved {
			break
		}
		if validate.Visible(a.currentQuestion(), a.snap.Answers) {
			break
		}
	}
	a.fieldErrs = nil
	a.loadWidgets()
}

func (a *App) doReset() (tea.Model, tea.Cmd) {
	oldID := a.snap.ID
	a.machine.Reset()
	a.snap = a.machine.Snapshot()
	if oldID != "" {
		if err := a.store.Delete(oldID); err != nil {
			a.logger.Warn("delete draft on reset failed", zap.String("sessionId", oldID), zap.Error(err))
		}
	}
	a.fieldErrs = nil
	a.screen = screenQuestion
	a.loadWidgets()
	return a, nil
}

func (a *App) onGenerated(msg generatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logger.Error("output generation failed", zap.Error(msg.err))
		a.warnMsg = fmt.Sprintf("%v", msg.err)
		a.screen = screenReview
		return a, nil
	}
	a.artifact = &msg.artifact
	a.rendered = renderMarkdown(msg.artifact.FormattedDocument, a.width)
	a.screen = screenResult
	a.statusMsg = ""
	// The session is finished; its draft has no further purpose.
	if err := a.store.Delete(a.snap.ID); err != nil {
		a.logger.Warn("delete completed draft failed", zap.String("sessionId", a.snap.ID), zap.Error(err))
	}
	return a, nil
}

func (a *App) generateCmd(session wizard.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), output.Budget+time.Second)
		defer cancel()
		artifact, err := a.generator.Generate(ctx, session)
		return generatedMsg{artifact: artifact, err: err}
	}
}

// currentQuestion resolves the definition bound to the snapshot's step.
func (a *App) currentQuestion() catalog.QuestionDefinition {
	q, err := a.catalog.Question(a.snap.CurrentStep)
	if err != nil {
		// The machine guarantees the step range; reaching this is a defect.
		panic(err)
	}
	return q
}

// loadWidgets configures the input widgets for the current question,
// seeding them from any existing answer.
func (a *App) loadWidgets() {
	if a.machine == nil {
		return
	}
	q := a.currentQuestion()
	existing := a.snap.Answers[q.ID]
	a.cursor = 0
	a.selected = map[int]bool{}
	switch q.Type {
	case catalog.TypeShortText:
		a.input.SetValue(existing.Text)
		a.input.CursorEnd()
		a.input.Focus()
	case catalog.TypeLongText:
		a.area.SetValue(existing.Text)
		a.area.Focus()
	case catalog.TypeSingleChoice:
		for i, opt := range q.Options {
			if existing.Text == opt {
				a.cursor = i
			}
		}
	case catalog.TypeMultiChoice:
		chosen := map[string]bool{}
		for _, v := range existing.List {
			chosen[v] = true
		}
		for i, opt := range q.Options {
			if chosen[opt] {
				a.selected[i] = true
			}
		}
	}
}

func (a *App) cursorOption(q catalog.QuestionDefinition) string {
	if a.cursor >= 0 && a.cursor < len(q.Options) {
		return q.Options[a.cursor]
	}
	return ""
}

// commitAnswer reads the focused widget and writes the value into the
// machine.
func (a *App) commitAnswer(q catalog.QuestionDefinition) {
	var value catalog.Answer
	switch q.Type {
	case catalog.TypeShortText:
		value = catalog.TextAnswer(a.input.Value())
	case catalog.TypeLongText:
		value = catalog.TextAnswer(a.area.Value())
	case catalog.TypeSingleChoice:
		value = catalog.TextAnswer(a.cursorOption(q))
	case catalog.TypeMultiChoice:
		var chosen []string
		for i, opt := range q.Options {
			if a.selected[i] {
				chosen = append(chosen, opt)
			}
		}
		value = catalog.ListAnswer(chosen...)
	}
	if err := a.machine.SetAnswer(q.ID, value); err != nil {
		a.logger.Error("set answer failed", zap.String("questionId", q.ID), zap.Error(err))
		return
	}
	a.snap = a.machine.Snapshot()
	a.fieldErrs = a.snap.ValidationErrors[q.ID]
	a.statusMsg = ""
}

func (a *App) updateWidgets(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.screen != screenQuestion || a.machine == nil {
		return a, nil
	}
	q := a.currentQuestion()
	var cmd tea.Cmd
	switch q.Type {
	case catalog.TypeShortText:
		a.input, cmd = a.input.Update(msg)
	case catalog.TypeLongText:
		a.area, cmd = a.area.Update(msg)
	}
	return a, cmd
}
