// internal/tui/views.go
//
// Rendering for every screen. Styles follow the same lipgloss
// conventions as the rest of the UI: one style var per concern, view
// functions assemble strings, no logic beyond presentation.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"specsmith/internal/catalog"
	"specsmith/internal/validate"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	layerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	helpTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	navStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	answeredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	missingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	frameStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

// View renders the current screen.
func (a *App) View() string {
	var body string
	switch a.screen {
	case screenWelcome:
		body = a.viewWelcome()
	case screenQuestion:
		body = a.viewQuestion()
	case screenReview:
		body = a.viewReview()
	case screenGenerating:
		body = a.viewGenerating()
	case screenResult:
		body = a.viewResult()
	}
	return frameStyle.Render(body)
}

func (a *App) viewWelcome() string {
	var b strings.Builder
	b.WriteString(a.menu.View())
	if a.warnMsg != "" {
		b.WriteString("\n" + warnStyle.Render(a.warnMsg))
	}
	return b.String()
}

func (a *App) viewQuestion() string {
	q := a.currentQuestion()
	var b strings.Builder

	b.WriteString(titleStyle.Render(a.bundle.T("welcome.title")) + "\n")
	b.WriteString(layerStyle.Render(fmt.Sprintf("%s — %d/%d",
		a.bundle.T(fmt.Sprintf("layer.%d", a.snap.CurrentLayer)),
		a.snap.CurrentStep, catalog.TotalQuestions)) + "\n")
	b.WriteString(a.prog.ViewAs(float64(a.snap.AnsweredCount())/float64(catalog.TotalQuestions)) + "\n\n")

	label := a.bundle.Label(q)
	if q.Required {
		label += " *"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(label) + "\n")
	if help := a.bundle.Help(q); help != "" {
		b.WriteString(helpTextStyle.Render(help) + "\n")
	}
	b.WriteString("\n")

	switch q.Type {
	case catalog.TypeShortText:
		b.WriteString(a.input.View() + "\n")
	case catalog.TypeLongText:
		b.WriteString(a.area.View() + "\n")
	case catalog.TypeSingleChoice:
		b.WriteString(a.viewChoices(q, false))
	case catalog.TypeMultiChoice:
		b.WriteString(a.viewChoices(q, true))
	}

	for _, fe := range a.fieldErrs {
		if fe.Blocking() {
			b.WriteString("\n" + errorStyle.Render("✗ "+a.bundle.T(fe.MessageKey)))
		}
	}
	if report, ok := a.snap.PIIWarnings[q.ID]; ok && report.HasPII {
		b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("⚠ %s (%s)",
			a.bundle.T("warn.pii"), strings.Join(report.Categories, ", "))))
	}
	if a.warnMsg != "" {
		b.WriteString("\n" + warnStyle.Render(a.warnMsg))
	}
	if a.statusMsg != "" {
		b.WriteString("\n" + statusStyle.Render(a.statusMsg))
	}
	if a.confirmReset {
		b.WriteString("\n" + errorStyle.Render("Reset and discard this draft? (y/N)"))
	}

	b.WriteString("\n" + navStyle.Render(strings.Join([]string{
		a.bundle.T("nav.advance"),
		a.bundle.T("nav.retreat"),
		a.bundle.T("nav.save"),
		a.bundle.T("nav.reset"),
		a.bundle.T("nav.quit"),
	}, "  ")))
	return b.String()
}

func (a *App) viewChoices(q catalog.QuestionDefinition, multi bool) string {
	var b strings.Builder
	for i, opt := range q.Options {
		pointer := "  "
		if i == a.cursor {
			pointer = cursorStyle.Render("> ")
		}
		mark := ""
		if multi {
			if a.selected[i] {
				mark = "[x] "
			} else {
				mark = "[ ] "
			}
		}
		line := pointer + mark + opt
		if i == a.cursor {
			line = cursorStyle.Render(pointer + mark + opt)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (a *App) viewReview() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.bundle.T("review.title")) + "\n")

	for _, q := range a.catalog.All() {
		if !validate.Visible(q, a.snap.Answers) {
			continue
		}
		answer := a.snap.Answers[q.ID]
		label := a.bundle.Label(q)
		if answer.IsEmpty() {
			marker := ""
			if q.Required {
				marker = " *"
			}
			b.WriteString(missingStyle.Render(fmt.Sprintf("%2d. %s — %s%s",
				q.Step, label, a.bundle.T("review.missing"), marker)) + "\n")
			continue
		}
		text := answer.String()
		if len([]rune(text)) > 60 {
			text = string([]rune(text)[:60]) + "…"
		}
		b.WriteString(answeredStyle.Render(fmt.Sprintf("%2d. ", q.Step)) +
			fmt.Sprintf("%s: %s", label, text) + "\n")
	}

	for id, errs := range a.snap.ValidationErrors {
		if validate.HasBlocking(errs) {
			b.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", id, a.bundle.T(errs[0].MessageKey))) + "\n")
		}
	}
	if a.warnMsg != "" {
		b.WriteString("\n" + warnStyle.Render(a.warnMsg))
	}
	b.WriteString("\n" + navStyle.Render(a.bundle.T("review.complete")+"  "+a.bundle.T("nav.retreat")))
	return b.String()
}

func (a *App) viewGenerating() string {
	return fmt.Sprintf("%s %s", a.spin.View(), a.bundle.T("status.generating"))
}

func (a *App) viewResult() string {
	var b strings.Builder
	if a.artifact == nil {
		return errorStyle.Render("nothing generated")
	}
	b.WriteString(titleStyle.Render("specsmith") + "\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Command") + "\n")
	b.WriteString(a.artifact.SummaryText + "\n\n")
	if a.artifact.TimedOut {
		b.WriteString(warnStyle.Render("generation exceeded its time budget; output is complete but slow") + "\n\n")
	}
	b.WriteString(a.rendered)
	if a.statusMsg != "" {
		b.WriteString("\n" + statusStyle.Render(a.statusMsg))
	}
	if a.warnMsg != "" {
		b.WriteString("\n" + warnStyle.Render(a.warnMsg))
	}
	b.WriteString("\n" + navStyle.Render(strings.Join([]string{
		a.bundle.T("result.copy"),
		a.bundle.T("result.download"),
		"q: quit",
	}, "  ")))
	return b.String()
}

// renderMarkdown runs the document through glamour, falling back to the
// plain text when rendering fails.
func renderMarkdown(doc string, width int) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width-4, 100)),
	)
	if err != nil {
		return doc
	}
	out, err := renderer.Render(doc)
	if err != nil {
		return doc
	}
	return out
}
