// Package ui renders live progress of multi-file runs in the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"mendes/internal/driver"
)

// ProgressModel is a Bubble Tea model fed by driver events.
type ProgressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	started time.Time
	done    bool
}

type fileItem struct {
	path    string
	stage   driver.Stage
	status  driver.Status
	elapsed time.Duration
}

type eventMsg driver.Event
type doneMsg struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// NewProgressModel returns a model showing one row per file. It quits when
// events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.Event) *ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items[i] = fileItem{path: file, stage: driver.StageQueued}
		index[file] = i
	}
	return &ProgressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
		started: time.Now(),
	}
}

func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.apply(driver.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		// прерывание не останавливает проверку, только скрывает вывод
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = max(msg.Width-4, 10)
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *ProgressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	finished, failed := m.counts()
	header := fmt.Sprintf("%s %d/%d", m.title, finished, len(m.items))
	if failed > 0 {
		header += fmt.Sprintf(", %d with errors", failed)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 12
	nameWidth := max(m.width-statusWidth-14, 20)
	for _, item := range m.items {
		label := itemLabel(item)
		line := fmt.Sprintf("  %s %s", styleFor(item).Render(fmt.Sprintf("%*s", statusWidth, label)), truncate(item.path, nameWidth))
		if item.stage == driver.StageDone && item.elapsed > 0 {
			line += " " + dimStyle.Render(item.elapsed.Round(time.Millisecond).String())
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// Percent is the overall completion in [0, 1].
func (m *ProgressModel) Percent() float64 {
	if len(m.items) == 0 {
		return 1
	}
	total := 0.0
	for _, item := range m.items {
		total += stageWeight(item.stage)
	}
	return total / float64(len(m.items))
}

func (m *ProgressModel) counts() (finished, failed int) {
	for _, item := range m.items {
		if item.stage != driver.StageDone {
			continue
		}
		finished++
		if item.status == driver.StatusError {
			failed++
		}
	}
	return finished, failed
}

func (m *ProgressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *ProgressModel) apply(ev driver.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.stage == driver.StageDone {
		return nil
	}
	// пропущенные стадии не двигают строку: важен итог файла
	if ev.Status == driver.StatusSkipped {
		return nil
	}
	item.stage, item.status = ev.Stage, ev.Status
	if ev.Stage == driver.StageDone {
		item.elapsed = ev.Elapsed
	}
	return m.prog.SetPercent(m.Percent())
}

func stageWeight(stage driver.Stage) float64 {
	switch stage {
	case driver.StageDecode:
		return 0.1
	case driver.StageCheck:
		return 0.4
	case driver.StageLower:
		return 0.7
	case driver.StageValidate:
		return 0.9
	case driver.StageDone:
		return 1
	default:
		return 0
	}
}

func itemLabel(item fileItem) string {
	switch item.stage {
	case driver.StageQueued:
		return "queued"
	case driver.StageDone:
		switch item.status {
		case driver.StatusError:
			return "error"
		case driver.StatusCached:
			return "cached"
		}
		return "done"
	}
	if item.status == driver.StatusError {
		return "error"
	}
	return stageVerb(item.stage)
}

func stageVerb(stage driver.Stage) string {
	switch stage {
	case driver.StageDecode:
		return "decoding"
	case driver.StageCheck:
		return "checking"
	case driver.StageLower:
		return "lowering"
	case driver.StageValidate:
		return "validating"
	}
	return ""
}

func styleFor(item fileItem) lipgloss.Style {
	switch {
	case item.status == driver.StatusError:
		return errorStyle
	case item.stage == driver.StageDone:
		return okStyle
	case item.stage == driver.StageQueued:
		return idleStyle
	default:
		return workingStyle
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

// Run shows the model on out until events is closed.
func Run(out io.Writer, title string, files []string, events <-chan driver.Event) error {
	p := tea.NewProgram(NewProgressModel(title, files, events), tea.WithOutput(out), tea.WithInput(nil))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return nil
}
