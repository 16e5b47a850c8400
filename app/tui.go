package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"docindex/extract"
)

// progressMsg updates the progress line while extracting.
// Format in View: "⏳ {Stage} [num/total]: filename"
type progressMsg struct {
	Stage string
	Count int
	Total int
	Path  string
}

// doneMsg carries the finished report (or the run error) into the model.
type doneMsg struct {
	report *extract.Report
	err    error
}

var progressChan = make(chan tea.Msg, 64)

// pollProgress waits for the next pipeline event.
func pollProgress() tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}

type extractModel struct {
	stage    string
	count    int
	total    int
	path     string
	failed   int
	quitting bool

	report *extract.Report
	err    error
}

func (m extractModel) Init() tea.Cmd {
	return pollProgress()
}

func (m extractModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Extraction is resumable, so aborting mid-run is safe.
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.stage = msg.Stage
		m.count = msg.Count
		m.total = msg.Total
		m.path = msg.Path
		return m, pollProgress()

	case doneMsg:
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	}
	return m, pollProgress()
}

func (m extractModel) View() string {
	if m.quitting || m.report != nil || m.err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("docindex extract") + "\n\n")

	if m.total == 0 {
		b.WriteString(infoStyle.Render("⏳ Scanning source folder...") + "\n")
		return b.String()
	}

	bar := renderBar(m.count, m.total, 40)
	b.WriteString(fmt.Sprintf("%s %s\n",
		successStyle.Render(bar),
		infoStyle.Render(fmt.Sprintf("[%d/%d]", m.count, m.total))))
	b.WriteString(infoStyle.Render("⏳ "+m.stage+": "+m.path) + "\n")
	b.WriteString(separatorStyle.Render("q to abort (run resumes where it stopped)") + "\n")
	return b.String()
}

// renderBar draws a fixed-width progress bar.
func renderBar(count, total, width int) string {
	if total <= 0 {
		total = 1
	}
	filled := count * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// runExtractTUI drives the pipeline in the background while bubbletea
// renders live progress. The report is printed by the caller after the
// program exits.
func runExtractTUI(pipeline *extract.Pipeline, opts extract.Options) (*extract.Report, error) {
	opts.OnProgress = func(stage string, processed, total int, path string) {
		select {
		case progressChan <- progressMsg{Stage: stage, Count: processed, Total: total, Path: path}:
		default:
			// Drop updates rather than stall the pipeline.
		}
	}

	go func() {
		report, err := pipeline.Run(opts)
		progressChan <- doneMsg{report: report, err: err}
	}()

	final, err := tea.NewProgram(extractModel{}).Run()
	if err != nil {
		return nil, err
	}

	m := final.(extractModel)
	if m.quitting {
		return nil, fmt.Errorf("extraction aborted; rerun to resume")
	}
	return m.report, m.err
}
