package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"docindex/extract"
	"docindex/search"
)

// Styles shared by the CLI output and the progress TUI.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))
)

// renderReport formats an extraction run summary.
func renderReport(r *extract.Report) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Extraction complete") + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Processed: %d files", r.Processed)) + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Skipped (already extracted): %d files", r.Skipped)) + "\n")
	if r.Pruned > 0 {
		b.WriteString(infoStyle.Render(fmt.Sprintf("  Pruned (source deleted): %d files", r.Pruned)) + "\n")
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Pages extracted: %d", r.Pages)) + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Elapsed: %s", r.Elapsed.Round(10*time.Millisecond))) + "\n")

	if r.Failed == 0 {
		b.WriteString(successStyle.Render("  Failures: 0") + "\n")
		return b.String()
	}

	b.WriteString(warningStyle.Render(fmt.Sprintf("  Failures: %d", r.Failed)) + "\n")
	for _, f := range r.Failures {
		b.WriteString(errorStyle.Render("    "+f.Filepath) + infoStyle.Render(" — "+f.Reason) + "\n")
	}
	return b.String()
}

// renderResult formats one page of search results for the terminal,
// turning <mark> spans into highlighted text.
func renderResult(r *search.Result) string {
	var b strings.Builder

	if len(r.Results) == 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("No pages match %q", r.Query)) + "\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%d matches in %d documents for %q",
		r.TotalMatches, r.Documents, r.Query)) + "\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 72)) + "\n")

	for _, hit := range r.Results {
		b.WriteString(successStyle.Render(hit.Filename) +
			infoStyle.Render(fmt.Sprintf("  page %d  (%d match", hit.Page, hit.MatchCount)))
		if hit.MatchCount != 1 {
			b.WriteString(infoStyle.Render("es"))
		}
		b.WriteString(infoStyle.Render(")") + "\n")
		b.WriteString("  " + renderMarks(hit.Context) + "\n")
		b.WriteString(separatorStyle.Render(strings.Repeat("─", 72)) + "\n")
	}

	b.WriteString(infoStyle.Render(fmt.Sprintf("Page %d", r.Page)))
	if r.HasMore {
		b.WriteString(infoStyle.Render("  (more results: --page " + fmt.Sprint(r.Page+1) + ")"))
	}
	b.WriteString("\n")
	return b.String()
}

// renderMarks replaces <mark> spans with terminal highlighting.
func renderMarks(context string) string {
	out := context
	for {
		open := strings.Index(out, "<mark>")
		if open < 0 {
			break
		}
		end := strings.Index(out[open:], "</mark>")
		if end < 0 {
			break
		}
		end += open
		span := out[open+len("<mark>") : end]
		out = out[:open] + matchStyle.Render(span) + out[end+len("</mark>"):]
	}
	return out
}

// renderStats formats index statistics.
func renderStats(s search.Stats) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Index statistics") + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Documents: %d", s.DocumentCount)) + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("  Pages: %d", s.PageCount)) + "\n")
	if s.LastExtractedAt != "" {
		b.WriteString(infoStyle.Render("  Last extracted: "+s.LastExtractedAt) + "\n")
	}
	return b.String()
}
