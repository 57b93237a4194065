package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"cogni/internal/cognition"
	"cogni/internal/runner"
)

var styles = struct {
	banner   lipgloss.Style
	value    lipgloss.Style
	label    lipgloss.Style
	errText  lipgloss.Style
	muted    lipgloss.Style
	decision lipgloss.Style
}{
	banner:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
	value:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	label:    lipgloss.NewStyle().Bold(true),
	errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	decision: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
}

// renderReport is the per-run summary line under the result value.
func renderReport(res runner.Result) string {
	var b strings.Builder
	b.WriteString(styles.value.Render(res.Value.String()))
	b.WriteByte('\n')
	b.WriteString(styles.muted.Render(fmt.Sprintf(
		"fixes %d, attempts %d, deliberations %d",
		res.FixesApplied, res.AttemptsUsed, res.Trace.Len(),
	)))
	return b.String()
}

// renderEpisode is one traced deliberation, printed under -v and by the
// REPL's :trace command.
func renderEpisode(ep cognition.ReasoningEpisode) string {
	head := fmt.Sprintf("[%d] %s -> ", ep.Attempt, ep.Trigger.Kind)
	line := styles.muted.Render(head) + styles.decision.Render(ep.Decision)
	if ep.Note != "" {
		line += styles.muted.Render(" (" + ep.Note + ")")
	}
	return line
}
