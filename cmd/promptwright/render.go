package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/promptwright/internal/dataset"
	"github.com/fyrsmithlabs/promptwright/internal/engine"
	"github.com/fyrsmithlabs/promptwright/internal/topictree"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func row(label string, value any) string {
	return labelStyle.Render(label+":") + " " + valueStyle.Render(fmt.Sprint(value))
}

// renderSummary prints the failure report of a generation run.
func renderSummary(w io.Writer, s engine.Summary) {
	if s.Total == 0 {
		fmt.Fprintln(w, successStyle.Render("No failed samples"))
		return
	}
	lines := s.Lines()
	out := []string{warningStyle.Render(lines[0])}
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "  ") {
			out = append(out, dimStyle.Render(l))
			continue
		}
		out = append(out, labelStyle.Render(l))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(out, "\n")))
}

// renderStats prints dataset statistics. Roles are listed alphabetically.
func renderStats(w io.Writer, st dataset.Stats) {
	if st.Empty {
		fmt.Fprintln(w, dimStyle.Render("Dataset is empty"))
		return
	}
	lines := []string{
		headerStyle.Render("Dataset statistics"),
		row("Total samples", st.TotalSamples),
		row("Avg messages per sample", fmt.Sprintf("%.2f", st.AvgMessagesPerSample)),
		row("Avg content length", fmt.Sprintf("%.1f", st.AvgContentLength)),
	}
	roles := make([]string, 0, len(st.RoleDistribution))
	for r := range st.RoleDistribution {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		pct := st.RoleDistribution[dataset.Role(r)] * 100
		lines = append(lines, row("  "+r, fmt.Sprintf("%.1f%%", pct)))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

// renderValidation prints a capacity check and, when it fails, advice.
func renderValidation(w io.Writer, v topictree.Validation) {
	lines := []string{
		row("Tree paths", v.Capacity),
		row("Requested samples", v.Requested),
	}
	if v.Valid {
		lines = append(lines, successStyle.Render("Configuration is valid"))
	} else {
		lines = append(lines, errorStyle.Render("Configuration requests more samples than the tree provides"))
		for _, a := range v.Advice() {
			lines = append(lines, dimStyle.Render("  "+a))
		}
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
