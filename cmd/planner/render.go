package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"planner/internal/merge"
	"planner/internal/suggest"
	"planner/internal/task"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	completedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	mutedStyle     = lipgloss.NewStyle().Faint(true)
	dateStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	urgentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	reviewStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	autoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func renderView(view *merge.MergedView) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString("\n")
	if len(view.Tasks) == 0 {
		b.WriteString(mutedStyle.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, it := range view.Tasks {
		b.WriteString(renderItem(it))
		b.WriteString("\n")
	}
	if len(view.Events) > 0 {
		b.WriteString(titleStyle.Render("Events"))
		b.WriteString("\n")
		for _, it := range view.Events {
			b.WriteString(renderItem(it))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderItem(it task.Item) string {
	mark := "[ ]"
	line := it.Title
	if it.Completed() {
		mark = "[x]"
		line = completedStyle.Render(line)
	} else if it.Priority == 1 {
		line = urgentStyle.Render(line)
	}
	out := fmt.Sprintf("  %s %s %s", mark, line, mutedStyle.Render("("+it.ID+")"))
	if it.DueDate != "" {
		out += " " + dateStyle.Render("due "+it.DueDate)
	}
	if it.Pillar != "" {
		out += " " + mutedStyle.Render("#"+it.Pillar)
	}
	return out
}

func renderOp(op suggest.Op) string {
	var b strings.Builder
	b.WriteString(reviewStyle.Render(string(op.Kind)))
	b.WriteString(" " + op.ID)
	if len(op.Fields) > 0 {
		b.WriteString(" " + mutedStyle.Render(fmt.Sprintf("%v", op.Fields)))
	}
	if op.Reason != "" {
		b.WriteString("\n    " + mutedStyle.Render(op.Reason))
	}
	return b.String()
}
