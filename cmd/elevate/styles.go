package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33")). // Blue
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Gray
			Width(12)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // Cyan

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160")) // Red

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")). // Green
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("33")).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	passedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40"))

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	skippedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	catStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true).
			MarginTop(1)
)

// styled is false when output is piped, so scripts get plain text.
var styled = term.IsTerminal(int(os.Stdout.Fd()))

func paint(style lipgloss.Style, text string) string {
	if !styled {
		return text
	}

	return style.Render(text)
}
