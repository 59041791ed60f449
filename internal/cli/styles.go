// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(ColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")). // Cyan
			MarginBottom(1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1)

	// LabelStyle pads labels so values line up.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)

	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	AssistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)
	CommandStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Status indicators.
const (
	IconOK   = "[OK]"
	IconFail = "[FAIL]"
	IconWarn = "[WARN]"
)

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// Separator returns a horizontal rule of the given width.
func Separator(width int) string {
	return DimStyle.Render(strings.Repeat("-", width))
}

// KeyValue renders an aligned "label value" line.
func KeyValue(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value)
}

// StatusLine renders a check result with its indicator.
func StatusLine(ok bool, label, detail string) string {
	icon := SuccessStyle.Render(IconOK)
	if !ok {
		icon = ErrorStyle.Render(IconFail)
	}
	line := icon + " " + label
	if detail != "" {
		line += " " + DimStyle.Render("("+detail+")")
	}
	return line
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders a reply for the terminal. Replies are returned
// unchanged for piped output or when rendering fails.
func renderMarkdown(content string) string {
	if !IsStdoutTTY() {
		return content
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()-4),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
