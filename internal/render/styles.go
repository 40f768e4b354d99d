package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#CCCCCC"}
	TextMutedColor   = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Version status colors
	StatusDraftColor     = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}
	StatusPublishedColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusArchivedColor  = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#BBBBBB"}

	// Diff colors
	DiffAdditionColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	DiffDeletionColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	MutedStyle   = lipgloss.NewStyle().Foreground(TextMutedColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(StatusSuccessColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(StatusWarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)

	DiffAdditionStyle = lipgloss.NewStyle().Foreground(DiffAdditionColor)
	DiffDeletionStyle = lipgloss.NewStyle().Foreground(DiffDeletionColor)
	DiffContextStyle  = lipgloss.NewStyle().Foreground(TextMutedColor)

	statusStyles = map[domain.Status]lipgloss.Style{
		domain.StatusDraft:     lipgloss.NewStyle().Foreground(StatusDraftColor),
		domain.StatusPublished: lipgloss.NewStyle().Foreground(StatusPublishedColor).Bold(true),
		domain.StatusArchived:  lipgloss.NewStyle().Foreground(StatusArchivedColor),
	}
)

// Status renders a version status in its color.
func Status(s domain.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}
