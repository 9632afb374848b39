package console

import (
	"github.com/charmbracelet/lipgloss"

	"fixversity/internal/domain/issue"
)

var toneColors = map[issue.Tone]lipgloss.Color{
	issue.ToneNeutral:     lipgloss.Color("245"),
	issue.TonePrimary:     lipgloss.Color("39"),
	issue.ToneWarning:     lipgloss.Color("214"),
	issue.ToneSuccess:     lipgloss.Color("42"),
	issue.ToneDestructive: lipgloss.Color("196"),
}

// Badge renders label in the colour of tone.
func Badge(tone issue.Tone, label string) string {
	color, ok := toneColors[tone]
	if !ok {
		color = toneColors[issue.ToneNeutral]
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render("[" + label + "]")
}

func StatusBadge(s issue.Status) string {
	d := s.Describe()
	return Badge(d.Tone, d.Label)
}

func PriorityBadge(p issue.Priority) string {
	d := p.Describe()
	return Badge(d.Tone, d.Label)
}

func CategoryBadge(c issue.Category) string {
	d := c.Describe()
	return Badge(d.Tone, d.Label)
}
