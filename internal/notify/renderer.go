package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorAdd        = lipgloss.Color("2")
	colorDelete     = lipgloss.Color("1")
	colorUpdate     = lipgloss.Color("4")
	colorConflicted = lipgloss.Color("1")
	colorMuted      = lipgloss.Color("8")

	styleAdd        = lipgloss.NewStyle().Foreground(colorAdd).Bold(true)
	styleDelete     = lipgloss.NewStyle().Foreground(colorDelete)
	styleUpdate     = lipgloss.NewStyle().Foreground(colorUpdate)
	styleConflicted = lipgloss.NewStyle().Foreground(colorConflicted).Bold(true)
	stylePath       = lipgloss.NewStyle().Foreground(colorMuted)
)

// TerminalSink renders notifications the way `svn update` prints its
// one-letter-per-line status column, colored when the output stream
// supports it.
type TerminalSink struct {
	w       io.Writer
	profile termenv.Profile
}

// NewTerminalSink wires a renderer over w. The color profile is detected
// from the environment and the process's standard output, not from w.
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w, profile: termenv.EnvColorProfile()}
}

func (s *TerminalSink) Notify(n Notification) {
	if n.Action == ActionUpdateCompleted {
		return // svn's own renderer only prints this with -v; we never need it
	}
	letter, style := s.symbol(n)
	if s.profile == termenv.Ascii {
		fmt.Fprintf(s.w, "%s %s\n", letter, n.Path)
		return
	}
	fmt.Fprintf(s.w, "%s %s\n", style.Render(letter), stylePath.Render(n.Path))
}

func (s *TerminalSink) symbol(n Notification) (string, lipgloss.Style) {
	if n.ContentState == StateConflicted || n.PropState == StateConflicted {
		return "C", styleConflicted
	}
	switch n.Action {
	case ActionUpdateAdd:
		return "A", styleAdd
	case ActionUpdateDelete:
		return "D", styleDelete
	case ActionUpdateUpdate:
		if n.ContentState == StateMerged || n.PropState == StateMerged {
			return "G", styleUpdate
		}
		return "U", styleUpdate
	default:
		return "?", stylePath
	}
}
