// Package markup renders the assistant's light inline markup for the
// terminal: **bold**, *emphasis*, `inline code` and line breaks.
package markup

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles maps each span kind to its terminal style.
type Styles struct {
	Plain    lipgloss.Style
	Bold     lipgloss.Style
	Emphasis lipgloss.Style
	Code     lipgloss.Style
}

// DefaultStyles is what the chat pane uses.
func DefaultStyles() Styles {
	return Styles{
		Plain:    lipgloss.NewStyle(),
		Bold:     lipgloss.NewStyle().Bold(true),
		Emphasis: lipgloss.NewStyle().Italic(true),
		Code:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Background(lipgloss.Color("236")),
	}
}

// Kind identifies a span's formatting.
type Kind int

const (
	Plain Kind = iota
	Bold
	Emphasis
	Code
)

// Span is a run of text with one formatting.
type Span struct {
	Kind Kind
	Text string
}

// Parse splits one line into spans. Unterminated markers are kept as text.
// Markers inside code spans are literal.
func Parse(line string) []Span {
	var spans []Span
	var plain strings.Builder
	emit := func(k Kind, text string) {
		if plain.Len() > 0 {
			spans = append(spans, Span{Kind: Plain, Text: plain.String()})
			plain.Reset()
		}
		if text != "" {
			spans = append(spans, Span{Kind: k, Text: text})
		}
	}

	for i := 0; i < len(line); {
		switch {
		case line[i] == '`':
			if end := strings.IndexByte(line[i+1:], '`'); end >= 0 {
				emit(Code, line[i+1:i+1+end])
				i += end + 2
				continue
			}
		case strings.HasPrefix(line[i:], "**"):
			if end := strings.Index(line[i+2:], "**"); end > 0 {
				emit(Bold, line[i+2:i+2+end])
				i += end + 4
				continue
			}
		case line[i] == '*':
			if end := strings.IndexByte(line[i+1:], '*'); end > 0 {
				emit(Emphasis, line[i+1:i+1+end])
				i += end + 2
				continue
			}
		}
		plain.WriteByte(line[i])
		i++
	}
	emit(Plain, "")
	return spans
}

// Render converts text to styled terminal output. Both "\n" and "<br>" break
// lines; "\r" is dropped.
func Render(text string, st Styles) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(text)

	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, sp := range Parse(line) {
			b.WriteString(st.style(sp.Kind).Render(sp.Text))
		}
		out[i] = b.String()
	}
	return strings.Join(out, "\n")
}

func (st Styles) style(k Kind) lipgloss.Style {
	switch k {
	case Bold:
		return st.Bold
	case Emphasis:
		return st.Emphasis
	case Code:
		return st.Code
	}
	return st.Plain
}

// Wrap renders text and soft-wraps it to width columns.
func Wrap(text string, width int, st Styles) string {
	r := Render(text, st)
	if width <= 0 {
		return r
	}
	return lipgloss.NewStyle().Width(width).Render(r)
}
