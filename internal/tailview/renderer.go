package tailview

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"nova/internal/model"
)

// Renderer writes feed envelopes to an output stream.
type Renderer interface {
	Render(env model.Envelope) error
}

var (
	styleTime     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleUser     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	styleNova     = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	styleStatus   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleCalendar = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleRemoved  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim      = lipgloss.NewStyle().Faint(true)
)

// TextRenderer prints one colored line per envelope.
type TextRenderer struct {
	w   io.Writer
	loc *time.Location
}

func NewTextRenderer(w io.Writer, loc *time.Location) *TextRenderer {
	if loc == nil {
		loc = time.Local
	}
	return &TextRenderer{w: w, loc: loc}
}

func (r *TextRenderer) Render(env model.Envelope) error {
	ts := styleTime.Render(r.clock(env.At))

	var line string
	switch env.Kind {
	case model.KindLog:
		if env.Log == nil {
			return nil
		}
		line = renderLog(*env.Log)
	case model.KindStatus:
		if env.Status == nil {
			return nil
		}
		line = styleStatus.Render("status") + " " + env.Status.Status
	case model.KindCalendarAdded:
		if env.Event == nil {
			return nil
		}
		ev := env.Event
		line = fmt.Sprintf("%s %s %s %s", styleCalendar.Render("+ event"), ev.Date, ev.Time, ev.Title)
		if ev.Source != "" {
			line += " " + styleDim.Render("("+ev.Source+")")
		}
	case model.KindCalendarDeleted:
		line = styleRemoved.Render("- event") + " " + env.ID
	default:
		line = styleDim.Render(string(env.Kind))
	}

	_, err := fmt.Fprintln(r.w, ts+" "+line)
	return err
}

func (r *TextRenderer) clock(at string) string {
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return "--:--:--"
	}
	return t.In(r.loc).Format("15:04:05")
}

func renderLog(e model.LogEntry) string {
	who := styleNova
	if e.IsUserTalking {
		who = styleUser
	}

	var b strings.Builder
	b.WriteString(who.Render(fmt.Sprintf("%-6s", e.WhoIsTalking)))
	b.WriteString(" ")
	b.WriteString(e.Command)
	if e.Response != nil && *e.Response != "" {
		b.WriteString(styleDim.Render(" → "))
		b.WriteString(*e.Response)
	}
	for _, d := range e.Forecast {
		fmt.Fprintf(&b, "\n         %s %s %.0f/%.0f°C rain %d%%",
			styleDim.Render(d.Date), d.Condition, d.MinTempC, d.MaxTempC, d.ChanceOfRain)
	}
	return b.String()
}

// JSONRenderer prints each envelope as one JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(env model.Envelope) error {
	return r.enc.Encode(env)
}
