package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/routes"
	"github.com/tinytelemetry/olam/internal/store"
)

// aiView is the assistant chat. Lines starting with a slash change settings
// instead of being sent.
type aiView struct {
	st    *store.AIStore
	keys  KeyMap
	input textinput.Model

	renderer      *glamour.TermRenderer
	rendererWidth int
}

func newAIView(d ViewDeps) *aiView {
	in := textinput.New()
	in.Placeholder = "Ask about batches, or /model /key /provider /baseurl /maxrows"
	in.CharLimit = 2000
	return &aiView{st: d.Stores.AI, keys: DefaultKeyMap(), input: in}
}

func (v *aiView) ID() routes.View { return routes.AI }
func (v *aiView) Title() string   { return "Assistant" }
func (v *aiView) Loading() bool   { return v.st.Loading() }
func (v *aiView) Err() string     { return v.st.Err() }
func (v *aiView) Editing() bool   { return v.input.Focused() }

func (v *aiView) Load(context.Context) tea.Cmd {
	return loadCmd(v.ID(), v.st.Err, v.st.LoadSettings)
}

func (v *aiView) HandleKey(ctx context.Context, msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, v.keys.ResetChat) {
		v.st.ResetChat()
		return nil, false
	}

	if !v.input.Focused() {
		if key.Matches(msg, v.keys.Edit) || key.Matches(msg, v.keys.Enter) {
			return v.input.Focus(), false
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, v.keys.Escape):
		v.input.Blur()
		return nil, false
	case key.Matches(msg, v.keys.Enter):
		text := strings.TrimSpace(v.input.Value())
		if text == "" {
			return nil, false
		}
		v.input.SetValue("")
		if strings.HasPrefix(text, "/") {
			return v.command(text), false
		}
		if !v.st.CanSend() {
			return actionMsg(ActionMsg{Action: ActionSetStatus, Payload: "set /model and /key before sending"}), false
		}
		return loadCmd(v.ID(), v.st.Err, func() { v.st.Send(ctx, text) }), true
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return cmd, false
}

// command applies a settings command and persists the result.
func (v *aiView) command(line string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	s := v.st.Settings()
	switch strings.ToLower(name) {
	case "model":
		s.Model = arg
	case "key":
		s.APIKey = arg
	case "provider":
		s.ProviderID = model.ProviderID(strings.ToLower(arg))
	case "baseurl":
		s.BaseURL = arg
	case "maxrows":
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return v.status("maxrows wants a positive integer")
		}
		s.MaxRows = n
	default:
		return v.status("unknown command /" + name)
	}

	v.st.SetSettings(s)
	if err := v.st.SaveSettings(); err != nil {
		return v.status(err.Error())
	}
	return v.status("saved " + name)
}

func (v *aiView) status(text string) tea.Cmd {
	return actionMsg(ActionMsg{Action: ActionSetStatus, Payload: text})
}

// markdown renders assistant content, falling back to the raw text.
func (v *aiView) markdown(content string, width int) string {
	if v.renderer == nil || v.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath(markdownStyle),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		v.renderer, v.rendererWidth = r, width
	}
	out, err := v.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (v *aiView) Render(_ ViewContext, width, height int) string {
	settings := v.st.Settings()
	info := helpStyle.Render(fmt.Sprintf("provider %s  model %s  max rows %d",
		settings.ProviderID, orDash(settings.Model), settings.MaxRows))
	if !v.st.CanSend() {
		info += "\n" + errorStyle.Render("No model or API key set. Type /model <name> and /key <secret>.")
	}

	var blocks []string
	for _, m := range v.st.Messages() {
		switch m.Role {
		case model.RoleUser:
			blocks = append(blocks, selectedStyle.Render("you › ")+m.Content)
		default:
			body := v.markdown(m.Content, max(20, width-2))
			if m.SQL != "" {
				meta := "sql: " + m.SQL
				if m.RowCount != nil {
					meta += fmt.Sprintf("  (%d rows)", *m.RowCount)
				}
				body += "\n" + helpStyle.Render(truncate(meta, width))
			}
			blocks = append(blocks, body)
		}
	}

	prompt := helpStyle.Render("/ or enter to type  ctrl+r reset")
	if v.input.Focused() {
		prompt = v.input.View()
	}

	transcriptH := max(1, height-lipgloss.Height(info)-2)
	transcript := strings.Join(blocks, "\n\n")
	if lines := strings.Split(transcript, "\n"); len(lines) > transcriptH {
		transcript = strings.Join(lines[len(lines)-transcriptH:], "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		info,
		lipgloss.NewStyle().Height(transcriptH).Render(transcript),
		prompt,
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
