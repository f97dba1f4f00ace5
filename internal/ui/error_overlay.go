package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

// errorPanel is the overlay foreground
type errorPanel struct {
	title string
	err   error
	width int
}

func (p errorPanel) Init() tea.Cmd {
	return nil
}

func (p errorPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return p, nil
}

func (p errorPanel) View() string {
	overlayWidth := p.width / 2
	if overlayWidth < 40 {
		overlayWidth = 40
	}

	var content strings.Builder
	content.WriteString(ErrorOverlayTitleStyle.Render(p.title))
	content.WriteString("\n\n")
	if p.err != nil {
		content.WriteString(ErrorMessageStyle.Render(p.err.Error()))
		content.WriteString("\n\n")
	}
	content.WriteString(HelpTextSimpleStyle.Render("Esc/Enter: Dismiss"))

	return GetErrorOverlayStyle(overlayWidth).Render(content.String())
}

// ErrorOverlayModel shows a dismissible error on top of another view
type ErrorOverlayModel struct {
	panel   errorPanel
	visible bool
}

func NewErrorOverlayModel() ErrorOverlayModel {
	return ErrorOverlayModel{}
}

func (m *ErrorOverlayModel) Show(title string, err error) {
	m.panel.title = title
	m.panel.err = err
	m.visible = true
}

func (m *ErrorOverlayModel) Hide() {
	m.visible = false
	m.panel.err = nil
}

func (m ErrorOverlayModel) IsVisible() bool {
	return m.visible
}

func (m ErrorOverlayModel) Err() error {
	return m.panel.err
}

func (m *ErrorOverlayModel) UpdateSize(width int) {
	m.panel.width = width
}

// HandleKey reports whether the key dismissed the overlay
func (m *ErrorOverlayModel) HandleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "esc", "enter":
		m.Hide()
		return true
	}
	return false
}

func (m ErrorOverlayModel) RenderOverlay(backgroundView string) string {
	if !m.visible {
		return backgroundView
	}

	overlayModel := overlay.New(
		m.panel,
		&staticViewModel{content: backgroundView},
		overlay.Center,
		overlay.Center,
		0,
		0,
	)

	return overlayModel.View()
}

// staticViewModel is a simple model that renders static content (background)
type staticViewModel struct {
	content string
}

func (m staticViewModel) Init() tea.Cmd {
	return nil
}

func (m staticViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m staticViewModel) View() string {
	return m.content
}
