package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quill/internal/styles"
)

func (m *Model) RenderActionPicker() string {
	title := styles.ModalTitleStyle.Render("Actions")

	var body string
	if len(m.Actions) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No actions yet. Press n to create one."))
	} else {
		items := make([]string, 0, len(m.Actions))
		for i, action := range m.Actions {
			marker := "  "
			if action.IsDefault {
				marker = "● "
			}
			line := fmt.Sprintf("%s%s %s", marker, action.Icon, action.Title)
			if action.Description != "" {
				line += "  " + lipgloss.NewStyle().Foreground(styles.HintColor).Render(TruncateRunes(action.Description, 24))
			}
			if i == m.SelectedAction {
				items = append(items, styles.ModalSelectedStyle.Render(line))
			} else {
				items = append(items, styles.ModalItemStyle.Render(line))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Enter: run • n: new • e: edit • d: delete • s: default • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderModelSelector() string {
	title := styles.ModalTitleStyle.Render("Select Model")

	items := make([]string, 0, len(m.ModelConfigs))
	for i, mc := range m.ModelConfigs {
		displayName := mc.Name
		if m.CurrentModel.ID == mc.ID {
			displayName = "● " + displayName
		} else {
			displayName = "  " + displayName
		}
		detail := mc.Option
		if len(mc.EnabledTools) > 0 {
			detail += " · tools"
		}
		if mc.Vision {
			detail += " · vision"
		}
		line := displayName + "  " + lipgloss.NewStyle().Foreground(styles.HintColor).Render(detail)

		if i == m.SelectedModel {
			items = append(items, styles.ModalSelectedStyle.Render(line))
		} else {
			items = append(items, styles.ModalItemStyle.Render(line))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, body)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • Enter: select • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderHistorySelector() string {
	totalPages := (m.HistoryTurnCount + HistoryPageSize - 1) / HistoryPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("History (%d) - Page %d/%d", m.HistoryTurnCount, m.HistoryPage+1, totalPages))

	var body string
	if m.HistoryErr != nil {
		body = lipgloss.NewStyle().Width(styles.ContentWidth).Render(styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.HistoryErr)))
	} else if len(m.HistoryTurns) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No saved turns yet"))
	} else {
		items := make([]string, 0, len(m.HistoryTurns))
		for i, turn := range m.HistoryTurns {
			isSelected := i == m.HistorySelectedIdx
			cursor := "  "
			if isSelected {
				cursor = "> "
			}
			timeStr := RelativeTime(turn.CreatedAt)
			prompt := PromptPreview(turn.Question)
			if prompt == "" {
				prompt = "(no prompt)"
			}
			availableWidth := styles.ContentWidth - 2 - len(cursor) - 1 - len(timeStr)
			prompt = TruncateRunes(prompt, availableWidth)

			itemContent := fmt.Sprintf("%s%s %s", cursor, prompt, lipgloss.NewStyle().Foreground(styles.HintColor).Render(timeStr))
			if isSelected {
				items = append(items, styles.ModalSelectedStyle.Render(itemContent))
			} else {
				items = append(items, styles.ModalItemStyle.Render(itemContent))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: open • d: delete • c: clear all • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderActionForm() string {
	header := "New Action"
	if m.Form.Editing != "" {
		header = "Edit Action"
	}
	title := styles.ModalTitleStyle.Render(header)

	fieldErrs := make(map[string]string)
	for _, fe := range m.Form.Errs {
		fieldErrs[fe.Field] = fe.Message
	}
	errFields := [fieldCount]string{"title", "", "prompt", "model"}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	focusedLabel := labelStyle.Foreground(lipgloss.Color("#FFCC80"))

	var rows []string
	for i := 0; i < fieldCount; i++ {
		label := formLabels[i]
		style := labelStyle
		if i == m.Form.Focus {
			style = focusedLabel
		}
		rows = append(rows, style.Render(label))
		rows = append(rows, m.Form.Inputs[i].View())
		if field := errFields[i]; field != "" {
			if msg, ok := fieldErrs[field]; ok {
				rows = append(rows, styles.ErrorStyle.Render("  "+msg))
			}
		}
		rows = append(rows, "")
	}
	if msg, ok := fieldErrs["store"]; ok {
		rows = append(rows, styles.ErrorStyle.Render(msg))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, body)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Tab: next field • Enter: save • Esc: cancel")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Ctrl+C", "Quit"},
		{"Ctrl+N", "New Session"},
		{"Ctrl+P", "Actions"},
		{"Ctrl+B", "Select Model"},
		{"Ctrl+H", "History"},
		{"Ctrl+S", "Shortcuts (this menu)"},
		{"@", "Attach Image (in input)"},
	}

	var items []string
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0"))

	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	listContent := lipgloss.JoinVertical(lipgloss.Left, items...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, listContent)

	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar() string {
	badge := "CHAT"
	badgeColor := "#81D4FA"
	if m.Cfg.HistoryPaused {
		badge = "PAUSED"
		badgeColor = "#FFF59D"
	}
	mode := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(badgeColor)).
		Padding(0, 1).
		Render(badge)

	modelName := TruncateRunes(m.CurrentModel.Name, 25)
	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(modelName)

	transport := "stream"
	if !m.Cfg.UseStream() {
		transport = "whole"
	}
	mode2 := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(transport)

	var status string
	if m.Status != "" {
		statusColor := "#A5D6A7"
		if m.StatusIsError {
			statusColor = "#EF9A9A"
		}
		status = lipgloss.NewStyle().
			Foreground(lipgloss.Color(statusColor)).
			Render(TruncateRunes(m.Status, 48))
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, mode, "  ", model, "  ", mode2)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, status, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func (m *Model) RenderPendingFiles() string {
	if len(m.PendingFiles) == 0 {
		return ""
	}

	chipStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C4DFF")).
		Padding(0, 1).
		MarginRight(1)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	var chips []string
	for _, file := range m.PendingFiles {
		chips = append(chips, chipStyle.Render("🖼 "+filepath.Base(file)))
	}

	return labelStyle.Render("Attached: ") + strings.Join(chips, " ")
}

func (m *Model) RenderFileSuggestions() string {
	if !m.FileSuggestOpen || len(m.FileSuggestions) == 0 {
		return ""
	}

	suggestionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0")).
		Padding(0, 1)

	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C4DFF")).
		Padding(0, 1)

	var lines []string
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render("  Images (↑↓ to select, Tab/Enter to insert)")
	lines = append(lines, header)

	for i, suggestion := range m.FileSuggestions {
		if i == m.FileSuggestIdx {
			lines = append(lines, selectedStyle.Render("▸ "+suggestion))
		} else {
			lines = append(lines, suggestionStyle.Render("  "+suggestion))
		}
	}

	popupStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C4DFF")).
		Background(lipgloss.Color("#1E1E2E")).
		Padding(0, 1)

	return popupStyle.Render(strings.Join(lines, "\n"))
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭───────────────────────────────────────────────╮
 │                                               │
 │     ██████╗ ██╗   ██╗██╗██╗     ██╗           │
 │    ██╔═══██╗██║   ██║██║██║     ██║           │
 │    ██║   ██║██║   ██║██║██║     ██║           │
 │    ██║▄▄ ██║██║   ██║██║██║     ██║           │
 │    ╚██████╔╝╚██████╔╝██║███████╗███████╗      │
 │     ╚══▀▀═╝  ╚═════╝ ╚═╝╚══════╝╚══════╝      │
 │                                               │
 ╰───────────────────────────────────────────────╯
`
	subtitle := "Prompt actions for the text in front of you."

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Italic(true).Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	if len(m.Messages) == 0 && !m.Loading {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.Messages, "\n\n")
	if m.Loading {
		statusText := " Thinking..."
		if m.ExecutingTool != "" {
			statusText = fmt.Sprintf(" %s...", m.ToolDetail)
		}

		var loadingParts []string
		loadingParts = append(loadingParts, styles.AiLabelStyle.Render("QUILL"))

		if len(m.ToolTrace) > 0 {
			loadingParts = append(loadingParts, FormatToolTrace(m.ToolTrace))
		}

		if partial := m.partialAnswer(); partial != "" {
			loadingParts = append(loadingParts, styles.AiMsgStyle.Render(partial))
		}

		loadingParts = append(loadingParts, fmt.Sprintf("%s%s", m.Spinner.View(), statusText))

		loadingMsg := strings.Join(loadingParts, "\n")
		if len(m.Messages) > 0 {
			content = content + "\n\n" + loadingMsg
		} else {
			content = loadingMsg
		}
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

// partialAnswer is the text streamed so far for the turn in flight.
func (m *Model) partialAnswer() string {
	turns := m.Orc.Turns()
	if len(turns) == 0 {
		return ""
	}
	answer := turns[len(turns)-1].Answer
	if answer == "" {
		return ""
	}
	if m.Renderer != nil {
		if rendered, err := m.Renderer.Render(answer); err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return answer
}

func (m *Model) renderModal(body string) string {
	modal := styles.ModalStyle.Width(ModalWidth).Render(body)
	return lipgloss.NewStyle().
		Background(lipgloss.Color("rgba(0,0,0,0.7)")).
		Render(lipgloss.Place(
			m.WindowWidth,
			m.WindowHeight,
			lipgloss.Center,
			lipgloss.Center,
			modal,
		))
}

func (m *Model) View() string {
	fileSuggestPopup := m.RenderFileSuggestions()
	pendingFilesDisplay := m.RenderPendingFiles()

	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	var inputParts []string
	if pendingFilesDisplay != "" {
		inputParts = append(inputParts, pendingFilesDisplay)
	}
	if fileSuggestPopup != "" {
		inputParts = append(inputParts, fileSuggestPopup)
	}
	inputParts = append(inputParts, inputBox)
	inputSection := lipgloss.JoinVertical(lipgloss.Left, inputParts...)

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("QUILL"),
		"",
		m.Viewport.View(),
		"",
		inputSection,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	bottomBar := m.RenderBottomBar()

	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, bottomBar)

	switch {
	case m.Form.Open:
		return m.renderModal(m.RenderActionForm())
	case m.ActionPickerOpen:
		return m.renderModal(m.RenderActionPicker())
	case m.HistoryOpen:
		return m.renderModal(m.RenderHistorySelector())
	case m.ModelSelectorOpen:
		return m.renderModal(m.RenderModelSelector())
	case m.ShortcutsOpen:
		return m.renderModal(m.RenderShortcutsModal())
	}

	return content
}
