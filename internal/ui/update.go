package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"quill/internal/chat"
	"quill/internal/db"
	"quill/internal/models"
	"quill/internal/styles"
	"quill/internal/tools"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Loading {
			m.UpdateViewport()
		}
		return m, spCmd

	case tea.KeyMsg:
		if m.Form.Open {
			return m.updateForm(msg)
		}

		if m.ActionPickerOpen {
			return m.updateActionPicker(msg)
		}

		if m.HistoryOpen {
			return m.updateHistory(msg)
		}

		if m.ModelSelectorOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "ctrl+b":
				m.ModelSelectorOpen = false
				return m, nil
			case "up", "k":
				m.SelectedModel--
				if m.SelectedModel < 0 {
					m.SelectedModel = len(m.ModelConfigs) - 1
				}
				return m, nil
			case "down", "j":
				m.SelectedModel++
				if m.SelectedModel >= len(m.ModelConfigs) {
					m.SelectedModel = 0
				}
				return m, nil
			case "enter":
				if len(m.ModelConfigs) > 0 {
					m.CurrentModel = m.ModelConfigs[m.SelectedModel]
				}
				m.ModelSelectorOpen = false
				return m, nil
			}
			return m, nil
		}

		if m.ShortcutsOpen {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc", "enter", "?", "ctrl+s":
				m.ShortcutsOpen = false
				return m, nil
			}
			return m, nil
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.FileSuggestOpen = false
			m.updateInputLayout()
			return m, nil
		}

		if m.FileSuggestOpen {
			switch msg.String() {
			case "esc":
				m.FileSuggestOpen = false
				return m, nil
			case "up", "ctrl+p":
				if len(m.FileSuggestions) > 0 {
					m.FileSuggestIdx--
					if m.FileSuggestIdx < 0 {
						m.FileSuggestIdx = len(m.FileSuggestions) - 1
					}
				}
				return m, nil
			case "down", "ctrl+n":
				if len(m.FileSuggestions) > 0 {
					m.FileSuggestIdx++
					if m.FileSuggestIdx >= len(m.FileSuggestions) {
						m.FileSuggestIdx = 0
					}
				}
				return m, nil
			case "tab", "enter":
				m.acceptFileSuggestion()
				return m, nil
			}
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.FileSuggestOpen {
				m.FileSuggestOpen = false
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyCtrlN:
			m.ResetSession()
			return m, nil

		case tea.KeyCtrlP:
			m.ActionPickerOpen = true
			m.ModelSelectorOpen = false
			m.HistoryOpen = false
			m.ShortcutsOpen = false
			m.SelectedAction = 0
			for i, a := range m.Actions {
				if a.IsDefault {
					m.SelectedAction = i
					break
				}
			}
			return m, nil

		case tea.KeyCtrlB:
			m.ModelSelectorOpen = true
			m.HistoryOpen = false
			m.ShortcutsOpen = false
			return m, nil

		case tea.KeyCtrlS:
			m.ShortcutsOpen = true
			m.ModelSelectorOpen = false
			m.HistoryOpen = false
			return m, nil

		case tea.KeyCtrlH:
			m.ModelSelectorOpen = false
			m.HistoryOpen = true
			m.ShortcutsOpen = false
			m.HistoryPage = 0
			m.RefreshHistoryFromDB()
			return m, nil

		case tea.KeyEnter:
			if m.FileSuggestOpen && len(m.FileSuggestions) > 0 {
				m.acceptFileSuggestion()
				return m, nil
			}

			if m.Loading {
				return m, nil
			}
			input := m.TextInput.Value()
			if input == "" {
				return m, nil
			}

			if input == "/clear" || input == "/reset" {
				m.ResetSession()
				return m, nil
			}

			question, files := ExtractFileMentions(input)
			return m.submit(question, files, m.CurrentModel)
		}

	case ToolProgressMsg:
		m.ExecutingTool = msg.Name
		m.ToolDetail = msg.Detail
		m.ToolTrace = append(m.ToolTrace, models.ToolTrace{Name: msg.Name, Detail: msg.Detail})
		m.UpdateViewport()
		return m, nil

	case DeltaMsg:
		if m.Loading {
			m.ExecutingTool = ""
			m.ToolDetail = ""
			m.UpdateViewport()
		}
		return m, nil

	case AnswerMsg:
		m.Loading = false
		m.ExecutingTool = ""
		m.ToolDetail = ""
		m.appendAnswer(msg.Turn)
		m.ToolTrace = nil
		m.Status = "✓ Done"
		m.StatusIsError = false
		m.UpdateViewport()
		return m, clearStatusLater()

	case ErrMsg:
		m.Loading = false
		m.ExecutingTool = ""
		m.ToolDetail = ""
		m.ToolTrace = nil
		m.Err = msg
		m.Status = statusForError(msg)
		m.StatusIsError = true
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(m.Status))
		m.UpdateViewport()
		return m, clearStatusLater()

	case ClearStatusMsg:
		m.Status = ""
		m.StatusIsError = false
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		chatWidth := msg.Width - 2
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, tea.Batch(tiCmd, vpCmd)
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter terminal background color queries that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	val = m.TextInput.Value()
	cursorPos := TextareaCursorIndex(m.TextInput)
	if prefix, _, found := GetAtPosition(val, cursorPos); found {
		suggestions := GetFileSuggestions(prefix)
		if len(suggestions) > 0 {
			m.FileSuggestions = suggestions
			m.FileSuggestOpen = true
			m.FileSuggestIdx = 0
			m.FileSuggestPrefix = prefix
		} else {
			m.FileSuggestOpen = false
		}
	} else {
		m.FileSuggestOpen = false
	}

	_, m.PendingFiles = ExtractFileMentions(val)

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// submit sends a question through the pipeline and flips the surface
// into its in-flight state.
func (m *Model) submit(question string, files []string, mc models.ModelConfig) (tea.Model, tea.Cmd) {
	display := question
	if len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		display = fmt.Sprintf("%s\n📎 %s", question, strings.Join(names, ", "))
	}
	m.Messages = append(m.Messages, FormatUserMessage(display, m.Viewport.Width, len(m.Messages) == 0))
	m.TextInput.Reset()
	m.updateInputLayout()
	m.FileSuggestOpen = false
	m.PendingFiles = nil
	m.Loading = true
	m.Status = ""
	m.ToolTrace = nil
	m.UpdateViewport()

	return m, tea.Batch(m.SendMessage(question, files, mc), m.Spinner.Tick)
}

// RunAction renders the action's prompt template against the live
// sources and submits the result. Template failures surface
// immediately without a request going out.
func (m *Model) RunAction(action models.Action) (tea.Model, tea.Cmd) {
	expanded, _, err := m.Engine.Render(action.Prompt)
	if err != nil {
		m.Status = fmt.Sprintf("✗ %s: %v", action.Title, err)
		m.StatusIsError = true
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(m.Status))
		m.UpdateViewport()
		return m, clearStatusLater()
	}

	mc := m.CurrentModel
	if action.ModelID != "" && m.Conn != nil && m.DBErr == nil {
		if found, err := db.GetModelConfig(m.Conn, action.ModelID); err == nil {
			mc = found
		}
	}
	return m.submit(expanded, nil, mc)
}

func (m *Model) SendMessage(question string, files []string, mc models.ModelConfig) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.Orc.Ask(context.Background(), question, files, mc, chat.Events{
			OnToolProgress: func(name, detail string) {
				if m.Program != nil {
					m.Program.Send(ToolProgressMsg{Name: name, Detail: detail})
				}
			},
			OnDelta: func(turnID, answer string) {
				if m.Program != nil {
					m.Program.Send(DeltaMsg{TurnID: turnID, Answer: answer})
				}
			},
		})
		if err != nil {
			return ErrMsg(err)
		}
		return AnswerMsg{Turn: turn}
	}
}

func statusForError(err error) string {
	switch {
	case errors.Is(err, chat.ErrRateLimited):
		return "✗ Rate limited. Check your API plan and billing details."
	case errors.Is(err, tools.ErrConfigMissing):
		return fmt.Sprintf("✗ %v", err)
	default:
		return fmt.Sprintf("✗ Couldn't get a response: %v", err)
	}
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(StatusLingerSeconds*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

func (m *Model) appendAnswer(turn models.ChatTurn) {
	displayContent := turn.Answer
	if m.Renderer != nil {
		rendered, _ := m.Renderer.Render(turn.Answer)
		displayContent = strings.TrimSpace(rendered)
	}
	if len(turn.ToolTrace) > 0 {
		m.Messages = append(m.Messages, FormatAnswerWithTools(FormatToolTrace(turn.ToolTrace), displayContent))
	} else {
		m.Messages = append(m.Messages, FormatAnswer(displayContent))
	}
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) acceptFileSuggestion() {
	if len(m.FileSuggestions) == 0 || m.FileSuggestIdx >= len(m.FileSuggestions) {
		m.FileSuggestOpen = false
		return
	}
	selected := m.FileSuggestions[m.FileSuggestIdx]
	val := m.TextInput.Value()
	cursorPos := TextareaCursorIndex(m.TextInput)
	prefix, startPos, found := GetAtPosition(val, cursorPos)
	if found {
		newVal := val[:startPos] + "@" + selected + " " + val[startPos+1+len(prefix):]
		newCursorIndex := startPos + len(selected) + 2
		m.TextInput.SetValue(newVal)
		row, col := TextareaCursorFromIndex(newVal, newCursorIndex)
		SetTextareaCursor(&m.TextInput, row, col)
	}
	m.FileSuggestOpen = false
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

func (m *Model) ResetSession() {
	m.Messages = []string{}
	m.Orc.Reset()
	m.Loading = false
	m.ToolTrace = nil
	m.Status = ""
	m.HistoryOpen = false
	m.HistoryErr = nil
	m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.updateInputLayout()
}

func (m *Model) RefreshHistoryFromDB() {
	m.HistoryErr = nil
	m.HistoryTurns = nil
	m.HistorySelectedIdx = 0

	if m.DBErr != nil {
		m.HistoryErr = m.DBErr
		return
	}
	if m.Conn == nil {
		m.HistoryErr = fmt.Errorf("history database not initialized")
		return
	}

	offset := m.HistoryPage * HistoryPageSize
	count, turns, err := db.RecentTurns(m.Conn, HistoryPageSize, offset)
	if err != nil {
		m.HistoryErr = err
		return
	}
	m.HistoryTurnCount = count
	m.HistoryTurns = turns
}

func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+h":
		m.HistoryOpen = false
		m.HistoryErr = nil
		return m, nil
	case "up", "k":
		if len(m.HistoryTurns) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx--
		if m.HistorySelectedIdx < 0 {
			m.HistorySelectedIdx = len(m.HistoryTurns) - 1
		}
		return m, nil
	case "down", "j":
		if len(m.HistoryTurns) == 0 {
			return m, nil
		}
		m.HistorySelectedIdx++
		if m.HistorySelectedIdx >= len(m.HistoryTurns) {
			m.HistorySelectedIdx = 0
		}
		return m, nil
	case "enter":
		if len(m.HistoryTurns) == 0 {
			return m, nil
		}
		turn := m.HistoryTurns[m.HistorySelectedIdx]
		m.Messages = append(m.Messages, FormatUserMessage(turn.Question, m.Viewport.Width, len(m.Messages) == 0))
		m.appendAnswer(turn)
		m.Orc.Restore(append(m.Orc.Turns(), turn))
		m.HistoryOpen = false
		m.HistoryErr = nil
		m.UpdateViewport()
		return m, nil
	case "d":
		if len(m.HistoryTurns) == 0 || m.Conn == nil {
			return m, nil
		}
		turn := m.HistoryTurns[m.HistorySelectedIdx]
		if err := db.DeleteTurn(m.Conn, turn.ID); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.RefreshHistoryFromDB()
		return m, nil
	case "c":
		if m.HistoryTurnCount == 0 || m.Conn == nil {
			return m, nil
		}
		if err := db.ClearTurns(m.Conn); err != nil {
			m.HistoryErr = err
			return m, nil
		}
		m.HistoryPage = 0
		m.RefreshHistoryFromDB()
		return m, nil
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.RefreshHistoryFromDB()
		}
		return m, nil
	case "right", "l":
		totalPages := (m.HistoryTurnCount + HistoryPageSize - 1) / HistoryPageSize
		if m.HistoryPage < totalPages-1 {
			m.HistoryPage++
			m.RefreshHistoryFromDB()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateActionPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+p":
		m.ActionPickerOpen = false
		return m, nil
	case "up", "k":
		if len(m.Actions) == 0 {
			return m, nil
		}
		m.SelectedAction--
		if m.SelectedAction < 0 {
			m.SelectedAction = len(m.Actions) - 1
		}
		return m, nil
	case "down", "j":
		if len(m.Actions) == 0 {
			return m, nil
		}
		m.SelectedAction++
		if m.SelectedAction >= len(m.Actions) {
			m.SelectedAction = 0
		}
		return m, nil
	case "enter":
		if len(m.Actions) == 0 || m.Loading {
			return m, nil
		}
		action := m.Actions[m.SelectedAction]
		m.ActionPickerOpen = false
		return m.RunAction(action)
	case "n":
		m.ActionPickerOpen = false
		m.openForm(models.Action{ModelID: models.DefaultModelID})
		return m, nil
	case "e":
		if len(m.Actions) == 0 {
			return m, nil
		}
		m.ActionPickerOpen = false
		m.openForm(m.Actions[m.SelectedAction])
		return m, nil
	case "d":
		if len(m.Actions) == 0 || m.Conn == nil {
			return m, nil
		}
		action := m.Actions[m.SelectedAction]
		if err := db.DeleteAction(m.Conn, action.ID); err == nil {
			m.reloadStore()
			if m.SelectedAction >= len(m.Actions) && m.SelectedAction > 0 {
				m.SelectedAction--
			}
		}
		return m, nil
	case "s":
		if len(m.Actions) == 0 || m.Conn == nil {
			return m, nil
		}
		action := m.Actions[m.SelectedAction]
		if err := db.SetDefaultAction(m.Conn, action.ID); err == nil {
			m.reloadStore()
		}
		return m, nil
	}
	return m, nil
}
