package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"quill/internal/chat"
	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/sources"
	"quill/internal/template"
)

var ModalWidth = 60

const (
	HistoryPageSize = 10

	// how long a finished request's status line stays on screen
	StatusLingerSeconds = 3
)

type ErrMsg error

// DeltaMsg carries the answer accumulated so far for a streaming turn.
type DeltaMsg struct {
	TurnID string
	Answer string
}

// ToolProgressMsg announces a tool call about to run.
type ToolProgressMsg struct {
	Name   string
	Detail string
}

// AnswerMsg carries the finished turn.
type AnswerMsg struct {
	Turn models.ChatTurn
}

// ClearStatusMsg expires the transient status line.
type ClearStatusMsg struct{}

// form field indexes for the action editor
const (
	fieldTitle = iota
	fieldDescription
	fieldPrompt
	fieldModel
	fieldCount
)

// ActionForm edits one action in a modal.
type ActionForm struct {
	Open    bool
	Editing string // action id being edited, empty when creating
	Focus   int
	Inputs  [fieldCount]textinput.Model
	Errs    []models.FieldError
}

type Model struct {
	Viewport  viewport.Model
	Messages  []string
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *glamour.TermRenderer

	Conn  *sql.DB
	DBErr error
	Cfg   config.Config

	Orc     *chat.Orchestrator
	Sources *sources.Live
	Engine  *template.Engine

	Actions       []models.Action
	ModelConfigs  []models.ModelConfig
	CurrentModel  models.ModelConfig
	SelectedModel int

	Loading       bool
	ExecutingTool string
	ToolDetail    string
	ToolTrace     []models.ToolTrace
	Status        string
	StatusIsError bool
	Err           error

	WindowWidth  int
	WindowHeight int

	ActionPickerOpen bool
	SelectedAction   int

	HistoryOpen        bool
	HistorySelectedIdx int
	HistoryTurnCount   int
	HistoryTurns       []models.ChatTurn
	HistoryErr         error
	HistoryPage        int

	ModelSelectorOpen bool
	ShortcutsOpen     bool
	Form              ActionForm

	// Image files attached via @mention for the current message
	PendingFiles []string

	FileSuggestOpen   bool
	FileSuggestions   []string
	FileSuggestIdx    int
	FileSuggestPrefix string

	Program *tea.Program
}
