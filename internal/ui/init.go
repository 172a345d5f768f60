package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quill/internal/chat"
	"quill/internal/config"
	"quill/internal/db"
	"quill/internal/logger"
	"quill/internal/models"
	"quill/internal/sources"
	"quill/internal/speech"
	"quill/internal/template"
	"quill/internal/tools"
)

func InitialModel(cfg config.Config) Model {
	ti := textarea.New()
	ti.Placeholder = "Ask something, or Ctrl+P for an action..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	vp := viewport.New(60, 15)

	conn, dbErr := db.OpenQuillDB()

	live := sources.NewLive(cfg.BrowserDebugURL)

	provider := chat.NewProvider(cfg)
	invoker := chat.NewInvoker(provider, tools.Config{WeatherAPIKey: cfg.WeatherAPIKey})
	orc := chat.New(provider, invoker, db.TurnStore{Conn: conn}, speech.New(), chat.Options{
		Stream:        cfg.UseStream(),
		AutoSpeak:     cfg.AutoSpeak,
		HistoryPaused: cfg.HistoryPaused,
		SystemPrompt:  cfg.SystemPrompt,
	})

	m := Model{
		TextInput: ti,
		Viewport:  vp,
		Spinner:   sp,
		Conn:      conn,
		DBErr:     dbErr,
		Cfg:       cfg,
		Orc:       orc,
		Sources:   live,
		Engine:    template.NewEngine(live),
		Messages:  []string{},
	}
	m.reloadStore()
	return m
}

// reloadStore refreshes actions and model configurations from the
// database, falling back to the built-in defaults when the store is
// unreachable.
func (m *Model) reloadStore() {
	m.CurrentModel = models.DefaultModelConfig()
	if m.DBErr != nil || m.Conn == nil {
		m.Actions = models.StarterActions()
		m.ModelConfigs = []models.ModelConfig{m.CurrentModel}
		return
	}

	actions, err := db.ListActions(m.Conn)
	if err != nil {
		logger.Warn("loading actions", "error", err)
		actions = models.StarterActions()
	}
	m.Actions = actions

	configs, err := db.ListModelConfigs(m.Conn)
	if err != nil || len(configs) == 0 {
		configs = []models.ModelConfig{models.DefaultModelConfig()}
	}
	m.ModelConfigs = configs

	for i, mc := range configs {
		if mc.ID == models.DefaultModelID {
			m.CurrentModel = mc
			m.SelectedModel = i
			break
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
	)
}

func NewProgram(cfg config.Config) *tea.Program {
	m := InitialModel(cfg)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	return p
}
