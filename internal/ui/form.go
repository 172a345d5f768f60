package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/google/uuid"

	"quill/internal/db"
	"quill/internal/models"
)

var formLabels = [fieldCount]string{"Title", "Description", "Prompt", "Model"}

func (m *Model) openForm(action models.Action) {
	var inputs [fieldCount]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		ti.Width = ModalWidth - 8
		inputs[i] = ti
	}
	inputs[fieldTitle].SetValue(action.Title)
	inputs[fieldDescription].SetValue(action.Description)
	inputs[fieldPrompt].SetValue(action.Prompt)
	inputs[fieldPrompt].Placeholder = "e.g. Summarize this: {{select}}"
	inputs[fieldModel].SetValue(action.ModelID)
	inputs[fieldModel].Placeholder = models.DefaultModelID
	inputs[fieldTitle].Focus()

	m.Form = ActionForm{
		Open:    true,
		Editing: action.ID,
		Inputs:  inputs,
	}
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.Form = ActionForm{}
		return m, nil
	case "tab", "down":
		m.focusFormField((m.Form.Focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.focusFormField((m.Form.Focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "enter":
		if m.Form.Focus < fieldCount-1 {
			m.focusFormField(m.Form.Focus + 1)
			return m, nil
		}
		return m.saveForm()
	}

	var cmd tea.Cmd
	m.Form.Inputs[m.Form.Focus], cmd = m.Form.Inputs[m.Form.Focus].Update(msg)
	return m, cmd
}

func (m *Model) focusFormField(idx int) {
	m.Form.Inputs[m.Form.Focus].Blur()
	m.Form.Focus = idx
	m.Form.Inputs[idx].Focus()
}

func (m *Model) saveForm() (tea.Model, tea.Cmd) {
	action := models.Action{
		ID:          m.Form.Editing,
		Title:       m.Form.Inputs[fieldTitle].Value(),
		Description: m.Form.Inputs[fieldDescription].Value(),
		Prompt:      m.Form.Inputs[fieldPrompt].Value(),
		ModelID:     m.Form.Inputs[fieldModel].Value(),
		UpdatedAt:   time.Now(),
	}
	if action.ID == "" {
		action.ID = uuid.NewString()
		action.CreatedAt = action.UpdatedAt
	}
	if action.ModelID == "" {
		action.ModelID = models.DefaultModelID
	}

	if errs := action.Validate(); len(errs) > 0 {
		m.Form.Errs = errs
		return m, nil
	}

	if m.Conn == nil || m.DBErr != nil {
		m.Form.Errs = []models.FieldError{{Field: "store", Message: "action store unavailable"}}
		return m, nil
	}
	if err := db.UpsertAction(m.Conn, action); err != nil {
		m.Form.Errs = []models.FieldError{{Field: "store", Message: err.Error()}}
		return m, nil
	}

	m.Form = ActionForm{}
	m.reloadStore()
	return m, nil
}
