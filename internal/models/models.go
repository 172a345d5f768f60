package models

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// DefaultModelID is the reserved model configuration id. The entry with
// this id can be reset but never deleted.
const DefaultModelID = "default"

// Action is a user-defined prompt template bound to a model configuration.
// At most one action in the store carries IsDefault at a time.
type Action struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Prompt      string
	ModelID     string
	IsDefault   bool
	ShowDiff    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ModelConfig describes one chat model profile: the provider option sent
// on the wire plus the local settings applied to every request.
type ModelConfig struct {
	ID           string
	Name         string
	Prompt       string // system prompt
	Option       string // provider model identifier, e.g. "gpt-4o"
	Temperature  float64
	Pinned       bool
	Vision       bool
	EnabledTools []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToolTrace records one tool invocation made while answering a turn,
// in invocation order.
type ToolTrace struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// ChatTurn is one question/answer exchange. Answer grows incrementally
// while a streamed response is in flight.
type ChatTurn struct {
	ID        string
	Question  string
	Files     []string
	Answer    string
	ToolTrace []ToolTrace
	CreatedAt time.Time
}

const starterSystemPrompt = "Act as an application. You should only output the result of the prompt. Do not include any additional information."

// DefaultModelConfig returns the built-in model profile seeded under the
// reserved id.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		ID:          DefaultModelID,
		Name:        "GPT-4o mini",
		Prompt:      "You are a helpful assistant.",
		Option:      "gpt-4o-mini",
		Temperature: 1,
		Pinned:      true,
	}
}

// StarterActions returns the actions seeded into an empty store on first
// launch.
func StarterActions() []Action {
	return []Action{
		{
			ID:          "summarize",
			Title:       "Summarize",
			Description: "Summarize the text",
			Icon:        "¶",
			Prompt:      starterSystemPrompt + " Summarize the text in 1-2 sentences. {{select}}",
			ModelID:     DefaultModelID,
			IsDefault:   true,
		},
		{
			ID:          "translate",
			Title:       "Translate",
			Description: "Translate the text",
			Icon:        "⇄",
			Prompt:      "Only reply the translated result and nothing else. Please translate to English:\n\n{{select}}",
			ModelID:     DefaultModelID,
		},
		{
			ID:          "fix-grammar",
			Title:       "Correct Punctuation & Grammar",
			Description: "Correct the punctuation and grammar",
			Icon:        "✎",
			Prompt:      starterSystemPrompt + " Correct the punctuation and grammar in the following text. {{select}}",
			ModelID:     DefaultModelID,
			ShowDiff:    true,
		},
		{
			ID:          "explain-page",
			Title:       "Explain This Page",
			Description: "Summarize the page open in the browser",
			Icon:        "◎",
			Prompt:      starterSystemPrompt + " Explain what this page is about in a short paragraph. {{content format=\"markdown\"}}",
			ModelID:     DefaultModelID,
		},
		{
			ID:          "polish-clipboard",
			Title:       "Polish Clipboard Text",
			Description: "Rewrite the clipboard text so it reads well",
			Icon:        "✦",
			Prompt:      starterSystemPrompt + " Rewrite the following so it is clear and concise. {{clipboard}}",
			ModelID:     DefaultModelID,
		},
	}
}
