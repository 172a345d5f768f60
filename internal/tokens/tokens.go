// Package tokens estimates token costs and trims conversation history
// to a model's context window budget.
package tokens

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"quill/internal/logger"
	"quill/internal/models"
)

// DefaultBudget is the conservative context window assumed for models
// missing from the table.
const DefaultBudget = 3750

// contextWindows maps provider model options to their context window
// size in tokens.
var contextWindows = map[string]int{
	"gpt-4o":                  128_000,
	"gpt-4o-mini":             128_000,
	"gpt-4o-2024-05-13":       128_000,
	"gpt-4-turbo":             128_000,
	"gpt-4-turbo-2024-04-09":  128_000,
	"gpt-4-turbo-preview":     128_000,
	"gpt-4-0125-preview":      128_000,
	"gpt-4-1106-preview":      128_000,
	"gpt-4-vision-preview":    128_000,
	"gpt-4":                   8_192,
	"gpt-4-0613":              8_192,
	"gpt-4-32k":               32_768,
	"gpt-4-32k-0613":          32_768,
	"gpt-3.5-turbo":           16_385,
	"gpt-3.5-turbo-0125":      16_385,
	"gpt-3.5-turbo-1106":      16_385,
	"gpt-3.5-turbo-instruct":  4_096,
	"gpt-3.5-turbo-16k":       16_385,
}

// BudgetFor returns the context window budget for a model option.
func BudgetFor(option string) int {
	if n, ok := contextWindows[option]; ok {
		return n
	}
	return DefaultBudget
}

// Counter estimates the token cost of a piece of text.
type Counter interface {
	Count(text string) int
}

// Estimator counts tokens with the model's tiktoken encoding when one
// can be loaded. When the encoding is missing or fails, it drops to a
// word-count heuristic for the rest of the session; the transition is
// one-way.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator builds the session estimator for a model option.
func NewEstimator(option string) *Estimator {
	enc, err := tiktoken.EncodingForModel(option)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		logger.Warn("no tokenizer encoding, using word heuristic", "model", option, "err", err)
		enc = nil
	}
	return &Estimator{enc: enc}
}

func (e *Estimator) Count(text string) (n int) {
	if text == "" {
		return 0
	}
	if e.enc == nil {
		return heuristicCount(text)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tokenizer failed mid-session, switching to word heuristic", "err", r)
			e.enc = nil
			n = heuristicCount(text)
		}
	}()
	return len(e.enc.Encode(text, nil, nil))
}

// heuristicCount approximates the empirical ratio of ~75 words per 100
// tokens.
func heuristicCount(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (words + 74) / 75 * 100
}

// TurnCost is the estimated token cost of one question/answer exchange.
func TurnCost(c Counter, t models.ChatTurn) int {
	return c.Count(t.Question) + c.Count(t.Answer)
}

// Limit walks turns oldest-first accumulating their cost and returns
// the chronological prefix that fits the budget. The walk stops at the
// first turn that would overflow; later turns are excluded even when
// they would individually fit.
func Limit(c Counter, turns []models.ChatTurn, budget int) []models.ChatTurn {
	kept := make([]models.ChatTurn, 0, len(turns))
	total := 0
	for _, t := range turns {
		total += TurnCost(c, t)
		if total > budget {
			break
		}
		kept = append(kept, t)
	}
	return kept
}
