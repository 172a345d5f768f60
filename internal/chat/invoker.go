package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"

	"quill/internal/logger"
	"quill/internal/models"
	"quill/internal/tools"
)

// ProgressFunc reports tool activity to the surface while a request is
// in flight. name is the tool being run, detail a short human line.
type ProgressFunc func(name, detail string)

// ToolResult carries the message suffix produced by a round of tool
// calls, ready to append before the final user message, plus the trace
// recorded on the finished turn.
type ToolResult struct {
	Messages []openai.ChatCompletionMessageParamUnion
	Trace    []models.ToolTrace
}

// Invoker runs the tool probe and executes whatever tool calls the
// model asks for, in the order the model listed them.
type Invoker struct {
	provider Provider
	cfg      tools.Config

	// exec is swapped in tests.
	exec func(ctx context.Context, cfg tools.Config, name, args string) (string, error)
}

func NewInvoker(provider Provider, cfg tools.Config) *Invoker {
	return &Invoker{provider: provider, cfg: cfg, exec: tools.Execute}
}

// Call probes the model with the user message and the enabled tool
// schemas. It returns nil when the active model has no tools enabled or
// the model requests none, meaning the main request proceeds without a
// tool suffix. A missing tool credential aborts the whole request;
// other tool failures degrade to a text result the model can read.
func (inv *Invoker) Call(ctx context.Context, userMsg openai.ChatCompletionMessageParamUnion, mc models.ModelConfig, progress ProgressFunc) (*ToolResult, error) {
	schemas := tools.Schemas(mc.EnabledTools)
	if len(schemas) == 0 {
		return nil, nil
	}

	resp, err := inv.provider.Complete(ctx, Request{
		Model:          mc.Option,
		Temperature:    mc.Temperature,
		Messages:       []openai.ChatCompletionMessageParamUnion{userMsg},
		Tools:          schemas,
		ToolChoiceAuto: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tool probe: %w", err)
	}
	if len(resp.ToolCalls) == 0 {
		return nil, nil
	}

	out := &ToolResult{
		Messages: []openai.ChatCompletionMessageParamUnion{resp.Message},
	}
	for _, tc := range resp.ToolCalls {
		detail := tools.Summary(tc.Name, tc.Arguments)
		if progress != nil {
			progress(tc.Name, detail)
		}
		logger.Info("running tool", "name", tc.Name, "args", tc.Arguments)

		result, err := inv.exec(ctx, inv.cfg, tc.Name, tc.Arguments)
		if err != nil {
			if errors.Is(err, tools.ErrConfigMissing) {
				return nil, err
			}
			logger.Warn("tool failed", "name", tc.Name, "error", err)
			result = fmt.Sprintf("Tool %s failed: %v", tc.Name, err)
		}
		out.Trace = append(out.Trace, models.ToolTrace{Name: tc.Name, Detail: detail})
		out.Messages = append(out.Messages, openai.ToolMessage(tc.ID, result))
	}
	return out, nil
}
