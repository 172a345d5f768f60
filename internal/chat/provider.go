// Package chat drives the request pipeline: tool probe, history
// budgeting, and the final chat completion (streamed or whole).
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"quill/internal/config"
)

// Request is the thin chat-completion contract sent to the provider.
type Request struct {
	Model       string
	Temperature float64
	Messages    []openai.ChatCompletionMessageParamUnion
	Tools       []openai.ChatCompletionToolUnionParam
	// ToolChoiceAuto leaves tool selection to the model. Only set on
	// the probe request.
	ToolChoiceAuto bool
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Response is a whole (non-streamed) completion.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	// Message is the assistant message in request-parameter form, kept
	// so a tool-call-bearing reply can be threaded back into the next
	// request's message list.
	Message openai.ChatCompletionMessageParamUnion
}

// Provider issues chat completion requests. The concrete implementation
// wraps the OpenAI-compatible client; tests substitute fakes.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	// Stream issues a streaming request, invoking onDelta for every
	// content increment, and returns the accumulated answer. On a
	// mid-stream failure the partial answer is returned with the error.
	Stream(ctx context.Context, req Request, onDelta func(string)) (string, error)
}

type openaiProvider struct {
	client openai.Client
}

// NewProvider builds the provider client from configuration.
func NewProvider(cfg config.Config) Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiProvider{client: openai.NewClient(opts...)}
}

func (p *openaiProvider) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: openai.Float(req.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
	}
	if req.ToolChoiceAuto {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
	return params
}

func (p *openaiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("empty response from model")
	}

	msg := resp.Choices[0].Message
	out := Response{Content: msg.Content, Message: msg.ToParam()}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (p *openaiProvider) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}
