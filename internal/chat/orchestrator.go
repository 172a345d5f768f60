package chat

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"

	"quill/internal/logger"
	"quill/internal/models"
	"quill/internal/tokens"
)

// HistoryStore persists finished turns. *sql.DB-backed in production,
// faked in tests.
type HistoryStore interface {
	Append(turn models.ChatTurn) error
}

// Speaker reads answers aloud. Stop interrupts any utterance already
// playing.
type Speaker interface {
	Speak(text string)
	Stop()
}

// Events are the surface's hooks into a request in flight. Any field
// may be nil.
type Events struct {
	// OnToolProgress fires before each tool call runs.
	OnToolProgress ProgressFunc
	// OnDelta fires on every streamed increment with the answer
	// accumulated so far for the given turn.
	OnDelta func(turnID, answer string)
}

// Options tune orchestrator behavior per session.
type Options struct {
	Stream        bool
	AutoSpeak     bool
	HistoryPaused bool
	SystemPrompt  string
}

// Orchestrator owns the visible conversation window and runs the full
// request pipeline for each question.
type Orchestrator struct {
	provider Provider
	invoker  *Invoker
	history  HistoryStore
	speaker  Speaker
	opts     Options

	// one estimator per model for the life of the session
	estimators map[string]*tokens.Estimator

	// mu guards turns: streamed deltas land from the request
	// goroutine while the surface reads the window to render.
	mu    sync.Mutex
	turns []models.ChatTurn
}

func New(provider Provider, invoker *Invoker, history HistoryStore, speaker Speaker, opts Options) *Orchestrator {
	return &Orchestrator{
		provider:   provider,
		invoker:    invoker,
		history:    history,
		speaker:    speaker,
		opts:       opts,
		estimators: make(map[string]*tokens.Estimator),
	}
}

// Turns returns a snapshot of the visible conversation window, oldest
// first. The snapshot is safe to read while a streaming turn is in
// flight.
func (o *Orchestrator) Turns() []models.ChatTurn {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.ChatTurn, len(o.turns))
	copy(out, o.turns)
	return out
}

// Reset clears the visible window without touching persisted history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns = nil
}

// Restore seeds the visible window, oldest first.
func (o *Orchestrator) Restore(turns []models.ChatTurn) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns = turns
}

func (o *Orchestrator) counterFor(model string) tokens.Counter {
	est, ok := o.estimators[model]
	if !ok {
		est = tokens.NewEstimator(model)
		o.estimators[model] = est
	}
	return est
}

// Ask runs one question through the pipeline: tool probe, history
// trimming, completion, persistence, speech. The returned turn carries
// the answer on success and an empty answer on failure (a streaming
// failure keeps whatever partial text already arrived).
func (o *Orchestrator) Ask(ctx context.Context, question string, files []string, mc models.ModelConfig, ev Events) (models.ChatTurn, error) {
	turn := models.ChatTurn{
		ID:        uuid.NewString(),
		Question:  question,
		Files:     files,
		CreatedAt: time.Now(),
	}
	o.mu.Lock()
	prior := append([]models.ChatTurn(nil), o.turns...)
	o.turns = append(o.turns, turn)
	o.mu.Unlock()

	userMsg, err := buildUserMessage(question, files, mc.Vision)
	if err != nil {
		return turn, err
	}

	toolResult, err := o.invoker.Call(ctx, userMsg, mc, ev.OnToolProgress)
	if err != nil {
		return turn, classify(err)
	}

	kept := tokens.Limit(o.counterFor(mc.Option), prior, tokens.BudgetFor(mc.Option))

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(kept)+4)
	if prompt := strings.TrimSpace(o.opts.SystemPrompt); prompt != "" {
		msgs = append(msgs, openai.SystemMessage(prompt))
	}
	if prompt := strings.TrimSpace(mc.Prompt); prompt != "" {
		msgs = append(msgs, openai.SystemMessage(prompt))
	}
	for _, t := range kept {
		msgs = append(msgs, openai.UserMessage(t.Question))
		msgs = append(msgs, openai.AssistantMessage(t.Answer))
	}
	if toolResult != nil {
		msgs = append(msgs, toolResult.Messages...)
		turn.ToolTrace = toolResult.Trace
	}
	msgs = append(msgs, userMsg)

	req := Request{Model: mc.Option, Temperature: mc.Temperature, Messages: msgs}

	var sink completionSink
	if o.opts.Stream {
		s := &streamSink{orc: o, turnID: turn.ID, onDelta: ev.OnDelta}
		answer, err := o.provider.Stream(ctx, req, s.onDeltaText)
		if err != nil {
			// partial text stays visible in the window
			turn.Answer = answer
			o.setAnswer(turn.ID, answer)
			return turn, classify(err)
		}
		turn.Answer = answer
		sink = s
	} else {
		sink = wholeSink{orc: o, turnID: turn.ID}
		resp, err := o.provider.Complete(ctx, req)
		if err != nil {
			return turn, classify(err)
		}
		turn.Answer = resp.Content
	}
	sink.onComplete(turn.Answer)
	o.setTrace(turn.ID, turn.ToolTrace)

	if !o.opts.HistoryPaused && o.history != nil {
		if err := o.history.Append(turn); err != nil {
			logger.Warn("failed to save turn", "error", err)
		}
	}
	if o.opts.AutoSpeak && o.speaker != nil {
		o.speaker.Stop()
		o.speaker.Speak(turn.Answer)
	}
	return turn, nil
}

func (o *Orchestrator) setAnswer(turnID, answer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.turns {
		if o.turns[i].ID == turnID {
			o.turns[i].Answer = answer
			return
		}
	}
}

func (o *Orchestrator) setTrace(turnID string, trace []models.ToolTrace) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.turns {
		if o.turns[i].ID == turnID {
			o.turns[i].ToolTrace = trace
			return
		}
	}
}

// buildUserMessage attaches image files as data-URI parts when the
// model supports vision; otherwise attachments are ignored and the
// question goes out as plain text.
func buildUserMessage(question string, files []string, vision bool) (openai.ChatCompletionMessageParamUnion, error) {
	if !vision || len(files) == 0 {
		return openai.UserMessage(question), nil
	}
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(question),
	}
	for _, f := range files {
		ref, err := imageRef(f)
		if err != nil {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("attach %s: %w", f, err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: ref}))
	}
	return openai.UserMessage(parts), nil
}

func imageRef(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}
