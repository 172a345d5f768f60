package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/internal/models"
	"quill/internal/tools"
)

type fakeProvider struct {
	requests   []Request
	completeFn func(req Request) (Response, error)
	streamFn   func(req Request, onDelta func(string)) (string, error)
}

func (p *fakeProvider) Complete(_ context.Context, req Request) (Response, error) {
	p.requests = append(p.requests, req)
	if p.completeFn == nil {
		return Response{Content: "ok"}, nil
	}
	return p.completeFn(req)
}

func (p *fakeProvider) Stream(_ context.Context, req Request, onDelta func(string)) (string, error) {
	p.requests = append(p.requests, req)
	if p.streamFn == nil {
		return "", errors.New("no stream scripted")
	}
	return p.streamFn(req, onDelta)
}

type fakeStore struct {
	saved []models.ChatTurn
	err   error
}

func (s *fakeStore) Append(turn models.ChatTurn) error {
	s.saved = append(s.saved, turn)
	return s.err
}

type fakeSpeaker struct {
	calls []string
}

func (s *fakeSpeaker) Speak(text string) { s.calls = append(s.calls, "speak:"+text) }
func (s *fakeSpeaker) Stop()             { s.calls = append(s.calls, "stop") }

func toolModel(enabled ...string) models.ModelConfig {
	mc := models.DefaultModelConfig()
	mc.EnabledTools = enabled
	return mc
}

func TestInvokerNoEnabledTools(t *testing.T) {
	provider := &fakeProvider{}
	inv := NewInvoker(provider, tools.Config{})

	result, err := inv.Call(context.Background(), openai.UserMessage("hi"), toolModel(), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, provider.requests, "probe must be skipped with no tools enabled")
}

func TestInvokerNoToolCalls(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{Content: "plain answer"}, nil
	}}
	inv := NewInvoker(provider, tools.Config{})

	result, err := inv.Call(context.Background(), openai.UserMessage("hi"), toolModel("search"), nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	require.Len(t, provider.requests, 1)
	probe := provider.requests[0]
	assert.True(t, probe.ToolChoiceAuto)
	require.Len(t, probe.Tools, 1)
}

func TestInvokerRunsCallsInOrder(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{
			Message: openai.AssistantMessage("tool calls"),
			ToolCalls: []ToolCall{
				{ID: "call-a", Name: "search", Arguments: `{"keywords":"go"}`},
				{ID: "call-b", Name: "website", Arguments: `{"url":"https://example.com"}`},
			},
		}, nil
	}}
	inv := NewInvoker(provider, tools.Config{})

	var executed []string
	inv.exec = func(_ context.Context, _ tools.Config, name, _ string) (string, error) {
		executed = append(executed, name)
		return "result of " + name, nil
	}

	var progress []string
	result, err := inv.Call(context.Background(), openai.UserMessage("hi"), toolModel("search", "website"),
		func(name, _ string) { progress = append(progress, name) })
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"search", "website"}, executed)
	assert.Equal(t, []string{"search", "website"}, progress)
	// assistant tool-call message followed by one tool result per call
	assert.Len(t, result.Messages, 3)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "search", result.Trace[0].Name)
	assert.Equal(t, "website", result.Trace[1].Name)
}

func TestInvokerMissingCredentialAborts(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{
			Message:   openai.AssistantMessage("tool calls"),
			ToolCalls: []ToolCall{{ID: "call-a", Name: "get_current_weather", Arguments: `{"location":"Oslo"}`}},
		}, nil
	}}
	inv := NewInvoker(provider, tools.Config{})
	inv.exec = func(_ context.Context, _ tools.Config, _, _ string) (string, error) {
		return "", fmt.Errorf("get_current_weather: %w", tools.ErrConfigMissing)
	}

	result, err := inv.Call(context.Background(), openai.UserMessage("hi"), toolModel("get_current_weather"), nil)
	require.ErrorIs(t, err, tools.ErrConfigMissing)
	assert.Nil(t, result)
}

func TestInvokerToolFailureBecomesText(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{
			Message:   openai.AssistantMessage("tool calls"),
			ToolCalls: []ToolCall{{ID: "call-a", Name: "search", Arguments: `{"keywords":"go"}`}},
		}, nil
	}}
	inv := NewInvoker(provider, tools.Config{})
	inv.exec = func(_ context.Context, _ tools.Config, _, _ string) (string, error) {
		return "", errors.New("boom")
	}

	result, err := inv.Call(context.Background(), openai.UserMessage("hi"), toolModel("search"), nil)
	require.NoError(t, err, "a single tool failure must not abort the request")
	require.NotNil(t, result)
	assert.Len(t, result.Messages, 2)
}

func newTestOrchestrator(provider Provider, store HistoryStore, speaker Speaker, opts Options) *Orchestrator {
	return New(provider, NewInvoker(provider, tools.Config{}), store, speaker, opts)
}

func TestAskWholeResponse(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{Content: "the answer"}, nil
	}}
	store := &fakeStore{}
	orc := newTestOrchestrator(provider, store, nil, Options{SystemPrompt: "be brief"})

	turn, err := orc.Ask(context.Background(), "what is go", nil, models.DefaultModelConfig(), Events{})
	require.NoError(t, err)
	assert.Equal(t, "the answer", turn.Answer)
	assert.NotEmpty(t, turn.ID)

	require.Len(t, orc.Turns(), 1)
	assert.Equal(t, "the answer", orc.Turns()[0].Answer)

	require.Len(t, store.saved, 1)
	assert.Equal(t, turn.ID, store.saved[0].ID)

	// system prompts precede the user message
	require.Len(t, provider.requests, 1)
	assert.Len(t, provider.requests[0].Messages, 3)
}

func TestAskStreamingDeltas(t *testing.T) {
	provider := &fakeProvider{streamFn: func(_ Request, onDelta func(string)) (string, error) {
		for _, d := range []string{"hel", "lo ", "world"} {
			onDelta(d)
		}
		return "hello world", nil
	}}
	orc := newTestOrchestrator(provider, &fakeStore{}, nil, Options{Stream: true})

	var seen []string
	turn, err := orc.Ask(context.Background(), "greet", nil, models.DefaultModelConfig(), Events{
		OnDelta: func(_, answer string) { seen = append(seen, answer) },
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", turn.Answer)
	assert.Equal(t, []string{"hel", "hello ", "hello world"}, seen)
}

func TestTurnsSnapshotDuringStream(t *testing.T) {
	deltas := []string{"str", "eam", "ing"}
	emitted := make(chan struct{})
	read := make(chan struct{})
	provider := &fakeProvider{streamFn: func(_ Request, onDelta func(string)) (string, error) {
		for _, d := range deltas {
			onDelta(d)
			emitted <- struct{}{}
			<-read
		}
		return "streaming", nil
	}}
	orc := newTestOrchestrator(provider, &fakeStore{}, nil, Options{Stream: true})

	// read the window from a second goroutine after every delta, the
	// way the surface renders partial answers mid-stream
	var observed []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range deltas {
			<-emitted
			turns := orc.Turns()
			observed = append(observed, turns[len(turns)-1].Answer)
			read <- struct{}{}
		}
	}()

	turn, err := orc.Ask(context.Background(), "q", nil, models.DefaultModelConfig(), Events{})
	<-done
	require.NoError(t, err)
	assert.Equal(t, "streaming", turn.Answer)
	assert.Equal(t, []string{"str", "stream", "streaming"}, observed)
}

func TestTurnsReturnsCopy(t *testing.T) {
	orc := newTestOrchestrator(&fakeProvider{}, &fakeStore{}, nil, Options{})
	orc.Restore([]models.ChatTurn{{ID: "a", Answer: "original"}})

	turns := orc.Turns()
	turns[0].Answer = "mutated"
	assert.Equal(t, "original", orc.Turns()[0].Answer)
}

func TestBuildUserMessageVisionParts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600))

	msg, err := buildUserMessage("what is this", []string{path}, true)
	require.NoError(t, err)
	require.NotNil(t, msg.OfUser)
	parts := msg.OfUser.Content.OfArrayOfContentParts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].OfText)
	assert.Equal(t, "what is this", parts[0].OfText.Text)
	require.NotNil(t, parts[1].OfImageURL)
	assert.True(t, strings.HasPrefix(parts[1].OfImageURL.ImageURL.URL, "data:image/png;base64,"))

	plain, err := buildUserMessage("what is this", []string{path}, false)
	require.NoError(t, err)
	require.NotNil(t, plain.OfUser)
	assert.Equal(t, "what is this", plain.OfUser.Content.OfString.Value)
}

func TestAskStreamingFailureKeepsPartial(t *testing.T) {
	provider := &fakeProvider{streamFn: func(_ Request, onDelta func(string)) (string, error) {
		onDelta("partial")
		return "partial", errors.New("connection reset")
	}}
	store := &fakeStore{}
	orc := newTestOrchestrator(provider, store, nil, Options{Stream: true})

	turn, err := orc.Ask(context.Background(), "greet", nil, models.DefaultModelConfig(), Events{})
	require.Error(t, err)
	assert.Equal(t, "partial", turn.Answer)
	assert.Empty(t, store.saved, "failed turns are not persisted")
}

func TestAskRateLimited(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{}, errors.New("request failed: 429 Too Many Requests")
	}}
	orc := newTestOrchestrator(provider, &fakeStore{}, nil, Options{})

	turn, err := orc.Ask(context.Background(), "hi", nil, models.DefaultModelConfig(), Events{})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, turn.Answer)
	require.Len(t, orc.Turns(), 1)
	assert.Empty(t, orc.Turns()[0].Answer)
}

func TestAskHistoryPaused(t *testing.T) {
	provider := &fakeProvider{}
	store := &fakeStore{}
	orc := newTestOrchestrator(provider, store, nil, Options{HistoryPaused: true})

	_, err := orc.Ask(context.Background(), "hi", nil, models.DefaultModelConfig(), Events{})
	require.NoError(t, err)
	assert.Empty(t, store.saved)
}

func TestAskAutoSpeak(t *testing.T) {
	provider := &fakeProvider{completeFn: func(Request) (Response, error) {
		return Response{Content: "spoken"}, nil
	}}
	speaker := &fakeSpeaker{}
	orc := newTestOrchestrator(provider, &fakeStore{}, speaker, Options{AutoSpeak: true})

	_, err := orc.Ask(context.Background(), "hi", nil, models.DefaultModelConfig(), Events{})
	require.NoError(t, err)
	assert.Equal(t, []string{"stop", "speak:spoken"}, speaker.calls)
}

func TestAskThreadsPriorTurns(t *testing.T) {
	provider := &fakeProvider{}
	orc := newTestOrchestrator(provider, &fakeStore{}, nil, Options{})
	orc.Restore([]models.ChatTurn{
		{ID: "t1", Question: "first q", Answer: "first a"},
	})

	_, err := orc.Ask(context.Background(), "second q", nil, models.DefaultModelConfig(), Events{})
	require.NoError(t, err)

	require.Len(t, provider.requests, 1)
	// model prompt + user/assistant pair + new user message
	assert.Len(t, provider.requests[0].Messages, 4)
	require.Len(t, orc.Turns(), 2)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(errors.New("got 429 back")), ErrRateLimited)

	plain := errors.New("dial tcp: connection refused")
	assert.Equal(t, plain, classify(plain))
}
