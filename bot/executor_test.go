package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"slackagent/agent"
	"slackagent/model"
	"slackagent/provider/testutil"
	"slackagent/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type calcTools struct{}

func (calcTools) Tools(ctx context.Context) ([]mcptypes.Tool, error) {
	return []mcptypes.Tool{testutil.AddTool()}, nil
}

func (calcTools) CallTool(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	return mcptypes.NewToolResultText("4"), nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) TurnCompleted(outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// failingCache fails every operation.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) (model.History, bool, error) {
	return nil, false, fmt.Errorf("%w: connection refused", storage.ErrCache)
}

func (failingCache) Set(ctx context.Context, key string, history model.History) error {
	return fmt.Errorf("%w: connection refused", storage.ErrCache)
}

func (failingCache) Close() error { return nil }

func newExecutor(cache storage.Cache, p model.Provider, tools agent.ToolSet) (*Executor, *recordingObserver) {
	obs := &recordingObserver{}
	a := agent.New(agent.DefaultConfig(), p, tools, quietLogger())
	return NewExecutor(cache, a, quietLogger(), obs), obs
}

func flatten(h model.History) []string {
	out := make([]string, len(h))
	for i, m := range h {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func TestConversationID(t *testing.T) {
	if got := ConversationID("C1"); got != "slackagent:conversation:C1" {
		t.Errorf("ConversationID() = %q", got)
	}
}

func TestRunTurnFirstMessage(t *testing.T) {
	cache := storage.NewMemoryCache()
	p := testutil.NewScriptedProvider("gpt-4o", testutil.TextResponse("hi!"))
	e, obs := newExecutor(cache, p, nil)

	reply, err := e.RunTurn(context.Background(), ConversationID("C1"), "hi")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if reply != "hi!" {
		t.Errorf("reply = %q, want hi!", reply)
	}

	h, ok, _ := cache.Get(context.Background(), ConversationID("C1"))
	if !ok {
		t.Fatal("history not persisted")
	}
	if got, want := flatten(h), []string{"user:hi", "assistant:hi!"}; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", got, want)
	}
	if len(obs.outcomes) != 1 || obs.outcomes[0] != OutcomeSuccess {
		t.Errorf("outcomes = %v", obs.outcomes)
	}
}

func TestRunTurnWithToolUse(t *testing.T) {
	cache := storage.NewMemoryCache()
	key := ConversationID("C1")
	if err := cache.Set(context.Background(), key, testutil.TestHistory()); err != nil {
		t.Fatal(err)
	}

	p := testutil.NewScriptedProvider("gpt-4o",
		testutil.ToolCallResponse("call_1", "calc__add", map[string]any{"a": 2.0, "b": 2.0}),
		testutil.TextResponse("4"),
	)
	e, _ := newExecutor(cache, p, calcTools{})

	reply, err := e.RunTurn(context.Background(), key, "what's 2+2?")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if reply != "4" {
		t.Errorf("reply = %q, want 4", reply)
	}

	// The model saw the prior history plus the new message.
	first := p.Requests()[0]
	if got := flatten(first.Messages); len(got) != 3 || got[2] != "user:what's 2+2?" {
		t.Errorf("first request messages = %v", got)
	}

	h, _, _ := cache.Get(context.Background(), key)
	want := []string{"user:hi", "assistant:hi!", "user:what's 2+2?", "assistant:4"}
	if got := flatten(h); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("history = %v, want %v", got, want)
	}
	for _, m := range h {
		if m.IsTool() {
			t.Errorf("tool message persisted: %+v", m)
		}
	}
}

func TestRunTurnEmptyTextIsNoop(t *testing.T) {
	cache := storage.NewMemoryCache()
	p := testutil.NewMockProvider("gpt-4o")
	e, obs := newExecutor(cache, p, nil)

	reply, err := e.RunTurn(context.Background(), ConversationID("C1"), "")
	if err != nil || reply != "" {
		t.Errorf("RunTurn(\"\") = %q, %v", reply, err)
	}
	if p.Calls() != 0 {
		t.Error("provider called for empty text")
	}
	if _, ok, _ := cache.Get(context.Background(), ConversationID("C1")); ok {
		t.Error("cache written for empty text")
	}
	if len(obs.outcomes) != 0 {
		t.Errorf("observer notified for a no-op: %v", obs.outcomes)
	}
}

func TestRunTurnAgentFailureLeavesHistoryUntouched(t *testing.T) {
	cache := storage.NewMemoryCache()
	key := ConversationID("C1")
	before := testutil.TestHistory()
	if err := cache.Set(context.Background(), key, before); err != nil {
		t.Fatal(err)
	}

	e, obs := newExecutor(cache, testutil.NewFailingProvider("gpt-4o", errors.New("model down")), nil)

	reply, err := e.RunTurn(context.Background(), key, "hello?")
	var invErr *agent.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *agent.InvocationError, got %v", err)
	}
	if reply != "" {
		t.Errorf("reply = %q on failure", reply)
	}

	after, _, _ := cache.Get(context.Background(), key)
	if fmt.Sprint(flatten(after)) != fmt.Sprint(flatten(before)) {
		t.Errorf("history changed on failure: %v", flatten(after))
	}
	if obs.outcomes[0] != OutcomeAgentError {
		t.Errorf("outcome = %v", obs.outcomes)
	}
}

func TestRunTurnCacheFailure(t *testing.T) {
	p := testutil.NewMockProvider("gpt-4o")
	e, obs := newExecutor(failingCache{}, p, nil)

	_, err := e.RunTurn(context.Background(), ConversationID("C1"), "hi")
	if !errors.Is(err, storage.ErrCache) {
		t.Fatalf("expected ErrCache, got %v", err)
	}
	if p.Calls() != 0 {
		t.Error("agent ran although history could not be loaded")
	}
	if obs.outcomes[0] != OutcomeCacheError {
		t.Errorf("outcome = %v", obs.outcomes)
	}
}

func TestRunTurnSerializesSameConversation(t *testing.T) {
	cache := storage.NewMemoryCache()
	p := testutil.NewMockProvider("gpt-4o")
	p.CompleteFunc = func(ctx context.Context, req model.Request) (*model.Response, error) {
		time.Sleep(time.Millisecond)
		return testutil.TextResponse("ok"), nil
	}
	e, _ := newExecutor(cache, p, nil)

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.RunTurn(context.Background(), ConversationID("C1"), fmt.Sprintf("m%d", i)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	h, _, _ := cache.Get(context.Background(), ConversationID("C1"))
	if len(h) != 2*turns {
		t.Errorf("history has %d messages, want %d; a turn was lost", len(h), 2*turns)
	}
}

func TestRunTurnIndependentConversations(t *testing.T) {
	cache := storage.NewMemoryCache()
	release := make(chan struct{})
	p := testutil.NewMockProvider("gpt-4o")
	p.CompleteFunc = func(ctx context.Context, req model.Request) (*model.Response, error) {
		if req.Messages[len(req.Messages)-1].Content == "slow" {
			<-release
		}
		return testutil.TextResponse("ok"), nil
	}
	e, _ := newExecutor(cache, p, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.RunTurn(context.Background(), ConversationID("C1"), "slow")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := e.RunTurn(ctx, ConversationID("C2"), "fast"); err != nil {
		t.Errorf("C2 blocked behind C1: %v", err)
	}

	close(release)
	<-done
}
