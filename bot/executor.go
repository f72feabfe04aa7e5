// Package bot turns an inbound chat message into one agent turn over the
// conversation's cached history.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"slackagent/agent"
	"slackagent/model"
	"slackagent/storage"
)

// ConversationKeyPrefix namespaces conversation keys in shared stores.
const ConversationKeyPrefix = "slackagent:conversation:"

// ConversationID derives the conversation key for a channel. One channel is
// one conversation.
func ConversationID(channel string) string {
	return ConversationKeyPrefix + channel
}

// Runner executes the agent over a history.
type Runner interface {
	Run(ctx context.Context, input model.History) (*agent.Result, error)
}

// Turn outcomes reported to the observer.
const (
	OutcomeSuccess    = "success"
	OutcomeAgentError = "agent_error"
	OutcomeCacheError = "cache_error"
	OutcomeCancelled  = "cancelled"
)

// TurnObserver receives one notification per executed turn.
type TurnObserver interface {
	TurnCompleted(outcome string, d time.Duration)
}

type nopTurnObserver struct{}

func (nopTurnObserver) TurnCompleted(string, time.Duration) {}

// Executor runs turns. Turns for the same conversation are serialised so a
// slow turn cannot overwrite the history written by a later one; turns for
// different conversations run concurrently.
type Executor struct {
	cache    storage.Cache
	runner   Runner
	locks    *storage.KeyLocker
	logger   *slog.Logger
	observer TurnObserver
}

func NewExecutor(cache storage.Cache, runner Runner, logger *slog.Logger, observer TurnObserver) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopTurnObserver{}
	}
	return &Executor{
		cache:    cache,
		runner:   runner,
		locks:    storage.NewKeyLocker(),
		logger:   logger.With("component", "executor"),
		observer: observer,
	}
}

// RunTurn appends text to the conversation, runs the agent and persists the
// filtered transcript. It returns the agent's final answer.
//
// Empty text is a no-op. On any failure nothing is written, so the stored
// history is exactly what it was before the turn.
func (e *Executor) RunTurn(ctx context.Context, conversationID, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	start := time.Now()
	reply, outcome, err := e.runTurn(ctx, conversationID, text)
	e.observer.TurnCompleted(outcome, time.Since(start))

	logger := e.logger.With("conversation", conversationID, "elapsed", time.Since(start))
	if err != nil {
		logger.Error("turn failed", "outcome", outcome, "error", err)
		return "", err
	}
	logger.Info("turn completed")
	return reply, nil
}

func (e *Executor) runTurn(ctx context.Context, key, text string) (string, string, error) {
	unlock, err := e.locks.Lock(ctx, key)
	if err != nil {
		return "", OutcomeCancelled, fmt.Errorf("wait for conversation %s: %w", key, err)
	}
	defer unlock()

	history, found, err := e.cache.Get(ctx, key)
	if err != nil {
		return "", OutcomeCacheError, err
	}
	if !found {
		e.logger.Debug("starting new conversation", "conversation", key)
	}

	input := history.Append(model.NewUserMessage(text))

	result, err := e.runner.Run(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return "", OutcomeCancelled, err
		}
		return "", OutcomeAgentError, err
	}

	if err := e.cache.Set(ctx, key, model.FilterHistory(result.Transcript)); err != nil {
		return "", OutcomeCacheError, err
	}
	return result.FinalOutput, OutcomeSuccess, nil
}
