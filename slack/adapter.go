// Package slack connects the turn executor to Slack over Socket Mode.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"slackagent/bot"
)

// ErrorPolicy decides what the user sees when a turn fails.
type ErrorPolicy string

const (
	// ErrorPolicySilent logs the failure and posts nothing.
	ErrorPolicySilent ErrorPolicy = "silent"
	// ErrorPolicyReply posts Config.ErrorReply to the channel.
	ErrorPolicyReply ErrorPolicy = "reply"
)

const DefaultErrorReply = "Sorry, something went wrong while handling that request."

// Config holds the configuration for the Slack adapter.
type Config struct {
	BotToken   string // xoxb- token for API calls
	AppToken   string // xapp- token for Socket Mode
	OnError    ErrorPolicy
	ErrorReply string
	Debug      bool
}

// TurnRunner executes one conversation turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, conversationID, text string) (string, error)
}

// EventObserver receives one notification per handled mention.
type EventObserver interface {
	EventHandled(outcome string)
}

// Event outcomes.
const (
	EventReplied = "replied"
	EventDropped = "dropped"
	EventFailed  = "failed"
)

type nopEventObserver struct{}

func (nopEventObserver) EventHandled(string) {}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// Adapter receives app_mention events and answers each with one message.
type Adapter struct {
	cfg      Config
	api      APIClient
	socket   SocketClient
	turns    TurnRunner
	logger   *slog.Logger
	observer EventObserver

	botUserID string

	// Handlers run under handlerCtx so they can outlive Run's context and
	// finish during Close's grace period.
	handlerCtx    context.Context
	cancelHandler context.CancelFunc
	wg            sync.WaitGroup
}

// NewAdapter creates an adapter backed by real Slack clients.
func NewAdapter(cfg Config, turns TurnRunner, logger *slog.Logger, observer EventObserver) *Adapter {
	api, socket := newClients(cfg)
	return NewAdapterWithClients(cfg, api, socket, turns, logger, observer)
}

// NewAdapterWithClients creates an adapter over the given clients.
func NewAdapterWithClients(cfg Config, api APIClient, socket SocketClient, turns TurnRunner, logger *slog.Logger, observer EventObserver) *Adapter {
	if cfg.OnError == "" {
		cfg.OnError = ErrorPolicySilent
	}
	if cfg.ErrorReply == "" {
		cfg.ErrorReply = DefaultErrorReply
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopEventObserver{}
	}

	handlerCtx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		cfg:           cfg,
		api:           api,
		socket:        socket,
		turns:         turns,
		logger:        logger.With("component", "slack"),
		observer:      observer,
		handlerCtx:    handlerCtx,
		cancelHandler: cancel,
	}
}

// Run authenticates, opens the Socket Mode connection and dispatches events
// until ctx is cancelled or the connection fails for good.
func (a *Adapter) Run(ctx context.Context) error {
	auth, err := a.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Slack: %w", err)
	}
	a.botUserID = auth.UserID
	a.logger.Info("slack adapter started", "bot_user_id", auth.UserID, "team", auth.Team)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	socketErr := make(chan error, 1)
	go func() {
		socketErr <- a.socket.RunContext(runCtx)
	}()

	events := a.socket.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-socketErr:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("socket mode: %w", err)
		case event, ok := <-events:
			if !ok {
				return nil
			}
			a.handleEvent(event)
		}
	}
}

// Close waits for in-flight turns until ctx expires, then cancels them.
func (a *Adapter) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	defer a.cancelHandler()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.logger.Warn("abandoning in-flight turns", "error", ctx.Err())
		return ctx.Err()
	}
}

func (a *Adapter) handleEvent(event socketmode.Event) {
	switch event.Type {
	case socketmode.EventTypeConnecting:
		a.logger.Debug("connecting to socket mode")
	case socketmode.EventTypeConnectionError:
		a.logger.Warn("socket mode connection error", "data", event.Data)
	case socketmode.EventTypeConnected:
		a.logger.Info("connected to socket mode")
	case socketmode.EventTypeEventsAPI:
		a.handleEventsAPI(event)
	case socketmode.EventTypeSlashCommand, socketmode.EventTypeInteractive:
		a.ack(event)
	}
}

func (a *Adapter) ack(event socketmode.Event) {
	if event.Request != nil {
		a.socket.Ack(*event.Request)
	}
}

func (a *Adapter) handleEventsAPI(event socketmode.Event) {
	// Ack after the handler is registered so Close cannot miss it.
	defer a.ack(event)

	apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
	if !ok {
		a.logger.Debug("ignoring unexpected events API payload", "type", fmt.Sprintf("%T", event.Data))
		return
	}
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}

	mention, ok := apiEvent.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.handleAppMention(a.handlerCtx, mention)
	}()
}

func (a *Adapter) handleAppMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.BotID != "" {
		a.observer.EventHandled(EventDropped)
		return
	}

	text := a.stripMention(ev.Text)
	if ev.Channel == "" || text == "" {
		a.logger.Debug("dropping mention without channel or text", "channel", ev.Channel)
		a.observer.EventHandled(EventDropped)
		return
	}

	logger := a.logger.With("channel", ev.Channel, "user", ev.User)
	start := time.Now()

	reply, err := a.turns.RunTurn(ctx, bot.ConversationID(ev.Channel), text)
	if err != nil {
		logger.Error("turn failed", "error", err)
		a.observer.EventHandled(EventFailed)
		if a.cfg.OnError == ErrorPolicyReply {
			a.post(ctx, logger, ev.Channel, a.cfg.ErrorReply)
		}
		return
	}
	if reply == "" {
		logger.Warn("agent produced an empty reply, nothing to post")
		a.observer.EventHandled(EventDropped)
		return
	}

	if a.post(ctx, logger, ev.Channel, reply) {
		a.observer.EventHandled(EventReplied)
		logger.Debug("replied to mention", "elapsed", time.Since(start))
		return
	}
	a.observer.EventHandled(EventFailed)
}

func (a *Adapter) post(ctx context.Context, logger *slog.Logger, channel, text string) bool {
	_, ts, err := a.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		logger.Error("failed to post Slack message", "error", err)
		return false
	}
	logger.Debug("posted Slack message", "ts", ts)
	return true
}

// stripMention removes the bot's own mention (and any other user mention
// tokens at the start) and trims the rest.
func (a *Adapter) stripMention(text string) string {
	if a.botUserID != "" {
		text = strings.ReplaceAll(text, "<@"+a.botUserID+">", "")
	}
	text = strings.TrimSpace(text)
	for {
		loc := mentionPattern.FindStringIndex(text)
		if loc == nil || loc[0] != 0 {
			break
		}
		text = strings.TrimSpace(text[loc[1]:])
	}
	return text
}
