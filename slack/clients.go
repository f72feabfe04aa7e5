package slack

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// APIClient is the subset of the Slack Web API the adapter uses.
type APIClient interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SocketClient is the subset of Socket Mode the adapter uses.
type SocketClient interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...interface{})
	Events() <-chan socketmode.Event
}

var _ APIClient = (*slack.Client)(nil)

// socketClient exposes the Events field of socketmode.Client as a method.
type socketClient struct {
	client *socketmode.Client
}

func (s socketClient) RunContext(ctx context.Context) error { return s.client.RunContext(ctx) }

func (s socketClient) Ack(req socketmode.Request, payload ...interface{}) {
	s.client.Ack(req, payload...)
}

func (s socketClient) Events() <-chan socketmode.Event { return s.client.Events }

// newClients builds the Web API and Socket Mode clients for a bot/app token pair.
func newClients(cfg Config) (APIClient, SocketClient) {
	api := slack.New(
		cfg.BotToken,
		slack.OptionAppLevelToken(cfg.AppToken),
	)
	socket := socketmode.New(
		api,
		socketmode.OptionDebug(cfg.Debug),
	)
	return api, socketClient{client: socket}
}
