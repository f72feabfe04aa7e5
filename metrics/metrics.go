// Package metrics exposes Prometheus metrics for turns, model requests,
// tool calls and Slack events.
//
// Metrics implements the observer interfaces of the mcp, bot and slack
// packages, so each component reports through its own narrow interface and
// never imports Prometheus.
//
// Usage:
//
//	m := metrics.New()
//	manager := mcp.NewManager(mcp.WithObserver(m))
//	executor := bot.NewExecutor(cache, agent, logger, m)
//	http.Handle("/metrics", m.Handler())
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"slackagent/model"
)

const namespace = "slackagent"

// Metrics holds every collector, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// TurnCounter counts executed turns.
	// Labels: outcome (success|agent_error|cache_error|cancelled)
	TurnCounter *prometheus.CounterVec

	// TurnDuration measures turn latency in seconds, lock wait included.
	// Labels: outcome
	TurnDuration *prometheus.HistogramVec

	// LLMRequestCounter counts model requests.
	// Labels: model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMRequestDuration measures model request latency in seconds.
	// Labels: model
	LLMRequestDuration *prometheus.HistogramVec

	// ToolCallCounter counts tool invocations.
	// Labels: server, tool, status (success|error)
	ToolCallCounter *prometheus.CounterVec

	// ToolCallDuration measures tool invocation latency in seconds.
	// Labels: server
	ToolCallDuration *prometheus.HistogramVec

	// ConnectedServers is the number of live tool-server sessions.
	ConnectedServers prometheus.Gauge

	// SlackEvents counts app_mention events by how they ended.
	// Labels: outcome (replied|dropped|failed)
	SlackEvents *prometheus.CounterVec
}

// New creates the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TurnCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Total number of conversation turns by outcome",
			},
			[]string{"outcome"},
		),

		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Duration of conversation turns in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),

		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of model requests by model and status",
			},
			[]string{"model", "status"},
		),

		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of model requests in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),

		ToolCallCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls by server, tool and status",
			},
			[]string{"server", "tool", "status"},
		),

		ToolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of tool calls in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"server"},
		),

		ConnectedServers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tool_servers_connected",
				Help:      "Number of connected tool servers",
			},
		),

		SlackEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slack_events_total",
				Help:      "Total number of Slack mention events by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TurnCompleted implements bot.TurnObserver.
func (m *Metrics) TurnCompleted(outcome string, d time.Duration) {
	m.TurnCounter.WithLabelValues(outcome).Inc()
	m.TurnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ServersConnected implements mcp.Observer.
func (m *Metrics) ServersConnected(n int) {
	m.ConnectedServers.Set(float64(n))
}

// ToolCalled implements mcp.Observer.
func (m *Metrics) ToolCalled(server, tool string, d time.Duration, err error) {
	m.ToolCallCounter.WithLabelValues(server, tool, status(err)).Inc()
	m.ToolCallDuration.WithLabelValues(server).Observe(d.Seconds())
}

// EventHandled implements slack.EventObserver.
func (m *Metrics) EventHandled(outcome string) {
	m.SlackEvents.WithLabelValues(outcome).Inc()
}

// InstrumentProvider wraps p so every Complete call is counted and timed.
func (m *Metrics) InstrumentProvider(p model.Provider) model.Provider {
	return &instrumentedProvider{Provider: p, metrics: m}
}

type instrumentedProvider struct {
	model.Provider
	metrics *Metrics
}

func (p *instrumentedProvider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	start := time.Now()
	resp, err := p.Provider.Complete(ctx, req)

	name := p.GetModel()
	p.metrics.LLMRequestCounter.WithLabelValues(name, status(err)).Inc()
	p.metrics.LLMRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return resp, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
