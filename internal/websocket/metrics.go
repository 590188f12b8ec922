package websocket

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	connections metric.Int64UpDownCounter
	presence    metric.Int64Counter
	routed      metric.Int64Counter
	pushes      metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	connections, err := meter.Int64UpDownCounter("livechat_connections",
		metric.WithDescription("Live websocket connections"))
	if err != nil {
		return nil, err
	}
	presence, err := meter.Int64Counter("livechat_presence_changes_total",
		metric.WithDescription("Online and offline transitions broadcast"))
	if err != nil {
		return nil, err
	}
	routed, err := meter.Int64Counter("livechat_messages_routed_total",
		metric.WithDescription("Messages persisted and routed"))
	if err != nil {
		return nil, err
	}
	pushes, err := meter.Int64Counter("livechat_pushes_total",
		metric.WithDescription("Events pushed to live connections"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		connections: connections,
		presence:    presence,
		routed:      routed,
		pushes:      pushes,
	}, nil
}

func (m *Metrics) connected(ctx context.Context, delta int64) {
	m.connections.Add(ctx, delta)
}

func (m *Metrics) presenceChanged(ctx context.Context, online bool) {
	m.presence.Add(ctx, 1, metric.WithAttributes(attribute.Bool("online", online)))
}

func (m *Metrics) messageRouted(ctx context.Context, kind string) {
	m.routed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) pushed(ctx context.Context, event string, delivered, dropped int) {
	if delivered > 0 {
		m.pushes.Add(ctx, int64(delivered), metric.WithAttributes(
			attribute.String("event", event),
			attribute.String("outcome", "delivered"),
		))
	}
	if dropped > 0 {
		m.pushes.Add(ctx, int64(dropped), metric.WithAttributes(
			attribute.String("event", event),
			attribute.String("outcome", "dropped"),
		))
	}
}
