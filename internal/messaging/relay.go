package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"streamchat/internal/domain"
	"streamchat/internal/observability"
)

// Envelope scopes, mirroring the Broadcaster methods.
const (
	scopeRoom   = "room"
	scopeUser   = "user"
	scopeRemove = "remove"
)

// EventEnvelope carries one room event between nodes.
type EventEnvelope struct {
	NodeID    string        `json:"node_id"`
	Scope     string        `json:"scope"`
	RoomID    string        `json:"room_id,omitempty"`
	UserID    string        `json:"user_id,omitempty"`
	Event     *domain.Event `json:"event,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

const (
	// Size of the outbound publish queue. Envelopes are dropped once it
	// fills, matching the hub's treatment of slow consumers.
	publishQueueSize = 256

	publishTimeout = 5 * time.Second
)

// envelopePublisher is the broker surface the relay publishes through.
type envelopePublisher interface {
	PublishEnvelope(ctx context.Context, env *EventEnvelope) error
}

// Relay is a Broadcaster decorator: every event is delivered locally and
// published to the broker so peer nodes can deliver it to members
// connected there. Publishing is best-effort and asynchronous through a
// bounded queue; local delivery never waits on the broker, and a stalled
// broker sheds envelopes instead of backing up into senders.
type Relay struct {
	local  domain.Broadcaster
	nodeID string
	out    chan *EventEnvelope
	stop   chan struct{}
}

// NewRelay wraps local with cross-node publication and starts the
// publish loop.
func NewRelay(local domain.Broadcaster, broker envelopePublisher, nodeID string) *Relay {
	r := &Relay{
		local:  local,
		nodeID: nodeID,
		out:    make(chan *EventEnvelope, publishQueueSize),
		stop:   make(chan struct{}),
	}
	go r.publishLoop(broker)
	return r
}

// Close stops the publish loop. Queued envelopes not yet handed to the
// broker are discarded.
func (r *Relay) Close() {
	close(r.stop)
}

func (r *Relay) Broadcast(roomID string, event domain.Event) {
	r.local.Broadcast(roomID, event)
	r.publish(&EventEnvelope{Scope: scopeRoom, RoomID: roomID, Event: &event})
}

func (r *Relay) SendToUser(userID string, event domain.Event) {
	r.local.SendToUser(userID, event)
	r.publish(&EventEnvelope{Scope: scopeUser, UserID: userID, Event: &event})
}

func (r *Relay) RemoveFromRoom(roomID, userID string) {
	r.local.RemoveFromRoom(roomID, userID)
	r.publish(&EventEnvelope{Scope: scopeRemove, RoomID: roomID, UserID: userID})
}

func (r *Relay) publish(env *EventEnvelope) {
	env.NodeID = r.nodeID
	env.Timestamp = time.Now().Unix()

	select {
	case r.out <- env:
	default:
		observability.RelayEventsDropped.Inc()
		slog.Warn("relay publish queue full, dropping event",
			slog.String("scope", env.Scope))
	}
}

func (r *Relay) publishLoop(broker envelopePublisher) {
	for {
		select {
		case <-r.stop:
			return
		case env := <-r.out:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := broker.PublishEnvelope(ctx, env)
			cancel()
			if err != nil {
				slog.Error("failed to relay event",
					slog.String("error", err.Error()),
					slog.String("scope", env.Scope))
				continue
			}
			observability.RelayEventsPublished.Inc()
		}
	}
}

// Consumer applies envelopes published by peer nodes to the local
// transport.
type Consumer struct {
	rmq    *RabbitMQ
	local  domain.Broadcaster
	nodeID string
}

// NewConsumer creates a relay consumer feeding local.
func NewConsumer(rmq *RabbitMQ, local domain.Broadcaster, nodeID string) *Consumer {
	return &Consumer{rmq: rmq, local: local, nodeID: nodeID}
}

// Start consumes peer events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.rmq.Consume()
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("relay consumer stopping")
				return
			case d, ok := <-deliveries:
				if !ok {
					slog.Warn("relay delivery channel closed")
					return
				}
				c.handle(d.Body)
			}
		}
	}()
	return nil
}

func (c *Consumer) handle(body []byte) {
	var env EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		slog.Warn("discarding malformed relay envelope", slog.String("error", err.Error()))
		return
	}

	// The fanout exchange echoes our own events back; skip them.
	if env.NodeID == c.nodeID {
		return
	}
	observability.RelayEventsConsumed.Inc()

	switch env.Scope {
	case scopeRoom:
		if env.Event != nil {
			c.local.Broadcast(env.RoomID, *env.Event)
		}
	case scopeUser:
		if env.Event != nil {
			c.local.SendToUser(env.UserID, *env.Event)
		}
	case scopeRemove:
		c.local.RemoveFromRoom(env.RoomID, env.UserID)
	default:
		slog.Warn("discarding relay envelope with unknown scope", slog.String("scope", env.Scope))
	}
}
