package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
)

const realtimeBufferSize = 16

// Realtime event kinds.
const (
	EventNotification    = "notification"
	EventLeaveUpdated    = "leave.updated"
	EventIdentityRevoked = "identity.revoked"
	EventProfileChanged  = "profile.changed"
)

// AudienceAll reaches every subscriber.
const AudienceAll = "all"

// RoleAudience addresses every subscriber signed in with role.
func RoleAudience(role models.Role) string { return "role:" + role.String() }

// UserAudience addresses the subscribers of one identity.
func UserAudience(id string) string { return "user:" + id }

// RealtimeEvent is delivered to every subscriber holding one of Audience.
type RealtimeEvent struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Audience      []string        `json:"audience"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	SentAt        time.Time       `json:"sent_at"`
}

// RealtimeHub fans events out to local subscribers and, when configured, to
// the other API nodes over NATS or redis pub/sub.
type RealtimeHub interface {
	Start(ctx context.Context) error
	Publish(ctx context.Context, kind string, audience []string, payload interface{}) error
	Subscribe(audience ...string) (<-chan RealtimeEvent, func())
}

type realtimeHub struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	broker       *realtimeBroker
	nodeID       string
}

type realtimeEnvelope struct {
	Source string        `json:"source"`
	Event  RealtimeEvent `json:"event"`
}

// NewRealtimeHub constructs the hub. NATS takes precedence over redis for
// cross-node delivery; with neither, events stay on this node.
func NewRealtimeHub(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) RealtimeHub {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".events"
	}

	return &realtimeHub{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "realtime_hub").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/realtime"),
		broker:       newRealtimeBroker(),
		nodeID:       uuid.NewString(),
	}
}

// Start subscribes to the cross-node transport. It returns once the
// subscription is confirmed.
func (h *realtimeHub) Start(ctx context.Context) error {
	switch {
	case h.nats != nil && h.natsSubject != "":
		sub, err := h.nats.Subscribe(h.natsSubject, func(msg *nats.Msg) {
			h.handleEnvelope(msg.Data)
		})
		if err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			if err := sub.Drain(); err != nil {
				h.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
			}
		}()
	case h.redis != nil && h.redisChannel != "":
		pubsub := h.redis.Subscribe(ctx, h.redisChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			return err
		}
		go h.consumeRedis(ctx, pubsub)
	}
	return nil
}

func (h *realtimeHub) Publish(ctx context.Context, kind string, audience []string, payload interface{}) error {
	spanCtx, span := h.tracer.Start(ctx, "realtime.publish", trace.WithAttributes(
		attribute.String("realtime.kind", kind),
		attribute.StringSlice("realtime.audience", audience),
	))
	defer span.End()

	raw, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return err
	}

	event := RealtimeEvent{
		ID:            uuid.NewString(),
		Kind:          kind,
		Audience:      audience,
		Payload:       raw,
		CorrelationID: middleware.CorrelationIDFromContext(spanCtx),
		SentAt:        time.Now().UTC(),
	}

	h.deliver(event)
	if err := h.forward(spanCtx, event); err != nil {
		span.RecordError(err)
		h.logger.Warn().Err(err).Str("kind", kind).Msg("failed to forward realtime event")
		return err
	}
	return nil
}

func (h *realtimeHub) Subscribe(audience ...string) (<-chan RealtimeEvent, func()) {
	sub := &realtimeSubscriber{ch: make(chan RealtimeEvent, realtimeBufferSize), audience: audience}
	h.broker.subscribe(sub)
	observability.RealtimeClientsActive().Inc()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.broker.unsubscribe(sub)
			observability.RealtimeClientsActive().Dec()
		})
	}
}

func (h *realtimeHub) deliver(event RealtimeEvent) {
	observability.RealtimeEvents().WithLabelValues(event.Kind).Inc()
	h.broker.broadcast(event)
}

func (h *realtimeHub) forward(ctx context.Context, event RealtimeEvent) error {
	payload, err := json.Marshal(realtimeEnvelope{Source: h.nodeID, Event: event})
	if err != nil {
		return err
	}

	switch {
	case h.nats != nil && h.natsSubject != "":
		return h.nats.Publish(h.natsSubject, payload)
	case h.redis != nil && h.redisChannel != "":
		return h.redis.Publish(ctx, h.redisChannel, payload).Err()
	}
	return nil
}

func (h *realtimeHub) consumeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			h.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		h.handleEnvelope([]byte(msg.Payload))
	}
}

func (h *realtimeHub) handleEnvelope(payload []byte) {
	var envelope realtimeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.Warn().Err(err).Msg("invalid realtime event payload")
		return
	}
	if envelope.Source == h.nodeID {
		return
	}
	h.deliver(envelope.Event)
}

type realtimeSubscriber struct {
	ch       chan RealtimeEvent
	audience []string
}

type realtimeBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*realtimeSubscriber]struct{}
}

func newRealtimeBroker() *realtimeBroker {
	return &realtimeBroker{subscribers: make(map[string]map[*realtimeSubscriber]struct{})}
}

func (b *realtimeBroker) subscribe(sub *realtimeSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range sub.audience {
		if _, exists := b.subscribers[key]; !exists {
			b.subscribers[key] = make(map[*realtimeSubscriber]struct{})
		}
		b.subscribers[key][sub] = struct{}{}
	}
}

func (b *realtimeBroker) unsubscribe(sub *realtimeSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, key := range sub.audience {
		if subscribers, ok := b.subscribers[key]; ok {
			delete(subscribers, sub)
			if len(subscribers) == 0 {
				delete(b.subscribers, key)
			}
		}
	}
	close(sub.ch)
}

// broadcast delivers each event at most once per subscriber. Slow subscribers
// drop events rather than block publishers, except that a revocation evicts
// the oldest queued event so it always reaches the stream it ends.
func (b *realtimeBroker) broadcast(event RealtimeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[*realtimeSubscriber]struct{})
	for _, key := range event.Audience {
		for sub := range b.subscribers[key] {
			if _, done := seen[sub]; done {
				continue
			}
			seen[sub] = struct{}{}
			if event.Kind == EventIdentityRevoked {
				sub.force(event)
				continue
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// force queues event, discarding the oldest queued events while the buffer is
// full. The channel cannot be closed meanwhile since unsubscribe needs the
// write lock.
func (s *realtimeSubscriber) force(event RealtimeEvent) {
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
