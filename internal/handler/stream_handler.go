package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/session"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// StreamHandler serves the realtime SSE stream. Each stream owns a session
// store that follows the token, so the client sees its session change and
// the stream ends once the token no longer signs anyone in.
type StreamHandler struct {
	hub            service.RealtimeHub
	profiles       session.ProfileFetcher
	profileTimeout time.Duration
	keepAlive      time.Duration
	logger         zerolog.Logger
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(hub service.RealtimeHub, profiles session.ProfileFetcher, profileTimeout, keepAlive time.Duration, logger zerolog.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &StreamHandler{
		hub:            hub,
		profiles:       profiles,
		profileTimeout: profileTimeout,
		keepAlive:      keepAlive,
		logger:         logger.With().Str("component", "stream_handler").Logger(),
	}
}

// Register wires GET /stream.
func (h *StreamHandler) Register(router fiber.Router) {
	router.Get("/stream", h.stream)
}

func (h *StreamHandler) stream(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", fiber.Map{
			"redirect": access.LoginPath,
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := middleware.LoggerFor(h.logger, c).With().Str("identity_id", principal.ID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	store := session.NewStore(service.NewTokenIdentity(principal, h.hub), h.profiles, h.profileTimeout, logger)
	changed := make(chan struct{}, 1)
	stopWatching := store.Subscribe(func(session.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	store.Start(ctx)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		feed := &streamFeed{hub: h.hub, identityID: principal.ID}
		defer func() {
			feed.close()
			stopWatching()
			store.Close()
			cancel()
		}()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		if err := writeStreamEvent(w, "session", dto.NewSessionResponse(store.Snapshot())); err != nil {
			return
		}
		feed.follow(store.Snapshot())

		for {
			select {
			case <-changed:
				snapshot := store.Snapshot()
				if err := writeStreamEvent(w, "session", dto.NewSessionResponse(snapshot)); err != nil {
					logger.Debug().Err(err).Msg("failed to write session event")
					return
				}
				if snapshot.State() == session.StateUnauthenticated {
					logger.Info().Msg("stream closed after sign-out")
					return
				}
				feed.follow(snapshot)
			case event, ok := <-feed.events:
				if !ok {
					return
				}
				if err := writeStreamEvent(w, event.Kind, event); err != nil {
					logger.Debug().Err(err).Msg("failed to write realtime event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write keepalive")
					return
				}
			}
		}
	})

	return nil
}

// streamFeed holds the hub subscription of one stream. The role audience is
// only known once the profile resolves, so the subscription is replaced when
// the role changes.
type streamFeed struct {
	hub         service.RealtimeHub
	identityID  string
	role        models.Role
	subscribed  bool
	events      <-chan service.RealtimeEvent
	unsubscribe func()
}

func (f *streamFeed) follow(snapshot session.Snapshot) {
	var role models.Role
	if snapshot.Profile != nil {
		role = snapshot.Profile.Role()
	}
	if f.subscribed && role == f.role {
		return
	}

	f.close()
	audience := []string{service.AudienceAll, service.UserAudience(f.identityID)}
	if role != "" {
		audience = append(audience, service.RoleAudience(role))
	}
	f.events, f.unsubscribe = f.hub.Subscribe(audience...)
	f.role = role
	f.subscribed = true
}

func (f *streamFeed) close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
	f.subscribed = false
}

func writeStreamEvent(w *bufio.Writer, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", name); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
