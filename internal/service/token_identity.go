package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/school-portal-api/internal/session"
)

// TokenIdentity is the identity source of one realtime stream. It reports the
// token's principal, re-reports it when the access record changes and reports
// nil once the token is revoked, the identity deleted or the token expired.
type TokenIdentity struct {
	principal *session.Principal
	hub       RealtimeHub
}

// NewTokenIdentity binds an identity source to a verified principal.
func NewTokenIdentity(principal *session.Principal, hub RealtimeHub) *TokenIdentity {
	return &TokenIdentity{principal: principal, hub: hub}
}

func (t *TokenIdentity) OnIdentityChange(fn func(*session.Principal)) func() {
	if t.principal == nil {
		fn(nil)
		return func() {}
	}

	events, unsubscribe := t.hub.Subscribe(UserAudience(t.principal.ID))
	done := make(chan struct{})
	fn(t.principal)

	var expiry <-chan time.Time
	var timer *time.Timer
	if !t.principal.ExpiresAt.IsZero() {
		timer = time.NewTimer(time.Until(t.principal.ExpiresAt))
		expiry = timer.C
	}

	go func() {
		if timer != nil {
			defer timer.Stop()
		}
		for {
			select {
			case <-done:
				return
			case <-expiry:
				fn(nil)
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				switch event.Kind {
				case EventIdentityRevoked:
					if t.revokes(event) {
						fn(nil)
						return
					}
				case EventProfileChanged:
					fn(t.principal)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}
}

func (t *TokenIdentity) revokes(event RealtimeEvent) bool {
	var payload struct {
		TokenID string `json:"token_id"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return false
	}
	return payload.TokenID == "" || payload.TokenID == t.principal.TokenID
}
