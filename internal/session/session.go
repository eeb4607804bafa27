// Package session holds "who is signed in and what is their profile" for one
// consumer, refreshed from identity-change notifications.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// ErrProfileNotFound is returned by a ProfileFetcher when no access record
// exists for the identity.
var ErrProfileNotFound = errors.New("profile not found")

// Principal is the transient reference to an authenticated identity.
type Principal struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	TokenID    string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// State names the observable session states.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateError           State = "error"
)

// Snapshot is an immutable view of the session at one point in time.
// Profile may be nil while authenticated when the access record is missing.
type Snapshot struct {
	Principal *Principal
	Profile   models.Profile
	Loading   bool
	Err       error
}

// State classifies the snapshot.
func (s Snapshot) State() State {
	switch {
	case s.Loading:
		return StateLoading
	case s.Principal == nil:
		return StateUnauthenticated
	case s.Err != nil:
		return StateError
	default:
		return StateAuthenticated
	}
}

// ProfileFetcher resolves the profile of an identity.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, identityID string) (models.Profile, error)
}

// IdentitySource notifies about identity changes. The callback receives nil
// when the identity signs out or is removed.
type IdentitySource interface {
	OnIdentityChange(fn func(*Principal)) (cancel func())
}

// Resolve performs the same profile resolution the Store does, once. A fetch
// cut short by ctx leaves the snapshot loading; a service error is carried in
// Err and never collapses into "no profile".
func Resolve(ctx context.Context, principal *Principal, profiles ProfileFetcher) Snapshot {
	if principal == nil {
		return Snapshot{}
	}

	profile, err := profiles.FetchProfile(ctx, principal.ID)
	return settle(ctx, principal, profile, err)
}

func settle(ctx context.Context, principal *Principal, profile models.Profile, err error) Snapshot {
	switch {
	case err == nil:
		return Snapshot{Principal: principal, Profile: profile}
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, models.ErrUnknownRole):
		return Snapshot{Principal: principal}
	case ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return Snapshot{Principal: principal, Loading: true}
	default:
		return Snapshot{Principal: principal, Err: err}
	}
}
