// Package access decides who may reach which part of the portal.
package access

import (
	"net/url"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

const (
	// LoginPath is where unauthenticated visitors are sent.
	LoginPath = "/login"
	// HomePath is the public landing page.
	HomePath = "/"
)

// Decision is the action the guard takes for a request.
type Decision string

const (
	DecisionWait        Decision = "wait"
	DecisionUnavailable Decision = "unavailable"
	DecisionLogin       Decision = "redirect_login"
	DecisionHome        Decision = "redirect_home"
	DecisionAllow       Decision = "render"
)

// Outcome is a guard decision plus the redirect target, if any.
type Outcome struct {
	Decision Decision `json:"decision"`
	Location string   `json:"location,omitempty"`
}

// Allowed reports whether the protected content may be served.
func (o Outcome) Allowed() bool {
	return o.Decision == DecisionAllow
}

// Decide evaluates the guard table top to bottom. An empty required role
// admits any resolved profile. A missing profile always blocks, whether it is
// still being fetched or was deleted.
func Decide(snapshot session.Snapshot, required models.Role, requested string) Outcome {
	switch {
	case snapshot.Loading:
		return Outcome{Decision: DecisionWait}
	case snapshot.Principal == nil:
		return Outcome{Decision: DecisionLogin, Location: LoginLocation(requested)}
	case snapshot.Err != nil:
		return Outcome{Decision: DecisionUnavailable}
	case snapshot.Profile == nil:
		return Outcome{Decision: DecisionWait}
	case required != "" && snapshot.Profile.Role() != required:
		return Outcome{Decision: DecisionHome, Location: HomePath}
	default:
		return Outcome{Decision: DecisionAllow}
	}
}

// LoginLocation builds the login redirect remembering the requested path.
func LoginLocation(requested string) string {
	if requested == "" || requested == LoginPath {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(requested)
}
