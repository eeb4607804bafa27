package access

import (
	"path"
	"strings"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

var publicPaths = map[string]struct{}{
	"/":          {},
	"/about":     {},
	"/contact":   {},
	"/gallery":   {},
	"/timetable": {},
	"/login":     {},
	"/register":  {},
}

// RoleForPath returns the role whose subtree contains p. ok is false for
// public and unknown paths.
func RoleForPath(p string) (models.Role, bool) {
	clean := cleanPath(p)
	for _, role := range models.AllRoles() {
		shell, err := ShellFor(role)
		if err != nil {
			continue
		}
		if clean == shell.HomePath || strings.HasPrefix(clean, shell.HomePath+"/") {
			return role, true
		}
	}
	return "", false
}

// IsPublicPath reports whether p is served without a guard.
func IsPublicPath(p string) bool {
	_, ok := publicPaths[cleanPath(p)]
	return ok
}

// Navigate resolves a page path: public pages render, role subtrees go
// through Decide, anything else redirects home.
//
// Query strings and fragments are ignored for matching but kept in the login
// return path.
func Navigate(snapshot session.Snapshot, p string) Outcome {
	clean := cleanPath(p)
	if IsPublicPath(clean) {
		return Outcome{Decision: DecisionAllow}
	}
	if role, ok := RoleForPath(clean); ok {
		requested := clean
		if suffix := strings.IndexAny(p, "?#"); suffix >= 0 {
			requested += p[suffix:]
		}
		return Decide(snapshot, role, requested)
	}
	return Outcome{Decision: DecisionHome, Location: HomePath}
}

// cleanPath drops any query string or fragment and normalises the rest.
func cleanPath(p string) string {
	if cut := strings.IndexAny(p, "?#"); cut >= 0 {
		p = p[:cut]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
