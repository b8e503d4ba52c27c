// Package permissions holds the capability predicates that gate every route.
// Each predicate is a pure function of the acting user (nil when anonymous),
// the HTTP method and, for object-level checks, the resource owner.
package permissions

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/yamdb/yamdb-api/internal/models"
)

// Policy tags the request-level rule a route is mounted with.
type Policy int

const (
	// ReadOnly allows safe methods to anyone and nothing else. It guards the
	// public health check.
	ReadOnly Policy = iota
	// AdminOrReadOnly allows safe methods to anyone and writes to admins.
	AdminOrReadOnly
	// AuthenticatedWrite allows safe methods to anyone and writes to any signed-in user.
	AuthenticatedWrite
	// Authenticated requires a signed-in user for every method.
	Authenticated
	// AdminOnly requires an admin for every method.
	AdminOnly
)

func (p Policy) String() string {
	switch p {
	case ReadOnly:
		return "read-only"
	case AdminOrReadOnly:
		return "admin-or-read-only"
	case AuthenticatedWrite:
		return "authenticated-write"
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin-only"
	}
	return "unknown"
}

// IsSafeMethod reports whether method never mutates state.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Allows evaluates the request-level rule.
func (p Policy) Allows(actor *models.User, method string) bool {
	switch p {
	case ReadOnly:
		return IsSafeMethod(method)
	case AdminOrReadOnly:
		return IsSafeMethod(method) || isAdmin(actor)
	case AuthenticatedWrite:
		return IsSafeMethod(method) || actor != nil
	case Authenticated:
		return actor != nil
	case AdminOnly:
		return isAdmin(actor)
	}
	return false
}

// NeedsAuthentication reports whether a denial of an anonymous request under p
// should be answered with 401 rather than 403.
func (p Policy) NeedsAuthentication(actor *models.User, method string) bool {
	return actor == nil && !p.Allows(nil, method)
}

// OwnerOrPrivileged is the object-level rule for reviews and comments:
// safe methods always pass, mutation requires the author or a moderator/admin.
func OwnerOrPrivileged(actor *models.User, method string, authorID uuid.UUID) bool {
	if IsSafeMethod(method) {
		return true
	}
	if actor == nil {
		return false
	}
	return actor.ID == authorID || actor.IsModerator() || actor.IsAdmin()
}

// CanChangeRole reports whether actor may assign roles to accounts.
func CanChangeRole(actor *models.User) bool {
	return isAdmin(actor)
}

func isAdmin(actor *models.User) bool {
	return actor != nil && actor.IsAdmin()
}
