package permissions

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/yamdb/yamdb-api/internal/models"
)

func actor(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Username: string(role), Role: role}
}

func TestPolicyAllows(t *testing.T) {
	user := actor(models.RoleUser)
	moderator := actor(models.RoleModerator)
	admin := actor(models.RoleAdmin)
	staff := &models.User{ID: uuid.New(), Role: models.RoleUser, IsStaff: true}

	testCases := []struct {
		name   string
		policy Policy
		actor  *models.User
		method string
		want   bool
	}{
		{"read-only anonymous get", ReadOnly, nil, http.MethodGet, true},
		{"read-only anonymous post", ReadOnly, nil, http.MethodPost, false},
		{"read-only admin delete", ReadOnly, admin, http.MethodDelete, false},

		{"catalog anonymous get", AdminOrReadOnly, nil, http.MethodGet, true},
		{"catalog anonymous post", AdminOrReadOnly, nil, http.MethodPost, false},
		{"catalog user delete", AdminOrReadOnly, user, http.MethodDelete, false},
		{"catalog moderator post", AdminOrReadOnly, moderator, http.MethodPost, false},
		{"catalog admin post", AdminOrReadOnly, admin, http.MethodPost, true},
		{"catalog staff patch", AdminOrReadOnly, staff, http.MethodPatch, true},

		{"reviews anonymous get", AuthenticatedWrite, nil, http.MethodGet, true},
		{"reviews anonymous post", AuthenticatedWrite, nil, http.MethodPost, false},
		{"reviews user post", AuthenticatedWrite, user, http.MethodPost, true},

		{"me anonymous get", Authenticated, nil, http.MethodGet, false},
		{"me user patch", Authenticated, user, http.MethodPatch, true},

		{"users anonymous get", AdminOnly, nil, http.MethodGet, false},
		{"users user get", AdminOnly, user, http.MethodGet, false},
		{"users moderator get", AdminOnly, moderator, http.MethodGet, false},
		{"users admin delete", AdminOnly, admin, http.MethodDelete, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Allows(tc.actor, tc.method))
		})
	}
}

func TestPolicyNeedsAuthentication(t *testing.T) {
	assert.True(t, AdminOrReadOnly.NeedsAuthentication(nil, http.MethodPost))
	assert.False(t, AdminOrReadOnly.NeedsAuthentication(nil, http.MethodGet))
	assert.False(t, AdminOrReadOnly.NeedsAuthentication(actor(models.RoleUser), http.MethodPost))
	assert.True(t, Authenticated.NeedsAuthentication(nil, http.MethodGet))
}

func TestOwnerOrPrivileged(t *testing.T) {
	author := actor(models.RoleUser)
	stranger := actor(models.RoleUser)
	moderator := actor(models.RoleModerator)
	admin := actor(models.RoleAdmin)

	assert.True(t, OwnerOrPrivileged(nil, http.MethodGet, author.ID))
	assert.False(t, OwnerOrPrivileged(nil, http.MethodPatch, author.ID))
	assert.True(t, OwnerOrPrivileged(author, http.MethodPatch, author.ID))
	assert.True(t, OwnerOrPrivileged(author, http.MethodDelete, author.ID))
	assert.False(t, OwnerOrPrivileged(stranger, http.MethodPatch, author.ID))
	assert.False(t, OwnerOrPrivileged(stranger, http.MethodDelete, author.ID))
	assert.True(t, OwnerOrPrivileged(moderator, http.MethodDelete, author.ID))
	assert.True(t, OwnerOrPrivileged(admin, http.MethodPatch, author.ID))
}

func TestCanChangeRole(t *testing.T) {
	assert.False(t, CanChangeRole(nil))
	assert.False(t, CanChangeRole(actor(models.RoleModerator)))
	assert.True(t, CanChangeRole(actor(models.RoleAdmin)))
}
