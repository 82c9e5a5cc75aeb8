// Package service holds the business rules of the shop. Every exported
// operation receives the caller's Identity and re-checks it.
package service

import (
	"time"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"

	"github.com/google/uuid"
)

// IdentityKind tags who is calling
type IdentityKind int

const (
	Anonymous IdentityKind = iota
	User
	Admin
)

func (k IdentityKind) String() string {
	switch k {
	case User:
		return "user"
	case Admin:
		return "admin"
	}
	return "anonymous"
}

// Identity is resolved once per request. The profile is nil for Anonymous.
type Identity struct {
	Kind    IdentityKind
	Profile *model.Profile
	// TokenID and TokenExpiry describe the bearer token the identity came from
	TokenID     string
	TokenExpiry time.Time
}

// AnonymousIdentity is the identity of a request without credentials
var AnonymousIdentity = Identity{Kind: Anonymous}

// IdentityFor derives the identity from a stored profile. The stored role
// is the only thing that decides between User and Admin.
func IdentityFor(profile *model.Profile) Identity {
	if profile == nil {
		return AnonymousIdentity
	}
	if profile.IsAdmin() {
		return Identity{Kind: Admin, Profile: profile}
	}
	return Identity{Kind: User, Profile: profile}
}

// IsAdmin reports whether the identity is an administrator
func (i Identity) IsAdmin() bool {
	return i.Kind == Admin && i.Profile != nil
}

// UserID returns the caller's id, uuid.Nil for Anonymous
func (i Identity) UserID() uuid.UUID {
	if i.Profile == nil {
		return uuid.Nil
	}
	return i.Profile.ID
}

// RequireUser fails with UNAUTHORIZED unless someone is signed in
func (i Identity) RequireUser() error {
	if i.Kind == Anonymous || i.Profile == nil {
		return apperror.Unauthorized("authentication required")
	}
	return nil
}

// RequireAdmin fails with UNAUTHORIZED for Anonymous and FORBIDDEN for User
func (i Identity) RequireAdmin() error {
	if err := i.RequireUser(); err != nil {
		return err
	}
	if !i.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	return nil
}
