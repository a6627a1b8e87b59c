package domain

import (
	"fmt"
	"strings"
)

type Role uint8

const (
	RoleUser Role = 1 << iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole accepts both "ADMIN" and the "ROLE_ADMIN" spelling.
func ParseRole(s string) (Role, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_") {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// RoleSet is a closed set of roles.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= RoleSet(r)
	}
	return s
}

func (s RoleSet) Has(r Role) bool {
	return r != 0 && s&RoleSet(r) == RoleSet(r)
}

func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range []Role{RoleUser, RoleAdmin} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}

func ParseRoleSet(names []string) (RoleSet, error) {
	var s RoleSet
	for _, name := range names {
		r, err := ParseRole(name)
		if err != nil {
			return 0, err
		}
		s |= RoleSet(r)
	}
	return s, nil
}

// Principal is an authenticated actor. It is resolved once per request and
// passed explicitly to every operation.
type Principal struct {
	UserID   int64
	Username string
	Roles    RoleSet
}

func (p Principal) IsAdmin() bool {
	return p.Roles.Has(RoleAdmin)
}

// Authenticated reports whether p identifies a user at all.
func (p Principal) Authenticated() bool {
	return p.UserID > 0 && p.Roles != 0
}

// Owns reports whether card belongs to p.
func (p Principal) Owns(card *Card) bool {
	return card != nil && p.UserID > 0 && card.UserID == p.UserID
}
