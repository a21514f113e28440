package auth

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleCompany Role = "company"
)

var (
	ErrUnauthenticated = errors.New("missing or invalid identity")
	ErrForbidden       = errors.New("operation not allowed for this user")
)

// Principal is the caller of an API operation.
type Principal struct {
	UserID    string
	Role      Role
	Namespace string
}

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleCompany:
		return RoleCompany, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, s)
	}
}

// New validates the raw identity fields and returns a principal.
func New(userID, role, namespace string) (Principal, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Principal{}, fmt.Errorf("%w: user id is required", ErrUnauthenticated)
	}
	r, err := ParseRole(role)
	if err != nil {
		return Principal{}, err
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return Principal{}, fmt.Errorf("%w: college code is required", ErrUnauthenticated)
	}
	return Principal{UserID: userID, Role: r, Namespace: namespace}, nil
}

// RequireRole fails unless p has role r.
func (p Principal) RequireRole(r Role) error {
	if p.Role != r {
		return fmt.Errorf("%w: requires %s role", ErrForbidden, r)
	}
	return nil
}

// ScopeNamespace resolves the namespace a company may query. An empty
// request falls back to the caller's own namespace; any other is rejected.
func (p Principal) ScopeNamespace(requested string) (string, error) {
	if err := p.RequireRole(RoleCompany); err != nil {
		return "", err
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return p.Namespace, nil
	}
	if requested != p.Namespace {
		return "", fmt.Errorf("%w: college code %s is outside your scope", ErrForbidden, requested)
	}
	return requested, nil
}
