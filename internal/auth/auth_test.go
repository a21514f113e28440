package auth

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	p, err := New(" user2 ", "Company", "COLLEGE123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UserID != "user2" || p.Role != RoleCompany || p.Namespace != "COLLEGE123" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	for _, tc := range [][3]string{
		{"", "company", "C"},
		{"u", "admin", "C"},
		{"u", "student", " "},
	} {
		if _, err := New(tc[0], tc[1], tc[2]); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for %v, got %v", tc, err)
		}
	}
}

func TestScopeNamespace(t *testing.T) {
	company := Principal{UserID: "user2", Role: RoleCompany, Namespace: "COLLEGE123"}

	ns, err := company.ScopeNamespace("")
	if err != nil || ns != "COLLEGE123" {
		t.Fatalf("expected own namespace, got %q, %v", ns, err)
	}
	if ns, err := company.ScopeNamespace("COLLEGE123"); err != nil || ns != "COLLEGE123" {
		t.Fatalf("unexpected result: %q, %v", ns, err)
	}
	if _, err := company.ScopeNamespace("OTHER"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	student := Principal{UserID: "user1", Role: RoleStudent, Namespace: "COLLEGE123"}
	if _, err := student.ScopeNamespace(""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("students must not query namespaces, got %v", err)
	}
	if err := student.RequireRole(RoleStudent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
