package auth

import (
	"errors"
	"testing"

	"taskflow/internal/config"
	"taskflow/internal/domain"
)

func TestDefaultRoles(t *testing.T) {
	s := NewService(nil)
	if !s.Can(domain.RoleAdmin, "anything.at.all") {
		t.Fatalf("admin wildcard not honoured")
	}
	if !s.Can(domain.RoleManager, PermTaskReadAll) {
		t.Fatalf("manager should read all tasks")
	}
	if s.Can(domain.RoleEmployee, PermTaskReadAll) {
		t.Fatalf("employee must not read all tasks")
	}
	if s.Can(domain.Role("guest"), PermMemberRead) {
		t.Fatalf("unknown role should have no permissions")
	}
}

func TestRequire(t *testing.T) {
	s := NewService(config.Default("x"))
	err := s.Require(domain.Member{ID: "e", Role: domain.RoleEmployee}, PermSuggestRun)
	var fe ForbiddenError
	if !errors.As(err, &fe) || fe.Permission != PermSuggestRun {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
	if err := s.Require(domain.Member{ID: "m", Role: domain.RoleManager}, PermSuggestRun); err != nil {
		t.Fatalf("manager should run suggestions: %v", err)
	}
}

func TestCustomRoles(t *testing.T) {
	cfg := &config.Config{}
	cfg.RBAC.Roles = map[string]config.RBACRole{"employee": {Permissions: []string{PermTaskReadAll}}}
	s := NewService(cfg)
	if !s.Can(domain.RoleEmployee, PermTaskReadAll) {
		t.Fatalf("custom permission ignored")
	}
	if s.Can(domain.RoleAdmin, PermTaskCreate) {
		t.Fatalf("roles absent from custom table have no permissions")
	}
	if got := s.Permissions(domain.RoleEmployee); len(got) != 1 || got[0] != PermTaskReadAll {
		t.Fatalf("unexpected permissions %v", got)
	}
}
