package auth

import (
	"fmt"
	"sort"

	"taskflow/internal/config"
	"taskflow/internal/domain"
)

const (
	PermAll           = "*"
	PermTaskReadAll   = "task.read.all"
	PermTaskCreate    = "task.create"
	PermTaskUpdate    = "task.update"
	PermTaskDelete    = "task.delete"
	PermTaskAssign    = "task.assign"
	PermProjectManage = "project.manage"
	PermTeamManage    = "team.manage"
	PermMemberRead    = "member.read"
	PermMemberManage  = "member.manage"
	PermWorkloadRead  = "workload.read"
	PermSuggestRun    = "suggest.run"
	PermEventsRead    = "events.read"
	PermAPIKeyManage  = "apikey.manage"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Service resolves role permissions from the rbac section of the config.
type Service struct {
	roles map[domain.Role]map[string]bool
}

// NewService falls back to the default role table when cfg has none.
func NewService(cfg *config.Config) Service {
	src := config.Default("").RBAC.Roles
	if cfg != nil && len(cfg.RBAC.Roles) > 0 {
		src = cfg.RBAC.Roles
	}
	s := Service{roles: make(map[domain.Role]map[string]bool, len(src))}
	for id, role := range src {
		perms := make(map[string]bool, len(role.Permissions))
		for _, p := range role.Permissions {
			perms[p] = true
		}
		s.roles[domain.Role(id)] = perms
	}
	return s
}

func (s Service) Can(role domain.Role, perm string) bool {
	perms := s.roles[role]
	return perms[PermAll] || perms[perm]
}

// Require returns ForbiddenError when the member's role lacks perm.
func (s Service) Require(m domain.Member, perm string) error {
	if !s.Can(m.Role, perm) {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

// Permissions lists a role's permissions sorted.
func (s Service) Permissions(role domain.Role) []string {
	out := make([]string, 0, len(s.roles[role]))
	for p := range s.roles[role] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
