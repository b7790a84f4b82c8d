package engine

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
)

// Members lists members, optionally filtered by role.
func (e Engine) Members(ctx context.Context, actorID, role string) ([]domain.Member, error) {
	if _, err := e.require(ctx, actorID, auth.PermMemberRead); err != nil {
		return nil, err
	}
	if role != "" && !domain.Role(role).Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	return e.Repo.ListMembers(ctx, role)
}

// Member returns one member. Everyone may read their own record.
func (e Engine) Member(ctx context.Context, actorID, id string) (domain.Member, error) {
	if actorID != id {
		if _, err := e.require(ctx, actorID, auth.PermMemberRead); err != nil {
			return domain.Member{}, err
		}
	}
	return e.Repo.GetMember(ctx, id)
}

func (e Engine) Teams(ctx context.Context, actorID string) ([]domain.Team, error) {
	if _, err := e.require(ctx, actorID, auth.PermMemberRead); err != nil {
		return nil, err
	}
	return e.Repo.ListTeams(ctx)
}

func (e Engine) Team(ctx context.Context, actorID, id string) (domain.Team, error) {
	if _, err := e.require(ctx, actorID, auth.PermMemberRead); err != nil {
		return domain.Team{}, err
	}
	return e.Repo.GetTeam(ctx, id)
}

// Projects are readable by any known member.
func (e Engine) Projects(ctx context.Context, actorID, teamID string) ([]domain.Project, error) {
	if _, err := e.Actor(ctx, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListProjects(ctx, teamID)
}

func (e Engine) Project(ctx context.Context, actorID, id string) (domain.Project, error) {
	if _, err := e.Actor(ctx, actorID); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, id)
}

// ProjectTaskCounts returns a status -> count map for one project, or for
// every task when projectID is empty.
func (e Engine) ProjectTaskCounts(ctx context.Context, actorID, projectID string) (map[string]int, error) {
	if _, err := e.require(ctx, actorID, auth.PermTaskReadAll); err != nil {
		return nil, err
	}
	if projectID != "" {
		if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
			return nil, err
		}
	}
	counts, err := e.Repo.CountTasksByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, s := range []string{domain.StatusTodo, domain.StatusInProgress, domain.StatusReview, domain.StatusDone} {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	return counts, nil
}

// APIKeys lists keys owned by memberID; other members' keys need apikey.manage.
func (e Engine) APIKeys(ctx context.Context, actorID, memberID string) ([]domain.APIKey, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if memberID == "" {
		memberID = actor.ID
	}
	if memberID != actor.ID {
		if err := e.Auth.Require(actor, auth.PermAPIKeyManage); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListAPIKeys(ctx, memberID)
}

func (e Engine) RevokeAPIKey(ctx context.Context, id, actorID string) error {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return err
	}
	if !e.Auth.Can(actor.Role, auth.PermAPIKeyManage) {
		keys, err := e.Repo.ListAPIKeys(ctx, actor.ID)
		if err != nil {
			return err
		}
		owned := false
		for _, k := range keys {
			owned = owned || k.ID == id
		}
		if !owned {
			return auth.ForbiddenError{Permission: auth.PermAPIKeyManage}
		}
	}
	return e.Repo.DeleteAPIKey(ctx, id)
}
