package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskflow/internal/config"
	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/events"
	"taskflow/internal/repo"
	"taskflow/internal/suggest"
)

// ErrInvalid marks caller mistakes; wrapped messages explain which input.
var ErrInvalid = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Auth      auth.Service
	Assistant suggest.Recommender
	Logger    *log.Logger
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default("taskflow")
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Auth:   auth.NewService(cfg),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return repo.FormatTime(e.now())
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// Actor loads the member performing a request.
func (e Engine) Actor(ctx context.Context, id string) (domain.Member, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Member{}, invalidf("actor id required")
	}
	m, err := e.Repo.GetMember(ctx, id)
	if err != nil {
		return m, fmt.Errorf("actor %s: %w", id, err)
	}
	return m, nil
}

func (e Engine) require(ctx context.Context, actorID, perm string) (domain.Member, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return actor, err
	}
	return actor, e.Auth.Require(actor, perm)
}

// Bootstrap makes sure actorID exists. The first member of an empty
// workspace becomes an admin; later ones join as employees.
func (e Engine) Bootstrap(ctx context.Context, actorID string) (domain.Member, error) {
	if strings.TrimSpace(actorID) == "" {
		return domain.Member{}, invalidf("actor id required")
	}
	if m, err := e.Repo.GetMember(ctx, actorID); err == nil {
		return m, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return m, err
	}
	count, err := e.Repo.CountMembers(ctx)
	if err != nil {
		return domain.Member{}, err
	}
	role := domain.RoleEmployee
	if count == 0 {
		role = domain.RoleAdmin
	}
	m := domain.Member{ID: actorID, Name: actorID, Email: actorID + "@local", Role: role, CreatedAt: e.stamp()}
	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.EnsureMember(ctx, tx, m); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.MemberCreated, "member", m.ID, actorID, events.Payload{"role": m.Role, "bootstrap": true})
	})
	if err != nil {
		return domain.Member{}, err
	}
	return e.Repo.GetMember(ctx, actorID)
}

type MemberCreateOptions struct {
	ID         string
	Name       string
	Email      string
	Role       domain.Role
	Department string
	AvatarURL  string
	ActorID    string
}

func (e Engine) CreateMember(ctx context.Context, opts MemberCreateOptions) (domain.Member, error) {
	if _, err := e.require(ctx, opts.ActorID, auth.PermMemberManage); err != nil {
		return domain.Member{}, err
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Member{}, invalidf("name is required")
	}
	if _, err := mail.ParseAddress(opts.Email); err != nil {
		return domain.Member{}, invalidf("email %q is invalid", opts.Email)
	}
	if opts.Role == "" {
		opts.Role = domain.RoleEmployee
	}
	if !opts.Role.Valid() {
		return domain.Member{}, invalidf("role %q is invalid", opts.Role)
	}
	m := domain.Member{
		ID:         opts.ID,
		Name:       strings.TrimSpace(opts.Name),
		Email:      strings.ToLower(strings.TrimSpace(opts.Email)),
		Role:       opts.Role,
		Department: opts.Department,
		AvatarURL:  opts.AvatarURL,
		CreatedAt:  e.stamp(),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertMember(ctx, tx, m); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.MemberCreated, "member", m.ID, opts.ActorID, events.Payload{"role": m.Role, "email": m.Email})
	})
	if err != nil {
		return domain.Member{}, err
	}
	return m, nil
}

// UpdateMember lets members edit their own profile; role changes and edits
// to other members need member.manage.
func (e Engine) UpdateMember(ctx context.Context, id string, u repo.MemberUpdate, actorID string) (domain.Member, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return domain.Member{}, err
	}
	if actor.ID != id || u.Role != nil {
		if err := e.Auth.Require(actor, auth.PermMemberManage); err != nil {
			return domain.Member{}, err
		}
	}
	if u.Role != nil && !u.Role.Valid() {
		return domain.Member{}, invalidf("role %q is invalid", *u.Role)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return domain.Member{}, invalidf("name must not be empty")
	}
	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateMember(ctx, tx, id, u); err != nil {
			return err
		}
		payload := events.Payload{}
		if u.Role != nil {
			payload["role"] = *u.Role
		}
		return e.writer().Append(ctx, tx, events.MemberUpdated, "member", id, actorID, payload)
	})
	if err != nil {
		return domain.Member{}, err
	}
	return e.Repo.GetMember(ctx, id)
}

func (e Engine) CreateTeam(ctx context.Context, name, description string, memberIDs []string, actorID string) (domain.Team, error) {
	if _, err := e.require(ctx, actorID, auth.PermTeamManage); err != nil {
		return domain.Team{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.Team{}, invalidf("team name is required")
	}
	t := domain.Team{ID: uuid.NewString(), Name: strings.TrimSpace(name), Description: description, CreatedAt: e.stamp()}
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertTeam(ctx, tx, t); err != nil {
			return err
		}
		for _, id := range memberIDs {
			if _, err := e.Repo.GetMemberTx(ctx, tx, id); err != nil {
				return fmt.Errorf("member %s: %w", id, err)
			}
			if err := e.Repo.AddTeamMember(ctx, tx, t.ID, id, t.CreatedAt); err != nil {
				return err
			}
		}
		return e.writer().Append(ctx, tx, events.TeamCreated, "team", t.ID, actorID, events.Payload{"name": t.Name, "members": len(memberIDs)})
	})
	if err != nil {
		return domain.Team{}, err
	}
	return e.Repo.GetTeam(ctx, t.ID)
}

func (e Engine) AddTeamMember(ctx context.Context, teamID, memberID, actorID string) (domain.Team, error) {
	if _, err := e.require(ctx, actorID, auth.PermTeamManage); err != nil {
		return domain.Team{}, err
	}
	if _, err := e.Repo.GetTeam(ctx, teamID); err != nil {
		return domain.Team{}, err
	}
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetMemberTx(ctx, tx, memberID); err != nil {
			return fmt.Errorf("member %s: %w", memberID, err)
		}
		if err := e.Repo.AddTeamMember(ctx, tx, teamID, memberID, e.stamp()); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.TeamMemberAdded, "team", teamID, actorID, events.Payload{"member_id": memberID})
	})
	if err != nil {
		return domain.Team{}, err
	}
	return e.Repo.GetTeam(ctx, teamID)
}

func (e Engine) RemoveTeamMember(ctx context.Context, teamID, memberID, actorID string) (domain.Team, error) {
	if _, err := e.require(ctx, actorID, auth.PermTeamManage); err != nil {
		return domain.Team{}, err
	}
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.RemoveTeamMember(ctx, tx, teamID, memberID); err != nil {
			return fmt.Errorf("team %s member %s: %w", teamID, memberID, err)
		}
		return e.writer().Append(ctx, tx, events.TeamMemberGone, "team", teamID, actorID, events.Payload{"member_id": memberID})
	})
	if err != nil {
		return domain.Team{}, err
	}
	return e.Repo.GetTeam(ctx, teamID)
}

func validProjectStatus(s string) bool {
	switch s {
	case "active", "paused", "archived":
		return true
	}
	return false
}

func (e Engine) CreateProject(ctx context.Context, p domain.Project, actorID string) (domain.Project, error) {
	if _, err := e.require(ctx, actorID, auth.PermProjectManage); err != nil {
		return domain.Project{}, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return domain.Project{}, invalidf("project name is required")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if !validProjectStatus(p.Status) {
		return domain.Project{}, invalidf("project status %q is invalid", p.Status)
	}
	if p.TeamID != nil && *p.TeamID != "" {
		if _, err := e.Repo.GetTeam(ctx, *p.TeamID); err != nil {
			return domain.Project{}, fmt.Errorf("team %s: %w", *p.TeamID, err)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = e.stamp()
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.ProjectCreated, "project", p.ID, actorID, events.Payload{"name": p.Name})
	})
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (e Engine) UpdateProject(ctx context.Context, id string, u repo.ProjectUpdate, actorID string) (domain.Project, error) {
	if _, err := e.require(ctx, actorID, auth.PermProjectManage); err != nil {
		return domain.Project{}, err
	}
	if u.Status != nil && !validProjectStatus(*u.Status) {
		return domain.Project{}, invalidf("project status %q is invalid", *u.Status)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return domain.Project{}, invalidf("project name must not be empty")
	}
	err := e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateProject(ctx, tx, id, u); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.ProjectUpdated, "project", id, actorID, nil)
	})
	if err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, id)
}

// DeleteProject keeps the project's tasks; they become project-less.
func (e Engine) DeleteProject(ctx context.Context, id, actorID string) error {
	if _, err := e.require(ctx, actorID, auth.PermProjectManage); err != nil {
		return err
	}
	return e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.ProjectDeleted, "project", id, actorID, nil)
	})
}

// CreateAPIKey returns the stored record and the plaintext key, which is
// not kept anywhere.
func (e Engine) CreateAPIKey(ctx context.Context, memberID, name, actorID string) (domain.APIKey, string, error) {
	actor, err := e.Actor(ctx, actorID)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	if memberID == "" {
		memberID = actor.ID
	}
	if memberID != actor.ID {
		if err := e.Auth.Require(actor, auth.PermAPIKeyManage); err != nil {
			return domain.APIKey{}, "", err
		}
	}
	if _, err := e.Repo.GetMember(ctx, memberID); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("member %s: %w", memberID, err)
	}
	plain := "tf_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	key := domain.APIKey{ID: uuid.NewString(), MemberID: memberID, Name: name, KeyHash: repo.HashAPIKey(plain), CreatedAt: e.stamp()}
	err = e.Repo.Tx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
			return err
		}
		return e.writer().Append(ctx, tx, events.APIKeyCreated, "api_key", key.ID, actorID, events.Payload{"member_id": memberID, "name": name})
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plain, nil
}
