package repo

import (
	"context"
	"database/sql"
	"errors"

	"taskflow/internal/domain"
)

func (r Repo) InsertTeam(ctx context.Context, tx *sql.Tx, t domain.Team) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO teams(id,name,description,created_at) VALUES (?,?,?,?)`,
		t.ID, t.Name, nullable(t.Description), t.CreatedAt)
	return err
}

func (r Repo) AddTeamMember(ctx context.Context, tx *sql.Tx, teamID, memberID, now string) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO team_members(team_id,member_id,added_at) VALUES (?,?,?)`, teamID, memberID, now)
	return err
}

func (r Repo) RemoveTeamMember(ctx context.Context, tx *sql.Tx, teamID, memberID string) error {
	return affectedOne(r.q(tx).ExecContext(ctx, `DELETE FROM team_members WHERE team_id=? AND member_id=?`, teamID, memberID))
}

func (r Repo) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	var t domain.Team
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,description,created_at FROM teams WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &desc, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Description = desc.String
	t.MemberIDs, err = r.teamMemberIDs(ctx, id)
	return t, err
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,''),created_at FROM teams ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	res := []domain.Team{}
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].MemberIDs, err = r.teamMemberIDs(ctx, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// TeamMembers returns the roster of a team ordered by name.
func (r Repo) TeamMembers(ctx context.Context, teamID string) ([]domain.Member, error) {
	if _, err := r.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return r.queryMembers(ctx, `SELECT m.id,m.name,m.email,m.role,COALESCE(m.department,''),COALESCE(m.avatar_url,''),m.created_at
FROM members m JOIN team_members tm ON tm.member_id=m.id WHERE tm.team_id=? ORDER BY m.name, m.id`, teamID)
}

func (r Repo) teamMemberIDs(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT member_id FROM team_members WHERE team_id=? ORDER BY added_at, member_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
