package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/domain"
)

const memberColumns = `id,name,email,role,COALESCE(department,''),COALESCE(avatar_url,''),created_at`

func scanMember(s interface{ Scan(...any) error }) (domain.Member, error) {
	var m domain.Member
	var role string
	if err := s.Scan(&m.ID, &m.Name, &m.Email, &role, &m.Department, &m.AvatarURL, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	m.Role = domain.Role(role)
	return m, nil
}

func (r Repo) InsertMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO members(id,name,email,role,department,avatar_url,created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.Name, strings.ToLower(strings.TrimSpace(m.Email)), string(m.Role), nullable(m.Department), nullable(m.AvatarURL), m.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return fmt.Errorf("member email %s: %w", m.Email, ErrDuplicate)
	}
	return err
}

// EnsureMember inserts the member when missing and leaves existing rows alone.
func (r Repo) EnsureMember(ctx context.Context, tx *sql.Tx, m domain.Member) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT OR IGNORE INTO members(id,name,email,role,department,avatar_url,created_at) VALUES (?,?,?,?,?,?,?)`,
		m.ID, m.Name, strings.ToLower(strings.TrimSpace(m.Email)), string(m.Role), nullable(m.Department), nullable(m.AvatarURL), m.CreatedAt)
	return err
}

func (r Repo) GetMember(ctx context.Context, id string) (domain.Member, error) {
	return r.GetMemberTx(ctx, nil, id)
}

func (r Repo) GetMemberTx(ctx context.Context, tx *sql.Tx, id string) (domain.Member, error) {
	return scanMember(r.q(tx).QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id=?`, id))
}

type MemberUpdate struct {
	Name       *string
	Role       *domain.Role
	Department *string
	AvatarURL  *string
}

func (r Repo) UpdateMember(ctx context.Context, tx *sql.Tx, id string, u MemberUpdate) error {
	var (
		fields []string
		args   []any
	)
	if u.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *u.Name)
	}
	if u.Role != nil {
		fields = append(fields, "role=?")
		args = append(args, string(*u.Role))
	}
	if u.Department != nil {
		fields = append(fields, "department=?")
		args = append(args, nullable(*u.Department))
	}
	if u.AvatarURL != nil {
		fields = append(fields, "avatar_url=?")
		args = append(args, nullable(*u.AvatarURL))
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	return affectedOne(r.q(tx).ExecContext(ctx, fmt.Sprintf(`UPDATE members SET %s WHERE id=?`, strings.Join(fields, ",")), args...))
}

// ListMembers returns members ordered by name. A non-empty role filters.
func (r Repo) ListMembers(ctx context.Context, role string) ([]domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, role)
	}
	query += ` ORDER BY name, id`
	return r.queryMembers(ctx, query, args...)
}

// CountMembers reports the number of rows in members.
func (r Repo) CountMembers(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

func (r Repo) queryMembers(ctx context.Context, query string, args ...any) ([]domain.Member, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
