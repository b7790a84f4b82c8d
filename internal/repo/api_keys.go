package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"taskflow/internal/domain"
)

const apiKeyColumns = `id,member_id,COALESCE(name,''),key_hash,created_at`

// HashAPIKey is the only form of a key that reaches the database.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func scanAPIKey(s interface{ Scan(...any) error }) (domain.APIKey, error) {
	var k domain.APIKey
	err := s.Scan(&k.ID, &k.MemberID, &k.Name, &k.KeyHash, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.APIKey{}, ErrNotFound
	}
	return k, err
}

func (r Repo) InsertAPIKey(ctx context.Context, tx *sql.Tx, k domain.APIKey) error {
	if k.ID == "" || k.MemberID == "" || k.KeyHash == "" {
		return errors.New("api key needs id, member_id and key_hash")
	}
	if k.CreatedAt == "" {
		k.CreatedAt = Now()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO api_keys(id,member_id,name,key_hash,created_at) VALUES (?,?,?,?,?)`,
		k.ID, k.MemberID, nullable(k.Name), k.KeyHash, k.CreatedAt)
	return err
}

// GetAPIKeyByHash looks a key up by HashAPIKey output.
func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	return scanAPIKey(r.DB.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash=?`, hash))
}

// ListAPIKeys returns keys newest first; an empty memberID lists every key.
func (r Repo) ListAPIKeys(ctx context.Context, memberID string) ([]domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys`
	var args []any
	if memberID != "" {
		query += ` WHERE member_id=?`
		args = append(args, memberID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := []domain.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r Repo) DeleteAPIKey(ctx context.Context, id string) error {
	return affectedOne(r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=?`, id))
}
