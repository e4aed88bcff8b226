package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetIdx returns the object id stored under (name, key).
// Returns ErrNotFound if there is no entry.
func (s *Store) GetIdx(ctx context.Context, name, key string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT object_id FROM idx WHERE name = ? AND key = ?
	`, name, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s[%s]: %w", name, key, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get %s[%s]: %w", name, key, err)
	}
	return id, nil
}

// PutIdx stores id under (name, key), replacing any previous entry.
func (s *Store) PutIdx(ctx context.Context, name, key string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idx (name, key, object_id) VALUES (?, ?, ?)
		ON CONFLICT(name, key) DO UPDATE SET object_id = excluded.object_id
	`, name, key, id)
	if err != nil {
		return fmt.Errorf("put %s[%s]: %w", name, key, err)
	}
	return nil
}

// DelIdx removes the entry (name, key). Removing a missing entry is not an
// error.
func (s *Store) DelIdx(ctx context.Context, name, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM idx WHERE name = ? AND key = ?
	`, name, key)
	if err != nil {
		return fmt.Errorf("delete %s[%s]: %w", name, key, err)
	}
	return nil
}

// ListAdd appends member to the ordered set (name, key). It reports false
// if member was already present; the original position is kept.
func (s *Store) ListAdd(ctx context.Context, name, key, member string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO list_idx (name, key, member, seq)
		SELECT ?, ?, ?, COALESCE(MAX(seq), 0) + 1
		FROM list_idx WHERE name = ? AND key = ?
		ON CONFLICT(name, key, member) DO NOTHING
	`, name, key, member, name, key)
	if err != nil {
		return false, fmt.Errorf("add %s[%s] %s: %w", name, key, member, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add %s[%s] %s: %w", name, key, member, err)
	}
	return n > 0, nil
}

// ListMembers returns the members of (name, key) in insertion order.
// Returns an empty slice (not nil) if the list is empty.
func (s *Store) ListMembers(ctx context.Context, name, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member FROM list_idx
		WHERE name = ? AND key = ?
		ORDER BY seq ASC
	`, name, key)
	if err != nil {
		return nil, fmt.Errorf("query %s[%s]: %w", name, key, err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan %s[%s]: %w", name, key, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s[%s]: %w", name, key, err)
	}
	return members, nil
}

// ListRemove removes member from (name, key) if present.
func (s *Store) ListRemove(ctx context.Context, name, key, member string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM list_idx WHERE name = ? AND key = ? AND member = ?
	`, name, key, member)
	if err != nil {
		return fmt.Errorf("remove %s[%s] %s: %w", name, key, member, err)
	}
	return nil
}

// ListDelete removes the whole list (name, key).
func (s *Store) ListDelete(ctx context.Context, name, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM list_idx WHERE name = ? AND key = ?
	`, name, key)
	if err != nil {
		return fmt.Errorf("delete %s[%s]: %w", name, key, err)
	}
	return nil
}

// ListKeys returns every key of the list index name, sorted.
func (s *Store) ListKeys(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT key FROM list_idx WHERE name = ? ORDER BY key COLLATE BINARY ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query %s keys: %w", name, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan %s key: %w", name, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s keys: %w", name, err)
	}
	return keys, nil
}
