package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/hdlelab/internal/ig"
)

const kindModule = "module"

// PutModule stores m as a new object and returns its id. m.ID is set to
// the new id.
func (s *Store) PutModule(ctx context.Context, m *ig.Module) (int64, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("put module %s: %w", m.Signature, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (kind, data) VALUES (?, ?)
	`, kindModule, string(data))
	if err != nil {
		return 0, fmt.Errorf("put module %s: %w", m.Signature, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("put module %s: %w", m.Signature, err)
	}
	m.ID = id
	return id, nil
}

// GetModule loads the module stored under id.
// Returns ErrNotFound if there is none.
func (s *Store) GetModule(ctx context.Context, id int64) (*ig.Module, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM objects WHERE id = ? AND kind = ?
	`, id, kindModule).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get module %d: %w", id, err)
	}

	var m ig.Module
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("decode module %d: %w", id, err)
	}
	m.ID = id
	return &m, nil
}

// UpdateModule overwrites the stored module m.ID.
func (s *Store) UpdateModule(ctx context.Context, m *ig.Module) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("update module %s: %w", m.Signature, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE objects SET data = ? WHERE id = ? AND kind = ?
	`, string(data), m.ID, kindModule)
	if err != nil {
		return fmt.Errorf("update module %s: %w", m.Signature, err)
	}
	return requireRow(res, "module %d", m.ID)
}

// DeleteModule removes the stored module id. Index entries pointing at it
// are left to the caller.
func (s *Store) DeleteModule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM objects WHERE id = ? AND kind = ?
	`, id, kindModule)
	if err != nil {
		return fmt.Errorf("delete module %d: %w", id, err)
	}
	return requireRow(res, "module %d", id)
}

// CountModules returns the number of stored modules.
func (s *Store) CountModules(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM objects WHERE kind = ?
	`, kindModule).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return nil
}
