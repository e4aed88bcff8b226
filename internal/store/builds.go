package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Build records one elaboration run.
type Build struct {
	RunID       string
	Kind        string // "build" or "rebuild"
	Toplevels   []string
	StartedAt   time.Time
	FinishedAt  time.Time
	Modules     int
	Diagnostics int
	Canceled    bool
}

// RecordBuild stores b. Recording the same run id twice keeps the first
// record.
func (s *Store) RecordBuild(ctx context.Context, b Build) error {
	toplevels := b.Toplevels
	if toplevels == nil {
		toplevels = []string{}
	}
	tl, err := json.Marshal(toplevels)
	if err != nil {
		return fmt.Errorf("record build %s: %w", b.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO builds
		(run_id, kind, toplevels, started_at, finished_at, modules, diagnostics, canceled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		b.RunID,
		b.Kind,
		string(tl),
		b.StartedAt.UTC().Format(time.RFC3339Nano),
		b.FinishedAt.UTC().Format(time.RFC3339Nano),
		b.Modules,
		b.Diagnostics,
		b.Canceled,
	)
	if err != nil {
		return fmt.Errorf("record build %s: %w", b.RunID, err)
	}
	return nil
}

// Builds returns all recorded builds, oldest first.
// Run ids are UUIDv7, so ordering by run id is ordering by start time.
func (s *Store) Builds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, toplevels, started_at, finished_at, modules, diagnostics, canceled
		FROM builds
		ORDER BY run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var (
			b                 Build
			tl, start, finish string
		)
		if err := rows.Scan(&b.RunID, &b.Kind, &tl, &start, &finish, &b.Modules, &b.Diagnostics, &b.Canceled); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		if err := json.Unmarshal([]byte(tl), &b.Toplevels); err != nil {
			return nil, fmt.Errorf("decode build %s toplevels: %w", b.RunID, err)
		}
		if b.StartedAt, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return nil, fmt.Errorf("decode build %s: %w", b.RunID, err)
		}
		if b.FinishedAt, err = time.Parse(time.RFC3339Nano, finish); err != nil {
			return nil, fmt.Errorf("decode build %s: %w", b.RunID, err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}
