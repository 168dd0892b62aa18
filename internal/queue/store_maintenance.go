package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth captures diagnostic information about the workflow database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalWorkflows   int
	TotalJobs        int
	Error            string
}

// Stats returns a count of workflows grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM workflows GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("workflow stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates workflow state for status output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusFailed:
			health.Failed += count
		case status == StatusDone:
			health.Done += count
		case status == StatusMetadataReady:
			health.AwaitingMint += count
		case IsProcessingStatus(status):
			health.Processing += count
		default:
			health.Waiting += count
		}
	}
	return health, nil
}

// CheckHealth inspects the database file: that it exists, answers, passes
// SQLite's integrity check, and how many rows it holds.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("workflow database path is unknown")
	}
	switch info, err := os.Stat(s.path); {
	case errors.Is(err, os.ErrNotExist):
		return health, nil
	case err != nil:
		return health, fmt.Errorf("stat workflow database: %w", err)
	case info.IsDir():
		return health, fmt.Errorf("workflow database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	ctx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()
	fail := func(step string, err error) (DatabaseHealth, error) {
		health.Error = err.Error()
		return health, fmt.Errorf("%s: %w", step, err)
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fail("ping workflow database", err)
	}
	health.DatabaseReadable = true

	for _, count := range []struct {
		step  string
		query string
		into  *int
	}{
		{"count workflows", "SELECT COUNT(*) FROM workflows", &health.TotalWorkflows},
		{"count jobs", "SELECT COUNT(*) FROM jobs", &health.TotalJobs},
	} {
		if err := s.db.QueryRowContext(ctx, count.query).Scan(count.into); err != nil {
			return fail(count.step, err)
		}
	}

	var verdict string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&verdict); err != nil {
		return fail("integrity check", err)
	}
	health.IntegrityCheck = strings.EqualFold(verdict, "ok")
	return health, nil
}
