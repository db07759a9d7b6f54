package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertCompetitor adds a competitor.
func (s *Store) InsertCompetitor(ctx context.Context, c *Competitor) error {
	now := time.Now().UnixMilli()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO competitors (id, name, website, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Website, c.Description, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetCompetitor retrieves a competitor by ID. Returns nil when not found.
func (s *Store) GetCompetitor(ctx context.Context, id string) (*Competitor, error) {
	var c Competitor
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, website, description, created_at, updated_at
		FROM competitors WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Website, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCompetitor updates a competitor's mutable metadata.
func (s *Store) UpdateCompetitor(ctx context.Context, c *Competitor) error {
	c.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE competitors SET name=?, website=?, description=?, updated_at=?
		WHERE id=?`,
		c.Name, c.Website, c.Description, c.UpdatedAt, c.ID,
	)
	return err
}

// LinkCompetitor attaches a competitor to a project. Idempotent.
func (s *Store) LinkCompetitor(ctx context.Context, projectID, competitorID string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_competitors (project_id, competitor_id, created_at)
		VALUES (?, ?, ?)`,
		projectID, competitorID, time.Now().UnixMilli(),
	)
	return err
}

// UnlinkCompetitor detaches a competitor from a project.
func (s *Store) UnlinkCompetitor(ctx context.Context, projectID, competitorID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM project_competitors WHERE project_id = ? AND competitor_id = ?`,
		projectID, competitorID,
	)
	return err
}

// ListCompetitors returns the competitors linked to a project, oldest link
// first so collection order is stable across runs.
func (s *Store) ListCompetitors(ctx context.Context, projectID string) ([]*Competitor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT c.id, c.name, c.website, c.description, c.created_at, c.updated_at
		FROM competitors c
		JOIN project_competitors pc ON pc.competitor_id = c.id
		WHERE pc.project_id = ?
		ORDER BY pc.created_at ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Competitor
	for rows.Next() {
		var c Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CountCompetitors returns the number of competitors linked to a project.
func (s *Store) CountCompetitors(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_competitors WHERE project_id = ?`, projectID).Scan(&n)
	return n, err
}
