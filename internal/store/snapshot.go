package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InsertSnapshot appends a snapshot. Snapshots are never updated.
func (s *Store) InsertSnapshot(ctx context.Context, snap *Snapshot) error {
	now := time.Now().UnixMilli()
	if snap.CreatedAt == 0 {
		snap.CreatedAt = now
	}
	if snap.ScrapedAt == 0 {
		snap.ScrapedAt = snap.CreatedAt
	}
	if snap.ContentLength == 0 {
		snap.ContentLength = len(snap.HTML) + len(snap.Text)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO snapshots (id, owner_id, owner_type, url, title, description,
		html, text, markdown, content_hash, content_length, scraping_method,
		scraped_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.OwnerID, snap.OwnerType, snap.URL, snap.Title, snap.Description,
		snap.HTML, snap.Text, snap.Markdown, snap.ContentHash, snap.ContentLength,
		snap.ScrapingMethod, snap.ScrapedAt, snap.CreatedAt,
	)
	return err
}

const snapshotCols = `id, owner_id, owner_type, url, title, description,
	html, text, markdown, content_hash, content_length, scraping_method,
	scraped_at, created_at`

func scanSnapshot(row interface{ Scan(...any) error }) (*Snapshot, error) {
	var sn Snapshot
	err := row.Scan(&sn.ID, &sn.OwnerID, &sn.OwnerType, &sn.URL, &sn.Title,
		&sn.Description, &sn.HTML, &sn.Text, &sn.Markdown, &sn.ContentHash,
		&sn.ContentLength, &sn.ScrapingMethod, &sn.ScrapedAt, &sn.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sn, nil
}

// GetSnapshot retrieves a snapshot by ID. Returns nil when not found.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	snap, err := scanSnapshot(s.DB.QueryRowContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// LatestSnapshot returns the most recent snapshot for an owner, or nil.
func (s *Store) LatestSnapshot(ctx context.Context, ownerID string) (*Snapshot, error) {
	snap, err := scanSnapshot(s.DB.QueryRowContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// RecentSnapshots returns up to limit snapshots across the given owners,
// newest first. Empty owners yields an empty result.
func (s *Store) RecentSnapshots(ctx context.Context, ownerIDs []string, limit int) ([]*Snapshot, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	placeholders := strings.Repeat("?,", len(ownerIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ownerIDs)+1)
	for _, id := range ownerIDs {
		args = append(args, id)
	}
	args = append(args, limit)

	rows, err := s.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM snapshots
		WHERE owner_id IN (%s) ORDER BY created_at DESC, id DESC LIMIT ?`,
			snapshotCols, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// InsertScrapeLog appends a scrape log entry.
func (s *Store) InsertScrapeLog(ctx context.Context, e *ScrapeLogEntry) error {
	if e.ScrapedAt == 0 {
		e.ScrapedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO scrape_log (id, competitor_id, priority, status, error_message,
		duration_ms, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompetitorID, e.Priority, e.Status, e.ErrorMessage,
		e.DurationMs, e.ScrapedAt,
	)
	return err
}

// ScrapeHistory returns recent scrape log entries for a competitor.
func (s *Store) ScrapeHistory(ctx context.Context, competitorID string, limit int) ([]*ScrapeLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, competitor_id, priority, status, error_message, duration_ms, scraped_at
		FROM scrape_log WHERE competitor_id = ?
		ORDER BY scraped_at DESC LIMIT ?`, competitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ScrapeLogEntry
	for rows.Next() {
		var e ScrapeLogEntry
		if err := rows.Scan(&e.ID, &e.CompetitorID, &e.Priority, &e.Status,
			&e.ErrorMessage, &e.DurationMs, &e.ScrapedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
