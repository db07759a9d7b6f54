package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertProject adds a project.
func (s *Store) InsertProject(ctx context.Context, p *Project) error {
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO projects (id, name, product_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ProductID, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetProject retrieves a project by ID. Returns nil when not found.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, product_id, created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.ProductID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetProjectProduct links a product to a project.
func (s *Store) SetProjectProduct(ctx context.Context, projectID, productID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE projects SET product_id = ?, updated_at = ? WHERE id = ?`,
		productID, time.Now().UnixMilli(), projectID,
	)
	return err
}

// InsertProduct adds a product.
func (s *Store) InsertProduct(ctx context.Context, p *Product) error {
	now := time.Now().UnixMilli()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO products (id, name, website, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Website, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetProduct retrieves a product by ID. Returns nil when not found.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, website, description, created_at, updated_at
		FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Website, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
