package store

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/relaytide/campaign-platform/internal/model"
)

// GetTemplate fetches a Template by ID.
func (s *Store) GetTemplate(id int) (*model.Template, error) {
	query := `SELECT id, name, channel, locale, content, variables, created_at FROM templates WHERE id = $1`
	var t model.Template
	err := s.DB.QueryRow(query, id).Scan(&t.ID, &t.Name, &t.Channel, &t.Locale, &t.Content, pq.Array(&t.Variables), &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("template %d not found", id)
	}
	if err != nil {
		return nil, wrapStorageErr("GetTemplate", err)
	}
	return &t, nil
}

// CreateTemplate inserts a new Template and populates its ID.
func (s *Store) CreateTemplate(t *model.Template) error {
	query := `
		INSERT INTO templates (name, channel, locale, content, variables, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err := s.DB.QueryRow(query, t.Name, t.Channel, t.Locale, t.Content, pq.Array(t.Variables)).Scan(&t.ID, &t.CreatedAt)
	return wrapStorageErr("CreateTemplate", err)
}
