package store

import (
	"database/sql"
	"fmt"

	"github.com/relaytide/campaign-platform/internal/model"
)

// GetSegment fetches a Segment by ID.
func (s *Store) GetSegment(id int) (*model.Segment, error) {
	query := `SELECT id, name, rule_tree, created_at FROM segments WHERE id = $1`
	var seg model.Segment
	err := s.DB.QueryRow(query, id).Scan(&seg.ID, &seg.Name, &seg.RuleTree, &seg.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("segment %d not found", id)
	}
	if err != nil {
		return nil, wrapStorageErr("GetSegment", err)
	}
	return &seg, nil
}

// CreateSegment inserts a new Segment and populates its ID.
func (s *Store) CreateSegment(seg *model.Segment) error {
	query := `
		INSERT INTO segments (name, rule_tree, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`
	err := s.DB.QueryRow(query, seg.Name, seg.RuleTree).Scan(&seg.ID, &seg.CreatedAt)
	return wrapStorageErr("CreateSegment", err)
}
