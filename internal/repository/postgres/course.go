package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CourseStore reads course_creators, which the catalog service owns and
// keeps up to date. Chat never writes it.
type CourseStore struct {
	db DB
}

func NewCourseStore(db DB) *CourseStore {
	return &CourseStore{db: db}
}

func (s *CourseStore) ListCreators(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM course_creators
		WHERE course_id = $1
		ORDER BY user_id`

	rows, err := s.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course creators: %w", err)
	}
	defer rows.Close()

	creators := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course creator: %w", err)
		}
		creators = append(creators, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course creators: %w", err)
	}
	return creators, nil
}
