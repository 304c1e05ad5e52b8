package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CourseRepository exposes the course aggregate count consumed by the
// dashboard. Course management is an external collaborator.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Count returns the total number of courses.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}
