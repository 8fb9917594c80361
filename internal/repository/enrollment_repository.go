package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

type EnrollmentRepository struct {
	base.Repository
}

// GetByID получает договор по ID
func (r *EnrollmentRepository) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	query := `
		SELECT id, student_id, lesson_type, group_name, notice_hours_override, source_school, created_at
		FROM enrollments
		WHERE id = $1
	`

	var e model.Enrollment
	err := r.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.StudentID,
		&e.LessonType,
		&e.GroupName,
		&e.NoticeHoursOverride,
		&e.SourceSchool,
		&e.CreatedAt,
	)

	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get enrollment by id: %w", err)
	}

	return &e, nil
}

// Create создаёт договор
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	query := `
		INSERT INTO enrollments (student_id, lesson_type, group_name, notice_hours_override, source_school)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		e.StudentID,
		e.LessonType,
		e.GroupName,
		e.NoticeHoursOverride,
		e.SourceSchool,
	).Scan(&e.ID, &e.CreatedAt)

	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	return nil
}
