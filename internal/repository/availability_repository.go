package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

type AvailabilityRepository struct {
	base.Repository
}

// GetByTeacherID получает еженедельные окна учителя
func (r *AvailabilityRepository) GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.TeacherAvailabilitySlot, error) {
	query := `
		SELECT id, teacher_id, day_of_week, start_minute, end_minute, created_at
		FROM teacher_availability
		WHERE teacher_id = $1
		ORDER BY day_of_week, start_minute
	`

	rows, err := r.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get availability by teacher: %w", err)
	}
	defer rows.Close()

	var slots []*model.TeacherAvailabilitySlot
	for rows.Next() {
		var s model.TeacherAvailabilitySlot
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.DayOfWeek, &s.StartMinute, &s.EndMinute, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		slots = append(slots, &s)
	}

	return slots, rows.Err()
}

// Create добавляет окно
func (r *AvailabilityRepository) Create(ctx context.Context, slot *model.TeacherAvailabilitySlot) error {
	query := `
		INSERT INTO teacher_availability (teacher_id, day_of_week, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, slot.TeacherID, slot.DayOfWeek, slot.StartMinute, slot.EndMinute).
		Scan(&slot.ID, &slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("create availability: %w", err)
	}

	return nil
}

// DeleteByTeacherID удаляет все окна учителя
func (r *AvailabilityRepository) DeleteByTeacherID(ctx context.Context, teacherID int64) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM teacher_availability WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}
