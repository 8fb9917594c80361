package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

type LessonRepository struct {
	base.Repository
}

const lessonColumns = `id, enrollment_id, group_name, teacher_id, start_time, duration_minutes,
	status, notes, replaces_lesson_id, created_at, updated_at`

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	var l model.Lesson
	err := row.Scan(
		&l.ID,
		&l.EnrollmentID,
		&l.GroupName,
		&l.TeacherID,
		&l.StartTime,
		&l.DurationMinutes,
		&l.Status,
		&l.Notes,
		&l.ReplacesLessonID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LessonRepository) queryLessons(ctx context.Context, op, query string, args ...any) ([]*model.Lesson, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lessons, nil
}

// GetByID получает занятие по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	l, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return l, nil
}

// GetForUpdate получает занятие и блокирует строку
func (r *LessonRepository) GetForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	l, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson for update: %w", err)
	}

	return l, nil
}

// GetActiveByTeacherInRange получает занятия учителя, пересекающие интервал
func (r *LessonRepository) GetActiveByTeacherInRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE teacher_id = $1
		  AND status <> $2
		  AND start_time < $4
		  AND start_time + make_interval(mins => duration_minutes) > $3
		ORDER BY start_time, id
	`

	return r.queryLessons(ctx, "get lessons by teacher in range", query,
		teacherID, model.LessonStatusCancelled, from, to)
}

// GetUpcomingByStudent получает ближайшие занятия студента
func (r *LessonRepository) GetUpcomingByStudent(ctx context.Context, studentID int64, from time.Time) ([]*model.Lesson, error) {
	query := `
		SELECT l.id, l.enrollment_id, l.group_name, l.teacher_id, l.start_time, l.duration_minutes,
		       l.status, l.notes, l.replaces_lesson_id, l.created_at, l.updated_at
		FROM lessons l
		JOIN enrollments e ON e.id = l.enrollment_id
		WHERE e.student_id = $1
		  AND l.status <> $2
		  AND l.start_time >= $3
		ORDER BY l.start_time, l.id
	`

	return r.queryLessons(ctx, "get upcoming lessons by student", query,
		studentID, model.LessonStatusCancelled, from)
}

// Create создаёт занятие
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (enrollment_id, group_name, teacher_id, start_time, duration_minutes, status, notes, replaces_lesson_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		lesson.EnrollmentID,
		lesson.GroupName,
		lesson.TeacherID,
		lesson.StartTime,
		lesson.DurationMinutes,
		lesson.Status,
		lesson.Notes,
		lesson.ReplacesLessonID,
	).Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// UpdateStatus меняет статус занятия, если текущий статус равен from
func (r *LessonRepository) UpdateStatus(ctx context.Context, id int64, from, to model.LessonStatus) error {
	query := `
		UPDATE lessons
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.ExecAffected(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update lesson status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("lesson %d is not %s: %w", id, from, model.ErrInvalidState)
	}

	return nil
}
