package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
)

type HolidayRepository struct {
	base.Repository
}

// DatesInRange получает даты праздников между from и to включительно
func (r *HolidayRepository) DatesInRange(ctx context.Context, from, to time.Time) (model.HolidaySet, error) {
	query := `
		SELECT holiday_date
		FROM holidays
		WHERE holiday_date BETWEEN $1::date AND $2::date
	`

	rows, err := r.Query(ctx, query, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("get holidays in range: %w", err)
	}
	defer rows.Close()

	set := model.HolidaySet{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		// date приходит как полночь UTC, ключ берём без перевода в пояс
		set.Add(d.UTC())
	}

	return set, rows.Err()
}

// Create добавляет праздник
func (r *HolidayRepository) Create(ctx context.Context, h *model.Holiday) error {
	query := `
		INSERT INTO holidays (holiday_date, name)
		VALUES ($1::date, $2)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query, h.DateKey(), h.Name).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("holiday %s already exists: %w", h.DateKey(), model.ErrInvalidState)
		}
		return fmt.Errorf("create holiday: %w", err)
	}

	return nil
}
