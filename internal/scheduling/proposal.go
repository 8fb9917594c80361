package scheduling

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStepMinutes   = 30
	DefaultHorizonMonths = 3
)

// AvailabilityReader источник недельной доступности учителей
type AvailabilityReader interface {
	GetByTeacherID(ctx context.Context, teacherID int64) ([]*model.TeacherAvailabilitySlot, error)
}

// BookingReader источник занятий учителя.
// Возвращает неотменённые занятия, пересекающие [from, to).
type BookingReader interface {
	GetActiveByTeacherInRange(ctx context.Context, teacherID int64, from, to time.Time) ([]*model.Lesson, error)
}

// ProposalConfig параметры подбора слотов
type ProposalConfig struct {
	StepMinutes   int
	HorizonMonths int
}

// DefaultProposalConfig шаг 30 минут, горизонт 3 месяца
func DefaultProposalConfig() ProposalConfig {
	return ProposalConfig{
		StepMinutes:   DefaultStepMinutes,
		HorizonMonths: DefaultHorizonMonths,
	}
}

// Slot предложенное время занятия
type Slot struct {
	Start time.Time
	End   time.Time
}

// Engine подбирает свободное время учителя. Только чтение, безопасен для параллельных вызовов.
type Engine struct {
	availability AvailabilityReader
	bookings     BookingReader
	holidays     HolidayReader
	clock        clock.Clock
	cfg          ProposalConfig
}

// NewEngine создаёт движок предложений
func NewEngine(availability AvailabilityReader, bookings BookingReader, holidays HolidayReader, clk clock.Clock, cfg ProposalConfig) *Engine {
	if cfg.StepMinutes <= 0 {
		cfg.StepMinutes = DefaultStepMinutes
	}
	if cfg.HorizonMonths <= 0 {
		cfg.HorizonMonths = DefaultHorizonMonths
	}
	return &Engine{
		availability: availability,
		bookings:     bookings,
		holidays:     holidays,
		clock:        clk,
		cfg:          cfg,
	}
}

// Index загружает недельную доступность учителя
func (e *Engine) Index(ctx context.Context, teacherID int64) (*AvailabilityIndex, error) {
	slots, err := e.availability.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return NewAvailabilityIndex(slots), nil
}

// SlotsForDay окна учителя на день недели
func (e *Engine) SlotsForDay(ctx context.Context, teacherID int64, day time.Weekday) ([]Window, error) {
	ix, err := e.Index(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return ix.SlotsForDay(day), nil
}

// SlotsForDate все варианты начала занятия длительностью durationMinutes на дату.
// Кандидаты идут с шагом StepMinutes от начала каждого окна доступности.
func (e *Engine) SlotsForDate(ctx context.Context, teacherID int64, date time.Time, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", model.ErrInvalidInput)
	}

	loc := e.clock.Location()
	day := clock.StartOfDay(date, loc)
	next := day.AddDate(0, 0, 1)

	var (
		ix       *AvailabilityIndex
		bookings []*model.Lesson
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ix, err = e.Index(gctx, teacherID)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = e.bookings.GetActiveByTeacherInRange(gctx, teacherID, day, next)
		if err != nil {
			return fmt.Errorf("get bookings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	return slotsForDay(ix.SlotsForDay(day.Weekday()), DistinctOccurrences(bookings), day, now, durationMinutes, e.cfg.StepMinutes, loc), nil
}

// AvailableDates ленивая конечная последовательность дат в горизонте [сегодня, сегодня+HorizonMonths],
// строго после даты исходного занятия, без праздников и хотя бы с одним слотом из SlotsForDate.
// Данные читаются один раз; последовательность можно обходить повторно.
func (e *Engine) AvailableDates(ctx context.Context, teacherID int64, originalStart time.Time, durationMinutes int) (iter.Seq[time.Time], error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", model.ErrInvalidInput)
	}

	loc := e.clock.Location()
	today := clock.Today(e.clock)
	last := today.AddDate(0, e.cfg.HorizonMonths, 0)
	originalDay := clock.StartOfDay(originalStart, loc)

	var (
		ix       *AvailabilityIndex
		bookings []*model.Lesson
		holidays model.HolidaySet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ix, err = e.Index(gctx, teacherID)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = e.bookings.GetActiveByTeacherInRange(gctx, teacherID, today, last.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("get bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		holidays, err = e.holidays.DatesInRange(gctx, today, last)
		if err != nil {
			return fmt.Errorf("get holidays: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byDate := bucketByDate(DistinctOccurrences(bookings), loc)
	now := e.clock.Now()

	return func(yield func(time.Time) bool) {
		for day := today; !day.After(last); day = day.AddDate(0, 0, 1) {
			if !day.After(originalDay) || holidays.Contains(day) {
				continue
			}
			// та же сетка с шагом StepMinutes, что и в SlotsForDate
			slots := slotsForDay(ix.SlotsForDay(day.Weekday()), byDate[clock.DateKey(day, loc)], day, now, durationMinutes, e.cfg.StepMinutes, loc)
			if len(slots) == 0 {
				continue
			}
			if !yield(day) {
				return
			}
		}
	}, nil
}

// slotsForDay перебирает кандидатов внутри окон и отбрасывает пересечения с занятиями
func slotsForDay(windows []Window, bookings []*model.Lesson, day, now time.Time, duration, step int, loc *time.Location) []Slot {
	free := freeWindows(windows, busyWindows(bookings, day, now, loc))

	seen := make(map[int]struct{})
	var slots []Slot
	for _, w := range windows {
		for m := w.Start; m+duration <= w.End; m += step {
			if _, ok := seen[m]; ok {
				continue
			}
			if !fits(Window{Start: m, End: m + duration}, free) {
				continue
			}
			start := clock.AtMinute(day, m, loc)
			end := start.Add(time.Duration(duration) * time.Minute)
			if start.Before(now) || HasConflict(bookings, start, end) {
				continue
			}
			seen[m] = struct{}{}
			slots = append(slots, Slot{Start: start, End: end})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// busyWindows занятые интервалы дня в минутах; для сегодняшнего дня прошедшее время тоже занято
func busyWindows(bookings []*model.Lesson, day, now time.Time, loc *time.Location) []Window {
	next := day.AddDate(0, 0, 1)
	busy := make([]Window, 0, len(bookings)+1)

	if now.After(day) {
		if now.Before(next) {
			busy = append(busy, Window{Start: 0, End: clock.MinuteOfDay(now, loc) + 1})
		} else {
			busy = append(busy, FullDay)
		}
	}

	for _, lesson := range bookings {
		start, end := lesson.StartTime, lesson.EndTime()
		if !Overlaps(start, end, day, next) {
			continue
		}
		w := Window{Start: 0, End: model.MinutesPerDay}
		if start.After(day) {
			w.Start = clock.MinuteOfDay(start, loc)
		}
		if end.Before(next) {
			w.End = clock.MinuteOfDay(end, loc)
			if end.Second() > 0 || end.Nanosecond() > 0 {
				w.End++
			}
		}
		if w.End > w.Start {
			busy = append(busy, w)
		}
	}

	sort.Slice(busy, func(i, j int) bool {
		return busy[i].Start < busy[j].Start
	})
	return busy
}

// freeWindows вычитает занятые интервалы из каждого окна доступности
func freeWindows(windows, busy []Window) []Window {
	var free []Window
	for _, w := range windows {
		cursor := w.Start
		for _, b := range busy {
			if !overlapsMinutes(Window{Start: cursor, End: w.End}, b) {
				continue
			}
			if b.Start > cursor {
				free = append(free, Window{Start: cursor, End: b.Start})
			}
			if b.End > cursor {
				cursor = b.End
			}
			if cursor >= w.End {
				break
			}
		}
		if cursor < w.End {
			free = append(free, Window{Start: cursor, End: w.End})
		}
	}
	return free
}

func fits(candidate Window, free []Window) bool {
	for _, f := range free {
		if f.Start <= candidate.Start && candidate.End <= f.End {
			return true
		}
	}
	return false
}

// bucketByDate раскладывает занятия по датам, которые они затрагивают
func bucketByDate(lessons []*model.Lesson, loc *time.Location) map[string][]*model.Lesson {
	out := make(map[string][]*model.Lesson)
	for _, lesson := range lessons {
		end := lesson.EndTime()
		for day := clock.StartOfDay(lesson.StartTime, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
			key := clock.DateKey(day, loc)
			out[key] = append(out[key], lesson)
		}
	}
	return out
}
