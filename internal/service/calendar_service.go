package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/interfaces"
	"github.com/Freeeeeet/lesson_scheduler/internal/scheduling"
)

// AvailabilityInput еженедельное окно учителя
type AvailabilityInput struct {
	DayOfWeek   int `json:"day_of_week" validate:"min=0,max=6"`
	StartMinute int `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute   int `json:"end_minute" validate:"gtfield=StartMinute,max=1440"`
}

// EnrollmentInput новый договор
type EnrollmentInput struct {
	StudentID           int64            `json:"student_id" validate:"gt=0"`
	LessonType          model.LessonType `json:"lesson_type" validate:"oneof=PARTICULAR GROUP"`
	GroupName           string           `json:"group_name" validate:"required_if=LessonType GROUP,max=100"`
	NoticeHoursOverride *int             `json:"notice_hours_override" validate:"omitempty,min=0"`
	SourceSchool        string           `json:"source_school" validate:"max=100"`
}

// BookLessonInput новое занятие
type BookLessonInput struct {
	EnrollmentID    int64     `json:"enrollment_id" validate:"gt=0"`
	TeacherID       int64     `json:"teacher_id" validate:"gt=0"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gt=0,max=480"`
	Notes           string    `json:"notes" validate:"max=1000"`
}

// CalendarService ведение календаря: договоры, занятия, доступность, праздники
// и подбор времени для переноса
type CalendarService struct {
	store  interfaces.Store
	engine *scheduling.Engine
	policy *scheduling.Policy
	clock  clock.Clock
	logger *zap.Logger
}

func NewCalendarService(store interfaces.Store, engine *scheduling.Engine, policy *scheduling.Policy, clk clock.Clock, logger *zap.Logger) *CalendarService {
	return &CalendarService{
		store:  store,
		engine: engine,
		policy: policy,
		clock:  clk,
		logger: logger,
	}
}

// CreateEnrollment создаёт договор
func (s *CalendarService) CreateEnrollment(ctx context.Context, in EnrollmentInput) (*model.Enrollment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	e := &model.Enrollment{
		StudentID:           in.StudentID,
		LessonType:          in.LessonType,
		GroupName:           scheduling.GroupKey(in.GroupName),
		NoticeHoursOverride: in.NoticeHoursOverride,
		SourceSchool:        in.SourceSchool,
	}
	if err := s.store.Enrollments().Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	s.logger.Info("Enrollment created",
		zap.Int64("enrollment_id", e.ID),
		zap.Int64("student_id", e.StudentID),
		zap.String("lesson_type", string(e.LessonType)),
	)

	return e, nil
}

// BookLesson создаёт подтверждённое занятие, если учитель свободен.
// Строки одного группового занятия (та же группа и начало) конфликтом не считаются.
func (s *CalendarService) BookLesson(ctx context.Context, in BookLessonInput) (*model.Lesson, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	enrollment, err := s.store.Enrollments().GetByID(ctx, in.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment %d: %w", in.EnrollmentID, model.ErrNotFound)
	}
	if err := s.requireTeacher(ctx, in.TeacherID); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		EnrollmentID:    enrollment.ID,
		TeacherID:       in.TeacherID,
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		Status:          model.LessonStatusConfirmed,
		Notes:           in.Notes,
	}
	if scheduling.IsGroupLesson(enrollment) {
		lesson.GroupName = scheduling.GroupKey(enrollment.GroupName)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		if err := tx.LockTeacher(ctx, in.TeacherID); err != nil {
			return err
		}

		bookings, err := tx.Lessons().GetActiveByTeacherInRange(ctx, in.TeacherID, lesson.StartTime, lesson.EndTime())
		if err != nil {
			return err
		}
		bookings = slices.DeleteFunc(bookings, func(b *model.Lesson) bool {
			return lesson.GroupName != "" && scheduling.SameOccurrence(b, lesson) && b.DurationMinutes == lesson.DurationMinutes
		})
		if conflict := scheduling.FindConflict(bookings, lesson.StartTime, lesson.EndTime()); conflict != nil {
			return fmt.Errorf("%w: teacher %d is busy with lesson %d", model.ErrSlotConflict, in.TeacherID, conflict.ID)
		}

		return tx.Lessons().Create(ctx, lesson)
	})
	if err != nil {
		return nil, fmt.Errorf("book lesson: %w", err)
	}

	s.logger.Info("Lesson booked",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("teacher_id", lesson.TeacherID),
		zap.Time("start", lesson.StartTime),
	)

	return lesson, nil
}

// ReplaceAvailability заменяет все окна учителя. Пустой список означает "доступен всегда".
func (s *CalendarService) ReplaceAvailability(ctx context.Context, teacherID int64, windows []AvailabilityInput) error {
	if err := s.requireTeacher(ctx, teacherID); err != nil {
		return err
	}
	for _, w := range windows {
		if err := validateInput(w); err != nil {
			return err
		}
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		if err := tx.Availability().DeleteByTeacherID(ctx, teacherID); err != nil {
			return err
		}
		for _, w := range windows {
			slot := &model.TeacherAvailabilitySlot{
				TeacherID:   teacherID,
				DayOfWeek:   w.DayOfWeek,
				StartMinute: w.StartMinute,
				EndMinute:   w.EndMinute,
			}
			if err := tx.Availability().Create(ctx, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("Teacher availability replaced",
		zap.Int64("teacher_id", teacherID),
		zap.Int("windows", len(windows)),
	)

	return nil
}

// AddHoliday добавляет выходной день школы
func (s *CalendarService) AddHoliday(ctx context.Context, date time.Time, name string) (*model.Holiday, error) {
	h := &model.Holiday{
		Date: clock.StartOfDay(date, s.clock.Location()),
		Name: name,
	}
	if err := s.store.Holidays().Create(ctx, h); err != nil {
		return nil, fmt.Errorf("add holiday: %w", err)
	}

	s.logger.Info("Holiday added", zap.String("date", h.DateKey()), zap.String("name", name))
	return h, nil
}

// Lesson получает занятие
func (s *CalendarService) Lesson(ctx context.Context, id int64) (*model.Lesson, error) {
	lesson, err := s.store.Lessons().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("lesson %d: %w", id, model.ErrNotFound)
	}
	return lesson, nil
}

// UpcomingLessons ближайшие занятия студента, начиная с текущего момента
func (s *CalendarService) UpcomingLessons(ctx context.Context, studentID int64) ([]*model.Lesson, error) {
	lessons, err := s.store.Lessons().GetUpcomingByStudent(ctx, studentID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("get upcoming lessons: %w", err)
	}
	return lessons, nil
}

// ChangeDecision можно ли студенту сейчас менять занятие и почему
func (s *CalendarService) ChangeDecision(ctx context.Context, lessonID int64) (scheduling.ChangeDecision, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return scheduling.ChangeDecision{}, err
	}
	enrollment, err := s.store.Enrollments().GetByID(ctx, lesson.EnrollmentID)
	if err != nil {
		return scheduling.ChangeDecision{}, fmt.Errorf("get enrollment: %w", err)
	}
	return s.policy.Decide(ctx, lesson, enrollment)
}

// ProposeDates даты для переноса занятия, не больше limit (0 без ограничения).
// teacherID задаёт другого учителя для TROCA_PROFESSOR.
func (s *CalendarService) ProposeDates(ctx context.Context, lessonID int64, teacherID *int64, limit int) ([]time.Time, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	seq, err := s.engine.AvailableDates(ctx, targetTeacher(lesson, teacherID), lesson.StartTime, lesson.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("propose dates: %w", err)
	}

	var dates []time.Time
	for d := range seq {
		dates = append(dates, d)
		if limit > 0 && len(dates) == limit {
			break
		}
	}
	return dates, nil
}

// ProposeSlots варианты начала на выбранную дату
func (s *CalendarService) ProposeSlots(ctx context.Context, lessonID int64, teacherID *int64, date time.Time) ([]scheduling.Slot, error) {
	lesson, err := s.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	slots, err := s.engine.SlotsForDate(ctx, targetTeacher(lesson, teacherID), date, lesson.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("propose slots: %w", err)
	}
	return slots, nil
}

func targetTeacher(lesson *model.Lesson, teacherID *int64) int64 {
	if teacherID != nil {
		return *teacherID
	}
	return lesson.TeacherID
}

func (s *CalendarService) requireTeacher(ctx context.Context, id int64) error {
	teacher, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return fmt.Errorf("teacher %d: %w", id, model.ErrNotFound)
	}
	if !teacher.IsTeacher() {
		return fmt.Errorf("%w: user %d is not a teacher", model.ErrInvalidInput, id)
	}
	return nil
}
