package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type lessonsRepo struct{ x *session }

func (r lessonsRepo) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	var out *model.Lesson
	r.x.read(func(st *state) {
		out = copyOf(st.lessons[id])
	})
	return out, nil
}

func (r lessonsRepo) GetForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	return r.GetByID(ctx, id)
}

func (r lessonsRepo) GetActiveByTeacherInRange(_ context.Context, teacherID int64, from, to time.Time) ([]*model.Lesson, error) {
	var out []*model.Lesson
	r.x.read(func(st *state) {
		for _, l := range st.lessons {
			if l.TeacherID != teacherID || !l.IsBusy() {
				continue
			}
			if l.StartTime.Before(to) && from.Before(l.EndTime()) {
				out = append(out, copyOf(l))
			}
		}
	})
	sortLessons(out)
	return out, nil
}

func (r lessonsRepo) GetUpcomingByStudent(_ context.Context, studentID int64, from time.Time) ([]*model.Lesson, error) {
	var out []*model.Lesson
	r.x.read(func(st *state) {
		for _, l := range st.lessons {
			e := st.enrollments[l.EnrollmentID]
			if e == nil || e.StudentID != studentID || !l.IsBusy() || l.StartTime.Before(from) {
				continue
			}
			out = append(out, copyOf(l))
		}
	})
	sortLessons(out)
	return out, nil
}

func (r lessonsRepo) Create(_ context.Context, lesson *model.Lesson) error {
	return r.x.write("lessons.create", func(st *state) error {
		lesson.ID = st.nextID()
		lesson.CreatedAt = r.x.now()
		lesson.UpdatedAt = lesson.CreatedAt
		st.lessons[lesson.ID] = copyOf(lesson)
		return nil
	})
}

func (r lessonsRepo) UpdateStatus(_ context.Context, id int64, from, to model.LessonStatus) error {
	return r.x.write("lessons.update_status", func(st *state) error {
		l := st.lessons[id]
		if l == nil {
			return fmt.Errorf("lesson %d: %w", id, model.ErrNotFound)
		}
		if l.Status != from {
			return fmt.Errorf("lesson %d is %s, expected %s: %w", id, l.Status, from, model.ErrInvalidState)
		}
		l.Status = to
		l.UpdatedAt = r.x.now()
		return nil
	})
}

func sortLessons(lessons []*model.Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		if !lessons[i].StartTime.Equal(lessons[j].StartTime) {
			return lessons[i].StartTime.Before(lessons[j].StartTime)
		}
		return lessons[i].ID < lessons[j].ID
	})
}

type enrollmentsRepo struct{ x *session }

func (r enrollmentsRepo) GetByID(_ context.Context, id int64) (*model.Enrollment, error) {
	var out *model.Enrollment
	r.x.read(func(st *state) {
		out = copyOf(st.enrollments[id])
	})
	return out, nil
}

func (r enrollmentsRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	return r.x.write("enrollments.create", func(st *state) error {
		enrollment.ID = st.nextID()
		enrollment.CreatedAt = r.x.now()
		st.enrollments[enrollment.ID] = copyOf(enrollment)
		return nil
	})
}

type availabilityRepo struct{ x *session }

func (r availabilityRepo) GetByTeacherID(_ context.Context, teacherID int64) ([]*model.TeacherAvailabilitySlot, error) {
	var out []*model.TeacherAvailabilitySlot
	r.x.read(func(st *state) {
		for _, s := range st.availability {
			if s.TeacherID == teacherID {
				out = append(out, copyOf(s))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartMinute < out[j].StartMinute
	})
	return out, nil
}

func (r availabilityRepo) Create(_ context.Context, slot *model.TeacherAvailabilitySlot) error {
	return r.x.write("availability.create", func(st *state) error {
		slot.ID = st.nextID()
		slot.CreatedAt = r.x.now()
		st.availability[slot.ID] = copyOf(slot)
		return nil
	})
}

func (r availabilityRepo) DeleteByTeacherID(_ context.Context, teacherID int64) error {
	return r.x.write("availability.delete", func(st *state) error {
		for id, s := range st.availability {
			if s.TeacherID == teacherID {
				delete(st.availability, id)
			}
		}
		return nil
	})
}

type holidaysRepo struct{ x *session }

func (r holidaysRepo) DatesInRange(_ context.Context, from, to time.Time) (model.HolidaySet, error) {
	fromKey, toKey := from.Format(time.DateOnly), to.Format(time.DateOnly)
	set := model.HolidaySet{}
	r.x.read(func(st *state) {
		for _, h := range st.holidays {
			key := h.DateKey()
			if key >= fromKey && key <= toKey {
				set[key] = struct{}{}
			}
		}
	})
	return set, nil
}

func (r holidaysRepo) Create(_ context.Context, holiday *model.Holiday) error {
	return r.x.write("holidays.create", func(st *state) error {
		for _, h := range st.holidays {
			if h.DateKey() == holiday.DateKey() {
				return fmt.Errorf("holiday %s already exists: %w", holiday.DateKey(), model.ErrInvalidState)
			}
		}
		holiday.ID = st.nextID()
		holiday.CreatedAt = r.x.now()
		st.holidays[holiday.ID] = copyOf(holiday)
		return nil
	})
}

type requestsRepo struct{ x *session }

func (r requestsRepo) GetByID(_ context.Context, id int64) (*model.ChangeRequest, error) {
	var out *model.ChangeRequest
	r.x.read(func(st *state) {
		out = copyOf(st.requests[id])
	})
	return out, nil
}

func (r requestsRepo) GetForUpdate(ctx context.Context, id int64) (*model.ChangeRequest, error) {
	return r.GetByID(ctx, id)
}

func (r requestsRepo) GetOpenByLessonID(_ context.Context, lessonID int64) (*model.ChangeRequest, error) {
	var out *model.ChangeRequest
	r.x.read(func(st *state) {
		for _, req := range st.requests {
			if req.LessonID == lessonID && req.Status.IsOpen() {
				out = copyOf(req)
				return
			}
		}
	})
	return out, nil
}

func (r requestsRepo) GetByLessonID(_ context.Context, lessonID int64) ([]*model.ChangeRequest, error) {
	return r.filter(func(st *state, req *model.ChangeRequest) bool {
		return req.LessonID == lessonID
	}), nil
}

func (r requestsRepo) GetPendingByTeacherID(_ context.Context, teacherID int64) ([]*model.ChangeRequest, error) {
	return r.filter(func(st *state, req *model.ChangeRequest) bool {
		lesson := st.lessons[req.LessonID]
		return req.Status == model.RequestStatusPending && lesson != nil && lesson.TeacherID == teacherID
	}), nil
}

func (r requestsRepo) GetByStatus(_ context.Context, status model.RequestStatus) ([]*model.ChangeRequest, error) {
	return r.filter(func(st *state, req *model.ChangeRequest) bool {
		return req.Status == status
	}), nil
}

func (r requestsRepo) filter(match func(st *state, req *model.ChangeRequest) bool) []*model.ChangeRequest {
	var out []*model.ChangeRequest
	r.x.read(func(st *state) {
		for _, req := range st.requests {
			if match(st, req) {
				out = append(out, copyOf(req))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (r requestsRepo) Create(_ context.Context, req *model.ChangeRequest) error {
	return r.x.write("requests.create", func(st *state) error {
		for _, existing := range st.requests {
			if existing.LessonID == req.LessonID && existing.Status.IsOpen() {
				return fmt.Errorf("lesson %d already has open request %d: %w",
					req.LessonID, existing.ID, model.ErrInvalidState)
			}
		}
		req.ID = st.nextID()
		req.CreatedAt = r.x.now()
		req.UpdatedAt = req.CreatedAt
		st.requests[req.ID] = copyOf(req)
		return nil
	})
}

func (r requestsRepo) Transition(_ context.Context, id int64, t model.Transition) error {
	return r.x.write("requests.transition", func(st *state) error {
		req := st.requests[id]
		if req == nil {
			return fmt.Errorf("request %d: %w", id, model.ErrNotFound)
		}
		if req.Status != t.From {
			return fmt.Errorf("request %d is %s, expected %s: %w", id, req.Status, t.From, model.ErrInvalidState)
		}
		req.Status = t.To
		if t.AdminNotes != nil {
			req.AdminNotes = *t.AdminNotes
		}
		if t.ResultLessonID != nil {
			req.ResultLessonID = copyOf(t.ResultLessonID)
		}
		if t.ResolvedAt != nil {
			req.ResolvedAt = copyOf(t.ResolvedAt)
		}
		req.UpdatedAt = t.At
		return nil
	})
}

func (r requestsRepo) AddEvent(_ context.Context, event *model.ChangeRequestEvent) error {
	return r.x.write("requests.add_event", func(st *state) error {
		event.ID = st.nextID()
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.x.now()
		}
		st.events = append(st.events, copyOf(event))
		return nil
	})
}

func (r requestsRepo) GetEvents(_ context.Context, requestID int64) ([]*model.ChangeRequestEvent, error) {
	var out []*model.ChangeRequestEvent
	r.x.read(func(st *state) {
		for _, e := range st.events {
			if e.RequestID == requestID {
				out = append(out, copyOf(e))
			}
		}
	})
	return out, nil
}

type usersRepo struct{ x *session }

func (r usersRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	r.x.read(func(st *state) {
		out = copyOf(st.users[id])
	})
	return out, nil
}

func (r usersRepo) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	var out *model.User
	r.x.read(func(st *state) {
		for _, u := range st.users {
			if u.TelegramID == telegramID {
				out = copyOf(u)
				return
			}
		}
	})
	return out, nil
}

func (r usersRepo) GetByRole(_ context.Context, role model.UserRole) ([]*model.User, error) {
	var out []*model.User
	r.x.read(func(st *state) {
		for _, u := range st.users {
			if u.Role == role {
				out = append(out, copyOf(u))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r usersRepo) Create(_ context.Context, user *model.User) error {
	return r.x.write("users.create", func(st *state) error {
		for _, u := range st.users {
			if user.TelegramID != 0 && u.TelegramID == user.TelegramID {
				return fmt.Errorf("telegram id %d already registered: %w", user.TelegramID, model.ErrInvalidState)
			}
		}
		user.ID = st.nextID()
		user.CreatedAt = r.x.now()
		st.users[user.ID] = copyOf(user)
		return nil
	})
}

func (r usersRepo) Update(_ context.Context, user *model.User) error {
	return r.x.write("users.update", func(st *state) error {
		if st.users[user.ID] == nil {
			return fmt.Errorf("user %d: %w", user.ID, model.ErrNotFound)
		}
		st.users[user.ID] = copyOf(user)
		return nil
	})
}
