package service

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/notify"
)

// RequestWorkflow вызывает автомат заявок и после успешного коммита отправляет уведомления.
// Уведомление уходит вне транзакции, его сбой не влияет на результат.
type RequestWorkflow struct {
	*ChangeRequestService
	notifier notify.Notifier
}

func NewRequestWorkflow(requests *ChangeRequestService, notifier notify.Notifier) *RequestWorkflow {
	return &RequestWorkflow{
		ChangeRequestService: requests,
		notifier:             notifier,
	}
}

func (w *RequestWorkflow) Create(ctx context.Context, in CreateRequestInput) (*Outcome, error) {
	out, err := w.ChangeRequestService.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	w.notifier.Notify(ctx, notify.Notification{
		Kind:       notify.KindRequestCreated,
		Recipients: []notify.Recipient{notify.Teacher(out.Lesson.TeacherID)},
		Request:    out.Request,
		Lesson:     out.Lesson,
	})

	return out, nil
}

func (w *RequestWorkflow) Approve(ctx context.Context, in ResolveInput) (*Outcome, error) {
	out, err := w.ChangeRequestService.Approve(ctx, in)
	if err != nil {
		return nil, err
	}

	recipients := []notify.Recipient{notify.Student(out.Request.RequesterID)}
	if out.NewLesson != nil && out.NewLesson.TeacherID != out.Lesson.TeacherID {
		recipients = append(recipients, notify.Teacher(out.NewLesson.TeacherID))
	}
	if in.Actor.UserID != out.Lesson.TeacherID {
		recipients = append(recipients, notify.Teacher(out.Lesson.TeacherID))
	}

	w.notifier.Notify(ctx, notify.Notification{
		Kind:       notify.KindRequestCompleted,
		Recipients: recipients,
		Request:    out.Request,
		Lesson:     out.Lesson,
		NewLesson:  out.NewLesson,
	})

	return out, nil
}

func (w *RequestWorkflow) Reject(ctx context.Context, in ResolveInput) (*Outcome, error) {
	out, err := w.ChangeRequestService.Reject(ctx, in)
	if err != nil {
		return nil, err
	}

	w.notifier.Notify(ctx, notify.Notification{
		Kind:       notify.KindRequestRejected,
		Recipients: []notify.Recipient{notify.Student(out.Request.RequesterID)},
		Request:    out.Request,
		Lesson:     out.Lesson,
	})
	w.notifier.Notify(ctx, notify.Notification{
		Kind:       notify.KindRequestEscalated,
		Recipients: []notify.Recipient{notify.Admins()},
		Request:    out.Request,
		Lesson:     out.Lesson,
	})

	return out, nil
}

func (w *RequestWorkflow) AdminReject(ctx context.Context, in ResolveInput) (*Outcome, error) {
	out, err := w.ChangeRequestService.AdminReject(ctx, in)
	if err != nil {
		return nil, err
	}

	w.notifier.Notify(ctx, notify.Notification{
		Kind: notify.KindRequestClosed,
		Recipients: []notify.Recipient{
			notify.Student(out.Request.RequesterID),
			notify.Teacher(out.Lesson.TeacherID),
		},
		Request: out.Request,
		Lesson:  out.Lesson,
	})

	return out, nil
}
