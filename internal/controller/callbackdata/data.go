// Package callbackdata кодирует данные inline кнопок.
// Telegram ограничивает callback data 64 байтами, поэтому формат короткий:
//
//	cancel:12        отменить занятие 12
//	resched:12       выбрать дату переноса
//	date:12:20260316 выбрать время на дату
//	slot:12:1773676800 перенести на начало (unix)
//	approve:7        одобрить заявку 7
//	reject:7         отклонить заявку 7
package callbackdata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidFormat = errors.New("invalid callback format")

type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "resched"
	ActionDate       Action = "date"
	ActionSlot       Action = "slot"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionNoop       Action = "noop"
)

const dateLayout = "20060102"

// Data разобранные данные кнопки
type Data struct {
	Action Action
	ID     int64     // занятие или заявка
	Date   time.Time // для ActionDate
	Start  time.Time // для ActionSlot
}

func Cancel(lessonID int64) string     { return join(ActionCancel, lessonID) }
func Reschedule(lessonID int64) string { return join(ActionReschedule, lessonID) }
func Approve(requestID int64) string   { return join(ActionApprove, requestID) }
func Reject(requestID int64) string    { return join(ActionReject, requestID) }

func Date(lessonID int64, date time.Time) string {
	return join(ActionDate, lessonID) + ":" + date.Format(dateLayout)
}

func Slot(lessonID int64, start time.Time) string {
	return join(ActionSlot, lessonID) + ":" + strconv.FormatInt(start.Unix(), 10)
}

func Noop() string { return string(ActionNoop) }

func join(a Action, id int64) string {
	return string(a) + ":" + strconv.FormatInt(id, 10)
}

// Parse разбирает callback data; даты и время переводятся в loc
func Parse(data string, loc *time.Location) (Data, error) {
	if data == string(ActionNoop) {
		return Data{Action: ActionNoop}, nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return Data{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return Data{}, fmt.Errorf("%w: bad id in %q", ErrInvalidFormat, data)
	}
	d := Data{Action: Action(parts[0]), ID: id}

	switch d.Action {
	case ActionCancel, ActionReschedule, ActionApprove, ActionReject:
		if len(parts) != 2 {
			return Data{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
		}
	case ActionDate:
		if len(parts) != 3 {
			return Data{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
		}
		d.Date, err = time.ParseInLocation(dateLayout, parts[2], loc)
		if err != nil {
			return Data{}, fmt.Errorf("%w: bad date in %q", ErrInvalidFormat, data)
		}
	case ActionSlot:
		if len(parts) != 3 {
			return Data{}, fmt.Errorf("%w: %q", ErrInvalidFormat, data)
		}
		sec, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Data{}, fmt.Errorf("%w: bad start in %q", ErrInvalidFormat, data)
		}
		d.Start = time.Unix(sec, 0).In(loc)
	default:
		return Data{}, fmt.Errorf("%w: unknown action %q", ErrInvalidFormat, parts[0])
	}

	return d, nil
}
