// Package clock задаёт единый часовой пояс школы и источник текущего времени.
// Все решения политики ("сейчас", "сегодня", праздники) считаются через Clock.
package clock

import (
	"sync"
	"time"
)

// Clock источник времени в часовом поясе школы
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// New создаёт часы реального времени для часового пояса школы
func New(loc *time.Location) Clock {
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Location() *time.Location {
	return c.loc
}

// FixedClock часы с ручным управлением, для тестов
type FixedClock struct {
	mu  sync.RWMutex
	now time.Time
	loc *time.Location
}

// Fixed создаёт часы, которые всегда показывают now
func Fixed(now time.Time, loc *time.Location) *FixedClock {
	return &FixedClock{now: now.In(loc), loc: loc}
}

func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FixedClock) Location() *time.Location {
	return c.loc
}

// Set переставляет часы
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.In(c.loc)
}

// Advance сдвигает часы вперёд
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StartOfDay возвращает полночь даты t в часовом поясе loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Today возвращает полночь текущего дня школы
func Today(c Clock) time.Time {
	return StartOfDay(c.Now(), c.Location())
}

// DateKey ключ даты в формате 2006-01-02 в часовом поясе loc
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// AtMinute возвращает момент minute минут от начала дня day
func AtMinute(day time.Time, minute int, loc *time.Location) time.Time {
	day = day.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, minute, 0, 0, loc)
}

// MinuteOfDay минута от начала дня по настенным часам школы
func MinuteOfDay(t time.Time, loc *time.Location) int {
	t = t.In(loc)
	return t.Hour()*60 + t.Minute()
}

