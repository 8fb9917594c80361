package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

const (
	DefaultNoticeHours = 6
	PartnerNoticeHours = 24
	PartnerSchoolTag   = "PARTNER"
)

// HolidayReader источник праздников
type HolidayReader interface {
	DatesInRange(ctx context.Context, from, to time.Time) (model.HolidaySet, error)
}

// PolicyConfig пороги заблаговременности
type PolicyConfig struct {
	DefaultNoticeHours int
	PartnerNoticeHours int
	PartnerSchools     []string
}

// DefaultPolicyConfig пороги по умолчанию
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		DefaultNoticeHours: DefaultNoticeHours,
		PartnerNoticeHours: PartnerNoticeHours,
		PartnerSchools:     []string{PartnerSchoolTag},
	}
}

// ChangeDecision результат проверки политики
type ChangeDecision struct {
	Allowed        bool
	Holiday        bool
	ThresholdHours int
	NoticeLeft     time.Duration
}

// Reason человекочитаемая причина отказа
func (d ChangeDecision) Reason() string {
	switch {
	case d.Allowed:
		return ""
	case d.Holiday:
		return "lesson falls on a holiday"
	default:
		return fmt.Sprintf("at least %dh notice required, %s left",
			d.ThresholdHours, d.NoticeLeft.Truncate(time.Minute))
	}
}

// Policy решает, можно ли студенту самостоятельно менять занятие
type Policy struct {
	cfg      PolicyConfig
	clock    clock.Clock
	holidays HolidayReader
}

// NewPolicy создаёт политику
func NewPolicy(cfg PolicyConfig, clk clock.Clock, holidays HolidayReader) *Policy {
	return &Policy{
		cfg:      cfg,
		clock:    clk,
		holidays: holidays,
	}
}

// AdvanceNoticeThresholdHours порог в часах: индивидуальный, партнёрская школа, общий
func (p *Policy) AdvanceNoticeThresholdHours(enrollment *model.Enrollment) int {
	if enrollment != nil && enrollment.NoticeHoursOverride != nil {
		return *enrollment.NoticeHoursOverride
	}
	if enrollment != nil && p.isPartner(enrollment.SourceSchool) {
		return p.cfg.PartnerNoticeHours
	}
	return p.cfg.DefaultNoticeHours
}

func (p *Policy) isPartner(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, partner := range p.cfg.PartnerSchools {
		if strings.EqualFold(strings.TrimSpace(partner), tag) {
			return true
		}
	}
	return false
}

// Decide проверяет праздник и заблаговременность относительно текущего времени
func (p *Policy) Decide(ctx context.Context, lesson *model.Lesson, enrollment *model.Enrollment) (ChangeDecision, error) {
	loc := p.clock.Location()
	day := clock.StartOfDay(lesson.StartTime, loc)

	holidays, err := p.holidays.DatesInRange(ctx, day, day)
	if err != nil {
		return ChangeDecision{}, fmt.Errorf("get holidays: %w", err)
	}

	threshold := p.AdvanceNoticeThresholdHours(enrollment)
	now := p.clock.Now()
	decision := ChangeDecision{
		Holiday:        holidays.Contains(day),
		ThresholdHours: threshold,
		NoticeLeft:     lesson.StartTime.Sub(now),
	}
	decision.Allowed = changeAllowed(lesson.StartTime, now, threshold, decision.Holiday)

	return decision, nil
}

// IsChangeAllowed можно ли менять занятие прямо сейчас
func (p *Policy) IsChangeAllowed(ctx context.Context, lesson *model.Lesson, enrollment *model.Enrollment) (bool, error) {
	decision, err := p.Decide(ctx, lesson, enrollment)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// CheckChange возвращает ErrPolicyViolation, если менять занятие нельзя
func (p *Policy) CheckChange(ctx context.Context, lesson *model.Lesson, enrollment *model.Enrollment) error {
	decision, err := p.Decide(ctx, lesson, enrollment)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", model.ErrPolicyViolation, decision.Reason())
	}
	return nil
}

// changeAllowed граница включительная: ровно threshold часов достаточно
func changeAllowed(start, now time.Time, thresholdHours int, holiday bool) bool {
	if holiday {
		return false
	}
	return start.Sub(now) >= time.Duration(thresholdHours)*time.Hour
}
