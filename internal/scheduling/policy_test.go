package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/clock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAdvanceNoticeThresholdHours(t *testing.T) {
	policy := NewPolicy(DefaultPolicyConfig(), clock.Fixed(testNow, brt), &fakeCalendar{})

	tests := []struct {
		name       string
		enrollment *model.Enrollment
		want       int
	}{
		{name: "default", enrollment: &model.Enrollment{SourceSchool: "DIRECT"}, want: 6},
		{name: "no tag", enrollment: &model.Enrollment{}, want: 6},
		{name: "partner", enrollment: &model.Enrollment{SourceSchool: "PARTNER"}, want: 24},
		{name: "partner tag is case insensitive", enrollment: &model.Enrollment{SourceSchool: " partner "}, want: 24},
		{name: "override wins over partner", enrollment: &model.Enrollment{SourceSchool: "PARTNER", NoticeHoursOverride: intPtr(2)}, want: 2},
		{name: "zero override is honoured", enrollment: &model.Enrollment{NoticeHoursOverride: intPtr(0)}, want: 0},
		{name: "nil enrollment", enrollment: nil, want: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.AdvanceNoticeThresholdHours(tt.enrollment))
		})
	}
}

func TestIsChangeAllowedPartnerBoundary(t *testing.T) {
	ctx := context.Background()
	policy := NewPolicy(DefaultPolicyConfig(), clock.Fixed(testNow, brt), &fakeCalendar{})
	enrollment := &model.Enrollment{ID: 1, SourceSchool: PartnerSchoolTag}

	in20h := lesson(1, 7, testNow.Add(20*time.Hour), 60)
	allowed, err := policy.IsChangeAllowed(ctx, in20h, enrollment)
	require.NoError(t, err)
	assert.False(t, allowed)

	exactly24h := lesson(2, 7, testNow.Add(24*time.Hour), 60)
	allowed, err = policy.IsChangeAllowed(ctx, exactly24h, enrollment)
	require.NoError(t, err)
	assert.True(t, allowed, "boundary is inclusive")

	justUnder := lesson(3, 7, testNow.Add(24*time.Hour-time.Second), 60)
	allowed, err = policy.IsChangeAllowed(ctx, justUnder, enrollment)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestIsChangeAllowedHoliday(t *testing.T) {
	ctx := context.Background()
	start := at(10, 19, 0)
	policy := NewPolicy(DefaultPolicyConfig(), clock.Fixed(testNow, brt), &fakeCalendar{
		holidays: []time.Time{at(10, 0, 0)},
	})
	enrollment := &model.Enrollment{ID: 1}

	allowed, err := policy.IsChangeAllowed(ctx, lesson(1, 7, start, 60), enrollment)
	require.NoError(t, err)
	assert.False(t, allowed)

	err = policy.CheckChange(ctx, lesson(1, 7, start, 60), enrollment)
	assert.ErrorIs(t, err, model.ErrPolicyViolation)
	assert.Contains(t, err.Error(), "holiday")

	// следующий день не праздник
	assert.NoError(t, policy.CheckChange(ctx, lesson(2, 7, at(11, 19, 0), 60), enrollment))
}

func TestCheckChangeTooLate(t *testing.T) {
	policy := NewPolicy(DefaultPolicyConfig(), clock.Fixed(testNow, brt), &fakeCalendar{})

	err := policy.CheckChange(context.Background(), lesson(1, 7, testNow.Add(5*time.Hour), 60), &model.Enrollment{})

	require.Error(t, err)
	assert.True(t, model.IsUserCorrectable(err))
	assert.Contains(t, err.Error(), "6h")
}
