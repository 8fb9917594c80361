package scheduling

import (
	"testing"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsGroupLesson(t *testing.T) {
	tests := []struct {
		name       string
		enrollment *model.Enrollment
		want       bool
	}{
		{name: "nil", enrollment: nil, want: false},
		{name: "particular", enrollment: &model.Enrollment{LessonType: model.LessonTypeParticular}, want: false},
		{name: "particular with stale group name", enrollment: &model.Enrollment{LessonType: model.LessonTypeParticular, GroupName: "B1"}, want: false},
		{name: "group", enrollment: &model.Enrollment{LessonType: model.LessonTypeGroup, GroupName: "B1 noite"}, want: true},
		{name: "group blank name", enrollment: &model.Enrollment{LessonType: model.LessonTypeGroup, GroupName: "   "}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGroupLesson(tt.enrollment))
		})
	}
}

func TestCheckRequestable(t *testing.T) {
	err := CheckRequestable(&model.Enrollment{ID: 5, LessonType: model.LessonTypeGroup, GroupName: " A2 "})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnsupportedForGroup)
	assert.Equal(t, model.KindUnsupportedForGroup, model.KindOf(err))

	assert.NoError(t, CheckRequestable(&model.Enrollment{ID: 6, LessonType: model.LessonTypeParticular}))
}

func TestDistinctOccurrences(t *testing.T) {
	a := lesson(1, 7, at(9, 10, 0), 60)
	a.GroupName = "A2"
	b := lesson(2, 7, at(9, 10, 0), 60)
	b.GroupName = " A2 "
	c := lesson(3, 7, at(9, 12, 0), 60)
	c.GroupName = "A2"
	d := lesson(4, 7, at(9, 10, 0), 60)
	e := lesson(5, 7, at(9, 10, 0), 60)
	e.Status = model.LessonStatusCancelled

	got := DistinctOccurrences([]*model.Lesson{a, b, c, d, e})

	assert.Equal(t, []*model.Lesson{a, c, d}, got)
	assert.True(t, SameOccurrence(a, b))
	assert.False(t, SameOccurrence(a, c))
}
