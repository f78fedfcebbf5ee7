package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryResultsService(t *testing.T) {
	rs := NewMemoryResultsService()

	_, ok := rs.Summary("q1")
	assert.False(t, ok)

	// poll shows quiz options in order C, A, B; correct quiz option is A
	rs.TrackPoll("p1", Poll{QuizID: "q1", Options: []string{"c", "a", "b"}, CorrectIndex: 1, Order: []int{2, 0, 1}})

	assert.True(t, rs.RecordAnswer("p1", 10, []int{1}))
	assert.False(t, rs.RecordAnswer("p1", 10, []int{0}), "second answer of the same user is ignored")
	assert.True(t, rs.RecordAnswer("p1", 11, []int{0}))
	assert.False(t, rs.RecordAnswer("p1", 12, []int{7}))
	assert.False(t, rs.RecordAnswer("p1", 12, nil))
	assert.False(t, rs.RecordAnswer("unknown", 12, []int{0}))

	res, ok := rs.Summary("q1")
	require.True(t, ok)
	assert.Equal(t, 1, res.Polls)
	assert.Equal(t, 2, res.Responses)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 50, res.Percentage())
	assert.Equal(t, []int{1, 0, 1}, res.OptionCounts)
	assert.False(t, res.LastAnswer.IsZero())

	// the same user may answer a new poll of the same quiz
	rs.TrackPoll("p2", Poll{QuizID: "q1", Options: []string{"a", "b", "c"}, CorrectIndex: 0})
	assert.True(t, rs.RecordAnswer("p2", 10, []int{0}))

	res, _ = rs.Summary("q1")
	assert.Equal(t, 2, res.Polls)
	assert.Equal(t, 3, res.Responses)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, []int{2, 0, 1}, res.OptionCounts)

	rs.Forget("q1")
	_, ok = rs.Summary("q1")
	assert.False(t, ok)
	assert.False(t, rs.RecordAnswer("p2", 20, []int{0}))
}

func TestQuizResults_PercentageEmpty(t *testing.T) {
	assert.Equal(t, 0, QuizResults{}.Percentage())
}
