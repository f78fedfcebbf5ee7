package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizDraft_Finalize(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	draft := &QuizDraft{
		Question:     " What is 2+2? ",
		Options:      []string{"3", "4"},
		CorrectIndex: IntPtr(1),
		Source:       SourceManual,
	}

	quiz, err := draft.Finalize("id-1", 42, now)
	require.NoError(t, err)
	assert.Equal(t, Quiz{
		ID:           "id-1",
		Question:     "What is 2+2?",
		Options:      []string{"3", "4"},
		CorrectIndex: 1,
		Owner:        42,
		Source:       SourceManual,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, quiz)

	draft.Options[0] = "changed"
	assert.Equal(t, "3", quiz.Options[0], "finalized quiz must not share the draft's slice")
}

func TestQuizDraft_FinalizeRejectsInvalid(t *testing.T) {
	now := time.Now()
	cases := map[string]*QuizDraft{
		"no answer":       {Question: "Q?", Options: []string{"a", "b"}},
		"index too large": {Question: "Q?", Options: []string{"a", "b"}, CorrectIndex: IntPtr(2)},
		"negative index":  {Question: "Q?", Options: []string{"a", "b"}, CorrectIndex: IntPtr(-1)},
		"one option":      {Question: "Q?", Options: []string{"a"}, CorrectIndex: IntPtr(0)},
		"empty question":  {Question: "  ", Options: []string{"a", "b"}, CorrectIndex: IntPtr(0)},
		"empty option":    {Question: "Q?", Options: []string{"a", " "}, CorrectIndex: IntPtr(0)},
	}
	for name, draft := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := draft.Finalize("id", 1, now)
			assert.ErrorIs(t, err, ErrInvariantViolation)
		})
	}

	_, err := (&QuizDraft{Question: "Q?", Options: []string{"a", "b"}, CorrectIndex: IntPtr(0)}).Finalize("", 1, now)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestQuizDraft_CloneAndHasAnswer(t *testing.T) {
	draft := &QuizDraft{Question: "Q?", Options: []string{"a", "b"}, CorrectIndex: IntPtr(0)}
	assert.True(t, draft.HasAnswer())

	clone := draft.Clone()
	clone.Options[0] = "x"
	*clone.CorrectIndex = 1
	assert.Equal(t, "a", draft.Options[0])
	assert.Equal(t, 0, *draft.CorrectIndex)

	draft.CorrectIndex = IntPtr(2)
	assert.False(t, draft.HasAnswer())
	assert.False(t, (&QuizDraft{}).HasAnswer())
}

func TestQuiz_Draft(t *testing.T) {
	quiz := sampleQuiz("q1", time.Now())
	draft := quiz.Draft()

	assert.Equal(t, quiz.Question, draft.Question)
	assert.Equal(t, quiz.Options, draft.Options)
	require.NotNil(t, draft.CorrectIndex)
	assert.Equal(t, 1, *draft.CorrectIndex)

	draft.Options[0] = "x"
	assert.Equal(t, "3", quiz.Options[0])
}
