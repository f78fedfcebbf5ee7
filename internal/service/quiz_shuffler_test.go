package service

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPoll(t *testing.T) {
	quiz := sampleQuiz("q1", time.Now())

	poll, err := BuildPoll(quiz, false, nil)
	require.NoError(t, err)
	assert.Equal(t, Poll{QuizID: "q1", Question: "What is 2+2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1, Order: []int{0, 1, 2}}, poll)

	poll.Options[0] = "changed"
	assert.Equal(t, "3", quiz.Options[0])
}

func TestBuildPoll_ShuffleKeepsAnswer(t *testing.T) {
	quiz := sampleQuiz("q1", time.Now())
	quiz.Options = []string{"a", "b", "c", "d", "e", "f"}
	quiz.CorrectIndex = 4

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		poll, err := BuildPoll(quiz, true, r)
		require.NoError(t, err)
		assert.ElementsMatch(t, quiz.Options, poll.Options)
		assert.Equal(t, "e", poll.Options[poll.CorrectIndex])
		for pos, from := range poll.Order {
			assert.Equal(t, quiz.Options[from], poll.Options[pos])
		}
	}
}

func TestBuildPoll_Limits(t *testing.T) {
	quiz := sampleQuiz("q1", time.Now())
	quiz.Options = make([]string, MaxPollOptions+1)
	for i := range quiz.Options {
		quiz.Options[i] = OptionLabel(i)
	}
	_, err := BuildPoll(quiz, false, nil)
	assert.ErrorIs(t, err, ErrPollLimits)

	quiz = sampleQuiz("q1", time.Now())
	quiz.Question = strings.Repeat("?", MaxPollQuestionLength+1)
	_, err = BuildPoll(quiz, false, nil)
	assert.ErrorIs(t, err, ErrPollLimits)

	quiz = sampleQuiz("q1", time.Now())
	quiz.Options[2] = strings.Repeat("x", MaxPollOptionLength+1)
	_, err = BuildPoll(quiz, false, nil)
	assert.ErrorIs(t, err, ErrPollLimits)

	quiz = sampleQuiz("q1", time.Now())
	quiz.CorrectIndex = -1
	_, err = BuildPoll(quiz, false, nil)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestShuffleIndexes(t *testing.T) {
	order := ShuffleIndexes(8, rand.New(rand.NewSource(7)))
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
	assert.Empty(t, ShuffleIndexes(0, rand.New(rand.NewSource(7))))
}
