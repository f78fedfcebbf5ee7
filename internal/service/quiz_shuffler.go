package service

import (
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"
)

// Ограничения Telegram для опросов-викторин
const (
	MaxPollOptions        = 10
	MaxPollQuestionLength = 300
	MaxPollOptionLength   = 100
)

// Poll - то, что получает Quiz Runner: один вопрос с одним правильным ответом
type Poll struct {
	QuizID       string
	Question     string
	Options      []string
	CorrectIndex int
	// Order[i] - индекс варианта вопроса, показанного на позиции i
	Order []int
}

// BuildPoll готовит опрос из вопроса. При shuffle варианты перемешиваются,
// а CorrectIndex указывает на правильный вариант уже после перемешивания.
func BuildPoll(quiz Quiz, shuffle bool, r *rand.Rand) (Poll, error) {
	if err := quiz.Validate(); err != nil {
		return Poll{}, err
	}
	if len(quiz.Options) > MaxPollOptions {
		return Poll{}, fmt.Errorf("%w: %d options, max %d", ErrPollLimits, len(quiz.Options), MaxPollOptions)
	}
	if utf8.RuneCountInString(quiz.Question) > MaxPollQuestionLength {
		return Poll{}, fmt.Errorf("%w: question longer than %d characters", ErrPollLimits, MaxPollQuestionLength)
	}
	for i, opt := range quiz.Options {
		if utf8.RuneCountInString(opt) > MaxPollOptionLength {
			return Poll{}, fmt.Errorf("%w: option %s longer than %d characters", ErrPollLimits, OptionLabel(i), MaxPollOptionLength)
		}
	}

	poll := Poll{
		QuizID:       quiz.ID,
		Question:     quiz.Question,
		Options:      append([]string(nil), quiz.Options...),
		CorrectIndex: quiz.CorrectIndex,
	}
	if !shuffle {
		poll.Order = make([]int, len(quiz.Options))
		for i := range poll.Order {
			poll.Order[i] = i
		}
		return poll, nil
	}

	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	poll.Order = ShuffleIndexes(len(poll.Options), r)
	for i, from := range poll.Order {
		poll.Options[i] = quiz.Options[from]
		if from == quiz.CorrectIndex {
			poll.CorrectIndex = i
		}
	}
	return poll, nil
}

// ShuffleIndexes возвращает перестановку 0..n-1 (Фишер-Йейтс)
func ShuffleIndexes(n int, r *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
