package service

import (
	"sync"
	"time"
)

// QuizResults - сводка ответов на опросы одного вопроса
type QuizResults struct {
	QuizID       string
	Polls        int
	Responses    int
	Correct      int
	OptionCounts []int
	LastAnswer   time.Time
}

// Percentage - доля правильных ответов
func (r QuizResults) Percentage() int {
	if r.Responses == 0 {
		return 0
	}
	return (r.Correct * 100) / r.Responses
}

type ResultsService interface {
	// TrackPoll запоминает отправленный опрос, чтобы потом сопоставить ответы
	TrackPoll(pollID string, poll Poll)
	// RecordAnswer учитывает ответ; повторный ответ того же пользователя на тот же опрос не считается
	RecordAnswer(pollID string, userID int64, optionIDs []int) bool
	Summary(quizID string) (QuizResults, bool)
	Forget(quizID string)
}

type trackedPoll struct {
	quizID  string
	correct int
	order   []int
	voters  map[int64]struct{}
}

type MemoryResultsService struct {
	mu      sync.RWMutex
	polls   map[string]*trackedPoll
	results map[string]*QuizResults
	now     func() time.Time
}

func NewMemoryResultsService() *MemoryResultsService {
	return &MemoryResultsService{
		polls:   make(map[string]*trackedPoll),
		results: make(map[string]*QuizResults),
		now:     time.Now,
	}
}

func (ms *MemoryResultsService) TrackPoll(pollID string, poll Poll) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	order := append([]int(nil), poll.Order...)
	if len(order) != len(poll.Options) {
		order = make([]int, len(poll.Options))
		for i := range order {
			order[i] = i
		}
	}
	ms.polls[pollID] = &trackedPoll{
		quizID:  poll.QuizID,
		correct: poll.CorrectIndex,
		order:   order,
		voters:  make(map[int64]struct{}),
	}

	res, ok := ms.results[poll.QuizID]
	if !ok {
		res = &QuizResults{QuizID: poll.QuizID}
		ms.results[poll.QuizID] = res
	}
	res.Polls++
	// вариантов могло стать больше после редактирования
	if len(res.OptionCounts) < len(order) {
		counts := make([]int, len(order))
		copy(counts, res.OptionCounts)
		res.OptionCounts = counts
	}
}

func (ms *MemoryResultsService) RecordAnswer(pollID string, userID int64, optionIDs []int) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	tp, ok := ms.polls[pollID]
	if !ok || len(optionIDs) == 0 {
		return false
	}
	if _, voted := tp.voters[userID]; voted {
		return false
	}
	choice := optionIDs[0]
	if choice < 0 || choice >= len(tp.order) {
		return false
	}
	tp.voters[userID] = struct{}{}

	res := ms.results[tp.quizID]
	res.Responses++
	res.OptionCounts[tp.order[choice]]++
	if choice == tp.correct {
		res.Correct++
	}
	res.LastAnswer = ms.now()
	return true
}

func (ms *MemoryResultsService) Summary(quizID string) (QuizResults, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	res, ok := ms.results[quizID]
	if !ok {
		return QuizResults{}, false
	}
	out := *res
	out.OptionCounts = append([]int(nil), res.OptionCounts...)
	return out, true
}

// Forget удаляет статистику вопроса (например, после удаления вопроса)
func (ms *MemoryResultsService) Forget(quizID string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.results, quizID)
	for id, tp := range ms.polls {
		if tp.quizID == quizID {
			delete(ms.polls, id)
		}
	}
}
