package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// QuizStore - хранилище готовых вопросов. Put создает или заменяет запись целиком.
type QuizStore interface {
	Put(ctx context.Context, quiz Quiz) error
	Get(ctx context.Context, id string) (Quiz, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Quiz, error)
}

// ApprovalStore хранит одобренных пользователей
type ApprovalStore interface {
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	Has(ctx context.Context, userID int64) (bool, error)
	List(ctx context.Context) ([]int64, error)
}

// MemoryQuizStore - вариант по умолчанию, данные теряются при рестарте
type MemoryQuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
}

func NewMemoryQuizStore() *MemoryQuizStore {
	return &MemoryQuizStore{
		quizzes: make(map[string]Quiz),
	}
}

func (ms *MemoryQuizStore) Put(_ context.Context, quiz Quiz) error {
	if err := quiz.Validate(); err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.quizzes[quiz.ID] = quiz.clone()
	return nil
}

func (ms *MemoryQuizStore) Get(_ context.Context, id string) (Quiz, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	quiz, ok := ms.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return quiz.clone(), nil
}

func (ms *MemoryQuizStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.quizzes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(ms.quizzes, id)
	return nil
}

// List возвращает вопросы от старых к новым
func (ms *MemoryQuizStore) List(_ context.Context) ([]Quiz, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	list := make([]Quiz, 0, len(ms.quizzes))
	for _, quiz := range ms.quizzes {
		list = append(list, quiz.clone())
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

type MemoryApprovalStore struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

func NewMemoryApprovalStore() *MemoryApprovalStore {
	return &MemoryApprovalStore{
		users: make(map[int64]struct{}),
	}
}

func (ms *MemoryApprovalStore) Add(_ context.Context, userID int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.users[userID] = struct{}{}
	return nil
}

func (ms *MemoryApprovalStore) Remove(_ context.Context, userID int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.users, userID)
	return nil
}

func (ms *MemoryApprovalStore) Has(_ context.Context, userID int64) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.users[userID]
	return ok, nil
}

func (ms *MemoryApprovalStore) List(_ context.Context) ([]int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := make([]int64, 0, len(ms.users))
	for id := range ms.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
