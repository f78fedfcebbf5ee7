package service

import (
	"fmt"
	"strings"
	"time"
)

// Source - откуда пришел текст вопроса
type Source string

const (
	SourceManual Source = "manual"
	SourceOCR    Source = "ocr"
)

// QuizDraft - черновик, который принадлежит одной сессии до сохранения
type QuizDraft struct {
	Question     string
	Options      []string
	CorrectIndex *int
	Source       Source
}

// Quiz - сохраненный вопрос. После сохранения не меняется, только заменяется целиком.
type Quiz struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Owner        int64     `json:"owner"`
	Source       Source    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IntPtr удобен для CorrectIndex
func IntPtr(i int) *int {
	return &i
}

// HasAnswer сообщает, выбран ли правильный вариант
func (d *QuizDraft) HasAnswer() bool {
	return d.CorrectIndex != nil && *d.CorrectIndex >= 0 && *d.CorrectIndex < len(d.Options)
}

// Clone возвращает независимую копию черновика
func (d *QuizDraft) Clone() *QuizDraft {
	c := &QuizDraft{
		Question: d.Question,
		Options:  append([]string(nil), d.Options...),
		Source:   d.Source,
	}
	if d.CorrectIndex != nil {
		c.CorrectIndex = IntPtr(*d.CorrectIndex)
	}
	return c
}

// Finalize копирует черновик в новый Quiz и проверяет инварианты
func (d *QuizDraft) Finalize(id string, owner int64, now time.Time) (Quiz, error) {
	if d.CorrectIndex == nil {
		return Quiz{}, fmt.Errorf("%w: correct answer not selected", ErrInvariantViolation)
	}
	q := Quiz{
		ID:           id,
		Question:     strings.TrimSpace(d.Question),
		Options:      append([]string(nil), d.Options...),
		CorrectIndex: *d.CorrectIndex,
		Owner:        owner,
		Source:       d.Source,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := q.Validate(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// Draft превращает сохраненный вопрос обратно в черновик для редактирования
func (q Quiz) Draft() *QuizDraft {
	return &QuizDraft{
		Question:     q.Question,
		Options:      append([]string(nil), q.Options...),
		CorrectIndex: IntPtr(q.CorrectIndex),
		Source:       q.Source,
	}
}

// Validate проверяет инварианты сохраненного вопроса
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvariantViolation)
	}
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: empty question", ErrInvariantViolation)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least two options, got %d", ErrInvariantViolation, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvariantViolation, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range [0,%d)", ErrInvariantViolation, q.CorrectIndex, len(q.Options))
	}
	return nil
}

func (q Quiz) clone() Quiz {
	q.Options = append([]string(nil), q.Options...)
	return q
}
