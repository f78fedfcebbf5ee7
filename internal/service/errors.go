package service

import "errors"

var (
	ErrExtractionFailed   = errors.New("text extraction failed")
	ErrAccessDenied       = errors.New("access denied")
	ErrTooManyAttempts    = errors.New("too many passcode attempts")
	ErrNotFound           = errors.New("quiz not found")
	ErrInvariantViolation = errors.New("quiz invariant violation")
	ErrPollLimits         = errors.New("quiz does not fit poll limits")
)

// ParseErrorKind различает восстановимые ошибки парсера
type ParseErrorKind int

const (
	InsufficientOptions ParseErrorKind = iota + 1
	AmbiguousAnswer
)

// ParseError возвращается парсером вместе с черновиком, а не вместо него
type ParseError struct {
	Kind ParseErrorKind
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InsufficientOptions:
		return "fewer than two answer options recognized"
	case AmbiguousAnswer:
		return "more than one option marked as correct"
	default:
		return "parse error"
	}
}

// Is позволяет сравнивать через errors.Is по виду ошибки
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInsufficientOptions = &ParseError{Kind: InsufficientOptions}
	ErrAmbiguousAnswer     = &ParseError{Kind: AmbiguousAnswer}
)
