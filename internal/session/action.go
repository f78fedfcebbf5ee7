package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ActionKind - закрытый набор действий кнопок
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionMainMenu
	ActionCancel
	ActionNewQuiz
	ActionOCRScan
	ActionManualInput
	ActionKeepQuestion
	ActionKeepOptions
	ActionEditQuestion
	ActionEditOptions
	ActionSelectAnswer
	ActionSave
	ActionListQuizzes
	ActionSelectQuiz
	ActionStartQuiz
	ActionEditQuiz
	ActionDeleteQuiz
	ActionQuizResults
	ActionManageUsers
	ActionAddUser
	ActionRemoveUser
)

type argKind int

const (
	argNone argKind = iota
	argIndex
	argQuiz
	argUser
)

var actionDefs = map[ActionKind]struct {
	token string
	arg   argKind
}{
	ActionMainMenu:     {"menu", argNone},
	ActionCancel:       {"cancel", argNone},
	ActionNewQuiz:      {"new", argNone},
	ActionOCRScan:      {"ocr", argNone},
	ActionManualInput:  {"manual", argNone},
	ActionKeepQuestion: {"keepq", argNone},
	ActionKeepOptions:  {"keepo", argNone},
	ActionEditQuestion: {"editq", argNone},
	ActionEditOptions:  {"edito", argNone},
	ActionSelectAnswer: {"ans", argIndex},
	ActionSave:         {"save", argNone},
	ActionListQuizzes:  {"list", argNone},
	ActionSelectQuiz:   {"quiz", argQuiz},
	ActionStartQuiz:    {"start", argQuiz},
	ActionEditQuiz:     {"edit", argQuiz},
	ActionDeleteQuiz:   {"del", argQuiz},
	ActionQuizResults:  {"res", argQuiz},
	ActionManageUsers:  {"users", argNone},
	ActionAddUser:      {"adduser", argNone},
	ActionRemoveUser:   {"rmuser", argUser},
}

var actionByToken = func() map[string]ActionKind {
	m := make(map[string]ActionKind, len(actionDefs))
	for kind, def := range actionDefs {
		m[def.token] = kind
	}
	return m
}()

var ErrUnknownAction = errors.New("unknown action")

// Action - действие кнопки. Index, QuizID и UserID заполняются в зависимости от Kind.
type Action struct {
	Kind   ActionKind
	Index  int
	QuizID string
	UserID int64
}

// Encode превращает действие в callback data (Telegram ограничивает ее 64 байтами)
func (a Action) Encode() string {
	def, ok := actionDefs[a.Kind]
	if !ok {
		return ""
	}
	switch def.arg {
	case argIndex:
		return def.token + ":" + strconv.Itoa(a.Index)
	case argQuiz:
		return def.token + ":" + a.QuizID
	case argUser:
		return def.token + ":" + strconv.FormatInt(a.UserID, 10)
	default:
		return def.token
	}
}

func (a Action) String() string {
	return a.Encode()
}

// DecodeAction разбирает callback data обратно в действие
func DecodeAction(data string) (Action, error) {
	token, arg, hasArg := strings.Cut(data, ":")
	kind, ok := actionByToken[token]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	def := actionDefs[kind]
	if (def.arg == argNone) == hasArg {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}

	a := Action{Kind: kind}
	switch def.arg {
	case argIndex:
		i, err := strconv.Atoi(arg)
		if err != nil || i < 0 {
			return Action{}, fmt.Errorf("%w: bad index in %q", ErrUnknownAction, data)
		}
		a.Index = i
	case argQuiz:
		if arg == "" {
			return Action{}, fmt.Errorf("%w: empty quiz id in %q", ErrUnknownAction, data)
		}
		a.QuizID = arg
	case argUser:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w: bad user id in %q", ErrUnknownAction, data)
		}
		a.UserID = id
	}
	return a, nil
}
