package session

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_EncodeDecode(t *testing.T) {
	quizID := uuid.NewString()
	actions := []Action{
		{Kind: ActionMainMenu},
		{Kind: ActionCancel},
		{Kind: ActionNewQuiz},
		{Kind: ActionOCRScan},
		{Kind: ActionManualInput},
		{Kind: ActionKeepQuestion},
		{Kind: ActionKeepOptions},
		{Kind: ActionEditQuestion},
		{Kind: ActionEditOptions},
		{Kind: ActionSelectAnswer, Index: 9},
		{Kind: ActionSave},
		{Kind: ActionListQuizzes},
		{Kind: ActionSelectQuiz, QuizID: quizID},
		{Kind: ActionStartQuiz, QuizID: quizID},
		{Kind: ActionEditQuiz, QuizID: quizID},
		{Kind: ActionDeleteQuiz, QuizID: quizID},
		{Kind: ActionQuizResults, QuizID: quizID},
		{Kind: ActionManageUsers},
		{Kind: ActionAddUser},
		{Kind: ActionRemoveUser, UserID: 9_223_372_036_854_775_807},
	}
	require.Len(t, actions, len(actionDefs))

	for _, a := range actions {
		data := a.Encode()
		t.Run(data, func(t *testing.T) {
			assert.LessOrEqual(t, len(data), 64, "telegram callback data limit")

			decoded, err := DecodeAction(data)
			require.NoError(t, err)
			assert.Equal(t, a, decoded)
		})
	}
}

func TestDecodeAction_Rejects(t *testing.T) {
	for _, data := range []string{
		"",
		"bogus",
		"ans",
		"ans:x",
		"ans:-1",
		"menu:1",
		"quiz:",
		"rmuser:abc",
		strings.Repeat("a", 65),
	} {
		t.Run(data, func(t *testing.T) {
			_, err := DecodeAction(data)
			assert.ErrorIs(t, err, ErrUnknownAction)
		})
	}
}

func TestAction_EncodeNone(t *testing.T) {
	assert.Empty(t, Action{}.Encode())
}
