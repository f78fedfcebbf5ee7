package session

import "github.com/PoluyanbIch/QuizAuthorBot/internal/service"

type State int

const (
	MainMenu State = iota
	OCRScan
	ManualInput
	EditQuestion
	EditOptions
	SelectAnswer
	QuizAction
	UserManagement
	QuizList
)

var stateNames = [...]string{
	MainMenu:       "main_menu",
	OCRScan:        "ocr_scan",
	ManualInput:    "manual_input",
	EditQuestion:   "edit_question",
	EditOptions:    "edit_options",
	SelectAnswer:   "select_answer",
	QuizAction:     "quiz_action",
	UserManagement: "user_management",
	QuizList:       "quiz_list",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Session - состояние диалога одного пользователя. Черновик виден только этой сессии.
type Session struct {
	UserID         int64
	State          State
	Draft          *service.QuizDraft
	SelectedQuizID string
	// Editing - черновик редактирует уже сохраненный SelectedQuizID
	Editing bool
	// AwaitingUserID - админ нажал "добавить пользователя" и должен прислать ID
	AwaitingUserID bool

	gen     uint64
	pending uint64
}

func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: MainMenu}
}

// Pending сообщает, ждет ли сессия результат распознавания
func (s *Session) Pending() bool {
	return s.pending != 0
}

func (s *Session) reset() {
	s.State = MainMenu
	s.Draft = nil
	s.SelectedQuizID = ""
	s.Editing = false
	s.AwaitingUserID = false
	s.pending = 0
}

func (s *Session) startDraft(state State, source service.Source) {
	s.reset()
	s.State = state
	s.Draft = &service.QuizDraft{Source: source}
}
