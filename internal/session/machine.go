package session

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PoluyanbIch/QuizAuthorBot/internal/service"
)

// Machine - переходы диалога. Handle меняет только переданную сессию,
// поэтому одну Machine можно использовать из любого числа горутин,
// если события одного пользователя не приходят параллельно (это делает Manager).
type Machine struct {
	store   service.QuizStore
	gate    *service.AccessGate
	results service.ResultsService
	logger  *log.Logger
	shuffle bool

	now   func() time.Time
	newID func() string
}

func NewMachine(store service.QuizStore, gate *service.AccessGate, results service.ResultsService, logger *log.Logger) *Machine {
	if logger == nil {
		logger = log.Default()
	}
	return &Machine{
		store:   store,
		gate:    gate,
		results: results,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// WithShuffle включает перемешивание вариантов в опросах
func (m *Machine) WithShuffle(shuffle bool) *Machine {
	m.shuffle = shuffle
	return m
}

// Handle применяет событие к сессии и возвращает ответ пользователю
func (m *Machine) Handle(ctx context.Context, s *Session, ev Event) Reply {
	if e, ok := ev.(TextExtracted); ok && (s.pending == 0 || e.Gen != s.pending) {
		// опоздавший результат отмененного или замененного распознавания
		return Reply{}
	}

	approved, err := m.gate.IsApproved(ctx, s.UserID)
	if err != nil {
		m.logger.Printf("access check for user %d failed: %v", s.UserID, err)
		return Reply{Text: msgUnavailable}
	}
	if !approved {
		return m.handleUnapproved(ctx, s, ev)
	}

	if s.State == UserManagement && !m.gate.IsAdmin(s.UserID) {
		s.reset()
	}
	if needsDraft(s.State) && s.Draft == nil {
		m.logger.Printf("user %d: state %s without draft, resetting", s.UserID, s.State)
		s.reset()
	}

	switch e := ev.(type) {
	case Command:
		return m.handleCommand(ctx, s, e)
	case ButtonPress:
		if e.Action.Kind == ActionCancel || e.Action.Kind == ActionMainMenu {
			return m.cancel(s)
		}
	}

	switch s.State {
	case MainMenu:
		return m.handleMainMenu(ctx, s, ev)
	case OCRScan, ManualInput:
		return m.handleCapture(ctx, s, ev)
	case EditQuestion:
		return m.handleEditQuestion(ctx, s, ev)
	case EditOptions:
		return m.handleEditOptions(ctx, s, ev)
	case SelectAnswer:
		return m.handleSelectAnswer(ctx, s, ev)
	case QuizList:
		return m.handleQuizList(ctx, s, ev)
	case QuizAction:
		return m.handleQuizAction(ctx, s, ev)
	case UserManagement:
		return m.handleUsers(ctx, s, ev)
	}
	return m.prompt(ctx, s)
}

func needsDraft(st State) bool {
	switch st {
	case OCRScan, ManualInput, EditQuestion, EditOptions, SelectAnswer:
		return true
	}
	return false
}

func (m *Machine) handleUnapproved(ctx context.Context, s *Session, ev Event) Reply {
	if s.State != UserManagement {
		s.reset()
		s.State = UserManagement
		return Reply{Text: msgPasscode}
	}

	msg, ok := ev.(TextMessage)
	if !ok {
		return Reply{Text: msgPasscode}
	}

	err := m.gate.CheckPasscode(ctx, s.UserID, msg.Text)
	switch {
	case err == nil:
		m.logger.Printf("user %d approved by passcode", s.UserID)
		s.reset()
		return withNotice(msgAccessGranted, m.mainMenu(s))
	case errors.Is(err, service.ErrTooManyAttempts):
		return Reply{Text: msgTooManyAttempts}
	case errors.Is(err, service.ErrAccessDenied):
		return Reply{Text: msgWrongPasscode + "\n\n" + msgPasscode}
	default:
		m.logger.Printf("passcode check for user %d failed: %v", s.UserID, err)
		return Reply{Text: msgUnavailable}
	}
}

func (m *Machine) handleCommand(ctx context.Context, s *Session, cmd Command) Reply {
	switch cmd.Name {
	case "start":
		s.reset()
		return m.mainMenu(s)
	case "cancel":
		return m.cancel(s)
	case "newquiz":
		s.reset()
		return creationMenu()
	case "quizzes":
		s.reset()
		return m.showQuizList(ctx, s, "")
	case "users":
		if !m.gate.IsAdmin(s.UserID) {
			return withNotice(msgNoPermission, m.prompt(ctx, s))
		}
		s.reset()
		s.State = UserManagement
		return m.showUsers(ctx, s, "")
	case "help":
		return withNotice(msgHelp, m.prompt(ctx, s))
	default:
		return withNotice(msgUnknownCommand, m.prompt(ctx, s))
	}
}

func (m *Machine) cancel(s *Session) Reply {
	if s.State == MainMenu && s.Draft == nil {
		return m.mainMenu(s)
	}
	s.reset()
	return withNotice(msgCancelled, m.mainMenu(s))
}

func (m *Machine) handleMainMenu(ctx context.Context, s *Session, ev Event) Reply {
	press, ok := ev.(ButtonPress)
	if !ok {
		return m.prompt(ctx, s)
	}

	switch press.Action.Kind {
	case ActionNewQuiz:
		return creationMenu()
	case ActionOCRScan:
		s.startDraft(OCRScan, service.SourceOCR)
		return m.prompt(ctx, s)
	case ActionManualInput:
		s.startDraft(ManualInput, service.SourceManual)
		return m.prompt(ctx, s)
	case ActionListQuizzes:
		return m.showQuizList(ctx, s, "")
	case ActionManageUsers:
		if !m.gate.IsAdmin(s.UserID) {
			return withNotice(msgNoPermission, m.mainMenu(s))
		}
		s.State = UserManagement
		return m.showUsers(ctx, s, "")
	}
	return m.prompt(ctx, s)
}

// handleCapture обрабатывает OCR_SCAN и MANUAL_INPUT
func (m *Machine) handleCapture(ctx context.Context, s *Session, ev Event) Reply {
	switch e := ev.(type) {
	case ButtonPress:
		switch e.Action.Kind {
		case ActionOCRScan:
			s.startDraft(OCRScan, service.SourceOCR)
			return m.prompt(ctx, s)
		case ActionManualInput:
			s.startDraft(ManualInput, service.SourceManual)
			return m.prompt(ctx, s)
		}

	case TextMessage:
		if s.State == ManualInput && strings.TrimSpace(e.Text) != "" {
			s.pending = 0
			return m.applyParse(ctx, s, service.ParseQuiz(e.Text, service.SourceManual))
		}

	case PhotoMessage:
		if s.State == ManualInput && strings.TrimSpace(e.Caption) != "" {
			s.pending = 0
			return m.applyParse(ctx, s, service.ParseQuiz(e.Caption, service.SourceManual))
		}
		if len(e.Image) == 0 {
			return withNotice(msgPhotoMissing, m.prompt(ctx, s))
		}
		s.gen++
		s.pending = s.gen
		s.Draft.Source = service.SourceOCR
		reply := m.prompt(ctx, s)
		reply.extract = &extractRequest{gen: s.gen, image: e.Image}
		return reply

	case TextExtracted:
		s.pending = 0
		if e.Err != nil {
			m.logger.Printf("user %d: text extraction failed: %v", s.UserID, e.Err)
			return extractionFailed(msgExtractionFailed)
		}
		if strings.TrimSpace(e.Text) == "" {
			return extractionFailed(msgNoTextFound)
		}
		return m.applyParse(ctx, s, service.ParseQuiz(e.Text, service.SourceOCR))
	}

	return m.prompt(ctx, s)
}

// applyParse решает, куда идти после разбора текста
func (m *Machine) applyParse(ctx context.Context, s *Session, res service.ParseResult) Reply {
	draft := res.Draft
	s.Draft = &draft

	notice := formatWarnings(res.Warnings)
	switch {
	case errors.Is(res.Err, service.ErrInsufficientOptions):
		s.State = EditQuestion
		notice = joinNotice(msgInsufficientOptions, notice)
	case strings.TrimSpace(draft.Question) == "":
		s.State = EditQuestion
		notice = joinNotice(msgNoQuestion, notice)
	case errors.Is(res.Err, service.ErrAmbiguousAnswer):
		s.Draft.CorrectIndex = nil
		s.State = SelectAnswer
		notice = joinNotice(msgAmbiguousAnswer, notice)
	case len(draft.Options) > service.MaxPollOptions:
		s.State = EditOptions
		notice = joinNotice(msgTooManyOptions, notice)
	default:
		s.State = SelectAnswer
	}
	return withNotice(notice, m.prompt(ctx, s))
}

func (m *Machine) handleEditQuestion(ctx context.Context, s *Session, ev Event) Reply {
	switch e := ev.(type) {
	case TextMessage:
		question := strings.Join(strings.Fields(e.Text), " ")
		if question == "" {
			return m.prompt(ctx, s)
		}
		s.Draft.Question = question
		s.State = EditOptions
		return m.prompt(ctx, s)
	case ButtonPress:
		if e.Action.Kind == ActionKeepQuestion && strings.TrimSpace(s.Draft.Question) != "" {
			s.State = EditOptions
			return m.prompt(ctx, s)
		}
	}
	return m.prompt(ctx, s)
}

func (m *Machine) handleEditOptions(ctx context.Context, s *Session, ev Event) Reply {
	switch e := ev.(type) {
	case TextMessage:
		options, correct, warnings := service.ParseOptions(e.Text)
		if len(options) < 2 {
			return withNotice(msgNeedTwoOptions, m.prompt(ctx, s))
		}
		if len(options) > service.MaxPollOptions {
			return withNotice(msgTooManyOptions, m.prompt(ctx, s))
		}
		s.Draft.Options = options
		s.Draft.CorrectIndex = correct
		s.State = SelectAnswer
		return withNotice(formatWarnings(warnings), m.prompt(ctx, s))
	case ButtonPress:
		if e.Action.Kind == ActionKeepOptions && len(s.Draft.Options) >= 2 && len(s.Draft.Options) <= service.MaxPollOptions {
			s.State = SelectAnswer
			return m.prompt(ctx, s)
		}
	}
	return m.prompt(ctx, s)
}

func (m *Machine) handleSelectAnswer(ctx context.Context, s *Session, ev Event) Reply {
	switch e := ev.(type) {
	case ButtonPress:
		switch e.Action.Kind {
		case ActionSelectAnswer:
			if e.Action.Index < len(s.Draft.Options) {
				s.Draft.CorrectIndex = service.IntPtr(e.Action.Index)
				return m.finalize(ctx, s)
			}
		case ActionSave:
			if s.Draft.HasAnswer() {
				return m.finalize(ctx, s)
			}
		case ActionEditQuestion:
			s.State = EditQuestion
			return m.prompt(ctx, s)
		case ActionEditOptions:
			s.State = EditOptions
			return m.prompt(ctx, s)
		}
	case TextMessage:
		if idx, ok := service.ParseAnswerLabel(e.Text, len(s.Draft.Options)); ok {
			s.Draft.CorrectIndex = service.IntPtr(idx)
			return m.finalize(ctx, s)
		}
	}
	return m.prompt(ctx, s)
}

// finalize проверяет черновик и атомарно кладет новый Quiz в хранилище
func (m *Machine) finalize(ctx context.Context, s *Session) Reply {
	now := m.now()
	id := m.newID()
	owner := s.UserID
	createdAt := now

	if s.Editing && s.SelectedQuizID != "" {
		id = s.SelectedQuizID
		existing, err := m.store.Get(ctx, id)
		switch {
		case errors.Is(err, service.ErrNotFound):
			// вопрос удалили, пока его редактировали: не воскрешаем
			m.logger.Printf("user %d: quiz %s deleted while editing", s.UserID, id)
			s.reset()
			return withNotice(msgQuizNotFound, m.mainMenu(s))
		case err != nil:
			m.logger.Printf("user %d: load quiz %s failed: %v", s.UserID, id, err)
			s.reset()
			return withNotice(msgSaveFailed, m.mainMenu(s))
		}
		owner = existing.Owner
		createdAt = existing.CreatedAt
	}

	quiz, err := s.Draft.Finalize(id, owner, now)
	if err != nil {
		m.logger.Printf("user %d: refusing to save draft: %v", s.UserID, err)
		s.reset()
		return withNotice(msgSaveRejected, m.mainMenu(s))
	}
	quiz.CreatedAt = createdAt

	if err := m.store.Put(ctx, quiz); err != nil {
		m.logger.Printf("user %d: failed to save quiz %s: %v", s.UserID, quiz.ID, err)
		s.reset()
		return withNotice(msgSaveFailed, m.mainMenu(s))
	}

	m.logger.Printf("user %d saved quiz %s (%s, %d options)", s.UserID, quiz.ID, quiz.Source, len(quiz.Options))
	s.reset()
	return withNotice(msgSaved+"\n\n"+formatQuiz(quiz.Question, quiz.Options, &quiz.CorrectIndex), m.mainMenu(s))
}

// loadQuiz возвращает вопрос, если пользователь может его видеть
func (m *Machine) loadQuiz(ctx context.Context, s *Session, id string) (service.Quiz, error) {
	quiz, err := m.store.Get(ctx, id)
	if err != nil {
		return service.Quiz{}, err
	}
	if quiz.Owner != s.UserID && !m.gate.IsAdmin(s.UserID) {
		return service.Quiz{}, service.ErrNotFound
	}
	return quiz, nil
}

func (m *Machine) visibleQuizzes(ctx context.Context, s *Session) ([]service.Quiz, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if m.gate.IsAdmin(s.UserID) {
		return all, nil
	}
	var own []service.Quiz
	for _, q := range all {
		if q.Owner == s.UserID {
			own = append(own, q)
		}
	}
	return own, nil
}

func (m *Machine) handleQuizList(ctx context.Context, s *Session, ev Event) Reply {
	press, ok := ev.(ButtonPress)
	if !ok {
		return m.prompt(ctx, s)
	}
	switch press.Action.Kind {
	case ActionSelectQuiz:
		if _, err := m.loadQuiz(ctx, s, press.Action.QuizID); err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		s.SelectedQuizID = press.Action.QuizID
		s.State = QuizAction
		return m.prompt(ctx, s)
	case ActionNewQuiz:
		s.reset()
		return creationMenu()
	}
	return m.prompt(ctx, s)
}

func (m *Machine) handleQuizAction(ctx context.Context, s *Session, ev Event) Reply {
	press, ok := ev.(ButtonPress)
	if !ok {
		return m.prompt(ctx, s)
	}
	action := press.Action

	switch action.Kind {
	case ActionListQuizzes:
		s.SelectedQuizID = ""
		return m.showQuizList(ctx, s, "")

	case ActionStartQuiz:
		quiz, err := m.loadQuiz(ctx, s, action.QuizID)
		if err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		s.SelectedQuizID = quiz.ID
		poll, err := service.BuildPoll(quiz, m.shuffle, nil)
		if err != nil {
			m.logger.Printf("user %d: quiz %s cannot be sent as poll: %v", s.UserID, quiz.ID, err)
			return withNotice(msgPollLimits, m.prompt(ctx, s))
		}
		reply := withNotice(msgPollSent, m.prompt(ctx, s))
		reply.Poll = &poll
		return reply

	case ActionEditQuiz:
		quiz, err := m.loadQuiz(ctx, s, action.QuizID)
		if err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		s.Draft = quiz.Draft()
		s.SelectedQuizID = quiz.ID
		s.Editing = true
		s.State = EditQuestion
		return m.prompt(ctx, s)

	case ActionDeleteQuiz:
		if _, err := m.loadQuiz(ctx, s, action.QuizID); err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		if err := m.store.Delete(ctx, action.QuizID); err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		m.results.Forget(action.QuizID)
		m.logger.Printf("user %d deleted quiz %s", s.UserID, action.QuizID)
		s.SelectedQuizID = ""
		return m.showQuizList(ctx, s, msgDeleted)

	case ActionQuizResults:
		if _, err := m.loadQuiz(ctx, s, action.QuizID); err != nil {
			return m.quizLookupFailed(ctx, s, err)
		}
		s.SelectedQuizID = action.QuizID
		res, ok := m.results.Summary(action.QuizID)
		if !ok {
			return withNotice(msgNoResults, m.prompt(ctx, s))
		}
		return withNotice(formatResults(res), m.prompt(ctx, s))
	}
	return m.prompt(ctx, s)
}

// quizLookupFailed возвращает к списку, если вопрос не найден
func (m *Machine) quizLookupFailed(ctx context.Context, s *Session, err error) Reply {
	s.SelectedQuizID = ""
	if errors.Is(err, service.ErrNotFound) {
		return m.showQuizList(ctx, s, msgQuizNotFound)
	}
	m.logger.Printf("user %d: quiz store error: %v", s.UserID, err)
	s.reset()
	return withNotice(msgUnavailable, m.mainMenu(s))
}

func (m *Machine) handleUsers(ctx context.Context, s *Session, ev Event) Reply {
	switch e := ev.(type) {
	case ButtonPress:
		switch e.Action.Kind {
		case ActionAddUser:
			s.AwaitingUserID = true
			return m.prompt(ctx, s)
		case ActionRemoveUser:
			s.AwaitingUserID = false
			if err := m.gate.Revoke(ctx, e.Action.UserID); err != nil {
				m.logger.Printf("revoke user %d failed: %v", e.Action.UserID, err)
				return m.showUsers(ctx, s, msgUnavailable)
			}
			m.logger.Printf("admin %d revoked user %d", s.UserID, e.Action.UserID)
			return m.showUsers(ctx, s, msgUserRemoved)
		case ActionManageUsers:
			s.AwaitingUserID = false
			return m.prompt(ctx, s)
		}
	case TextMessage:
		if !s.AwaitingUserID {
			break
		}
		id, err := strconv.ParseInt(strings.TrimSpace(e.Text), 10, 64)
		if err != nil || id <= 0 {
			return withNotice(msgBadUserID, m.prompt(ctx, s))
		}
		if err := m.gate.Approve(ctx, id); err != nil {
			m.logger.Printf("approve user %d failed: %v", id, err)
			return withNotice(msgUnavailable, m.prompt(ctx, s))
		}
		m.logger.Printf("admin %d approved user %d", s.UserID, id)
		s.AwaitingUserID = false
		return m.showUsers(ctx, s, msgUserAdded)
	}
	return m.prompt(ctx, s)
}
