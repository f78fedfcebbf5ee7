package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/PoluyanbIch/QuizAuthorBot/internal/service"
)

const (
	msgPasscode         = "🔒 Бот доступен только по приглашению. Введите пароль:"
	msgWrongPasscode    = "❌ Неверный пароль."
	msgTooManyAttempts  = "⏳ Слишком много попыток. Попробуйте позже."
	msgAccessGranted    = "✅ Доступ открыт!"
	msgUnavailable      = "⚠️ Хранилище временно недоступно, попробуйте еще раз."
	msgMainMenu         = "📋 Главное меню"
	msgNewQuiz          = "📝 Как создать вопрос?"
	msgCancelled        = "❌ Отменено."
	msgUnknownCommand   = "Неизвестная команда"
	msgNoPermission     = "⛔ Недостаточно прав."
	msgScanPrompt       = "📸 Пришлите фото вопроса с вариантами ответа."
	msgScanning         = "⏳ Распознаю текст..."
	msgPhotoMissing     = "⚠️ Не удалось получить фото."
	msgExtractionFailed = "⚠️ Не удалось распознать фото."
	msgNoTextFound      = "⚠️ На фото не найден текст."
	msgManualPrompt     = "✍️ Пришлите вопрос текстом (или фото с подписью):\n\n" +
		"Сколько будет 2+2?\nA) 3\nB) 4 *\nC) 5\n\n* отмечает правильный ответ, можно не ставить."
	msgEditQuestion        = "✏️ Пришлите текст вопроса."
	msgEditOptions         = "✏️ Пришлите варианты ответа, по одному в строке (A) ..., B) ...). От 2 до 10 вариантов."
	msgSelectAnswer        = "👇 Выберите правильный ответ:"
	msgInsufficientOptions = "⚠️ Нашлось меньше двух вариантов ответа."
	msgNoQuestion          = "⚠️ Не удалось найти текст вопроса."
	msgAmbiguousAnswer     = "⚠️ Отмечено несколько правильных ответов, выберите один."
	msgNeedTwoOptions      = "⚠️ Нужно хотя бы два варианта."
	msgTooManyOptions      = "⚠️ Telegram позволяет не больше 10 вариантов."
	msgSaved               = "✅ Вопрос сохранен!"
	msgSaveRejected        = "❌ Черновик не прошел проверку и не был сохранен."
	msgSaveFailed          = "❌ Не удалось сохранить вопрос."
	msgNoQuizzes           = "📭 У вас пока нет вопросов."
	msgQuizList            = "📚 Ваши вопросы:"
	msgQuizNotFound        = "⚠️ Вопрос не найден."
	msgDeleted             = "🗑 Вопрос удален."
	msgPollSent            = "📊 Опрос отправлен."
	msgPollLimits          = "⚠️ Вопрос не помещается в ограничения опроса Telegram. Отредактируйте его."
	msgNoResults           = "📭 Ответов пока нет."
	msgUsers               = "👥 Одобренные пользователи:"
	msgNoUsers             = "👥 Одобренных пользователей пока нет."
	msgAskUserID           = "🆔 Пришлите числовой ID пользователя."
	msgBadUserID           = "⚠️ ID должен быть положительным числом."
	msgUserAdded           = "✅ Пользователь добавлен."
	msgUserRemoved         = "🗑 Пользователь удален."
	msgHelp                = "ℹ️ /newquiz - новый вопрос\n/quizzes - мои вопросы\n/cancel - отменить\n/start - главное меню"
)

// максимальная длина подписи кнопки с вопросом
const quizLabelRunes = 30

func btn(label string, kind ActionKind) Button {
	return Button{Label: label, Action: Action{Kind: kind}}
}

func row(buttons ...Button) []Button {
	return buttons
}

func cancelRow() []Button {
	return row(btn("❌ Отмена", ActionCancel))
}

func (m *Machine) mainMenu(s *Session) Reply {
	menu := [][]Button{
		row(btn("📝 Новый вопрос", ActionNewQuiz)),
		row(btn("📚 Мои вопросы", ActionListQuizzes)),
	}
	if m.gate.IsAdmin(s.UserID) {
		menu = append(menu, row(btn("👥 Пользователи", ActionManageUsers)))
	}
	return Reply{Text: msgMainMenu, Menu: menu}
}

func creationMenu() Reply {
	return Reply{
		Text: msgNewQuiz,
		Menu: [][]Button{
			row(btn("📸 Распознать фото", ActionOCRScan)),
			row(btn("✍️ Ввести вручную", ActionManualInput)),
			row(btn("⬅️ Назад", ActionMainMenu)),
		},
	}
}

func extractionFailed(text string) Reply {
	return Reply{
		Text: text,
		Menu: [][]Button{
			row(btn("🔁 Другое фото", ActionOCRScan), btn("✍️ Вручную", ActionManualInput)),
			cancelRow(),
		},
	}
}

// prompt повторяет подсказку текущего состояния
func (m *Machine) prompt(ctx context.Context, s *Session) Reply {
	switch s.State {
	case OCRScan:
		if s.Pending() {
			return Reply{Text: msgScanning, Menu: [][]Button{cancelRow()}}
		}
		return Reply{Text: msgScanPrompt, Menu: [][]Button{row(btn("✍️ Ввести вручную", ActionManualInput)), cancelRow()}}

	case ManualInput:
		if s.Pending() {
			return Reply{Text: msgScanning, Menu: [][]Button{cancelRow()}}
		}
		return Reply{Text: msgManualPrompt, Menu: [][]Button{row(btn("📸 Распознать фото", ActionOCRScan)), cancelRow()}}

	case EditQuestion:
		menu := [][]Button{}
		text := msgEditQuestion
		if strings.TrimSpace(s.Draft.Question) != "" {
			text = "❓ " + s.Draft.Question + "\n\n" + text
			menu = append(menu, row(btn("✅ Оставить", ActionKeepQuestion)))
		}
		return Reply{Text: text, Menu: append(menu, cancelRow())}

	case EditOptions:
		menu := [][]Button{}
		text := msgEditOptions
		if len(s.Draft.Options) > 0 {
			text = service.FormatOptions(s.Draft.Options) + "\n\n" + text
			if len(s.Draft.Options) >= 2 && len(s.Draft.Options) <= service.MaxPollOptions {
				menu = append(menu, row(btn("✅ Оставить", ActionKeepOptions)))
			}
		}
		return Reply{Text: text, Menu: append(menu, cancelRow())}

	case SelectAnswer:
		return m.selectAnswerPrompt(s)

	case QuizList:
		return m.showQuizList(ctx, s, "")

	case QuizAction:
		return m.showQuizAction(ctx, s)

	case UserManagement:
		if s.AwaitingUserID {
			return Reply{Text: msgAskUserID, Menu: [][]Button{row(btn("⬅️ Назад", ActionManageUsers))}}
		}
		return m.showUsers(ctx, s, "")
	}
	return m.mainMenu(s)
}

func (m *Machine) selectAnswerPrompt(s *Session) Reply {
	d := s.Draft
	answers := lo.Map(d.Options, func(_ string, i int) []Button {
		label := service.OptionLabel(i)
		if d.CorrectIndex != nil && *d.CorrectIndex == i {
			label += " ✅"
		}
		return row(Button{Label: label, Action: Action{Kind: ActionSelectAnswer, Index: i}})
	})

	var tools []Button
	if d.HasAnswer() {
		tools = append(tools, btn("💾 Сохранить", ActionSave))
	}
	tools = append(tools, btn("✏️ Вопрос", ActionEditQuestion), btn("✏️ Варианты", ActionEditOptions))

	menu := append(answers, tools, cancelRow())
	return Reply{
		Text: formatQuiz(d.Question, d.Options, d.CorrectIndex) + "\n\n" + msgSelectAnswer,
		Menu: menu,
	}
}

func (m *Machine) showQuizList(ctx context.Context, s *Session, notice string) Reply {
	quizzes, err := m.visibleQuizzes(ctx, s)
	if err != nil {
		m.logger.Printf("user %d: list quizzes failed: %v", s.UserID, err)
		s.reset()
		return withNotice(msgUnavailable, m.mainMenu(s))
	}
	if len(quizzes) == 0 {
		s.reset()
		return withNotice(joinNotice(notice, msgNoQuizzes), m.mainMenu(s))
	}

	s.State = QuizList
	s.SelectedQuizID = ""
	menu := lo.Map(quizzes, func(q service.Quiz, _ int) []Button {
		return row(Button{
			Label:  truncate(q.Question, quizLabelRunes),
			Action: Action{Kind: ActionSelectQuiz, QuizID: q.ID},
		})
	})
	menu = append(menu, row(btn("📝 Новый вопрос", ActionNewQuiz), btn("⬅️ Меню", ActionMainMenu)))
	return withNotice(notice, Reply{Text: msgQuizList, Menu: menu})
}

func (m *Machine) showQuizAction(ctx context.Context, s *Session) Reply {
	quiz, err := m.loadQuiz(ctx, s, s.SelectedQuizID)
	if err != nil {
		return m.quizLookupFailed(ctx, s, err)
	}
	id := quiz.ID
	return Reply{
		Text: formatQuiz(quiz.Question, quiz.Options, &quiz.CorrectIndex),
		Menu: [][]Button{
			row(
				Button{Label: "▶️ Запустить", Action: Action{Kind: ActionStartQuiz, QuizID: id}},
				Button{Label: "📊 Результаты", Action: Action{Kind: ActionQuizResults, QuizID: id}},
			),
			row(
				Button{Label: "✏️ Изменить", Action: Action{Kind: ActionEditQuiz, QuizID: id}},
				Button{Label: "🗑 Удалить", Action: Action{Kind: ActionDeleteQuiz, QuizID: id}},
			),
			row(btn("⬅️ К списку", ActionListQuizzes), btn("🏠 Меню", ActionMainMenu)),
		},
	}
}

func (m *Machine) showUsers(ctx context.Context, s *Session, notice string) Reply {
	users, err := m.gate.Approved(ctx)
	if err != nil {
		m.logger.Printf("list approved users failed: %v", err)
		s.reset()
		return withNotice(msgUnavailable, m.mainMenu(s))
	}

	text := msgNoUsers
	if len(users) > 0 {
		text = msgUsers
	}
	menu := lo.Map(users, func(id int64, _ int) []Button {
		return row(Button{
			Label:  fmt.Sprintf("🗑 %d", id),
			Action: Action{Kind: ActionRemoveUser, UserID: id},
		})
	})
	menu = append(menu, row(btn("➕ Добавить", ActionAddUser), btn("⬅️ Меню", ActionMainMenu)))
	return withNotice(notice, Reply{Text: text, Menu: menu})
}

func formatQuiz(question string, options []string, correct *int) string {
	var sb strings.Builder
	sb.WriteString("❓ ")
	sb.WriteString(question)
	for i, opt := range options {
		sb.WriteString("\n")
		sb.WriteString(service.OptionLabel(i))
		sb.WriteString(") ")
		sb.WriteString(opt)
		if correct != nil && *correct == i {
			sb.WriteString(" ✅")
		}
	}
	return sb.String()
}

func formatResults(res service.QuizResults) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Опросов: %d, ответов: %d, верных: %d (%d%%)",
		res.Polls, res.Responses, res.Correct, res.Percentage())
	for i, n := range res.OptionCounts {
		fmt.Fprintf(&sb, "\n%s) %d", service.OptionLabel(i), n)
	}
	return sb.String()
}

func formatWarnings(warnings []service.Warning) string {
	lines := lo.FilterMap(warnings, func(w service.Warning, _ int) (string, bool) {
		text := warningText(w)
		return "⚠️ " + text, text != ""
	})
	return strings.Join(lines, "\n")
}

func warningText(w service.Warning) string {
	switch w.Kind {
	case service.WarnIgnoredLine:
		return fmt.Sprintf("Строка пропущена: %q", w.Detail)
	case service.WarnNoQuestionLine:
		return "Вопрос не найден, вопросом стала первая строка."
	case service.WarnMarkerOnQuestion:
		return "Отметка правильного ответа у вопроса не учтена."
	case service.WarnEmptyOption:
		return fmt.Sprintf("Вариант %s пустой и пропущен.", w.Detail)
	case service.WarnUnknownAnswer:
		return fmt.Sprintf("Ответ %s не совпадает ни с одним вариантом.", w.Detail)
	case service.WarnDuplicateOption:
		return fmt.Sprintf("Вариант %q повторяется.", w.Detail)
	case service.WarnMultipleMarkers:
		return "Отмечено несколько правильных ответов, отметки не учтены."
	}
	return ""
}

func withNotice(notice string, r Reply) Reply {
	if notice == "" {
		return r
	}
	if r.Text == "" {
		r.Text = notice
		return r
	}
	r.Text = notice + "\n\n" + r.Text
	return r
}

func joinNotice(parts ...string) string {
	return strings.Join(lo.Compact(parts), "\n")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
