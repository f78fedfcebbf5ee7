package session

import "github.com/PoluyanbIch/QuizAuthorBot/internal/service"

// Event - входящее событие от транспорта. Набор реализаций закрыт.
type Event interface {
	isEvent()
}

// Command - команда вида /start; Name без слеша
type Command struct {
	Name string
	Args string
}

type TextMessage struct {
	Text string
}

// PhotoMessage содержит уже скачанную картинку
type PhotoMessage struct {
	Image   []byte
	Caption string
}

type ButtonPress struct {
	Action Action
}

// TextExtracted - результат распознавания, который Manager возвращает в сессию.
// Gen должен совпасть с ожидаемым поколением, иначе результат отбрасывается.
type TextExtracted struct {
	Gen  uint64
	Text string
	Err  error
}

func (Command) isEvent()       {}
func (TextMessage) isEvent()   {}
func (PhotoMessage) isEvent()  {}
func (ButtonPress) isEvent()   {}
func (TextExtracted) isEvent() {}

type Button struct {
	Label  string
	Action Action
}

// Reply - ответ пользователю: сначала опрос (если есть), затем текст с меню
type Reply struct {
	Text string
	Menu [][]Button
	Poll *service.Poll

	extract *extractRequest
}

type extractRequest struct {
	gen   uint64
	image []byte
}

// Empty - нечего отправлять
func (r Reply) Empty() bool {
	return r.Text == "" && r.Poll == nil && len(r.Menu) == 0
}
