package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/PoluyanbIch/QuizAuthorBot/internal/service"
	"github.com/PoluyanbIch/QuizAuthorBot/internal/session"
)

const (
	maxPhotoBytes   = 20 << 20
	maxMessageRunes = 4096
	downloadTimeout = 30 * time.Second
)

// Dispatcher принимает события пользователя (session.Manager)
type Dispatcher interface {
	Dispatch(ctx context.Context, userID int64, ev session.Event)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	results service.ResultsService
	logger  *log.Logger
	http    *http.Client
}

func NewBot(token string, debug bool, results service.ResultsService, logger *log.Logger) (*Bot, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := tgbotapi.SetLogger(logger); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug

	return &Bot{
		api:     api,
		results: results,
		logger:  logger,
		http:    &http.Client{Timeout: downloadTimeout},
	}, nil
}

// RegisterCommands показывает команды в меню клиента Telegram
func (b *Bot) RegisterCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Главное меню"},
		tgbotapi.BotCommand{Command: "newquiz", Description: "Новый вопрос"},
		tgbotapi.BotCommand{Command: "quizzes", Description: "Мои вопросы"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Отменить"},
		tgbotapi.BotCommand{Command: "help", Description: "Помощь"},
	)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// Start читает обновления, пока не отменен ctx. Каждое обновление обрабатывается
// в своей горутине: порядок событий одного пользователя обеспечивает Dispatcher.
func (b *Bot) Start(ctx context.Context, dispatcher Dispatcher) error {
	b.logger.Printf("Authorised on account: %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, dispatcher, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, dispatcher Dispatcher, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, dispatcher, update.CallbackQuery)
	case update.PollAnswer != nil:
		answer := update.PollAnswer
		if b.results.RecordAnswer(answer.PollID, answer.User.ID, answer.OptionIDs) {
			b.logger.Printf("poll %s: answer from user %d recorded", answer.PollID, answer.User.ID)
		}
	case update.Message != nil:
		b.handleMessage(ctx, dispatcher, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, dispatcher Dispatcher, msg *tgbotapi.Message) {
	// бот работает только в личных чатах: там chat ID совпадает с user ID
	if msg.From == nil || !msg.Chat.IsPrivate() {
		return
	}

	ev, ok := messageEvent(msg)
	if !ok {
		return
	}

	if photo, isPhoto := ev.(session.PhotoMessage); isPhoto {
		image, err := b.downloadPhoto(ctx, msg.Photo)
		if err != nil {
			b.logger.Printf("user %d: photo download failed: %v", msg.From.ID, err)
		}
		photo.Image = image
		ev = photo
	}

	dispatcher.Dispatch(ctx, msg.From.ID, ev)
}

// messageEvent переводит сообщение в событие сессии. Картинку фото нужно скачать отдельно.
func messageEvent(msg *tgbotapi.Message) (session.Event, bool) {
	switch {
	case msg.IsCommand():
		return session.Command{Name: msg.Command(), Args: msg.CommandArguments()}, true
	case len(msg.Photo) > 0:
		return session.PhotoMessage{Caption: msg.Caption}, true
	case msg.Text != "":
		return session.TextMessage{Text: msg.Text}, true
	}
	return nil, false
}

func (b *Bot) handleCallback(ctx context.Context, dispatcher Dispatcher, callback *tgbotapi.CallbackQuery) {
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.api.Request(callbackConfig); err != nil {
		b.logger.Printf("Error Answering Callback: %v", err)
	}

	action, err := session.DecodeAction(callback.Data)
	if err != nil {
		b.logger.Printf("user %d: %v", callback.From.ID, err)
		return
	}
	dispatcher.Dispatch(ctx, callback.From.ID, session.ButtonPress{Action: action})
}

// downloadPhoto скачивает самую большую версию фото
func (b *Bot) downloadPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize) ([]byte, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no photo sizes")
	}
	largest := lo.MaxBy(sizes, func(x, y tgbotapi.PhotoSize) bool {
		return x.Width*x.Height > y.Width*y.Height
	})

	url, err := b.api.GetFileDirectURL(largest.FileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download photo: status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

// Send реализует session.Sender: сначала опрос, затем текст с меню
func (b *Bot) Send(_ context.Context, userID int64, reply session.Reply) {
	if reply.Poll != nil {
		b.sendPoll(userID, *reply.Poll)
	}
	if reply.Text == "" {
		return
	}

	msg := tgbotapi.NewMessage(userID, truncateRunes(reply.Text, maxMessageRunes))
	if kb := keyboard(reply.Menu); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Printf("Error sending msg to %d: %v", userID, err)
	}
}

func (b *Bot) sendPoll(userID int64, poll service.Poll) {
	cfg := pollConfig(userID, poll)
	sent, err := b.api.Send(cfg)
	if err != nil {
		b.logger.Printf("Error sending poll for quiz %s: %v", poll.QuizID, err)
		return
	}
	if sent.Poll != nil {
		b.results.TrackPoll(sent.Poll.ID, poll)
	}
}

func pollConfig(chatID int64, poll service.Poll) tgbotapi.SendPollConfig {
	cfg := tgbotapi.NewPoll(chatID, poll.Question, poll.Options...)
	cfg.Type = "quiz"
	cfg.CorrectOptionID = int64(poll.CorrectIndex)
	// иначе Telegram не присылает poll_answer
	cfg.IsAnonymous = false
	return cfg
}

func keyboard(menu [][]session.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(menu) == 0 {
		return nil
	}
	rows := lo.Map(menu, func(row []session.Button, _ int) []tgbotapi.InlineKeyboardButton {
		return lo.Map(row, func(btn session.Button, _ int) tgbotapi.InlineKeyboardButton {
			return tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Action.Encode())
		})
	})
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
