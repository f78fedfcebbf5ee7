package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/PoluyanbIch/QuizAuthorBot/internal/service"
)

const defaultExtractTimeout = 90 * time.Second

// Sender доставляет ответы пользователю (реализуется транспортом)
type Sender interface {
	Send(ctx context.Context, userID int64, reply Reply)
}

type entry struct {
	mu      sync.Mutex
	session *Session
	// отмена текущего распознавания, nil если его нет
	cancelExtract context.CancelFunc
}

// Manager хранит сессии и сериализует события каждого пользователя.
// Ответ отправляется под блокировкой пользователя, поэтому ответы уходят в порядке событий.
// Распознавание идет вне блокировки, поэтому /cancel обрабатывается сразу.
type Manager struct {
	machine   *Machine
	extractor service.TextExtractor
	sender    Sender
	logger    *log.Logger
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[int64]*entry
	wg       sync.WaitGroup
}

func NewManager(machine *Machine, extractor service.TextExtractor, sender Sender, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	if extractor == nil {
		extractor = service.NoopExtractor{}
	}
	return &Manager{
		machine:   machine,
		extractor: extractor,
		sender:    sender,
		logger:    logger,
		timeout:   defaultExtractTimeout,
		sessions:  make(map[int64]*entry),
	}
}

// WithExtractTimeout ограничивает время одного распознавания
func (mg *Manager) WithExtractTimeout(d time.Duration) *Manager {
	if d > 0 {
		mg.timeout = d
	}
	return mg
}

func (mg *Manager) entry(userID int64) *entry {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	e, ok := mg.sessions[userID]
	if !ok {
		e = &entry{session: NewSession(userID)}
		mg.sessions[userID] = e
	}
	return e
}

// Dispatch применяет событие к сессии пользователя и отправляет ответ
func (mg *Manager) Dispatch(ctx context.Context, userID int64, ev Event) {
	e := mg.entry(userID)

	e.mu.Lock()
	reply := mg.machine.Handle(ctx, e.session, ev)

	var extractCtx context.Context
	if reply.extract != nil || !e.session.Pending() {
		if e.cancelExtract != nil {
			e.cancelExtract()
			e.cancelExtract = nil
		}
	}
	if reply.extract != nil {
		// не наследуем отмену от ctx обновления: он закончится раньше распознавания
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), mg.timeout)
		e.cancelExtract = cancel
	}
	if !reply.Empty() && mg.sender != nil {
		mg.sender.Send(ctx, userID, reply)
	}
	e.mu.Unlock()

	if req := reply.extract; req != nil {
		mg.wg.Add(1)
		go mg.extract(extractCtx, userID, req)
	}
}

func (mg *Manager) extract(ctx context.Context, userID int64, req *extractRequest) {
	defer mg.wg.Done()

	text, err := mg.extractor.ExtractText(ctx, req.image)
	if ctx.Err() == context.Canceled {
		// пользователь отменил или прислал новое фото
		mg.logger.Printf("user %d: extraction gen %d cancelled", userID, req.gen)
		return
	}
	mg.Dispatch(context.WithoutCancel(ctx), userID, TextExtracted{Gen: req.gen, Text: text, Err: err})
}

// Wait дожидается завершения всех запущенных распознаваний
func (mg *Manager) Wait() {
	mg.wg.Wait()
}

// Snapshot возвращает копию сессии пользователя
func (mg *Manager) Snapshot(userID int64) Session {
	e := mg.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	out := *e.session
	if out.Draft != nil {
		out.Draft = out.Draft.Clone()
	}
	return out
}
