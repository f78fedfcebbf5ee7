package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 10 * time.Minute
)

// AccessGate решает, кто может пользоваться ботом.
// Админ одобрен всегда, остальные - после ввода пароля.
type AccessGate struct {
	admin    int64
	passcode string
	store    ApprovalStore

	maxFailures int
	lockout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	failures map[int64]*failureRecord
}

type failureRecord struct {
	count       int
	first       time.Time
	lockedUntil time.Time
}

// NewAccessGate. passcode может быть как открытым текстом, так и bcrypt-хешем ($2a$...).
func NewAccessGate(admin int64, passcode string, store ApprovalStore) *AccessGate {
	return &AccessGate{
		admin:       admin,
		passcode:    passcode,
		store:       store,
		maxFailures: defaultMaxFailures,
		lockout:     defaultLockout,
		now:         time.Now,
		failures:    make(map[int64]*failureRecord),
	}
}

// WithThrottle меняет лимит неудачных попыток (0 - без ограничения)
func (g *AccessGate) WithThrottle(maxFailures int, lockout time.Duration) *AccessGate {
	g.maxFailures = maxFailures
	g.lockout = lockout
	return g
}

func (g *AccessGate) IsAdmin(userID int64) bool {
	return userID == g.admin
}

func (g *AccessGate) IsApproved(ctx context.Context, userID int64) (bool, error) {
	if g.IsAdmin(userID) {
		return true, nil
	}
	return g.store.Has(ctx, userID)
}

// CheckPasscode одобряет пользователя при верном пароле.
// Ответ не зависит от того, известен ли пользователь.
func (g *AccessGate) CheckPasscode(ctx context.Context, userID int64, passcode string) error {
	if g.locked(userID) {
		return ErrTooManyAttempts
	}
	if !g.matches(strings.TrimSpace(passcode)) {
		g.recordFailure(userID)
		return ErrAccessDenied
	}

	g.mu.Lock()
	delete(g.failures, userID)
	g.mu.Unlock()

	if err := g.store.Add(ctx, userID); err != nil {
		return fmt.Errorf("approve user %d: %w", userID, err)
	}
	return nil
}

func (g *AccessGate) Approve(ctx context.Context, userID int64) error {
	return g.store.Add(ctx, userID)
}

func (g *AccessGate) Revoke(ctx context.Context, userID int64) error {
	return g.store.Remove(ctx, userID)
}

func (g *AccessGate) Approved(ctx context.Context) ([]int64, error) {
	return g.store.List(ctx)
}

func (g *AccessGate) matches(passcode string) bool {
	if strings.HasPrefix(g.passcode, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(g.passcode), []byte(passcode)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.passcode), []byte(passcode)) == 1
}

func (g *AccessGate) locked(userID int64) bool {
	if g.maxFailures <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.failures[userID]
	return ok && g.now().Before(rec.lockedUntil)
}

func (g *AccessGate) recordFailure(userID int64) {
	if g.maxFailures <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	rec, ok := g.failures[userID]
	if !ok || now.Sub(rec.first) > g.lockout {
		rec = &failureRecord{first: now}
		g.failures[userID] = rec
	}
	rec.count++
	if rec.count >= g.maxFailures {
		rec.lockedUntil = now.Add(g.lockout)
		rec.count = 0
		rec.first = now
	}
}
