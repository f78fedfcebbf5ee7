package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger - хранилище, доступность которого проверяет /readyz (*sql.DB подходит)
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Heartbeat периодически пишет в лог, что бот жив, и помнит время последнего удара
type Heartbeat struct {
	logger  *log.Logger
	started time.Time
	last    atomic.Int64
}

func NewHeartbeat(logger *log.Logger) *Heartbeat {
	if logger == nil {
		logger = log.Default()
	}
	hb := &Heartbeat{logger: logger, started: time.Now()}
	hb.last.Store(hb.started.UnixMilli())
	return hb
}

// Run блокируется до отмены ctx
func (hb *Heartbeat) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			hb.beat(now)
		}
	}
}

func (hb *Heartbeat) beat(now time.Time) {
	hb.last.Store(now.UnixMilli())
	hb.logger.Printf("💓 bot alive, uptime %s", now.Sub(hb.started).Round(time.Second))
}

func (hb *Heartbeat) LastBeat() time.Time {
	return time.UnixMilli(hb.last.Load())
}

type status struct {
	Status   string    `json:"status"`
	Uptime   string    `json:"uptime"`
	LastBeat time.Time `json:"last_beat"`
	Error    string    `json:"error,omitempty"`
}

// Router отдает /healthz (процесс жив) и /readyz (хранилище доступно)
func Router(hb *Heartbeat, db Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, hb.status("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				st := hb.status("unavailable")
				st.Error = err.Error()
				respondJSON(w, http.StatusServiceUnavailable, st)
				return
			}
		}
		respondJSON(w, http.StatusOK, hb.status("ready"))
	})
	return r
}

func (hb *Heartbeat) status(s string) status {
	return status{
		Status:   s,
		Uptime:   time.Since(hb.started).Round(time.Second).String(),
		LastBeat: hb.LastBeat().UTC(),
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve запускает HTTP-сервер и останавливает его при отмене ctx
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("health endpoint listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
