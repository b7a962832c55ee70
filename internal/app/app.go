package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/koztkozt/bottlecangowhere/assets"
	"github.com/koztkozt/bottlecangowhere/internal/config"
	"github.com/koztkozt/bottlecangowhere/internal/geocode"
	"github.com/koztkozt/bottlecangowhere/internal/metrics"
	"github.com/koztkozt/bottlecangowhere/internal/rvm"
	"github.com/koztkozt/bottlecangowhere/internal/scheduler"
	"github.com/koztkozt/bottlecangowhere/internal/store"
	"github.com/koztkozt/bottlecangowhere/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	dataset *rvm.Dataset
	router  *telegram.Router
	started time.Time
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	a := &App{cfg: cfg, log: log, bot: bot, started: time.Now()}

	// The server only starts listening in Run, after the dataset and the
	// repo behind /api/status exist.
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/api/status", a.handleStatus)
	a.httpSrv = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting bottlecangowhere",
		zap.String("data", a.cfg.DataPath),
		zap.String("http", a.cfg.HTTPAddr),
	)

	loc, err := time.LoadLocation(a.cfg.DefaultTZ)
	if err != nil {
		a.log.Error("load timezone failed", zap.String("tz", a.cfg.DefaultTZ), zap.Error(err))
		return err
	}

	if err := a.seedDataset(); err != nil {
		a.log.Error("seed dataset failed", zap.Error(err))
		return err
	}

	geocoder := geocode.New(a.log)

	dataset, err := rvm.Open(a.cfg.DataPath, geocoder)
	if err != nil {
		a.log.Error("load dataset failed", zap.Error(err))
		return err
	}
	a.dataset = dataset
	a.log.Info("dataset ready", zap.Int("machines", dataset.Len()))

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	a.router = telegram.NewRouter(a.bot, a.log, a.repo, a.dataset, geocoder)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(a.repo, a.log, a.router, loc, a.cfg.SchedInterval)
	go sched.Run(ctx)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			return a.shutdown()

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// seedDataset writes the bundled dataset to DataPath on first run so the
// bot has machines to serve before anyone supplies real data.
func (a *App) seedDataset() error {
	if _, err := os.Stat(a.cfg.DataPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.DataPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(a.cfg.DataPath, assets.SeedCSV(), 0o644); err != nil {
		return err
	}
	a.log.Info("seeded machine dataset", zap.String("path", a.cfg.DataPath))
	return nil
}

// shutdown stops the HTTP server and flushes state. A dataset that cannot
// be persisted is a real failure: status reports would be lost, so the
// error propagates to the exit code.
func (a *App) shutdown() error {
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	persistErr := a.dataset.Persist()
	if persistErr != nil {
		a.log.Error("persist dataset failed", zap.Error(persistErr))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
	return persistErr
}

func (a *App) handleStatus(w http.ResponseWriter, req *http.Request) {
	reminders, err := a.repo.CountReminders(req.Context())
	if err != nil {
		a.log.Error("count reminders failed", zap.Error(err))
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"uptime_s":  int(time.Since(a.started).Seconds()),
		"machines":  a.dataset.Len(),
		"reminders": reminders,
	})
}
