package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/koztkozt/bottlecangowhere/internal/metrics"
	"github.com/koztkozt/bottlecangowhere/internal/rvm"
	"github.com/koztkozt/bottlecangowhere/internal/session"
	"github.com/koztkozt/bottlecangowhere/internal/store"
)

// api is the slice of the Telegram client the router needs. *tgbotapi.BotAPI
// satisfies it; tests substitute a recording fake.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router wires Telegram updates to handlers and holds per-chat conversation
// state in memory.
type Router struct {
	bot      api
	log      *zap.Logger
	repo     store.Repo
	dataset  *rvm.Dataset
	geocoder rvm.Geocoder
	sessions *session.Manager
	limiter  *rate.Limiter
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, dataset *rvm.Dataset, geocoder rvm.Geocoder) *Router {
	return newRouter(bot, log, repo, dataset, geocoder)
}

func newRouter(bot api, log *zap.Logger, repo store.Repo, dataset *rvm.Dataset, geocoder rvm.Geocoder) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		repo:     repo,
		dataset:  dataset,
		geocoder: geocoder,
		sessions: session.NewManager(),
		// Telegram allows ~30 messages/second across all chats.
		limiter: rate.NewLimiter(rate.Limit(25), 5),
	}
}

// HandleUpdate routes a single update to the appropriate handler. A panic in
// a handler is contained here: the chat gets a generic failure message and
// drops back to idle, the loop keeps running.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	chatID := updateChatID(upd)
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic",
				zap.Any("panic", rec),
				zap.Int64("chatID", chatID),
			)
			if chatID != 0 {
				r.sessions.Reset(chatID)
				r.sendText(chatID, failureText)
			}
		}
	}()

	// Text and location messages
	if upd.Message != nil {
		msg := upd.Message

		if msg.Location != nil {
			metrics.UpdatesTotal.WithLabelValues("location").Inc()
			r.handleLocation(ctx, chatID, msg.Location.Latitude, msg.Location.Longitude)
			return
		}
		metrics.UpdatesTotal.WithLabelValues("message").Inc()

		text := strings.TrimSpace(msg.Text)
		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/find"):
			r.handleFind(ctx, chatID)
		case strings.HasPrefix(text, "/report"):
			r.handleReport(ctx, chatID)
		case strings.HasPrefix(text, "/set"):
			r.handleSetReminder(ctx, chatID)
		case strings.HasPrefix(text, "/about"):
			r.handleAbout(ctx, chatID)
		case strings.HasPrefix(text, "/cancel"):
			r.handleCancel(ctx, chatID)
		case strings.HasPrefix(text, "/"):
			// Any command interrupts whatever flow was running.
			r.sessions.Reset(chatID)
			r.sendText(chatID, unknownCommandText)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()

		data := cb.Data
		switch {
		case strings.HasPrefix(data, "rvm:"):
			r.handleMachineCallback(ctx, chatID, strings.TrimPrefix(data, "rvm:"), cb.ID)
		case strings.HasPrefix(data, "status:"):
			r.handleStatusCallback(ctx, chatID, strings.TrimPrefix(data, "status:"), cb.ID)
		case strings.HasPrefix(data, "freq:"):
			r.handleFrequencyCallback(ctx, chatID, strings.TrimPrefix(data, "freq:"), cb.ID)
		default:
			// Unknown callback data: acknowledge and ignore.
			_ = r.answerCallback(cb.ID, "")
		}
		return
	}
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_ = r.limiter.Wait(context.Background())
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		metrics.SendFailuresTotal.Inc()
	}
	return err
}
