package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/koztkozt/bottlecangowhere/internal/domain"
	"github.com/koztkozt/bottlecangowhere/internal/geo"
	"github.com/koztkozt/bottlecangowhere/internal/geocode"
	"github.com/koztkozt/bottlecangowhere/internal/metrics"
	"github.com/koztkozt/bottlecangowhere/internal/rvm"
	"github.com/koztkozt/bottlecangowhere/internal/session"
	"github.com/koztkozt/bottlecangowhere/internal/store"
)

const (
	nearestCount     = 3 // machines listed for a find or report
	alternativeCount = 2 // working alternatives after a NotWorking report
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	r.sendMsg(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMsg(msg tgbotapi.MessageConfig) {
	_ = r.limiter.Wait(context.Background())
	if _, err := r.bot.Send(msg); err != nil {
		metrics.SendFailuresTotal.Inc()
		r.log.Error("send failed", zap.Error(err), zap.Int64("chatID", msg.ChatID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	r.sessions.Reset(chatID)
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = menuKeyboard()
	r.sendMsg(msg)
}

func (r *Router) handleAbout(ctx context.Context, chatID int64) {
	r.sessions.Reset(chatID)
	msg := tgbotapi.NewMessage(chatID, aboutText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	r.sendMsg(msg)
}

func (r *Router) handleCancel(ctx context.Context, chatID int64) {
	s := r.sessions.Get(chatID)
	r.sessions.Reset(chatID)
	if s.Flow == session.FlowNone {
		r.sendText(chatID, nothingToCancelText)
		return
	}
	r.sendText(chatID, cancelledText)
}

// --- Find flow ---

func (r *Router) handleFind(ctx context.Context, chatID int64) {
	metrics.FlowsStartedTotal.WithLabelValues(session.FlowFind.String()).Inc()
	r.sessions.Set(chatID, session.Session{Flow: session.FlowFind, Await: session.AwaitLocation})

	msg := tgbotapi.NewMessage(chatID, findPromptText)
	msg.ReplyMarkup = locationKeyboard()
	r.sendMsg(msg)
}

func (r *Router) handleLocation(ctx context.Context, chatID int64, lat, lon float64) {
	origin := geo.Coordinate{Lat: lat, Lon: lon}
	s := r.sessions.Get(chatID)
	switch {
	case s.Flow == session.FlowFind && s.Await == session.AwaitLocation:
		r.findFrom(chatID, origin)
	case s.Flow == session.FlowReport && s.Await == session.AwaitLocation:
		r.reportFrom(chatID, origin)
	default:
		r.sendText(chatID, locationHintText)
	}
}

func (r *Router) findFrom(chatID int64, origin geo.Coordinate) {
	metrics.NearestQueriesTotal.Inc()
	r.sendMachines(chatID, r.dataset.NearestK(origin, nearestCount))
}

func (r *Router) findByQuery(ctx context.Context, chatID int64, query string) {
	metrics.NearestQueriesTotal.Inc()
	neighbors, err := r.dataset.FindByQuery(ctx, query, nearestCount)
	if err != nil {
		r.replyGeocodeError(chatID, err)
		return
	}
	r.sendMachines(chatID, neighbors)
}

// sendMachines renders the nearest machines and ends the flow.
func (r *Router) sendMachines(chatID int64, neighbors []rvm.Neighbor) {
	if len(neighbors) == 0 {
		r.sessions.Reset(chatID)
		r.sendText(chatID, noMachinesText)
		return
	}
	msg := machinesMessage(chatID, nearestHeader, neighbors)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	r.sendMsg(msg)
	r.sessions.Reset(chatID)
}

// replyGeocodeError re-prompts; the flow stays where it was so the user can
// just try another spelling.
func (r *Router) replyGeocodeError(chatID int64, err error) {
	if errors.Is(err, geocode.ErrBadQuery) || errors.Is(err, geocode.ErrNoResult) {
		r.sendText(chatID, placeNotFoundText)
		return
	}
	r.log.Error("geocode failed", zap.Error(err))
	r.sendText(chatID, geocodeDownText)
}

func (r *Router) geocodeQuery(ctx context.Context, chatID int64, query string) (geo.Coordinate, bool) {
	coord, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		r.replyGeocodeError(chatID, err)
		return geo.Coordinate{}, false
	}
	return coord, true
}

// --- Report flow ---

func (r *Router) handleReport(ctx context.Context, chatID int64) {
	metrics.FlowsStartedTotal.WithLabelValues(session.FlowReport.String()).Inc()
	r.sessions.Set(chatID, session.Session{Flow: session.FlowReport, Await: session.AwaitLocation})

	msg := tgbotapi.NewMessage(chatID, reportPromptText)
	msg.ReplyMarkup = locationKeyboard()
	r.sendMsg(msg)
}

func (r *Router) reportFrom(chatID int64, origin geo.Coordinate) {
	metrics.NearestQueriesTotal.Inc()
	neighbors := r.dataset.NearestK(origin, nearestCount)
	if len(neighbors) == 0 {
		r.sessions.Reset(chatID)
		r.sendText(chatID, noMachinesText)
		return
	}

	r.sessions.Set(chatID, session.Session{
		Flow:       session.FlowReport,
		Await:      session.AwaitSelection,
		Origin:     origin,
		Candidates: neighbors,
	})
	msg := tgbotapi.NewMessage(chatID, selectMachineText)
	msg.ReplyMarkup = machinesKeyboard(neighbors)
	r.sendMsg(msg)
}

func (r *Router) handleMachineCallback(ctx context.Context, chatID int64, id, cbID string) {
	_ = r.answerCallback(cbID, "")
	s := r.sessions.Get(chatID)
	if s.Flow != session.FlowReport || s.Await != session.AwaitSelection {
		return // stale button from an earlier conversation
	}

	var picked *rvm.Neighbor
	for i := range s.Candidates {
		if s.Candidates[i].Record.ID == id {
			picked = &s.Candidates[i]
			break
		}
	}
	if picked == nil {
		return
	}

	s.SelectedID = id
	s.Await = session.AwaitStatus
	r.sessions.Set(chatID, s)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(askStatusFmt, picked.Record.Name))
	msg.ReplyMarkup = statusKeyboard()
	r.sendMsg(msg)
}

func (r *Router) handleStatusCallback(ctx context.Context, chatID int64, val, cbID string) {
	_ = r.answerCallback(cbID, "")
	s := r.sessions.Get(chatID)
	if s.Flow != session.FlowReport || s.Await != session.AwaitStatus {
		return
	}

	status, err := rvm.ParseStatus(val)
	if err != nil {
		r.log.Warn("unparseable status callback", zap.String("data", val))
		return
	}

	rec, ok := r.dataset.Get(s.SelectedID)
	if !ok {
		r.refreshCandidates(chatID, s)
		return
	}
	if err := r.dataset.UpdateStatus(s.SelectedID, status); err != nil {
		if errors.Is(err, rvm.ErrNotFound) {
			r.refreshCandidates(chatID, s)
			return
		}
		// The in-memory table took the update; only the flush failed.
		// Shutdown persists the dataset again, so acknowledge the report.
		r.log.Error("persist after status update failed", zap.Error(err))
	}
	metrics.StatusReportsTotal.WithLabelValues(string(status)).Inc()

	r.sendText(chatID, fmt.Sprintf(statusSavedFmt, rec.Name, statusLabel(status)))
	if status == rvm.StatusNotWorking {
		r.sendAlternatives(chatID, s)
	}
	r.sessions.Reset(chatID)
}

// sendAlternatives offers the next-nearest machines after a NotWorking
// report, re-read from the dataset so statuses are current.
func (r *Router) sendAlternatives(chatID int64, s session.Session) {
	var alts []rvm.Neighbor
	for _, n := range s.Candidates {
		if n.Record.ID == s.SelectedID {
			continue
		}
		if rec, ok := r.dataset.Get(n.Record.ID); ok {
			n.Record = rec
		}
		alts = append(alts, n)
		if len(alts) == alternativeCount {
			break
		}
	}
	if len(alts) == 0 {
		return
	}
	r.sendMsg(machinesMessage(chatID, alternativesHeader, alts))
}

// refreshCandidates rebuilds the selection list after the reported machine
// disappeared from the dataset underneath the conversation.
func (r *Router) refreshCandidates(chatID int64, s session.Session) {
	neighbors := r.dataset.NearestK(s.Origin, nearestCount)
	if len(neighbors) == 0 {
		r.sessions.Reset(chatID)
		r.sendText(chatID, machineGoneText+" "+noMachinesText)
		return
	}

	s.Candidates = neighbors
	s.SelectedID = ""
	s.Await = session.AwaitSelection
	r.sessions.Set(chatID, s)

	msg := tgbotapi.NewMessage(chatID, machineGoneText+" "+selectMachineText)
	msg.ReplyMarkup = machinesKeyboard(neighbors)
	r.sendMsg(msg)
}

// --- Reminder flow ---

func (r *Router) handleSetReminder(ctx context.Context, chatID int64) {
	metrics.FlowsStartedTotal.WithLabelValues(session.FlowReminder.String()).Inc()

	prompt := askFrequencyText
	if rem, err := r.repo.GetReminder(ctx, chatID); err == nil {
		prompt = fmt.Sprintf(alreadySetFmt, rem.Day, domain.FormatMinutes(rem.MinuteOfDay)) +
			"\n\n" + askFrequencyText
	} else if !errors.Is(err, store.ErrNotFound) {
		r.log.Error("GetReminder failed", zap.Error(err), zap.Int64("chatID", chatID))
	}

	r.sessions.Set(chatID, session.Session{Flow: session.FlowReminder, Await: session.AwaitFrequency})
	msg := tgbotapi.NewMessage(chatID, prompt)
	msg.ReplyMarkup = frequencyKeyboard()
	r.sendMsg(msg)
}

func (r *Router) handleFrequencyCallback(ctx context.Context, chatID int64, val, cbID string) {
	_ = r.answerCallback(cbID, "")
	s := r.sessions.Get(chatID)
	if s.Flow != session.FlowReminder || s.Await != session.AwaitFrequency {
		return
	}
	r.setFrequency(chatID, s, val)
}

func (r *Router) setFrequency(chatID int64, s session.Session, val string) {
	freq, err := domain.ParseFrequency(val)
	if err != nil {
		r.sendText(chatID, invalidFrequencyText)
		return
	}

	s.Frequency = freq
	s.Await = session.AwaitDay
	r.sessions.Set(chatID, s)
	r.sendText(chatID, askDayText)
}

func (r *Router) saveReminder(ctx context.Context, chatID int64, s session.Session, minute int) {
	rem := &domain.Reminder{
		ChatID:      chatID,
		Frequency:   s.Frequency,
		Day:         s.Day,
		MinuteOfDay: minute,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.repo.UpsertReminder(ctx, rem); err != nil {
		r.log.Error("UpsertReminder failed", zap.Error(err), zap.Int64("chatID", chatID))
		r.sessions.Reset(chatID)
		r.sendText(chatID, failureText)
		return
	}

	r.sessions.Reset(chatID)
	r.sendText(chatID, fmt.Sprintf(reminderSavedFmt, s.Day, domain.FormatMinutes(minute)))
}

// --- Free-form dispatcher (text typed mid-flow) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	s := r.sessions.Get(chatID)
	switch {
	case s.Flow == session.FlowFind && s.Await == session.AwaitLocation:
		r.findByQuery(ctx, chatID, text)

	case s.Flow == session.FlowReport && s.Await == session.AwaitLocation:
		coord, ok := r.geocodeQuery(ctx, chatID, text)
		if !ok {
			return
		}
		r.reportFrom(chatID, coord)

	case s.Await == session.AwaitSelection, s.Await == session.AwaitStatus:
		r.sendText(chatID, useButtonsText)

	case s.Await == session.AwaitFrequency:
		r.setFrequency(chatID, s, text)

	case s.Await == session.AwaitDay:
		day, err := domain.ParseDay(text)
		if err != nil {
			r.sendText(chatID, invalidDayText)
			return
		}
		s.Day = day
		s.Await = session.AwaitTime
		r.sessions.Set(chatID, s)
		r.sendText(chatID, askTimeText)

	case s.Await == session.AwaitTime:
		minute, err := domain.ParseTimeOfDay(text)
		if err != nil {
			r.sendText(chatID, invalidTimeText)
			return
		}
		r.saveReminder(ctx, chatID, s, minute)

	default:
		// No flow in progress: nudge towards the commands.
		r.sendText(chatID, unknownText)
	}
}
