package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/koztkozt/bottlecangowhere/internal/geo"
	"github.com/koztkozt/bottlecangowhere/internal/rvm"
)

// UI texts in English
const (
	welcomeText = "👋 I help you recycle bottles and cans in Singapore.\n\n" +
		"/find - nearest reverse vending machines\n" +
		"/report - report a machine's status\n" +
		"/set - monthly recycling reminder\n" +
		"/about - what this bot is\n" +
		"/cancel - stop the current conversation"

	aboutText = "♻️ <b>BottleCanGowhere</b>\n\n" +
		"Reverse vending machines (RVMs) take back used drink containers for recycling. " +
		"This bot finds the machines nearest to you, lets you flag broken ones, " +
		"and nudges you once a month so the bottles don't pile up.\n\n" +
		"Machine locations are community maintained; statuses come from user reports like yours."

	findPromptText = "Where are you? Share your location, or type a place " +
		"(address, building or postal code)."
	reportPromptText = "Where is the machine? Share your location, or type a place " +
		"(address, building or postal code)."

	nearestHeader      = "Here are the nearest machines:"
	alternativesHeader = "😔 Sorry about that. These are the nearest alternatives:"
	selectMachineText  = "Which machine are you reporting on?"
	machineGoneText    = "That machine is no longer listed."
	noMachinesText     = "I don't know of any machines yet. Please try again later."

	askStatusFmt   = "What's the current state of %s?"
	statusSavedFmt = "Noted! %s is now marked %s. Thanks for helping."

	askFrequencyText = "How often should I remind you to recycle?"
	askDayText       = "Which day of the month? (1-31)\n" +
		"If a month is shorter, I'll remind you on its last day."
	askTimeText      = "What time? Use HH:MM or HHMM, e.g. 09:30 or 0930."
	alreadySetFmt    = "You already have a monthly reminder on day %d at %s. Setting a new one replaces it."
	reminderSavedFmt = "✅ Done! I'll remind you monthly on day %d at %s."

	invalidDayText       = "That doesn't look like a day of the month. Enter a number from 1 to 31."
	invalidTimeText      = "That doesn't look like a time. Try 09:30 or 0930."
	invalidFrequencyText = "I can only do monthly reminders for now. Tap Monthly or type \"monthly\"."

	placeNotFoundText = "I couldn't find that place. Try a street, building name or postal code."
	geocodeDownText   = "Location search is unavailable right now. Please try again in a minute."
	locationHintText  = "Nice place! Send /find to look up machines near you, or /report to report one."
	useButtonsText    = "Please use the buttons above, or /cancel to start over."

	unknownText         = "I didn't get that. Try /find, /report or /set, or /about to see what I can do."
	unknownCommandText  = "Unknown command. Try /find, /report, /set or /about."
	cancelledText       = "Okay, cancelled. Send /find whenever you're ready."
	nothingToCancelText = "Nothing to cancel. Send /find to look for machines."
	failureText         = "Something went wrong on my side. Please try again."
)

// menuKeyboard is the persistent command keyboard under the input field.
func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/find"),
			tgbotapi.NewKeyboardButton("/report"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/set"),
			tgbotapi.NewKeyboardButton("/about"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// locationKeyboard offers one-tap location sharing; it folds away once used.
func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonLocation("📍 Share my location"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// machinesKeyboard lists candidate machines, one per row.
func machinesKeyboard(neighbors []rvm.Neighbor) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(neighbors))
	for _, n := range neighbors {
		label := fmt.Sprintf("%s (%.0f m)", n.Record.Name, n.Meters)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "rvm:"+n.Record.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// statusKeyboard mirrors the states users actually report. Everything
// except "Working" records as not working.
func statusKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Working", "status:Working"),
			tgbotapi.NewInlineKeyboardButtonData("Full", "status:Full"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Out of Order", "status:Out of Order"),
			tgbotapi.NewInlineKeyboardButtonData("Other Issues", "status:Other Issues"),
		),
	)
}

func frequencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓 Monthly", "freq:monthly"),
		),
	)
}

func statusLabel(s rvm.Status) string {
	switch s {
	case rvm.StatusWorking:
		return "🟢 working"
	case rvm.StatusNotWorking:
		return "🔴 not working"
	default:
		return "⚪ unknown"
	}
}

// machinesMessage builds one HTML message listing machines under a header.
func machinesMessage(chatID int64, header string, neighbors []rvm.Neighbor) tgbotapi.MessageConfig {
	var b strings.Builder
	b.WriteString(header)
	for _, n := range neighbors {
		b.WriteString("\n\n")
		b.WriteString(formatMachine(n))
	}
	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// formatMachine renders one machine as an HTML block with a directions link.
func formatMachine(n rvm.Neighbor) string {
	rec := n.Record
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> (%.0f m)\n", rec.Status.Emoji(), html.EscapeString(rec.Name), n.Meters)
	fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(rec.Address))
	if rec.Description != "" {
		fmt.Fprintf(&b, "%s\n", html.EscapeString(rec.Description))
	}
	if rec.Hours != "" {
		fmt.Fprintf(&b, "🕘 %s\n", html.EscapeString(rec.Hours))
	}
	if rec.Nearby != "" {
		fmt.Fprintf(&b, "🗑 Nearby: %s\n", html.EscapeString(rec.Nearby))
	}
	fmt.Fprintf(&b, "<a href=%q>Directions</a>", geo.DirectionsURL(rec.Coord))
	return b.String()
}
