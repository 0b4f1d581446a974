package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"genecross/api/internal/archive"
	"genecross/api/internal/metrics"
	"genecross/api/internal/rows"
	"genecross/api/internal/store"
	"genecross/api/internal/submit"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// History persists finished submissions. *store.HistoryRepo implements it.
type History interface {
	Record(ctx context.Context, s store.Submission) (int64, error)
	Recent(ctx context.Context, chatID int64, limit int) ([]store.Submission, error)
}

type Router struct {
	Bot   Sender
	Cross submit.Service

	// Optional backends; nil disables /history and /export.
	History History
	Archive archive.Store

	DefaultMode rows.Mode
	Log         zerolog.Logger
	Now         func() time.Time

	sessions sync.Map // chatID -> *session
	inflight sync.WaitGroup
}

func (r *Router) mode() rows.Mode {
	if r.DefaultMode == "" {
		return rows.ModeStructured
	}
	return r.DefaultMode
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Wait blocks until submissions started by the router have finished.
func (r *Router) Wait() { r.inflight.Wait() }

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		metrics.BotUpdate("callback")
		r.handleCallback(ctx, *upd.CallbackQuery)
	case upd.Message == nil || upd.Message.Chat == nil:
		metrics.BotUpdate("other")
	case upd.Message.IsCommand():
		metrics.BotUpdate("command")
		r.HandleCommand(ctx, upd.Message)
	case upd.Message.Text != "":
		metrics.BotUpdate("text")
		r.handleText(upd.Message.Chat.ID, upd.Message.Text)
	default:
		metrics.BotUpdate("other")
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// sendOrEdit edits msgID when set, otherwise sends a new message. It returns the
// id of the message now showing text.
func (r *Router) sendOrEdit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) int {
	if msgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
		edit.ReplyMarkup = kb
		if _, err := r.Bot.Send(edit); err != nil {
			// "message is not modified" lands here too
			r.Log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", msgID).Msg("edit failed")
		}
		return msgID
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := r.Bot.Send(msg)
	if err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
		return 0
	}
	return sent.MessageID
}

// showEditor renders the rows of s, as a fresh message when fresh is set.
func (r *Router) showEditor(s *session, fresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.rows.Snapshot()
	kb := editorKeyboard(snap)
	msgID := s.editorMsg
	if fresh {
		msgID = 0
	}
	s.editorMsg = r.sendOrEdit(s.chatID, msgID, editorText(snap), &kb)
}

// renderResults shows the controller's current view in the results message.
// It reads the view under s.mu so concurrent notifications render in order.
func (r *Router) renderResults(s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.ctl.View()
	if v.State == submit.Idle {
		s.resultMsg = 0
		return
	}
	s.resultMsg = r.sendOrEdit(s.chatID, s.resultMsg, resultsText(v), resultsKeyboard(v))
}
