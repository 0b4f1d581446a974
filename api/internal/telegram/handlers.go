package telegram

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"genecross/api/internal/archive"
	"genecross/api/internal/rows"
	"genecross/api/internal/submit"
)

const (
	historyLimit = 5
	exportsLimit = 5
)

func (r *Router) HandleCommand(ctx context.Context, m *tgbotapi.Message) {
	cid := m.Chat.ID
	switch m.Command() {
	case "start":
		s := r.session(cid)
		r.send(cid, helpText)
		r.showEditor(s, true)
	case "help":
		r.send(cid, helpText)
	case "mode":
		r.onMode(cid, m.CommandArguments())
	case "reset":
		s := r.session(cid)
		s.resetRows(s.mode())
		s.ctl.Reset()
		r.showEditor(s, true)
	case "submit":
		r.submit(ctx, r.session(cid))
	case "history":
		r.onHistory(ctx, cid)
	case "export":
		r.onExport(ctx, cid)
	case "exports":
		r.onExports(ctx, cid, m.CommandArguments())
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command. See /help.")
	}
}

func (s *session) mode() rows.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.Mode()
}

func (r *Router) onMode(chatID int64, arg string) {
	s := r.session(chatID)
	arg = strings.TrimSpace(arg)
	if arg == "" {
		r.send(chatID, fmt.Sprintf("Editor mode: %s\nUsage: /mode structured | /mode text", s.mode()))
		return
	}
	m, err := rows.ParseMode(arg)
	if err != nil {
		r.send(chatID, "Unknown mode. Use /mode structured or /mode text.")
		return
	}
	s.resetRows(m)
	s.ctl.Reset()
	r.send(chatID, fmt.Sprintf("Editor mode: %s", m))
	r.showEditor(s, true)
}

// handleText applies a pending free-text row edit. "-" clears the row.
func (r *Router) handleText(chatID int64, text string) {
	s := r.session(chatID)
	s.mu.Lock()
	pending := s.awaitRaw
	s.awaitRaw = nil
	var err error
	if pending != nil {
		pos := s.rows.Position(pending.kind, pending.id)
		if pos < 0 {
			err = rows.ErrNoRow
		} else {
			if strings.TrimSpace(text) == "-" {
				text = ""
			}
			err = s.rows.SetRawRow(pending.kind, pos, text)
		}
	}
	s.mu.Unlock()

	switch {
	case pending == nil:
		r.send(chatID, "Use the editor buttons, or /start to open a new editor.")
	case err != nil:
		r.send(chatID, "That row is gone; tap ✏️ on a current row.")
	default:
		r.showEditor(s, true)
	}
}

// submit starts one calculation in the background. The results message is
// updated by the controller's observer.
func (r *Router) submit(ctx context.Context, s *session) {
	s.mu.Lock()
	snap := s.rows.Snapshot()
	s.awaitRaw = nil
	s.mu.Unlock()

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		s.ctl.Submit(ctx, snap)
	}()
}

func (r *Router) onHistory(ctx context.Context, chatID int64) {
	if r.History == nil {
		r.send(chatID, "History is not enabled.")
		return
	}
	subs, err := r.History.Recent(ctx, chatID, historyLimit)
	if err != nil {
		r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("history lookup failed")
		r.send(chatID, "Could not load history.")
		return
	}
	if len(subs) == 0 {
		r.send(chatID, "No calculations yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent calculations:\n")
	for _, sub := range subs {
		fmt.Fprintf(&b, "\n#%d %s [%s] ", sub.ID, sub.CreatedAt.Local().Format("2006-01-02 15:04"), sub.Mode)
		if sub.Outcome == "failed" {
			fmt.Fprintf(&b, "failed: %s", sub.ErrorText)
			continue
		}
		fmt.Fprintf(&b, "%d result(s)", sub.ResultCount)
		if sub.BestSum != "" {
			fmt.Fprintf(&b, ", best %s", sub.BestSum)
		}
	}
	r.send(chatID, b.String())
}

func (r *Router) onExport(ctx context.Context, chatID int64) {
	if r.Archive == nil {
		r.send(chatID, "Export is not enabled.")
		return
	}
	s := r.session(chatID)
	v := s.ctl.View()
	if v.State != submit.Success {
		r.send(chatID, "Nothing to export yet: calculate first.")
		return
	}
	doc := archive.Document{ChatID: chatID, Mode: s.mode(), ExportedAt: r.now(), Results: v.Results}
	info, link, err := archive.Export(ctx, r.Archive, doc)
	if err != nil {
		r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("export failed")
		r.send(chatID, "Export failed.")
		return
	}
	r.Log.Info().Int64("chat_id", chatID).Str("key", info.Key).Str("driver", string(r.Archive.Driver())).Msg("exported")
	text := fmt.Sprintf("Saved %d result(s) to %s", len(v.Results), info.Key)
	if link != "" {
		text += "\n" + link
	}
	r.send(chatID, text)
}

// onExports lists the chat's saved exports, newest first, or shows the n-th
// one when arg is a number.
func (r *Router) onExports(ctx context.Context, chatID int64, arg string) {
	if r.Archive == nil {
		r.send(chatID, "Export is not enabled.")
		return
	}
	infos, err := r.Archive.List(ctx, fmt.Sprintf("exports/%d/", chatID))
	if err != nil {
		r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("list exports failed")
		r.send(chatID, "Could not list exports.")
		return
	}
	if len(infos) == 0 {
		r.send(chatID, "No exports yet. Use /export after a calculation.")
		return
	}
	// keys end in a nanosecond timestamp
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key > infos[j].Key })

	arg = strings.TrimSpace(arg)
	if arg == "" {
		var b strings.Builder
		b.WriteString("Saved exports:\n")
		for i, info := range infos {
			if i == exportsLimit {
				break
			}
			fmt.Fprintf(&b, "\n%d. %s", i+1, info.Key)
		}
		b.WriteString("\n\nSend /exports N to open one.")
		r.send(chatID, b.String())
		return
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(infos) {
		r.send(chatID, fmt.Sprintf("Pick an export between 1 and %d.", len(infos)))
		return
	}
	doc, err := archive.Load(ctx, r.Archive, infos[n-1].Key)
	if err != nil {
		r.Log.Error().Err(err).Int64("chat_id", chatID).Str("key", infos[n-1].Key).Msg("load export failed")
		r.send(chatID, "Could not open that export.")
		return
	}
	r.send(chatID, exportText(doc))
}
