package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"genecross/api/internal/gene"
	"genecross/api/internal/rows"
	"genecross/api/internal/submit"
)

var errBadCallback = errors.New("telegram: malformed callback data")

// action is decoded callback data:
//
//	c:<p|t>:<row>:<field>  cycle a structured field
//	r:<p|t>:<row>          remove a row
//	e:<p|t>:<row>          rewrite a free-text row
//	a:<p|t>                add a row
//	s                      submit
//	x:<gen>:<pos>          show/hide details of a ranked entry
type action struct {
	op    string
	kind  rows.Kind
	row   uint64
	field gene.Field
	gen   uint64
	pos   int
}

func parseKind(s string) (rows.Kind, error) {
	switch s {
	case "p":
		return rows.Parents, nil
	case "t":
		return rows.Targets, nil
	}
	return "", errBadCallback
}

func parseAction(data string) (action, error) {
	parts := strings.Split(data, ":")
	a := action{op: parts[0]}
	want := map[string]int{"c": 4, "r": 3, "e": 3, "a": 2, "s": 1, "x": 3, "noop": 1}
	n, ok := want[a.op]
	if !ok || len(parts) != n {
		return action{}, errBadCallback
	}
	var err error
	switch a.op {
	case "c", "r", "e", "a":
		if a.kind, err = parseKind(parts[1]); err != nil {
			return action{}, err
		}
		if a.op == "a" {
			break
		}
		if a.row, err = strconv.ParseUint(parts[2], 10, 64); err != nil {
			return action{}, errBadCallback
		}
		if a.op == "c" {
			f, err := strconv.Atoi(parts[3])
			if err != nil || f < int(gene.FieldSex) || f >= gene.LociCount {
				return action{}, errBadCallback
			}
			a.field = gene.Field(f)
		}
	case "x":
		if a.gen, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
			return action{}, errBadCallback
		}
		if a.pos, err = strconv.Atoi(parts[2]); err != nil {
			return action{}, errBadCallback
		}
	}
	return a, nil
}

func (r *Router) answer(cb tgbotapi.CallbackQuery, text string) {
	if _, err := r.Bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		r.Log.Debug().Err(err).Msg("callback ack failed")
	}
}

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		r.answer(cb, "")
		return
	}
	cid := cb.Message.Chat.ID
	a, err := parseAction(cb.Data)
	if err != nil {
		r.Log.Warn().Str("data", cb.Data).Int64("chat_id", cid).Msg("unknown callback")
		r.answer(cb, "")
		return
	}
	s := r.session(cid)

	switch a.op {
	case "noop":
		r.answer(cb, "")
	case "s":
		r.answer(cb, "Calculating…")
		r.submit(ctx, s)
	case "x":
		r.onToggleDetails(cb, s, a)
	default:
		r.onEdit(cb, s, a)
	}
}

func (r *Router) onToggleDetails(cb tgbotapi.CallbackQuery, s *session, a action) {
	_, err := s.ctl.ToggleExpandIn(a.gen, a.pos)
	if errors.Is(err, submit.ErrStale) || errors.Is(err, submit.ErrNoResults) {
		r.answer(cb, "These results were replaced.")
		return
	}
	r.answer(cb, "")
}

// onEdit applies a row mutation coming from the current editor message.
// Removals below the minimum row count are ignored without feedback.
func (r *Router) onEdit(cb tgbotapi.CallbackQuery, s *session, a action) {
	s.mu.Lock()
	if cb.Message.MessageID != s.editorMsg {
		s.mu.Unlock()
		r.answer(cb, "This editor is outdated; use the latest one.")
		return
	}
	before := s.rows.Version()
	note := r.applyEdit(s, a)
	changed := s.rows.Version() != before
	s.mu.Unlock()

	r.answer(cb, note)
	if changed {
		r.showEditor(s, false)
	}
}

// applyEdit runs with s.mu held and returns the callback answer.
func (r *Router) applyEdit(s *session, a action) string {
	if a.op == "a" {
		s.rows.AddRow(a.kind)
		return ""
	}
	pos := s.rows.Position(a.kind, a.row)
	if pos < 0 {
		return "That row no longer exists."
	}
	switch a.op {
	case "r":
		s.rows.RemoveByID(a.kind, a.row)
	case "c":
		cur := s.rows.Rows(a.kind)[pos].Spec
		if next, err := cur.Next(a.field); err == nil {
			_ = s.rows.SetField(a.kind, pos, a.field, next)
		}
	case "e":
		if s.rows.Mode() != rows.ModeText {
			return ""
		}
		s.awaitRaw = &rawEdit{kind: a.kind, id: a.row}
		label := "parent"
		if a.kind == rows.Targets {
			label = "target"
		}
		r.send(s.chatID, fmt.Sprintf("Send the new text for %s %d, e.g. \"m, Aa, Bb, Cc\". Send - to clear it.", label, pos+1))
	}
	return ""
}
