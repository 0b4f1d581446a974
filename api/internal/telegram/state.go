package telegram

import (
	"sync"

	"genecross/api/internal/rows"
	"genecross/api/internal/submit"
)

// rawEdit remembers which text row the next plain message replaces.
type rawEdit struct {
	kind rows.Kind
	id   uint64
}

// session is the per-chat editor. mu guards everything except ctl, which has
// its own lock; never call into ctl while holding mu.
type session struct {
	chatID int64
	ctl    *submit.Controller

	mu        sync.Mutex
	rows      *rows.Store
	editorMsg int
	resultMsg int
	awaitRaw  *rawEdit
}

func (r *Router) session(chatID int64) *session {
	if v, ok := r.sessions.Load(chatID); ok {
		return v.(*session)
	}
	s := &session{chatID: chatID, rows: rows.New(r.mode())}
	s.ctl = submit.New(r.Cross,
		submit.WithLogger(r.Log.With().Int64("chat_id", chatID).Logger()),
		submit.WithObserver(func(submit.View) { r.renderResults(s) }),
		submit.WithOutcome(r.recordOutcome(chatID)),
	)
	v, _ := r.sessions.LoadOrStore(chatID, s)
	return v.(*session)
}

// resetRows replaces the editor with fresh default rows in mode.
func (s *session) resetRows(mode rows.Mode) {
	s.mu.Lock()
	s.rows = rows.New(mode)
	s.awaitRaw = nil
	s.resultMsg = 0
	s.mu.Unlock()
}
