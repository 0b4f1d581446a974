// Package submit runs one request/response cycle against the cross service and
// owns what the UI shows afterwards: the ranked result list, the error text and
// the per-entry expand flags.
package submit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genecross/api/internal/cross"
	"genecross/api/internal/metrics"
	"genecross/api/internal/normalize"
	"genecross/api/internal/rows"
)

type State int

const (
	Idle State = iota
	Pending
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

var (
	ErrNoResults = errors.New("submit: no result list is published")
	ErrNoEntry   = errors.New("submit: no result at position")
	ErrStale     = errors.New("submit: result list has been replaced")
)

// Service is the remote cross computation. *cross.Client implements it.
type Service interface {
	Generate(ctx context.Context, req cross.Request) (cross.Response, error)
}

// View is an immutable picture of the published state.
type View struct {
	State      State
	Results    []cross.Result
	Error      string
	Expanded   []bool
	Generation uint64 // identifies the published result list
	InFlight   int
}

func (v View) IsExpanded(pos int) bool {
	return pos >= 0 && pos < len(v.Expanded) && v.Expanded[pos]
}

// Outcome describes one finished submission.
type Outcome struct {
	Seq     uint64
	Mode    rows.Mode
	Request cross.Request
	Results []cross.Result // ranked; nil on failure
	Err     error
	Message string // user-facing error text
	Started time.Time
	Elapsed time.Duration
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithObserver registers fn to be called with every newly published view.
func WithObserver(fn func(View)) Option {
	return func(c *Controller) { c.observe = fn }
}

// WithOutcome registers fn to be called after each submission completes.
func WithOutcome(fn func(context.Context, Outcome)) Option {
	return func(c *Controller) { c.onOutcome = fn }
}

// WithEncoder fixes the encoder instead of choosing one from the snapshot mode.
func WithEncoder(e normalize.Encoder) Option {
	return func(c *Controller) { c.enc = e }
}

type Controller struct {
	svc       Service
	log       zerolog.Logger
	observe   func(View)
	onOutcome func(context.Context, Outcome)
	enc       normalize.Encoder
	now       func() time.Time

	mu       sync.Mutex
	state    State
	results  []cross.Result
	errMsg   string
	expanded []bool
	gen      uint64
	seq      uint64
	inFlight int
}

func New(svc Service, opts ...Option) *Controller {
	c := &Controller{svc: svc, log: zerolog.Nop(), now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit clears the published state, sends snap to the service and publishes
// the ranked results or an error message. Earlier submissions still in flight
// are not cancelled; whichever response arrives last is what stays published.
func (c *Controller) Submit(ctx context.Context, snap rows.Snapshot) View {
	enc := c.enc
	if enc == nil {
		enc = normalize.EncoderFor(snap.Mode)
	}
	req := enc.Encode(snap)
	started := c.now()

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = Pending
	c.results = nil
	c.errMsg = ""
	c.expanded = nil
	c.inFlight++
	v := c.viewLocked()
	c.mu.Unlock()

	metrics.SubmitStarted(string(snap.Mode))
	c.log.Debug().Uint64("seq", seq).Str("mode", string(snap.Mode)).
		Int("parents", len(req.Parents)).Int("targets", len(req.Targets)).Msg("submit")
	c.notify(v)

	resp, err := c.svc.Generate(ctx, req)
	return c.complete(ctx, Outcome{Seq: seq, Mode: snap.Mode, Request: req, Started: started}, resp, err)
}

func (c *Controller) complete(ctx context.Context, out Outcome, resp cross.Response, err error) View {
	var ranked []cross.Result
	if err == nil {
		ranked = normalize.Rank(resp.Results)
	}

	c.mu.Lock()
	c.inFlight--
	if err != nil {
		c.state = Failed
		c.results = nil
		c.expanded = nil
		c.errMsg = cross.UserMessage(err)
	} else {
		c.state = Success
		c.results = ranked
		c.expanded = make([]bool, len(ranked))
		c.errMsg = ""
		c.gen++
	}
	v := c.viewLocked()
	c.mu.Unlock()

	out.Elapsed = c.now().Sub(out.Started)
	out.Err = err
	out.Results = ranked
	out.Message = v.Error

	if err != nil {
		metrics.SubmitFinished(metrics.OutcomeFailed, out.Started, 0)
		c.log.Warn().Err(err).Uint64("seq", out.Seq).Dur("elapsed", out.Elapsed).Msg("submit failed")
	} else {
		metrics.SubmitFinished(metrics.OutcomeSuccess, out.Started, len(ranked))
		c.log.Info().Uint64("seq", out.Seq).Int("results", len(ranked)).Dur("elapsed", out.Elapsed).Msg("submit done")
	}

	c.notify(v)
	if c.onOutcome != nil {
		c.onOutcome(ctx, out)
	}
	return v
}

// ToggleExpand flips the expand flag of the entry at pos in the published list.
func (c *Controller) ToggleExpand(pos int) (bool, error) {
	return c.toggle(0, false, pos)
}

// ToggleExpandIn is ToggleExpand that refuses to act on a list other than the
// one identified by generation.
func (c *Controller) ToggleExpandIn(generation uint64, pos int) (bool, error) {
	return c.toggle(generation, true, pos)
}

func (c *Controller) toggle(generation uint64, checkGen bool, pos int) (bool, error) {
	c.mu.Lock()
	if c.state != Success || c.results == nil {
		c.mu.Unlock()
		return false, ErrNoResults
	}
	if checkGen && generation != c.gen {
		c.mu.Unlock()
		return false, ErrStale
	}
	if pos < 0 || pos >= len(c.expanded) {
		c.mu.Unlock()
		return false, ErrNoEntry
	}
	next := make([]bool, len(c.expanded))
	copy(next, c.expanded)
	next[pos] = !next[pos]
	c.expanded = next
	v := c.viewLocked()
	c.mu.Unlock()

	c.notify(v)
	return next[pos], nil
}

// Reset forgets everything published. Requests still in flight will publish
// when they finish.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.state = Idle
	c.results = nil
	c.errMsg = ""
	c.expanded = nil
	v := c.viewLocked()
	c.mu.Unlock()
	c.notify(v)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	return View{
		State:      c.state,
		Results:    c.results,
		Error:      c.errMsg,
		Expanded:   c.expanded,
		Generation: c.gen,
		InFlight:   c.inFlight,
	}
}

func (c *Controller) notify(v View) {
	if c.observe != nil {
		c.observe(v)
	}
}
