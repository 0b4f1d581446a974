package submit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genecross/api/internal/cross"
	"genecross/api/internal/rows"
)

type reply struct {
	resp cross.Response
	err  error
}

type call struct {
	req   cross.Request
	reply chan reply
}

// blockingService hands every request to the test and waits for its answer.
type blockingService struct {
	calls chan call
}

func newBlockingService() *blockingService {
	return &blockingService{calls: make(chan call)}
}

func (s *blockingService) Generate(_ context.Context, req cross.Request) (cross.Response, error) {
	c := call{req: req, reply: make(chan reply)}
	s.calls <- c
	r := <-c.reply
	return r.resp, r.err
}

// staticService answers every request the same way.
type staticService struct {
	resp cross.Response
	err  error
	reqs []cross.Request
}

func (s *staticService) Generate(_ context.Context, req cross.Request) (cross.Response, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func response(sums ...string) cross.Response {
	var out cross.Response
	for _, s := range sums {
		if s == "" {
			out.Results = append(out.Results, cross.Result{})
			continue
		}
		out.Results = append(out.Results, cross.Result{Sum: s, Childs: []cross.Child{{Gene: []string{"m", "AA", "BB", "CC"}, Prob: s}}})
	}
	return out
}

func sums(rs []cross.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Sum
	}
	return out
}

func snapshot(m rows.Mode) rows.Snapshot {
	return rows.New(m).Snapshot()
}

func TestSubmit_Success(t *testing.T) {
	svc := &staticService{resp: response("1/4", "1/2", "", "1/8")}
	ctl := New(svc)

	v := ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	assert.Equal(t, Success, v.State)
	assert.Equal(t, []string{"1/2", "1/4", "1/8"}, sums(v.Results))
	assert.Equal(t, []bool{false, false, false}, v.Expanded)
	assert.Empty(t, v.Error)
	assert.Equal(t, 0, v.InFlight)

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, [][]string{{"m", "Aa", "Bb", "Cc"}, {"f", "AA", "BB", "CC"}}, svc.reqs[0].Parents)
	assert.Equal(t, [][]string{{"m", "AA", "BB", "CC"}}, svc.reqs[0].Targets)
}

func TestSubmit_UsesTextEncoderForTextMode(t *testing.T) {
	svc := &staticService{resp: response()}
	ctl := New(svc)

	st := rows.New(rows.ModeText)
	require.NoError(t, st.SetRawRow(rows.Parents, 1, "  "))
	st.AddRow(rows.Targets)
	ctl.Submit(context.Background(), st.Snapshot())

	require.Len(t, svc.reqs, 1)
	assert.Equal(t, []string{"f", "Aa", "Bb", "Cc"}, svc.reqs[0].Parents[1])
	assert.Equal(t, []string{""}, svc.reqs[0].Targets[1])
}

func TestSubmit_RemoteErrorMessage(t *testing.T) {
	svc := &staticService{err: &cross.RemoteError{Status: 400, Message: "At least two parents' genes must be provided"}}
	v := New(svc).Submit(context.Background(), snapshot(rows.ModeStructured))

	assert.Equal(t, Failed, v.State)
	assert.Equal(t, "At least two parents' genes must be provided", v.Error)
	assert.Nil(t, v.Results)
}

func TestSubmit_GenericErrorMessage(t *testing.T) {
	svc := &staticService{err: errors.New("dial tcp: connection refused")}
	v := New(svc).Submit(context.Background(), snapshot(rows.ModeStructured))

	assert.Equal(t, Failed, v.State)
	assert.Equal(t, cross.GenericErrorMessage, v.Error)
}

func TestSubmit_FailureClearsPreviousResult(t *testing.T) {
	svc := &staticService{resp: response("1/2")}
	ctl := New(svc)
	v := ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	require.Len(t, v.Results, 1)

	svc.err = errors.New("down")
	v = ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	assert.Equal(t, Failed, v.State)
	assert.Nil(t, v.Results)
	assert.Nil(t, v.Expanded)

	_, err := ctl.ToggleExpand(0)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSubmit_SuccessClearsPreviousError(t *testing.T) {
	svc := &staticService{err: errors.New("down")}
	ctl := New(svc)
	ctl.Submit(context.Background(), snapshot(rows.ModeStructured))

	svc.err = nil
	svc.resp = response("1/8")
	v := ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	assert.Equal(t, Success, v.State)
	assert.Empty(t, v.Error)
}

func TestSubmit_PendingClearsPublishedState(t *testing.T) {
	svc := newBlockingService()
	ctl := New(&staticService{resp: response("1/2")})
	ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	_, err := ctl.ToggleExpand(0)
	require.NoError(t, err)

	ctl.svc = svc
	done := make(chan View)
	go func() { done <- ctl.Submit(context.Background(), snapshot(rows.ModeStructured)) }()
	c := <-svc.calls

	v := ctl.View()
	assert.Equal(t, Pending, v.State)
	assert.Nil(t, v.Results)
	assert.Nil(t, v.Expanded)
	assert.Empty(t, v.Error)
	assert.Equal(t, 1, v.InFlight)

	_, err = ctl.ToggleExpand(0)
	assert.ErrorIs(t, err, ErrNoResults)

	c.reply <- reply{resp: response("1/4", "1/8")}
	v = <-done
	assert.Equal(t, []string{"1/4", "1/8"}, sums(v.Results))
	assert.Equal(t, []bool{false, false}, v.Expanded, "expand flags start collapsed for a new list")
}

func TestSubmit_LaterResponseWins(t *testing.T) {
	svc := newBlockingService()
	ctl := New(svc)
	snap := snapshot(rows.ModeStructured)

	first := make(chan View)
	go func() { first <- ctl.Submit(context.Background(), snap) }()
	c1 := <-svc.calls

	second := make(chan View)
	go func() { second <- ctl.Submit(context.Background(), snap) }()
	c2 := <-svc.calls

	assert.Equal(t, 2, ctl.View().InFlight)

	c2.reply <- reply{resp: response("1/2")}
	<-second
	v := ctl.View()
	assert.Equal(t, Success, v.State)
	assert.Equal(t, []string{"1/2"}, sums(v.Results), "only the second response is published")
	assert.Equal(t, 1, v.InFlight)

	c1.reply <- reply{resp: response("1/8", "1/16")}
	<-first
	v = ctl.View()
	assert.Equal(t, []string{"1/8", "1/16"}, sums(v.Results), "the response that resolves last overwrites")
	assert.Equal(t, 0, v.InFlight)
}

func TestToggleExpand(t *testing.T) {
	ctl := New(&staticService{resp: response("1/2", "1/4", "1/8", "1/16")})
	ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	before := ctl.View()

	on, err := ctl.ToggleExpand(2)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []bool{false, false, true, false}, ctl.View().Expanded)
	assert.False(t, before.IsExpanded(2), "earlier views are not modified")

	on, err = ctl.ToggleExpand(2)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, before.Expanded, ctl.View().Expanded)

	_, err = ctl.ToggleExpand(4)
	assert.ErrorIs(t, err, ErrNoEntry)
	_, err = ctl.ToggleExpand(-1)
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestToggleExpand_BeforeAnyResult(t *testing.T) {
	_, err := New(&staticService{}).ToggleExpand(0)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestToggleExpandIn_RejectsStaleList(t *testing.T) {
	ctl := New(&staticService{resp: response("1/2", "1/4")})
	v1 := ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	v2 := ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	require.NotEqual(t, v1.Generation, v2.Generation)

	_, err := ctl.ToggleExpandIn(v1.Generation, 0)
	assert.ErrorIs(t, err, ErrStale)

	on, err := ctl.ToggleExpandIn(v2.Generation, 1)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestToggleExpand_DoesNotSubmit(t *testing.T) {
	svc := &staticService{resp: response("1/2")}
	ctl := New(svc)
	ctl.Submit(context.Background(), snapshot(rows.ModeStructured))
	_, _ = ctl.ToggleExpand(0)
	_, _ = ctl.ToggleExpand(0)
	assert.Len(t, svc.reqs, 1)
}

func TestObserverAndOutcome(t *testing.T) {
	var (
		mu       sync.Mutex
		states   []State
		outcomes []Outcome
	)
	ctl := New(&staticService{resp: response("1/4", "")},
		WithObserver(func(v View) {
			mu.Lock()
			states = append(states, v.State)
			mu.Unlock()
		}),
		WithOutcome(func(_ context.Context, o Outcome) {
			outcomes = append(outcomes, o)
		}),
	)
	ctl.Submit(context.Background(), snapshot(rows.ModeText))
	_, err := ctl.ToggleExpand(0)
	require.NoError(t, err)
	ctl.Reset()

	assert.Equal(t, []State{Pending, Success, Success, Idle}, states)
	require.Len(t, outcomes, 1)
	assert.Equal(t, rows.ModeText, outcomes[0].Mode)
	assert.Equal(t, uint64(1), outcomes[0].Seq)
	assert.Equal(t, []string{"1/4"}, sums(outcomes[0].Results))
	assert.NoError(t, outcomes[0].Err)
	assert.GreaterOrEqual(t, outcomes[0].Elapsed.Nanoseconds(), int64(0))
}
