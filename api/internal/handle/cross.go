package handle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"genecross/api/internal/cross"
	"genecross/api/internal/gene"
	"genecross/api/internal/rows"
	"genecross/api/internal/submit"
)

const maxBody = 1 << 20

// CrossRequest carries editor rows in either mode: gene specs for
// "structured", comma separated strings for "text".
type CrossRequest struct {
	Mode    string          `json:"mode"`
	Parents json.RawMessage `json:"parents"`
	Targets json.RawMessage `json:"targets"`
}

func decodeList[T any](raw json.RawMessage, what string) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return out, nil
}

func structuredRows(raw json.RawMessage, what string) ([]rows.Row, error) {
	specs, err := decodeList[gene.Spec](raw, what)
	if err != nil {
		return nil, err
	}
	out := make([]rows.Row, len(specs))
	for i, s := range specs {
		if !s.Valid() {
			return nil, fmt.Errorf("%s[%d]: invalid sex or genotype", what, i)
		}
		out[i] = rows.Row{ID: uint64(i + 1), Spec: s}
	}
	return out, nil
}

func textRows(raw json.RawMessage, what string) ([]rows.Row, error) {
	texts, err := decodeList[string](raw, what)
	if err != nil {
		return nil, err
	}
	out := make([]rows.Row, len(texts))
	for i, t := range texts {
		out[i] = rows.Row{ID: uint64(i + 1), Raw: t}
	}
	return out, nil
}

// Snapshot validates the request and turns it into editor rows.
func (req CrossRequest) Snapshot() (rows.Snapshot, error) {
	mode, err := rows.ParseMode(req.Mode)
	if err != nil {
		return rows.Snapshot{}, err
	}
	build := structuredRows
	if mode == rows.ModeText {
		build = textRows
	}
	snap := rows.Snapshot{Mode: mode}
	if snap.Parents, err = build(req.Parents, "parents"); err != nil {
		return rows.Snapshot{}, err
	}
	if snap.Targets, err = build(req.Targets, "targets"); err != nil {
		return rows.Snapshot{}, err
	}
	if need := rows.MinRows(mode, rows.Parents); len(snap.Parents) < need {
		return rows.Snapshot{}, fmt.Errorf("at least %d parent(s) required in %s mode", need, mode)
	}
	return snap, nil
}

// Cross forwards editor rows to the cross service and answers with the ranked
// results, or {"error": ...} with 400 for bad input and 502 when the service
// fails.
func (h *Handle) Cross(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var req CrossRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	snap, err := req.Snapshot()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	v := submit.New(h.svc, submit.WithLogger(h.log)).Submit(ctx, snap)
	if v.State == submit.Failed {
		writeError(w, http.StatusBadGateway, v.Error)
		return
	}
	writeJSON(w, http.StatusOK, cross.Response{Results: v.Results})
}
