package cross

import (
	"bytes"
	"encoding/json"
)

// Request is the canonical payload: one flat [sex, A, B, C] tuple per row.
type Request struct {
	Parents [][]string `json:"parents"`
	Targets [][]string `json:"targets"`
}

type Child struct {
	Gene []string `json:"gene"`
	Prob string   `json:"prob"`
}

// Result is one parent pair as computed by the remote service. A placeholder
// entry ({} or null) decodes to a Result for which Empty reports true.
type Result struct {
	Father []string `json:"father,omitempty"`
	Mother []string `json:"mother,omitempty"`
	Sum    string   `json:"sum"`
	Childs []Child  `json:"childs"`

	keys int
}

type Response struct {
	Results []Result `json:"results"`
}

// ErrorPayload is what the service sends with a non-2xx status.
type ErrorPayload struct {
	Error string `json:"error"`
}

func (r *Result) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Result{}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	type plain Result
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Result(p)
	r.keys = len(raw)
	return nil
}

// Empty reports whether the entry carried no keys at all.
func (r Result) Empty() bool {
	return r.keys == 0 && r.Father == nil && r.Mother == nil && r.Sum == "" && r.Childs == nil
}
