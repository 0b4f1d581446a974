// Package normalize converts editor rows into the canonical cross request and
// turns the service's results into a ranked, display-ready list.
//
// Nothing here returns an error: malformed input is passed through or degrades
// to defaults and NaN ordering keys.
package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"genecross/api/internal/cross"
	"genecross/api/internal/gene"
	"genecross/api/internal/rows"
)

// Encoder builds the canonical request from a rows snapshot.
type Encoder interface {
	Encode(s rows.Snapshot) cross.Request
}

// EncoderFor picks the encoder matching the edit mode.
func EncoderFor(m rows.Mode) Encoder {
	if m == rows.ModeText {
		return Text{}
	}
	return Structured{}
}

type Structured struct{}

func (Structured) Encode(s rows.Snapshot) cross.Request {
	return EncodeStructured(rows.Specs(s.Parents), rows.Specs(s.Targets))
}

type Text struct{}

func (Text) Encode(s rows.Snapshot) cross.Request {
	return EncodeText(rows.Raws(s.Parents), rows.Raws(s.Targets))
}

// EncodeStructured maps each spec straight to [sex, A, B, C].
func EncodeStructured(parents, targets []gene.Spec) cross.Request {
	req := cross.Request{
		Parents: make([][]string, 0, len(parents)),
		Targets: make([][]string, 0, len(targets)),
	}
	for _, p := range parents {
		req.Parents = append(req.Parents, p.Tuple())
	}
	for _, t := range targets {
		req.Targets = append(req.Targets, t.Tuple())
	}
	return req
}

// EncodeText splits free-text rows. Blank parents go through FillEmptyParent;
// blank targets are sent as a single empty token.
func EncodeText(parents, targets []string) cross.Request {
	req := cross.Request{
		Parents: make([][]string, 0, len(parents)),
		Targets: make([][]string, 0, len(targets)),
	}
	for _, p := range parents {
		req.Parents = append(req.Parents, FillEmptyParent(p))
	}
	for _, t := range targets {
		req.Targets = append(req.Targets, SplitRow(t))
	}
	return req
}

// SplitRow splits on commas and trims every token. Empty tokens are kept.
func SplitRow(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// FillEmptyParent never lets a blank parent row reach the service: a row whose
// trimmed text is empty becomes gene.EmptyParentTokens (a female Aa Bb Cc).
func FillEmptyParent(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), gene.EmptyParentTokens...)
	}
	return SplitRow(raw)
}

// ParseFraction reads "n/d" as n divided by d. Only the first two
// slash-separated parts are used; an empty side counts as zero and anything
// non-numeric yields NaN. d == 0 is not special-cased.
func ParseFraction(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return math.NaN()
	}
	return number(parts[0]) / number(parts[1])
}

func number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Rank drops empty entries and orders the rest by descending sum. Equal sums
// keep their input order. A NaN sum compares as neither greater nor smaller
// than anything, so where it lands is unspecified. The input is not modified.
func Rank(results []cross.Result) []cross.Result {
	type keyed struct {
		r   cross.Result
		key float64
	}
	ks := make([]keyed, 0, len(results))
	for _, r := range results {
		if r.Empty() {
			continue
		}
		ks = append(ks, keyed{r: r, key: ParseFraction(r.Sum)})
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key > ks[j].key })

	out := make([]cross.Result, len(ks))
	for i, k := range ks {
		out[i] = k.r
	}
	return out
}
