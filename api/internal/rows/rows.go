// Package rows keeps the editable parent and target collections of one editor.
//
// Positions are the edit coordinates callers use; every row additionally
// carries an id from a monotonic counter so that a UI can map its widgets back
// to the logical row after removals shift positions.
package rows

import (
	"errors"
	"fmt"
	"strings"

	"genecross/api/internal/gene"
)

// Mode selects the editor variant.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeText       Mode = "text"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStructured, "":
		return ModeStructured, nil
	case ModeText, "free", "freetext":
		return ModeText, nil
	}
	return "", fmt.Errorf("unknown edit mode %q", s)
}

// Kind tells the two collections apart.
type Kind string

const (
	Parents Kind = "parents"
	Targets Kind = "targets"
)

var (
	ErrWrongMode = errors.New("rows: operation not available in this edit mode")
	ErrNoRow     = errors.New("rows: no row at position")
)

// Row is one organism entry. Spec is meaningful in structured mode, Raw in text mode.
type Row struct {
	ID   uint64
	Spec gene.Spec
	Raw  string
}

// MinRows is the smallest collection size RemoveRow will leave behind.
func MinRows(m Mode, k Kind) int {
	if k == Targets {
		return 0
	}
	if m == ModeText {
		return 2
	}
	return 1
}

// DefaultRow is what AddRow appends for (mode, kind).
func DefaultRow(m Mode, k Kind) Row {
	if m == ModeText {
		return Row{}
	}
	if k == Targets {
		return Row{Spec: gene.DefaultTarget}
	}
	return Row{Spec: gene.DefaultParent}
}

// Text renders a spec the way the free-text editor expects it.
func Text(s gene.Spec) string {
	return strings.Join(s.Tuple(), ", ")
}

// Specs lists the structured values of rs in order.
func Specs(rs []Row) []gene.Spec {
	out := make([]gene.Spec, len(rs))
	for i, r := range rs {
		out[i] = r.Spec
	}
	return out
}

// Raws lists the free-text values of rs in order.
func Raws(rs []Row) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Raw
	}
	return out
}

// Snapshot is a consistent copy of both collections for submission.
type Snapshot struct {
	Mode    Mode
	Parents []Row
	Targets []Row
}

// Store is not safe for concurrent use; the owner serializes access.
type Store struct {
	mode    Mode
	next    uint64
	version uint64
	parents []Row
	targets []Row
}

// New returns a store seeded with the initial editor rows for mode.
func New(mode Mode) *Store {
	s := &Store{mode: mode}
	s.parents = []Row{s.seed(gene.DefaultParent), s.seed(gene.DefaultSecondParent)}
	s.targets = []Row{s.seed(gene.DefaultTarget)}
	return s
}

func (s *Store) seed(spec gene.Spec) Row {
	r := Row{Spec: spec}
	if s.mode == ModeText {
		r = Row{Raw: Text(spec)}
	}
	s.next++
	r.ID = s.next
	return r
}

func (s *Store) Mode() Mode { return s.mode }

// Version changes on every successful mutation.
func (s *Store) Version() uint64 { return s.version }

// Rows returns the published collection. Callers must not modify it; the store
// never does either, it swaps in a new slice instead.
func (s *Store) Rows(k Kind) []Row {
	if k == Targets {
		return s.targets
	}
	return s.parents
}

func (s *Store) Len(k Kind) int { return len(s.Rows(k)) }

func (s *Store) Snapshot() Snapshot {
	return Snapshot{Mode: s.mode, Parents: s.parents, Targets: s.targets}
}

func (s *Store) publish(k Kind, rs []Row) {
	if k == Targets {
		s.targets = rs
	} else {
		s.parents = rs
	}
	s.version++
}

// AddRow appends the default row for the collection and returns it.
func (s *Store) AddRow(k Kind) Row {
	return s.Insert(k, DefaultRow(s.mode, k))
}

// Insert appends r with a fresh id, ignoring r.ID.
func (s *Store) Insert(k Kind, r Row) Row {
	s.next++
	r.ID = s.next
	cur := s.Rows(k)
	out := make([]Row, len(cur), len(cur)+1)
	copy(out, cur)
	s.publish(k, append(out, r))
	return r
}

// RemoveRow deletes the row at pos. It does nothing when pos is out of range or
// the collection is already at its minimum size for the mode.
func (s *Store) RemoveRow(k Kind, pos int) bool {
	cur := s.Rows(k)
	if pos < 0 || pos >= len(cur) || len(cur) <= MinRows(s.mode, k) {
		return false
	}
	out := make([]Row, 0, len(cur)-1)
	out = append(out, cur[:pos]...)
	out = append(out, cur[pos+1:]...)
	s.publish(k, out)
	return true
}

// Position maps a row id to its current position, -1 if gone.
func (s *Store) Position(k Kind, id uint64) int {
	for i, r := range s.Rows(k) {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) RemoveByID(k Kind, id uint64) bool {
	return s.RemoveRow(k, s.Position(k, id))
}

// SetField replaces the sex marker or one locus of the row at pos.
func (s *Store) SetField(k Kind, pos int, f gene.Field, value string) error {
	if s.mode != ModeStructured {
		return ErrWrongMode
	}
	cur := s.Rows(k)
	if pos < 0 || pos >= len(cur) {
		return ErrNoRow
	}
	spec, err := cur[pos].Spec.With(f, value)
	if err != nil {
		return err
	}
	out := make([]Row, len(cur))
	copy(out, cur)
	out[pos].Spec = spec
	s.publish(k, out)
	return nil
}

// SetRawRow replaces the whole text of the row at pos. The text is kept as
// typed; it is only split into tokens at submission time.
func (s *Store) SetRawRow(k Kind, pos int, text string) error {
	if s.mode != ModeText {
		return ErrWrongMode
	}
	cur := s.Rows(k)
	if pos < 0 || pos >= len(cur) {
		return ErrNoRow
	}
	out := make([]Row, len(cur))
	copy(out, cur)
	out[pos].Raw = text
	s.publish(k, out)
	return nil
}
