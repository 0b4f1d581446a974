package gene

import (
	"errors"
	"slices"
)

type Sex string

const (
	Male   Sex = "m"
	Female Sex = "f"
)

// Loci are fixed in order A, B, C.
const LociCount = 3

// Field addresses one editable slot of a Spec: the sex marker or a locus index.
type Field int

const (
	FieldSex Field = -1
	FieldA   Field = 0
	FieldB   Field = 1
	FieldC   Field = 2
)

var (
	SexOptions = []string{string(Male), string(Female)}

	LocusOptions = [LociCount][]string{
		{"AA", "Aa", "aa"},
		{"BB", "Bb", "bb"},
		{"CC", "Cc", "cc"},
	}

	LocusNames = [LociCount]string{"A", "B", "C"}
)

var (
	ErrUnknownField = errors.New("gene: unknown field")
	ErrBadValue     = errors.New("gene: value not in option set")
)

// Spec is one organism: a sex label plus one genotype per locus.
type Spec struct {
	Sex   Sex               `json:"sex"`
	Genes [LociCount]string `json:"genes"`
}

func NewSpec(sex Sex, a, b, c string) Spec {
	return Spec{Sex: sex, Genes: [LociCount]string{a, b, c}}
}

// Tuple flattens the spec into the wire order [sex, A, B, C].
func (s Spec) Tuple() []string {
	return []string{string(s.Sex), s.Genes[0], s.Genes[1], s.Genes[2]}
}

// Options returns the allowed values for f.
func Options(f Field) ([]string, error) {
	switch f {
	case FieldSex:
		return SexOptions, nil
	case FieldA, FieldB, FieldC:
		return LocusOptions[f], nil
	}
	return nil, ErrUnknownField
}

// Get reads one field.
func (s Spec) Get(f Field) string {
	if f == FieldSex {
		return string(s.Sex)
	}
	if f >= FieldA && f <= FieldC {
		return s.Genes[f]
	}
	return ""
}

// With returns a copy of s with field f replaced by value.
func (s Spec) With(f Field, value string) (Spec, error) {
	opts, err := Options(f)
	if err != nil {
		return s, err
	}
	if !slices.Contains(opts, value) {
		return s, ErrBadValue
	}
	if f == FieldSex {
		s.Sex = Sex(value)
	} else {
		s.Genes[f] = value
	}
	return s, nil
}

// Next returns the option following the current value of f, wrapping around.
// Unknown current values restart at the first option.
func (s Spec) Next(f Field) (string, error) {
	opts, err := Options(f)
	if err != nil {
		return "", err
	}
	i := slices.Index(opts, s.Get(f))
	return opts[(i+1)%len(opts)], nil
}

// Valid reports whether every field is a member of its option set.
func (s Spec) Valid() bool {
	if !slices.Contains(SexOptions, string(s.Sex)) {
		return false
	}
	for i, g := range s.Genes {
		if !slices.Contains(LocusOptions[i], g) {
			return false
		}
	}
	return true
}

// Default rows used by the editors.
var (
	DefaultParent       = NewSpec(Male, "Aa", "Bb", "Cc")
	DefaultSecondParent = NewSpec(Female, "AA", "BB", "CC")
	DefaultTarget       = NewSpec(Male, "AA", "BB", "CC")
)

// EmptyParentTokens replace a blank free-text parent row at submission time.
var EmptyParentTokens = []string{string(Female), "Aa", "Bb", "Cc"}
