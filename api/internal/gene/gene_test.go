package gene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_Tuple(t *testing.T) {
	assert.Equal(t, []string{"m", "Aa", "Bb", "Cc"}, DefaultParent.Tuple())
}

func TestSpec_With(t *testing.T) {
	s, err := DefaultParent.With(FieldSex, "f")
	require.NoError(t, err)
	assert.Equal(t, Female, s.Sex)
	assert.Equal(t, Male, DefaultParent.Sex, "original untouched")

	s, err = s.With(FieldB, "bb")
	require.NoError(t, err)
	assert.Equal(t, [LociCount]string{"Aa", "bb", "Cc"}, s.Genes)

	_, err = s.With(FieldA, "BB")
	assert.ErrorIs(t, err, ErrBadValue)

	_, err = s.With(Field(7), "AA")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSpec_Next(t *testing.T) {
	v, err := DefaultParent.Next(FieldA)
	require.NoError(t, err)
	assert.Equal(t, "aa", v)

	s := NewSpec(Female, "aa", "BB", "CC")
	v, err = s.Next(FieldA)
	require.NoError(t, err)
	assert.Equal(t, "AA", v, "wraps around")

	v, err = s.Next(FieldSex)
	require.NoError(t, err)
	assert.Equal(t, "m", v)
}

func TestSpec_Valid(t *testing.T) {
	assert.True(t, DefaultTarget.Valid())
	assert.False(t, NewSpec("x", "AA", "BB", "CC").Valid())
	assert.False(t, NewSpec(Male, "AA", "Cc", "CC").Valid())
}
