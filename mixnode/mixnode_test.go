package mixnode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMissingArguments(t *testing.T) {
	_, err := Parse("10,1")
	require.ErrorIs(t, err, ErrMissingArguments)
}

func TestParseCorrectArguments(t *testing.T) {
	mix, err := Parse("10, 200, False, -1")
	require.NoError(t, err)
	require.EqualValues(t, -1, mix.Layer)
	require.Equal(t, 200.0, mix.Weight)
	require.EqualValues(t, 10, mix.MixID)
	require.False(t, mix.IsMalicious)
}

func TestParseWithoutSpace(t *testing.T) {
	mix, err := Parse("0,7.222983840621532,False,-1")
	require.NoError(t, err)
	require.EqualValues(t, -1, mix.Layer)
	require.Equal(t, 7.222983840621532, mix.Weight)
	require.EqualValues(t, 0, mix.MixID)
	require.False(t, mix.IsMalicious)
}

func TestParseLongLine(t *testing.T) {
	mix, err := Parse("10, 200, False, -1, 1, 0, 2")
	require.NoError(t, err)
	require.EqualValues(t, -1, mix.Layer)
	require.Equal(t, 200.0, mix.Weight)
	require.EqualValues(t, 10, mix.MixID)
	require.False(t, mix.IsMalicious)
}

func TestParseCaseInsensitiveBool(t *testing.T) {
	mix, err := Parse("1, 1.0, TRUE, 0")
	require.NoError(t, err)
	require.True(t, mix.IsMalicious)
}

func TestInPathLayer(t *testing.T) {
	require.True(t, Mixnode{Layer: 0}.InPathLayer())
	require.True(t, Mixnode{Layer: 2}.InPathLayer())
	require.False(t, Mixnode{Layer: -1}.InPathLayer())
	require.False(t, Mixnode{Layer: 3}.InPathLayer())
}
