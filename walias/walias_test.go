package walias

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNoWeights)
}

func TestNewRejectsAllZero(t *testing.T) {
	_, err := New([]float64{0, 0, 0})
	require.ErrorIs(t, err, ErrNoWeights)
}

func TestNewRejectsNegative(t *testing.T) {
	_, err := New([]float64{1, -1})
	require.Error(t, err)
}

func TestSampleStaysInRange(t *testing.T) {
	tbl, err := New([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		idx := tbl.Sample(rng)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, tbl.Len())
	}
}

func TestSampleProportions(t *testing.T) {
	// Heavily weight the last category; over enough draws it should
	// dominate the empirical distribution.
	tbl, err := New([]float64{1, 1, 1, 1000})
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(42, 7))
	counts := make([]int, 4)
	const draws = 20000
	for i := 0; i < draws; i++ {
		counts[tbl.Sample(rng)]++
	}
	require.Greater(t, counts[3], draws*9/10)
}

func TestSampleSingleton(t *testing.T) {
	tbl, err := New([]float64{5})
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 10; i++ {
		require.Equal(t, 0, tbl.Sample(rng))
	}
}
