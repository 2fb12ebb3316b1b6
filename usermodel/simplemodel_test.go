package usermodel

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleModelTerminatesAtLimit(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	info, err := New(1, nil, 100, false, rng)
	require.NoError(t, err)

	m := NewSimple(info, rng)
	m.SetLimit(1000)

	var last uint64
	count := 0
	for {
		em, ok := m.Next()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, em.Timestamp, last)
		require.Less(t, em.Timestamp, uint64(1000))
		last = em.Timestamp
		count++
		require.Less(t, count, 100) // sanity bound against an infinite loop
	}
	require.Greater(t, count, 0)
	require.Equal(t, ClientOnly, m.ModelKind())
}
