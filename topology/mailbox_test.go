package topology

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frochet/routesim/mixnode"
)

func TestNewMailboxRejectsAllEmptyLayers(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := NewMailbox([][]mixnode.Mixnode{nil, {}}, rng)
	require.ErrorIs(t, err, ErrNoCandidateLayers)
}

func TestNewMailboxSkipsEmptyLayers(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	layer0 := []mixnode.Mixnode{{MixID: 7, IsMalicious: true}}
	mbx, err := NewMailbox([][]mixnode.Mixnode{nil, layer0}, rng)
	require.NoError(t, err)
	require.EqualValues(t, 7, mbx.MixID)
	require.True(t, mbx.IsMalicious)
}
