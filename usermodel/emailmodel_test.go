package usermodel

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frochet/routesim/histogram"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/queue"
	"github.com/frochet/routesim/topology"
)

func buildHistogram(t *testing.T, data []uint64, nbrSampling uint32, binSize uint64) *histogram.Histogram {
	h, err := histogram.FromData(data, nbrSampling, binSize)
	require.NoError(t, err)
	return h
}

func TestEmailModelDispatchesToContactsAndYieldsBurst(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	mixes := []mixnode.Mixnode{
		{MixID: 0, Weight: 1.0, Layer: 0},
		{MixID: 1, Weight: 1.0, Layer: 1},
		{MixID: 2, Weight: 1.0, Layer: 2},
	}
	tc, err := topology.Load(0, mixes, 10, rng)
	require.NoError(t, err)
	configs := []*topology.TopologyConfig{tc}

	infoA, err := New(0, configs, 43200, false, rng)
	require.NoError(t, err)
	infoB, err := New(1, configs, 43200, false, rng)
	require.NoError(t, err)

	q := queue.New()
	infoA.SetContacts([]uint32{1})
	infoA.AddSender(1, q)
	infoB.WithReceiver(q)

	ts := buildHistogram(t, []uint64{100, 100, 200, 200, 300}, 3, 50)
	sz := buildHistogram(t, []uint64{2048, 2048, 4096}, 3, 2048)

	model := NewEmail(infoA, 10, 43200, rng)
	model.SetLimit(86399)
	model.WithTimestampSampler(ts)
	model.WithSizeSampler(sz)

	var last uint64
	emitted := 0
	for i := 0; i < 200; i++ {
		em, ok := model.Next()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, em.Timestamp, last)
		last = em.Timestamp
		emitted++
	}
	require.Greater(t, emitted, 0)
	require.Equal(t, BothPeers, model.ModelKind())

	q.Close()
	received := 0
	for {
		_, ok := q.Recv()
		if !ok {
			break
		}
		received++
	}
	require.Greater(t, received, 0)
}
