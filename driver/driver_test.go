package driver

import (
	"bytes"
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/frochet/routesim/histogram"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/output"
	"github.com/frochet/routesim/topology"
)

func smallTopology(t *testing.T, epoch uint32) *topology.TopologyConfig {
	mixes := []mixnode.Mixnode{
		{MixID: 0, Weight: 1.0, Layer: 0},
		{MixID: 1, Weight: 1.0, Layer: 1},
		{MixID: 2, Weight: 1.0, Layer: 2},
	}
	tc, err := topology.Load(epoch, mixes, 5, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	return tc
}

func TestRunSimpleModelEmitsRecords(t *testing.T) {
	configs := []*topology.TopologyConfig{smallTopology(t, 0)}

	var buf bytes.Buffer
	sink := output.NewSink(&buf, true)

	r, err := Init(Config{
		Users:     5,
		Configs:   configs,
		Days:      1,
		Epoch:     90000,
		Contacts:  2,
		UseGuards: true,
		Model:     Simple,
		Sink:      sink,
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, sink.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 0)
	for _, line := range lines {
		require.True(t, strings.HasSuffix(line, "true") || strings.HasSuffix(line, "false"))
	}
}

// TestRunEmailModelCompletesWithoutDeadlockOrPanic exercises the
// BothPeers path end to end: multiple users, at least one contact
// each, a shared inbox per user referenced from several senders. It
// guards against both the double-close panic and the fixed-capacity
// inbox deadlock a bounded channel would hit once per-inbox traffic
// exceeds its buffer during pass 1.
func TestRunEmailModelCompletesWithoutDeadlockOrPanic(t *testing.T) {
	configs := []*topology.TopologyConfig{smallTopology(t, 0)}

	ts, err := histogram.FromData([]uint64{1000, 1000, 9000, 9000, 17000}, 300, 8000)
	require.NoError(t, err)
	sz, err := histogram.FromData([]uint64{2048, 2048, 4096}, 300, 2048)
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := output.NewSink(&buf, true)

	r, err := Init(Config{
		Users:         6,
		Configs:       configs,
		Days:          1,
		Epoch:         90000,
		Contacts:      2,
		UseGuards:     true,
		Model:         Email,
		TimestampHist: ts,
		SizeHist:      sz,
		Sink:          sink,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not complete: suspected deadlock on a bounded inbox")
	}
}

func TestInitRejectsTooManyContacts(t *testing.T) {
	configs := []*topology.TopologyConfig{smallTopology(t, 0)}
	var buf bytes.Buffer
	_, err := Init(Config{
		Users:    3,
		Configs:  configs,
		Days:     1,
		Epoch:    90000,
		Contacts: 10,
		Model:    Simple,
		Sink:     output.NewSink(&buf, true),
	})
	require.Error(t, err)
}
