package userrequest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDDependsOnlyOnTriple(t *testing.T) {
	peers := Peers{Sender: 1, Receiver: 2}
	a := NewID(100, 4096, peers)
	b := NewID(100, 4096, peers)
	require.Equal(t, a, b)

	c := NewID(100, 4097, peers)
	require.NotEqual(t, a, c)

	d := NewID(100, 4096, Peers{Sender: 2, Receiver: 1})
	require.NotEqual(t, a, d)
}

func TestZeroSizeRequestYieldsExactlyOnePacket(t *testing.T) {
	r := New(42, 0, 0, Peers{Sender: 1, Receiver: 2})

	ts, ok := r.Next()
	require.True(t, ok)
	require.EqualValues(t, 42, ts)

	_, ok = r.Next()
	require.False(t, ok)
	require.True(t, r.Exhausted())
}

func TestMultiPacketRequestExpandsBySize(t *testing.T) {
	r := New(10, 5000, 0, Peers{Sender: 1, Receiver: 2})

	count := 0
	for {
		ts, ok := r.Next()
		if !ok {
			break
		}
		require.EqualValues(t, 10, ts)
		count++
	}
	// ceil(5000/2048) == 3
	require.Equal(t, 3, count)
	require.True(t, r.Exhausted())
}

func TestPacketTimestampsAreNonDecreasingAcrossOneBurst(t *testing.T) {
	r := New(99, 10000, 0, Peers{Sender: 1, Receiver: 2})
	var last uint64
	for {
		ts, ok := r.Next()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, ts, last)
		last = ts
	}
}
