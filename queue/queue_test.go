package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frochet/routesim/userrequest"
)

func TestSendRecvPreservesOrderPerProducer(t *testing.T) {
	q := New()
	for i := uint64(0); i < 5; i++ {
		q.Send(userrequest.New(i, 0, 0, userrequest.Peers{Sender: 1, Receiver: 2}))
	}
	for i := uint64(0); i < 5; i++ {
		req, ok := q.Recv()
		require.True(t, ok)
		require.Equal(t, i, req.Time)
	}
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	q := New()
	n := initialCapacity*3 + 1
	for i := 0; i < n; i++ {
		q.Send(userrequest.New(uint64(i), 0, 0, userrequest.Peers{}))
	}
	for i := 0; i < n; i++ {
		req, ok := q.Recv()
		require.True(t, ok)
		require.EqualValues(t, i, req.Time)
	}
}

func TestCloseIsIdempotentAndDrainsBeforeFalse(t *testing.T) {
	q := New()
	q.Send(userrequest.New(1, 0, 0, userrequest.Peers{}))
	q.Close()
	q.Close() // must not panic

	_, ok := q.Recv()
	require.True(t, ok)
	_, ok = q.Recv()
	require.False(t, ok)
}

func TestSendAfterCloseIsDroppedNotPanicking(t *testing.T) {
	q := New()
	q.Close()
	q.Send(userrequest.New(1, 0, 0, userrequest.Peers{}))
	_, ok := q.Recv()
	require.False(t, ok)
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New()
	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(userrequest.New(uint64(p*perProducer+i), 0, 0, userrequest.Peers{}))
			}
		}()
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	received := 0
	for {
		_, ok := q.Recv()
		if !ok {
			break
		}
		received++
	}
	require.Equal(t, producers*perProducer, received)
}
