package histogram

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleInput() []byte {
	in := Input{
		NbrSampling: 10,
		Data:        []uint64{1, 1, 1, 3, 3, 3, 4, 4, 14, 14},
	}
	b, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	return b
}

func TestFromJSONBins(t *testing.T) {
	h, err := FromJSON(sampleInput(), 5)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 5, 15}, h.timestamps)
}

func TestFromJSONSamplesAreBinCenters(t *testing.T) {
	h, err := FromJSON(sampleInput(), 5)
	require.NoError(t, err)
	// Sample many times and check every produced timestamp is one of
	// the bin centers.
	rng := rand.New(rand.NewPCG(1, 1))
	for i := 0; i < 200; i++ {
		s := h.Sample(rng)
		require.Contains(t, h.timestamps, s)
	}
}

func TestSamplingBounded(t *testing.T) {
	h, err := FromJSON(sampleInput(), 5)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(7, 3))
	for i := 0; i < 100; i++ {
		sample := h.Sample(rng)
		require.LessOrEqual(t, sample, uint64(15))
	}
}

func TestFromDataEmptyIsError(t *testing.T) {
	_, err := FromData(nil, 10, 5)
	require.Error(t, err)
}

func TestFromDataSingleElementIsError(t *testing.T) {
	_, err := FromData([]uint64{42}, 10, 5)
	require.Error(t, err)
}

func TestFromDataZeroBinSizeIsError(t *testing.T) {
	_, err := FromData([]uint64{1, 2, 3}, 10, 0)
	require.Error(t, err)
}

func TestFromDataEmptyPeriodDefaultsToOneWeek(t *testing.T) {
	h, err := FromData([]uint64{42, 42, 42}, 5, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultPeriod), h.Period())
}

func TestNbrSamplingEchoed(t *testing.T) {
	h, err := FromJSON(sampleInput(), 5)
	require.NoError(t, err)
	require.EqualValues(t, 10, h.NbrSampling)
}
