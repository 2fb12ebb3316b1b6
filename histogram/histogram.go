// histogram.go - empirical timestamp/size histograms and their sampler.
// Copyright (C) 2018  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package histogram bins an empirical list of timestamps into a small
// number of buckets and builds a weighted-alias sampler over them, so
// the email user model can draw plausible send times and sizes without
// keeping the raw trace around.
package histogram

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/frochet/routesim/walias"
)

// DefaultPeriod is the period, in seconds, assumed when the input data
// spans zero seconds (every data point is equal): one week.
const DefaultPeriod = 60 * 60 * 24 * 7

// Input is the on-disk JSON shape of a histogram source: a number of
// samples to draw per period, and the raw empirical data points
// (timestamps in seconds for the inter-arrival histogram, byte counts
// for the size histogram).
type Input struct {
	NbrSampling uint32   `json:"nbr_sampling"`
	Data        []uint64 `json:"data"`
}

// Histogram is a binned empirical distribution plus a weighted-alias
// sampler over its bins. It is immutable after construction and safe
// for concurrent read-only use.
type Histogram struct {
	// NbrSampling is the number of draws expected per Period.
	NbrSampling uint32

	period     uint64
	timestamps []uint64
	table      *walias.Table
}

// Period returns the span, in seconds, covered by NbrSampling draws.
func (h *Histogram) Period() uint64 {
	return h.period
}

// SamplingCount returns the number of draws expected per Period.
func (h *Histogram) SamplingCount() uint32 {
	return h.NbrSampling
}

// LoadFile reads a histogram JSON file from disk and bins it with the
// given bin width.
func LoadFile(path string, binSize uint64) (*Histogram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromJSON(data, binSize)
}

// FromJSON decodes a histogram Input from JSON and bins it with the
// given bin width.
func FromJSON(data []byte, binSize uint64) (*Histogram, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return FromData(in.Data, in.NbrSampling, binSize)
}

// FromData bins sorted (ascending order is enforced internally) sample
// data into buckets of width binSize and builds the alias sampler.
// binSize must be strictly positive. An empty or single-element input
// is rejected, since a categorical sampler needs at least one positive
// weight.
func FromData(data []uint64, nbrSampling uint32, binSize uint64) (*Histogram, error) {
	if binSize == 0 {
		return nil, errors.New("histogram: bin_size must be > 0")
	}

	sorted := make([]uint64, len(data))
	copy(sorted, data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(sorted) <= 1 {
		return nil, errors.New("histogram: need at least two data points")
	}

	first := sorted[0]
	last := sorted[len(sorted)-1]
	period := last - first
	if period == 0 {
		period = DefaultPeriod
	}

	timestamps, weights := bin(sorted, first, last, binSize)
	if len(timestamps) == 0 {
		return nil, errors.New("histogram: no bins produced from data")
	}

	fweights := make([]float64, len(weights))
	for i, w := range weights {
		fweights[i] = float64(w)
	}
	table, err := walias.New(fweights)
	if err != nil {
		return nil, err
	}

	return &Histogram{
		period:      period,
		NbrSampling: nbrSampling,
		timestamps:  timestamps,
		table:       table,
	}, nil
}

// bin implements the nearest-bin-center assignment pass: each value is
// folded into the running bin if it is closer to the current bin
// center than to the next one, otherwise the current bin is flushed
// and a new bin center -- the multiple of binSize nearest to the value
// -- is opened.
func bin(sorted []uint64, first, last, binSize uint64) ([]uint64, []uint64) {
	var timestamps, weights []uint64

	// Signed arithmetic throughout: curval (the value offset from the
	// series minimum) and curBin (an absolute bin center) live in
	// different spaces and their difference can legitimately go
	// negative -- mirrors the original binning pass byte for byte.
	bs := int64(binSize)
	var curBin int64
	var count uint64
	for _, tu := range sorted {
		t := int64(tu)
		curval := t - int64(first)
		if curval-curBin <= curBin+bs-curval {
			count++
			if tu == last {
				timestamps = append(timestamps, uint64(curBin))
				weights = append(weights, count)
			}
			// else: sentinel (0,0), dropped.
			continue
		}

		thisBin, thisCount := curBin, count
		count = 1
		prevBin := t - (t % bs)
		if t-prevBin <= prevBin+bs-t {
			curBin = prevBin
		} else {
			curBin = prevBin + bs
		}
		timestamps = append(timestamps, uint64(thisBin))
		weights = append(weights, thisCount)
	}
	return timestamps, weights
}

// Sample draws one bin center proportional to its empirical weight.
func (h *Histogram) Sample(rng *rand.Rand) uint64 {
	idx := h.table.Sample(rng)
	return h.timestamps[idx]
}
