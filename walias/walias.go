// walias.go - weighted-alias categorical sampler.
// Copyright (C) 2017  David Anthony Stainton
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

// Package walias implements Vose's alias method for drawing from a
// weighted categorical distribution in O(1) time per draw, after an
// O(n) construction pass. TopologyConfig uses one Table per layer to
// pick mixes proportional to their bandwidth weight; Histogram uses one
// Table over bin counts to pick a bin proportional to its empirical
// frequency.
package walias

import (
	"errors"
	"math/rand/v2"
)

// ErrNoWeights is returned when a Table is built over an empty or
// all-zero weight set; a categorical distribution needs at least one
// positive weight to draw from.
var ErrNoWeights = errors.New("walias: need at least one positive weight")

// Table is a precomputed alias table over a fixed set of weights.
// It is immutable after construction and safe for concurrent read-only
// use by many goroutines.
type Table struct {
	prob  []float64
	alias []int
}

// New builds an alias Table over weights. weights must be non-empty and
// contain at least one strictly positive entry; negative weights are
// rejected.
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, ErrNoWeights
	}

	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, errors.New("walias: negative weight")
		}
		total += w
	}
	if total <= 0 {
		return nil, ErrNoWeights
	}

	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		scaled[i] = w * float64(n) / total
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	prob := make([]float64, n)
	alias := make([]int, n)

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		prob[l] = scaled[l]
		alias[l] = g

		scaled[g] = scaled[g] + scaled[l] - 1
		if scaled[g] < 1 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}
	// Leftovers differ from 1 only by floating point slop; clamp to certain.
	for _, i := range large {
		prob[i] = 1
	}
	for _, i := range small {
		prob[i] = 1
	}

	return &Table{prob: prob, alias: alias}, nil
}

// Sample draws one index in [0, n) proportional to the weight it was
// constructed with.
func (t *Table) Sample(rng *rand.Rand) int {
	n := len(t.prob)
	i := rng.IntN(n)
	if rng.Float64() < t.prob[i] {
		return i
	}
	return t.alias[i]
}

// Len returns the number of categories in the table.
func (t *Table) Len() int {
	return len(t.prob)
}
