// topology.go - one epoch's view of the mix topology.
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

// Package topology partitions a list of mixnodes into path layers and
// an unselected pool for one topology epoch, and samples paths,
// guards and mailboxes over that partition.
package topology

import (
	"errors"
	"math/rand/v2"

	"github.com/frochet/routesim/constants"
	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/walias"
)

// ErrEmptyLayer is returned by SamplePath or SampleGuards when the
// requested layer has no mixes to draw from.
var ErrEmptyLayer = errors.New("topology: layer has no mixes")

// TopologyConfig is one epoch's partition of the mix population: three
// path layers, each with its own weighted-alias sampler, an unselected
// pool, and one mailbox per user. It is built once per epoch by Load
// and is immutable afterwards, so the same *TopologyConfig can be
// shared read-only by every user goroutine of that epoch.
type TopologyConfig struct {
	Epoch uint32

	layers        [constants.NumLayers][]mixnode.Mixnode
	layerSamplers [constants.NumLayers]*walias.Table

	unselected map[uint32]mixnode.Mixnode
	mailboxes  map[uint32]Mailbox
}

// Load partitions mixes into path layers and the unselected pool for
// one epoch, builds one alias sampler per non-empty layer, and draws
// one mailbox per user from layer 0.
func Load(epoch uint32, mixes []mixnode.Mixnode, totalUsers uint32, rng *rand.Rand) (*TopologyConfig, error) {
	tc := &TopologyConfig{
		Epoch:      epoch,
		unselected: make(map[uint32]mixnode.Mixnode),
		mailboxes:  make(map[uint32]Mailbox, totalUsers),
	}

	for _, m := range mixes {
		if m.InPathLayer() {
			tc.layers[m.Layer] = append(tc.layers[m.Layer], m)
		} else {
			tc.unselected[m.MixID] = m
		}
	}

	for i := range tc.layers {
		if len(tc.layers[i]) == 0 {
			continue
		}
		weights := make([]float64, len(tc.layers[i]))
		for j, m := range tc.layers[i] {
			weights[j] = m.Weight
		}
		table, err := walias.New(weights)
		if err != nil {
			return nil, err
		}
		tc.layerSamplers[i] = table
	}

	for uid := uint32(0); uid < totalUsers; uid++ {
		mbx, err := NewMailbox([][]mixnode.Mixnode{tc.layers[0]}, rng)
		if err != nil {
			return nil, err
		}
		tc.mailboxes[uid] = mbx
	}

	return tc, nil
}

// SamplePath draws one path of constants.PathLength hops, one per
// layer. If guard is non-nil, it is placed directly at
// constants.GuardsLayer instead of being drawn, modelling the
// persistent first hop a user has already committed to.
func (tc *TopologyConfig) SamplePath(rng *rand.Rand, guard *mixnode.Mixnode) ([constants.PathLength]mixnode.Mixnode, error) {
	var path [constants.PathLength]mixnode.Mixnode
	for layer := 0; layer < constants.PathLength; layer++ {
		if layer == constants.GuardsLayer && guard != nil {
			path[layer] = *guard
			continue
		}
		mix, err := tc.sampleFromLayer(layer, rng)
		if err != nil {
			return path, err
		}
		path[layer] = mix
	}
	return path, nil
}

// SampleGuards draws n independent, with-replacement candidates from
// constants.GuardsLayer (or an arbitrary layer if the caller overrides
// it, though guards are always drawn from constants.GuardsLayer in
// practice).
func (tc *TopologyConfig) SampleGuards(layer int, n int, rng *rand.Rand) ([]mixnode.Mixnode, error) {
	out := make([]mixnode.Mixnode, 0, n)
	for i := 0; i < n; i++ {
		mix, err := tc.sampleFromLayer(layer, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, mix)
	}
	return out, nil
}

func (tc *TopologyConfig) sampleFromLayer(layer int, rng *rand.Rand) (mixnode.Mixnode, error) {
	if layer < 0 || layer >= constants.NumLayers || tc.layerSamplers[layer] == nil {
		return mixnode.Mixnode{}, ErrEmptyLayer
	}
	idx := tc.layerSamplers[layer].Sample(rng)
	return tc.layers[layer][idx], nil
}

// GetMailbox looks up the mailbox assigned to userid in this epoch.
func (tc *TopologyConfig) GetMailbox(userid uint32) (Mailbox, bool) {
	mbx, ok := tc.mailboxes[userid]
	return mbx, ok
}

// IsOffline reports whether mixid is parked in this epoch's
// unselected pool, i.e. it was sampled out of every path layer and so
// cannot appear on a path or serve as a guard this epoch.
func (tc *TopologyConfig) IsOffline(mixid uint32) bool {
	_, ok := tc.unselected[mixid]
	return ok
}

// IsPathMalicious reports whether every hop on path is malicious and,
// when mbx is non-nil, the mailbox receiving the request is malicious
// too -- the full chain an adversary would need to control to
// de-anonymize a single request end to end.
func IsPathMalicious(path []mixnode.Mixnode, mbx *Mailbox) bool {
	for _, hop := range path {
		if !hop.IsMalicious {
			return false
		}
	}
	return mbx == nil || mbx.IsMalicious
}
