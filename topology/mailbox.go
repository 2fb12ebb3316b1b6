// mailbox.go - per-user asynchronous delivery endpoint.
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

package topology

import (
	"errors"
	"math/rand/v2"

	"github.com/frochet/routesim/mixnode"
)

// Mailbox is a stable delivery endpoint a user publishes for
// asynchronous reception: one mixnode from one of the candidate
// layers, typically layer 0.
//
// A real deployment would let users choose mailbox placement
// themselves; here it is drawn uniformly at random on the caller's
// behalf.
type Mailbox struct {
	MixID       uint32
	IsMalicious bool
}

// ErrNoCandidateLayers is returned when every candidate layer passed
// to NewMailbox is empty.
var ErrNoCandidateLayers = errors.New("topology: no non-empty candidate layer for mailbox")

// NewMailbox builds a Mailbox by uniformly choosing one of fromLayers
// (skipping empty ones), then uniformly choosing one mixnode within
// it.
func NewMailbox(fromLayers [][]mixnode.Mixnode, rng *rand.Rand) (Mailbox, error) {
	candidates := make([][]mixnode.Mixnode, 0, len(fromLayers))
	for _, l := range fromLayers {
		if len(l) > 0 {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return Mailbox{}, ErrNoCandidateLayers
	}
	layer := candidates[rng.IntN(len(candidates))]
	mix := layer[rng.IntN(len(layer))]
	return Mailbox{MixID: mix.MixID, IsMalicious: mix.IsMalicious}, nil
}
