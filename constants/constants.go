// constants.go - routesim simulation constants.
// Copyright (C) 2017  Yawning Angel.
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

// Package constants contains the simulation-wide constants for routesim.
package constants

const (
	// PathLength is the number of mix hops a sampled path contains.
	PathLength = 3

	// NumLayers is the number of path layers a topology partitions its
	// mixes into (0, 1 and 2). Mixes outside of this range land in the
	// unselected pool for that topology.
	NumLayers = 3

	// PayloadSize is the number of bytes carried by a single packet. A
	// request's size in bytes is expanded into floor(size/PayloadSize)+1
	// packets.
	PayloadSize = 2048

	// GuardsLayer is the path layer from which persistent guard
	// candidates are drawn.
	GuardsLayer = 1

	// GuardsSampleSize is the number of guard candidates sampled for a
	// user on construction.
	GuardsSampleSize = 5

	// GuardsSampleSizeExtend is the number of additional guard
	// candidates sampled when every known guard is offline at the
	// current topology.
	GuardsSampleSizeExtend = 2

	// IntervalMin and IntervalMax bound the uniform inter-arrival delay,
	// in seconds, used by the synchronous user model.
	IntervalMin = 300
	IntervalMax = 900

	// DefaultEpoch is the default lifetime, in seconds, of one topology.
	DefaultEpoch = 86401

	// SecondsPerDay is used to convert a simulated day count into a
	// timestamp limit.
	SecondsPerDay = 60 * 60 * 24

	// BatchLineSize is the number of output records grouped onto one
	// buffered line before a newline is emitted, when writing to a file
	// sink rather than a console.
	BatchLineSize = 10000

	// DefaultRequestSize is a nominal byte size for a request whose size
	// is not drawn from a histogram. No user model references it: the
	// synchronous model sends no request payload at all.
	DefaultRequestSize = 1
)
