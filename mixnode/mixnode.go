// mixnode.go - mixnode record and CSV line parsing.
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

// Package mixnode contains the immutable per-mix record used throughout
// routesim, and the line parser that turns one topology CSV row into one.
package mixnode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UnselectedLayer marks a mix that belongs to no path layer for a given
// topology -- it is parked in that topology's unselected pool instead.
const UnselectedLayer int8 = -1

// Mixnode is one relay in a topology. It is built once at load time and
// never mutated afterwards; callers hold plain pointers into the
// topology's layer slices.
type Mixnode struct {
	MixID       uint32
	Weight      float64
	IsMalicious bool
	Layer       int8
}

// ErrMissingArguments is returned when a CSV line has fewer than the
// four required fields.
var ErrMissingArguments = errors.New("mixnode: missing arguments")

// Parse parses one topology CSV data line of the form
// "mixid, weight, is_malicious, layer". Fields are comma-separated,
// surrounding whitespace is trimmed, and booleans are matched
// case-insensitively. Extra trailing fields are ignored.
func Parse(line string) (Mixnode, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 4 {
		return Mixnode{}, ErrMissingArguments
	}

	mixid, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Mixnode{}, fmt.Errorf("mixnode: bad mixid %q: %w", fields[0], err)
	}
	weight, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Mixnode{}, fmt.Errorf("mixnode: bad weight %q: %w", fields[1], err)
	}
	isMalicious, err := strconv.ParseBool(strings.ToLower(fields[2]))
	if err != nil {
		return Mixnode{}, fmt.Errorf("mixnode: bad is_malicious %q: %w", fields[2], err)
	}
	layer, err := strconv.ParseInt(fields[3], 10, 8)
	if err != nil {
		return Mixnode{}, fmt.Errorf("mixnode: bad layer %q: %w", fields[3], err)
	}

	return Mixnode{
		MixID:       uint32(mixid),
		Weight:      weight,
		IsMalicious: isMalicious,
		Layer:       int8(layer),
	}, nil
}

// InPathLayer reports whether the mix's layer selects it into one of
// the three path layers, as opposed to the unselected pool.
func (m Mixnode) InPathLayer() bool {
	return m.Layer >= 0 && int(m.Layer) < 3
}
