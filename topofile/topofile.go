// topofile.go - loads a directory of topology CSV files into a
// epoch-sorted slice of *topology.TopologyConfig.
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

// Package topofile is the on-disk boundary between topology CSV files
// and the in-memory topology package: one file per epoch, a header
// line naming the epoch, and one data line per mix.
package topofile

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/frochet/routesim/mixnode"
	"github.com/frochet/routesim/topology"
)

// LoadDir reads every CSV file directly under dir, parses its mixes,
// and builds one *topology.TopologyConfig per file. The result is
// sorted ascending by the epoch encoded in each file's header.
func LoadDir(dir string, totalUsers uint32, rng *rand.Rand) ([]*topology.TopologyConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("topofile: read dir %s: %w", dir, err)
	}

	configs := make([]*topology.TopologyConfig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		epoch, mixes, err := parseFile(path)
		if err != nil {
			return nil, fmt.Errorf("topofile: %s: %w", path, err)
		}
		tc, err := topology.Load(epoch, mixes, totalUsers, rng)
		if err != nil {
			return nil, fmt.Errorf("topofile: building topology from %s: %w", path, err)
		}
		configs = append(configs, tc)
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("topofile: no .csv topology files found in %s", dir)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].Epoch < configs[j].Epoch })
	return configs, nil
}

// parseFile reads one topology file: a header line whose 4th
// comma-separated field is "epoch_<N>", followed by one mix record
// per subsequent line.
func parseFile(path string) (uint32, []mixnode.Mixnode, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, nil, fmt.Errorf("empty file")
	}
	epoch, err := parseHeader(scanner.Text())
	if err != nil {
		return 0, nil, err
	}

	var mixes []mixnode.Mixnode
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		mix, err := mixnode.Parse(line)
		if err != nil {
			return 0, nil, fmt.Errorf("bad mix line %q: %w", line, err)
		}
		mixes = append(mixes, mix)
	}
	if err := scanner.Err(); err != nil {
		return 0, nil, err
	}
	return epoch, mixes, nil
}

// parseHeader extracts the epoch identifier from a header line's 4th
// field, formatted "epoch_<N>".
func parseHeader(line string) (uint32, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return 0, fmt.Errorf("header missing epoch field: %q", line)
	}
	tag := strings.TrimSpace(fields[3])
	const prefix = "epoch_"
	if !strings.HasPrefix(tag, prefix) {
		return 0, fmt.Errorf("header field %q does not look like %q<N>", tag, prefix)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(tag, prefix), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad epoch number in %q: %w", tag, err)
	}
	return uint32(n), nil
}
