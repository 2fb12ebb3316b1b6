// config.go - routesim run configuration.
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

// Package config provides the TOML-backed defaults file for routesim,
// layered underneath whatever the CLI flags themselves supply.
package config

import (
	"fmt"
	"os"

	"github.com/op/go-logging"
	"github.com/pelletier/go-toml"

	"github.com/frochet/routesim/constants"
)

var log = logging.MustGetLogger("routesim")

// Config is the full set of knobs one simulation run needs. Every
// field may also be supplied as a CLI flag; a flag explicitly set on
// the command line overrides whatever is loaded here.
type Config struct {
	InDir     string
	Days      int
	UserModel string
	Users     uint32
	Epoch     uint32
	Contacts  int
	UseGuards bool
	ToConsole bool

	TimestampsHistPath string
	SizesHistPath      string

	MetricsAddr string
	LogLevel    string
}

// Default returns the configuration routesim runs with when neither a
// TOML file nor CLI flags override a field.
func Default() Config {
	return Config{
		Days:               1,
		UserModel:          "simple",
		Users:              5000,
		Epoch:              constants.DefaultEpoch,
		Contacts:           10,
		UseGuards:          true,
		ToConsole:          false,
		TimestampsHistPath: "timestamps.json",
		SizesHistPath:      "sizes.json",
		LogLevel:           "INFO",
	}
}

// FromFile loads a TOML defaults file and merges it over Default().
func FromFile(fileName string) (*Config, error) {
	cfg := Default()
	fileData, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(fileData, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", fileName, err)
	}
	return &cfg, nil
}

// Validate checks the cross-field invariants the CLI cannot express
// with simple per-flag constraints, and auto-extends Epoch when the
// requested run would outlive the topology's declared coverage,
// matching the documented "auto-extend with a warning" policy rather
// than aborting on an easily-recoverable mismatch.
func (c *Config) Validate(numTopologies int) error {
	if c.InDir == "" {
		return fmt.Errorf("config: in-dir is required")
	}
	if c.Contacts > int(c.Users) {
		return fmt.Errorf("config: contacts (%d) must be <= users (%d)", c.Contacts, c.Users)
	}
	if c.UserModel != "simple" && c.UserModel != "email" {
		return fmt.Errorf("config: unknown user model %q", c.UserModel)
	}

	needed := uint64(c.Days) * constants.SecondsPerDay
	covered := uint64(numTopologies) * uint64(c.Epoch)
	if covered <= needed {
		extended := uint32(needed + 1)
		log.Warningf("epoch coverage (%d*%d=%d) does not exceed the requested run length (%ds); "+
			"extending epoch to %d", numTopologies, c.Epoch, covered, needed, extended)
		c.Epoch = extended
	}
	return nil
}
