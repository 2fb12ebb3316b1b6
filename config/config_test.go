// config_test.go - routesim run configuration.
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

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromFileMergesOverDefaults(t *testing.T) {
	tomlConfigStr := `
InDir = "/var/lib/routesim/topologies"
Users = 2000
Contacts = 5
UserModel = "email"
ToConsole = true
`
	tmpConfigFile, err := os.CreateTemp("", "routesimConfigTest")
	require.NoError(t, err)
	defer os.Remove(tmpConfigFile.Name())

	_, err = tmpConfigFile.WriteString(tomlConfigStr)
	require.NoError(t, err)

	cfg, err := FromFile(tmpConfigFile.Name())
	require.NoError(t, err)

	require.Equal(t, "/var/lib/routesim/topologies", cfg.InDir)
	require.EqualValues(t, 2000, cfg.Users)
	require.Equal(t, 5, cfg.Contacts)
	require.Equal(t, "email", cfg.UserModel)
	require.True(t, cfg.ToConsole)
	// Untouched fields keep their default value.
	require.Equal(t, 1, cfg.Days)
	require.True(t, cfg.UseGuards)
}

func TestValidateRejectsMissingInDir(t *testing.T) {
	cfg := Default()
	err := cfg.Validate(1)
	require.Error(t, err)
}

func TestValidateRejectsTooManyContacts(t *testing.T) {
	cfg := Default()
	cfg.InDir = "/tmp"
	cfg.Contacts = 99999
	cfg.Users = 10
	err := cfg.Validate(1)
	require.Error(t, err)
}

func TestValidateAutoExtendsEpochWhenCoverageTooShort(t *testing.T) {
	cfg := Default()
	cfg.InDir = "/tmp"
	cfg.Days = 1
	cfg.Epoch = 10
	err := cfg.Validate(1)
	require.NoError(t, err)
	require.EqualValues(t, 86401, cfg.Epoch)
}
