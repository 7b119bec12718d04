// Copyright The GridSolve Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memmgr_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/gridsolve/memmgr/pkg/memmgr"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memmgr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
host: host-64
device: none
pooled: true
`)
	cfg, err := ReadConfig(path)
	require.NoError(t, err, "unexpected ReadConfig() error")
	require.Equal(t, "host-64", cfg.Host)
	require.Equal(t, "none", cfg.Device)
	require.True(t, cfg.Pooled)
	require.Equal(t, "host=host-64,device=none,pooled", cfg.String())

	m, err := New(WithConfig(cfg))
	require.NoError(t, err, "unexpected New() error")
	require.Equal(t, TypeHost64, m.HostType())
	require.Equal(t, TypeNone, m.DeviceType())
	require.NoError(t, m.Close())
}

func TestReadConfigErrors(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	require.Error(t, err, "missing configuration file")

	_, err = ReadConfig(writeConfig(t, "host: [not, a, string]\n"))
	require.Error(t, err, "malformed configuration")

	_, err = ReadConfig(writeConfig(t, "hostt: host\n"))
	require.Error(t, err, "unknown configuration key")
}

func TestConfigValidation(t *testing.T) {
	_, err := New(WithConfig(&Config{Host: "pinned"}))
	require.ErrorIs(t, err, ErrInvalidType, "unknown host memory type")

	_, err = New(WithConfig(&Config{Host: "device"}))
	require.ErrorIs(t, err, ErrInvalidType, "device as a host memory type")

	_, err = New(WithHostType(TypeUnified))
	require.ErrorIs(t, err, ErrConfig, "unified host with non-unified device")

	_, err = New(WithDeviceType(TypeUnified))
	require.ErrorIs(t, err, ErrConfig, "unified device with non-unified host")

	_, err = New(WithHostType(TypeUnified), WithDeviceType(TypeUnified), WithPooling())
	require.ErrorIs(t, err, ErrConfig, "pooled unified memory")

	_, err = New(WithDeviceType(TypeHost))
	require.ErrorIs(t, err, ErrInvalidType, "host as a device memory type")
}

func TestConfigString(t *testing.T) {
	require.Equal(t, "host=host,device=device", (&Config{}).String())
	require.Equal(t, "host=guarded,device=device,pooled",
		(&Config{Host: "guarded", Pooled: true}).String())
}
