/*
Copyright 2024 The Holpaca Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPerThreadOverrideTakesPrecedence(t *testing.T) {
	c := New()
	c.Set("cachelib.size", "1000000000")
	c.Set("cachelib.size.3", "2000000000")

	require.Equal(t, uint64(2000000000), c.GetUint64("cachelib.size", 3, 0))
	require.Equal(t, uint64(1000000000), c.GetUint64("cachelib.size", 7, 0))
	require.Equal(t, uint64(1000000000), c.GetUint64("cachelib.size", -1, 0))
}

func TestGetBoolAcceptsOnOff(t *testing.T) {
	c := New()
	c.Set("cachelib.poolresizer", "on")
	c.Set("cachelib.poolrebalancer", "off")

	require.True(t, c.GetBool("cachelib.poolresizer", -1, false))
	require.False(t, c.GetBool("cachelib.poolrebalancer", -1, true))
	require.True(t, c.GetBool("cachelib.pooloptimizer", -1, true), "missing key falls back to default")
}

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holpaca.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cachelib.size: \"500000000\"\nholpaca.proportion: \"2.0\"\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(500000000), c.GetUint64("cachelib.size", -1, 0))
	require.Equal(t, 2.0, c.GetFloat64("holpaca.proportion", -1, 1.0))
}

func TestParseFlagsOverlaysFileWithSetFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holpaca.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holpaca.proportion: \"1.0\"\n"), 0o644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	configPath, sets := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", path, "-set", "holpaca.proportion=3.0"}))

	c, err := ParseFlags(configPath, sets)
	require.NoError(t, err)
	require.Equal(t, 3.0, c.GetFloat64("holpaca.proportion", -1, 0))
}

func TestHasReportsMissingKeys(t *testing.T) {
	c := New()
	require.False(t, c.Has("missing.key", -1))
	c.Set("present.key", "x")
	require.True(t, c.Has("present.key", -1))
}
