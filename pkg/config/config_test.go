// Copyright 2025 CardinalHQ, Inc
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

package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/cardinalhq/drunkard/pkg/hangover"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(1_000_000), cfg.Simulations)
	assert.Equal(t, int64(1_000), cfg.ProgressInterval)
	assert.Equal(t, 12, cfg.Threads)
	assert.Equal(t, int64(1), cfg.ChunkSize)
	assert.Equal(t, "data/thread_", cfg.OutputPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigs(t *testing.T) {
	t.Run("merges in order", func(t *testing.T) {
		first := writeFile(t, "a.yaml", `
simulations: 500
threads: 4
outputPrefix: out/run_
otlpDestination:
  endpoint: http://localhost:4318
  timeout: 2s
  headers:
    x-a: "1"
`)
		second := writeFile(t, "b.yaml", `
threads: 8
seed: 42
otlpDestination:
  headers:
    x-b: "2"
`)
		cfg, err := LoadConfigs([]string{first, second})
		require.NoError(t, err)

		assert.Equal(t, int64(500), cfg.Simulations)
		assert.Equal(t, int64(DefaultProgressInterval), cfg.ProgressInterval)
		assert.Equal(t, 8, cfg.Threads)
		assert.Equal(t, uint64(42), cfg.Seed)
		assert.Equal(t, "out/run_", cfg.OutputPrefix)
		assert.Equal(t, "http://localhost:4318", cfg.OTLPDestination.Endpoint)
		assert.Equal(t, 2*time.Second, cfg.OTLPDestination.Timeout)
		assert.Equal(t, map[string]string{"x-a": "1", "x-b": "2"}, cfg.OTLPDestination.Headers)
	})

	t.Run("json", func(t *testing.T) {
		path := writeFile(t, "c.json", `{"simulations": 10, "progressInterval": 4, "startIndex": 100}`)
		cfg, err := LoadConfigs([]string{path})
		require.NoError(t, err)
		assert.Equal(t, int64(10), cfg.Simulations)
		assert.Equal(t, int64(4), cfg.ProgressInterval)
		assert.Equal(t, int64(100), cfg.StartIndex)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		path := writeFile(t, "empty.yaml", "")
		cfg, err := LoadConfigs([]string{path})
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("later file resets to zero", func(t *testing.T) {
		first := writeFile(t, "a.yaml", "startIndex: 500\ndebugTelemetry: true\ndryrun: true\n")
		second := writeFile(t, "b.yaml", "startIndex: 0\ndebugTelemetry: false\n")
		cfg, err := LoadConfigs([]string{first, second})
		require.NoError(t, err)
		assert.Zero(t, cfg.StartIndex)
		assert.False(t, cfg.DebugTelemetry)
		assert.True(t, cfg.Dryrun)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "simulationz: 5\n")
		_, err := LoadConfigs([]string{path})
		var de *hangover.DecodeError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigs([]string{filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	tests := []struct {
		name    string
		vars    map[string]string
		source  string
		threads int
		wantErr bool
	}{
		{"nothing set", map[string]string{}, "", DefaultThreads, false},
		{"omp", map[string]string{EnvOMPThreads: "6"}, EnvOMPThreads, 6, false},
		{"own variable wins", map[string]string{EnvOMPThreads: "6", EnvThreads: "3"}, EnvThreads, 3, false},
		{"blank is ignored", map[string]string{EnvThreads: " ", EnvOMPThreads: "2"}, EnvOMPThreads, 2, false},
		{"garbage", map[string]string{EnvOMPThreads: "many"}, EnvOMPThreads, DefaultThreads, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			source, err := ApplyEnv(cfg, env(tt.vars))
			if tt.wantErr {
				assert.ErrorIs(t, err, hangover.ErrInvalidThreads)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.threads, cfg.Threads)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("collects every problem", func(t *testing.T) {
		cfg := &Config{StartIndex: -1}
		err := cfg.Validate()
		require.Error(t, err)

		assert.Len(t, multierr.Errors(err), 6)
		assert.ErrorIs(t, err, hangover.ErrInvalidSimulations)
		assert.ErrorIs(t, err, hangover.ErrInvalidInterval)
		assert.ErrorIs(t, err, hangover.ErrInvalidThreads)
		assert.ErrorIs(t, err, hangover.ErrInvalidChunkSize)
		assert.ErrorIs(t, err, hangover.ErrInvalidStartIndex)
		assert.ErrorIs(t, err, hangover.ErrInvalidPrefix)
	})

	t.Run("index range", func(t *testing.T) {
		tests := []struct {
			name        string
			startIndex  int64
			simulations int64
			wantErr     bool
		}{
			{"last index is max", math.MaxInt64 - 3, 4, false},
			{"one past max", math.MaxInt64 - 2, 4, true},
			{"near max start", math.MaxInt64 - 1, 4, true},
			{"max walks from zero", 0, math.MaxInt64, false},
			{"max walks from one", 1, math.MaxInt64, false},
			{"max walks from two", 2, math.MaxInt64, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := Default()
				cfg.StartIndex = tt.startIndex
				cfg.Simulations = tt.simulations
				err := cfg.Validate()
				if tt.wantErr {
					assert.ErrorIs(t, err, hangover.ErrInvalidStartIndex)
					assert.Len(t, multierr.Errors(err), 1)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("single problem", func(t *testing.T) {
		cfg := Default()
		cfg.Threads = 0
		err := cfg.Validate()
		assert.ErrorIs(t, err, hangover.ErrInvalidThreads)
		assert.Len(t, multierr.Errors(err), 1)
	})
}

func TestMarshalYAML(t *testing.T) {
	b, err := MarshalYAML(Default())
	require.NoError(t, err)
	assert.Contains(t, string(b), "simulations: 1000000")
	assert.Contains(t, string(b), "outputPrefix: data/thread_")
	assert.Contains(t, string(b), "dryrun: false")
}
