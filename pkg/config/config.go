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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/drunkard/pkg/hangover"
)

const (
	DefaultSimulations      = 1_000_000
	DefaultProgressInterval = 1_000
	DefaultOutputPrefix     = "data/thread_"
	DefaultThreads          = 12
	DefaultChunkSize        = 1
	DefaultOTLPTimeout      = 5 * time.Second
)

// Thread count overrides, checked in order.
const (
	EnvThreads    = "DRUNKARD_THREADS"
	EnvOMPThreads = "OMP_NUM_THREADS"
)

type Config struct {
	Simulations      int64           `mapstructure:"simulations" yaml:"simulations" json:"simulations"`
	ProgressInterval int64           `mapstructure:"progressInterval" yaml:"progressInterval" json:"progressInterval"`
	StartIndex       int64           `mapstructure:"startIndex" yaml:"startIndex" json:"startIndex"`
	Threads          int             `mapstructure:"threads" yaml:"threads" json:"threads"`
	ChunkSize        int64           `mapstructure:"chunkSize" yaml:"chunkSize" json:"chunkSize"`
	OutputPrefix     string          `mapstructure:"outputPrefix" yaml:"outputPrefix" json:"outputPrefix"`
	Seed             uint64          `mapstructure:"seed" yaml:"seed" json:"seed"`
	DebugTelemetry   bool            `mapstructure:"debugTelemetry" yaml:"debugTelemetry" json:"debugTelemetry"`
	Dryrun           bool            `mapstructure:"dryrun" yaml:"dryrun" json:"dryrun"`
	OTLPDestination  OTLPDestination `mapstructure:"otlpDestination" yaml:"otlpDestination" json:"otlpDestination"`
}

type OTLPDestination struct {
	Endpoint string            `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers" json:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Simulations:      DefaultSimulations,
		ProgressInterval: DefaultProgressInterval,
		Threads:          DefaultThreads,
		ChunkSize:        DefaultChunkSize,
		OutputPrefix:     DefaultOutputPrefix,
		OTLPDestination: OTLPDestination{
			Timeout: DefaultOTLPTimeout,
		},
	}
}

// LoadConfigs loads the files in order on top of the defaults. Each file
// is decoded onto the result of the previous ones, so a later file wins
// for every key it names, zero values included. Header maps are merged.
func LoadConfigs(fnames []string) (*Config, error) {
	merged := Default()
	for _, fname := range fnames {
		slog.Info("Loading config", "file", fname)
		if err := loadConfig(fname, merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func loadConfig(fname string, cfg *Config) error {
	raw, err := readRaw(fname)
	if err != nil {
		return err
	}

	decoder, err := NewMapstructureDecoder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return &hangover.DecodeError{File: fname, Err: err}
	}
	return nil
}

// readRaw reads a YAML or JSON file into a generic map so that unknown
// keys are reported by the decoder.
func readRaw(fname string) (map[string]any, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw := map[string]any{}
	if strings.EqualFold(filepath.Ext(fname), ".json") {
		if err := JSONDecode(f, &raw); err != nil {
			return nil, &hangover.DecodeError{File: fname, Err: err}
		}
		return raw, nil
	}
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &hangover.DecodeError{File: fname, Err: err}
	}
	return raw, nil
}

// MarshalYAML renders the effective configuration, as printed by a dry run.
func MarshalYAML(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// ApplyEnv applies the thread count override from the environment and
// returns the name of the variable used, or "" if none was set.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) (string, error) {
	for _, name := range []string{EnvThreads, EnvOMPThreads} {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return name, fmt.Errorf("%s=%q: %w", name, v, hangover.ErrInvalidThreads)
		}
		cfg.Threads = n
		return name, nil
	}
	return "", nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var err error
	if c.Simulations <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: got %d", hangover.ErrInvalidSimulations, c.Simulations))
	}
	if c.ProgressInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: got %d", hangover.ErrInvalidInterval, c.ProgressInterval))
	}
	if c.Threads <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: got %d", hangover.ErrInvalidThreads, c.Threads))
	}
	if c.ChunkSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: got %d", hangover.ErrInvalidChunkSize, c.ChunkSize))
	}
	if c.StartIndex < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: got %d", hangover.ErrInvalidStartIndex, c.StartIndex))
	} else if c.Simulations > 0 && c.StartIndex-1 > math.MaxInt64-c.Simulations {
		// The last written index is StartIndex+Simulations-1.
		err = multierr.Append(err, fmt.Errorf("%w: %d walks from %d overflow int64",
			hangover.ErrInvalidStartIndex, c.Simulations, c.StartIndex))
	}
	if c.OutputPrefix == "" {
		err = multierr.Append(err, hangover.ErrInvalidPrefix)
	}
	return err
}
