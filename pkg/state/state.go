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

package state

import (
	"time"

	"github.com/cardinalhq/drunkard/pkg/bitstream"
	"github.com/cardinalhq/drunkard/pkg/config"
)

// RunState is shared by every worker and never changes once the run
// has started.
type RunState struct {
	NumSimulations   int64
	ProgressInterval int64
	StartIndex       int64
	ChunkSize        int64
	Threads          int
	OutputPrefix     string
	StartTime        time.Time

	// Seed is the base every worker stream is derived from.
	Seed uint64
}

// NewRunState validates cfg and fixes the run parameters. When no seed
// is configured one is read from the entropy source.
func NewRunState(cfg *config.Config) (*RunState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = bitstream.Entropy(); err != nil {
			return nil, err
		}
	}

	return &RunState{
		NumSimulations:   cfg.Simulations,
		ProgressInterval: cfg.ProgressInterval,
		StartIndex:       cfg.StartIndex,
		ChunkSize:        cfg.ChunkSize,
		Threads:          cfg.Threads,
		OutputPrefix:     cfg.OutputPrefix,
		StartTime:        time.Now(),
		Seed:             seed,
	}, nil
}

func (rs *RunState) Elapsed() time.Duration {
	return time.Since(rs.StartTime)
}
