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

package results

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
)

type Stats struct {
	Files      int
	Rows       int64
	Duplicates int64
	// Missing is only counted when an expected range is given.
	Missing   int64
	MeanSteps float64
	MaxSteps  uint64
}

// Summarize reads the output files of workers [0, workers) written
// under prefix. Files that do not exist are skipped. When n > 0 the
// indices are checked against [start, start+n).
func Summarize(prefix string, workers int, start, n int64) (*Stats, error) {
	st := &Stats{}
	seen := map[int64]struct{}{}
	total := new(big.Int)

	for id := range workers {
		rows, err := ReadFile(FileName(prefix, id))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", id, err)
		}
		st.Files++
		for _, r := range rows {
			st.Rows++
			if _, dup := seen[r.Index]; dup {
				st.Duplicates++
			}
			seen[r.Index] = struct{}{}
			total.Add(total, new(big.Int).SetUint64(r.Steps))
			st.MaxSteps = max(st.MaxSteps, r.Steps)
		}
	}

	if st.Rows > 0 {
		mean, _ := new(big.Float).Quo(new(big.Float).SetInt(total), big.NewFloat(float64(st.Rows))).Float64()
		st.MeanSteps = mean
	}
	if n > 0 {
		for i := start; i < start+n; i++ {
			if _, ok := seen[i]; !ok {
				st.Missing++
			}
		}
	}
	return st, nil
}
