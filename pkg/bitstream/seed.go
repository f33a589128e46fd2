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

package bitstream

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	randv2 "math/rand/v2"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/cardinalhq/drunkard/pkg/hangover"
)

// Entropy reads a 64-bit base seed from the operating system.
func Entropy() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", hangover.ErrEntropy, err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ForWorker returns a stream for one worker. The base seed is mixed with
// the worker id twice, once directly and once through a hash of the
// worker name, so that workers sharing a weak base still diverge.
func ForWorker(base uint64, workerID int) *BitStream {
	return New(randv2.NewPCG(base^uint64(workerID+1), base^workerKey(workerID)))
}

// FromSeed returns a deterministic stream that does not touch the
// entropy source.
func FromSeed(seed uint64) *BitStream {
	return New(randv2.NewPCG(seed, seed))
}

func workerKey(workerID int) uint64 {
	return xxhash.Sum64String("worker-" + strconv.Itoa(workerID))
}
