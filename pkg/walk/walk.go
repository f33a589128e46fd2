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

package walk

// StartPosition is where every walk begins.
const StartPosition = 5

type BitSource interface {
	NextBit() bool
}

// Run walks from StartPosition until the walker reaches 0 and returns
// the number of steps taken.
//
// The symmetric walk is recurrent so Run terminates almost surely, but
// the step count has a heavy tail and no upper bound is enforced.
func Run(bits BitSource) uint64 {
	return RunFrom(bits, StartPosition)
}

// RunFrom is Run with an arbitrary start. A start at or below 0 takes
// no steps.
func RunFrom(bits BitSource, start int64) uint64 {
	pos := start
	var steps uint64
	for pos > 0 {
		if bits.NextBit() {
			pos++
		} else {
			pos--
		}
		steps++
	}
	return steps
}
