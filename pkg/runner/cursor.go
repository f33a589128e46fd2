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

package runner

import "sync/atomic"

// Cursor hands out the index range [0, total) in chunks. Each index is
// returned by exactly one Claim, whichever goroutine makes it.
type Cursor struct {
	next  atomic.Int64
	total int64
	chunk int64
}

func NewCursor(total, chunk int64) *Cursor {
	if chunk <= 0 {
		chunk = 1
	}
	return &Cursor{total: total, chunk: chunk}
}

// Claim returns the next half-open range [lo, hi). ok is false once the
// range is exhausted. The cursor never moves past total, so it cannot
// overflow however many times Claim is called.
func (c *Cursor) Claim() (lo, hi int64, ok bool) {
	for {
		lo = c.next.Load()
		if lo >= c.total {
			return 0, 0, false
		}
		hi = c.total
		if c.chunk < c.total-lo {
			hi = lo + c.chunk
		}
		if c.next.CompareAndSwap(lo, hi) {
			return lo, hi, true
		}
	}
}
