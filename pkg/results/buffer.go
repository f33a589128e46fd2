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

// Buffer accumulates one worker's results and hands them to its sink
// every interval completions. Memory is bounded by interval rows.
//
// A Buffer belongs to a single worker and is not safe for concurrent use.
type Buffer struct {
	sink     Sink
	interval int64
	rows     []Result
	count    int64
	flushes  int
}

// NewBuffer panics if interval is not positive; callers validate
// configuration before building workers.
func NewBuffer(sink Sink, interval int64) *Buffer {
	if interval <= 0 {
		panic("results: interval must be positive")
	}
	return &Buffer{
		sink:     sink,
		interval: interval,
		rows:     make([]Result, 0, min(interval, 1<<16)),
	}
}

func (b *Buffer) Append(index int64, steps uint64) {
	b.rows = append(b.rows, Result{Index: index, Steps: steps})
	b.count++
}

// FlushIfDue flushes when the completion count has reached a multiple of
// the interval. It reports whether a flush happened.
func (b *Buffer) FlushIfDue() (bool, error) {
	if len(b.rows) == 0 || b.count%b.interval != 0 {
		return false, nil
	}
	if err := b.flush(); err != nil {
		return false, err
	}
	return true, nil
}

// FinalFlush writes whatever is left, regardless of the interval.
func (b *Buffer) FinalFlush() error {
	if len(b.rows) == 0 {
		return nil
	}
	return b.flush()
}

// flush leaves the rows in place on error. They are not retried.
func (b *Buffer) flush() error {
	if err := b.sink.Write(b.rows); err != nil {
		return err
	}
	b.rows = b.rows[:0]
	b.flushes++
	return nil
}

// Count is the number of results appended so far.
func (b *Buffer) Count() int64 {
	return b.count
}

// Len is the number of results waiting to be flushed.
func (b *Buffer) Len() int {
	return len(b.rows)
}

func (b *Buffer) Flushes() int {
	return b.flushes
}
