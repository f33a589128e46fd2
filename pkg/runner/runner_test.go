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

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/drunkard/pkg/hangover"
	"github.com/cardinalhq/drunkard/pkg/progress"
	"github.com/cardinalhq/drunkard/pkg/results"
	"github.com/cardinalhq/drunkard/pkg/state"
)

func testState(t *testing.T, n, interval int64, threads int) *state.RunState {
	t.Helper()
	return &state.RunState{
		NumSimulations:   n,
		ProgressInterval: interval,
		ChunkSize:        1,
		Threads:          threads,
		OutputPrefix:     filepath.Join(t.TempDir(), "thread_"),
		StartTime:        time.Now(),
		Seed:             2025,
	}
}

func quietOptions(out io.Writer) Options {
	return Options{
		Reporter: progress.New(out),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func readAll(t *testing.T, rs *state.RunState) map[int][]results.Result {
	t.Helper()
	files := map[int][]results.Result{}
	for id := range rs.Threads {
		rows, err := results.ReadFile(results.FileName(rs.OutputPrefix, id))
		if err != nil {
			continue
		}
		files[id] = rows
	}
	return files
}

func assertExactCover(t *testing.T, files map[int][]results.Result, offset, n int64) {
	t.Helper()
	seen := make(map[int64]int, n)
	for _, rows := range files {
		for _, r := range rows {
			seen[r.Index]++
			assert.GreaterOrEqual(t, r.Steps, uint64(5))
		}
	}
	require.Len(t, seen, int(n))
	for k := range n {
		assert.Equal(t, 1, seen[offset+k], "index %d", offset+k)
	}
}

func TestRun_SingleWorker(t *testing.T) {
	rs := testState(t, 10, 4, 1)
	var out bytes.Buffer

	summary, err := Run(context.Background(), rs, quietOptions(&out))
	require.NoError(t, err)

	files := readAll(t, rs)
	require.Len(t, files[0], 10)
	for i, r := range files[0] {
		assert.Equal(t, int64(i), r.Index)
	}
	assertExactCover(t, files, 0, 10)

	assert.Equal(t, 1, summary.Threads)
	assert.Equal(t, int64(10), summary.Completed)
	require.Len(t, summary.Workers, 1)
	assert.Equal(t, 3, summary.Workers[0].Flushes)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[Worker 0] Started.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[Worker 0] Wrote 4 results at "))
	assert.True(t, strings.HasPrefix(lines[2], "[Worker 0] Wrote 8 results at "))
	assert.True(t, strings.HasPrefix(lines[3], "[Worker 0] Finished with 10 results at "))
}

// rendezvousSink holds each worker at its first write until every worker
// has reached one. A held worker claims nothing, so with N >= T*interval
// the remaining indices go to the others and every file gets rows.
type rendezvousSink struct {
	results.Sink
	once    sync.Once
	arrived *sync.WaitGroup
	all     <-chan struct{}
}

func (r *rendezvousSink) Write(rows []results.Result) error {
	r.once.Do(func() {
		r.arrived.Done()
		select {
		case <-r.all:
		case <-time.After(5 * time.Second):
		}
	})
	return r.Sink.Write(rows)
}

func rendezvousOptions(rs *state.RunState) Options {
	var arrived sync.WaitGroup
	arrived.Add(rs.Threads)
	all := make(chan struct{})
	go func() {
		arrived.Wait()
		close(all)
	}()

	opts := quietOptions(io.Discard)
	opts.NewSink = func(workerID int) results.Sink {
		return &rendezvousSink{
			Sink:    results.NewFileSink(results.FileName(rs.OutputPrefix, workerID)),
			arrived: &arrived,
			all:     all,
		}
	}
	return opts
}

func TestRun_FourWorkers(t *testing.T) {
	rs := testState(t, 100, 10, 4)

	summary, err := Run(context.Background(), rs, rendezvousOptions(rs))
	require.NoError(t, err)

	files := readAll(t, rs)
	require.Len(t, files, 4)
	for id := range 4 {
		assert.NotEmpty(t, files[id], "worker %d", id)
	}
	assertExactCover(t, files, 0, 100)
	assert.Equal(t, 4, summary.Threads)
	assert.Equal(t, int64(100), summary.Completed)

	var completed int64
	for _, ws := range summary.Workers {
		completed += ws.Completed
		assert.Len(t, files[ws.ID], int(ws.Completed))
		if ws.Completed > 0 {
			assert.GreaterOrEqual(t, ws.MaxSteps, uint64(5))
			assert.Positive(t, ws.Draws)
		}
	}
	assert.Equal(t, int64(100), completed)
}

func TestRun_ExactCoverAcrossShapes(t *testing.T) {
	tests := []struct {
		n        int64
		interval int64
		threads  int
		chunk    int64
	}{
		{1, 1, 1, 1},
		{1, 5, 3, 1},
		{7, 2, 2, 1},
		{50, 7, 5, 3},
		{64, 64, 8, 16},
	}

	for _, tt := range tests {
		rs := testState(t, tt.n, tt.interval, tt.threads)
		rs.ChunkSize = tt.chunk

		summary, err := Run(context.Background(), rs, quietOptions(io.Discard))
		require.NoError(t, err)
		assert.Equal(t, tt.n, summary.Completed)
		assertExactCover(t, readAll(t, rs), 0, tt.n)
	}
}

func TestRun_StartIndexOffset(t *testing.T) {
	rs := testState(t, 20, 5, 2)
	rs.StartIndex = 1000

	_, err := Run(context.Background(), rs, quietOptions(io.Discard))
	require.NoError(t, err)
	assertExactCover(t, readAll(t, rs), 1000, 20)
}

func TestRun_WithinWorkerIndicesIncrease(t *testing.T) {
	rs := testState(t, 200, 16, 3)

	_, err := Run(context.Background(), rs, quietOptions(io.Discard))
	require.NoError(t, err)

	for id, rows := range readAll(t, rs) {
		for i := 1; i < len(rows); i++ {
			assert.Less(t, rows[i-1].Index, rows[i].Index, "worker %d", id)
		}
	}
}

func TestRun_ReproducibleWithSeed(t *testing.T) {
	first := testState(t, 30, 10, 1)
	second := testState(t, 30, 10, 1)

	_, err := Run(context.Background(), first, quietOptions(io.Discard))
	require.NoError(t, err)
	_, err = Run(context.Background(), second, quietOptions(io.Discard))
	require.NoError(t, err)

	assert.Equal(t, readAll(t, first), readAll(t, second))
}

// failingSink fails every write and signals the first failure.
type failingSink struct {
	once   *sync.Once
	failed chan struct{}
}

func (f failingSink) Write([]results.Result) error {
	f.once.Do(func() { close(f.failed) })
	return errors.New("disk full")
}

// gatedSink holds healthy workers at their first flush until the failing
// worker has failed, so the failing worker is sure to get work.
type gatedSink struct {
	lockedSink
	failed <-chan struct{}
}

func (g *gatedSink) Write(rows []results.Result) error {
	select {
	case <-g.failed:
	case <-time.After(5 * time.Second):
	}
	return g.lockedSink.Write(rows)
}

func TestRun_FlushErrorIsFatal(t *testing.T) {
	rs := testState(t, 1000, 5, 3)
	var stored []results.Result
	var mu sync.Mutex
	failed := make(chan struct{})
	var once sync.Once

	opts := quietOptions(io.Discard)
	opts.NewSink = func(workerID int) results.Sink {
		if workerID == 1 {
			return failingSink{once: &once, failed: failed}
		}
		return &gatedSink{lockedSink: lockedSink{mu: &mu, rows: &stored}, failed: failed}
	}

	summary, err := Run(context.Background(), rs, opts)
	var fe *hangover.FlushError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.WorkerID)
	assert.Positive(t, fe.Rows)
	require.NotNil(t, summary)

	// Whatever the healthy workers completed was flushed.
	var healthy int64
	for _, ws := range summary.Workers {
		if ws.ID != 1 {
			healthy += ws.Completed
		}
	}
	assert.Len(t, stored, int(healthy))
	assert.Less(t, summary.Completed, int64(1000))
}

type lockedSink struct {
	mu   *sync.Mutex
	rows *[]results.Result
}

func (s *lockedSink) Write(rows []results.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.rows = append(*s.rows, rows...)
	return nil
}

func TestRun_FileSinkErrorCarriesPath(t *testing.T) {
	rs := testState(t, 4, 2, 1)
	rs.OutputPrefix = filepath.Join(t.TempDir(), "missing", "thread_")

	_, err := Run(context.Background(), rs, quietOptions(io.Discard))
	var fe *hangover.FlushError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, results.FileName(rs.OutputPrefix, 0), fe.Path)
}

func TestRun_CancelledContext(t *testing.T) {
	rs := testState(t, 1_000_000, 10, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stored []results.Result
	var mu sync.Mutex
	opts := quietOptions(io.Discard)
	opts.NewSink = func(int) results.Sink {
		return &lockedSink{mu: &mu, rows: &stored}
	}

	summary, err := Run(ctx, rs, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Completed, int64(1_000_000))
	assert.Len(t, stored, int(summary.Completed))
}

// cancellingSink cancels the run from inside the final flush, after every
// index has been simulated.
type cancellingSink struct {
	lockedSink
	cancel context.CancelFunc
}

func (c *cancellingSink) Write(rows []results.Result) error {
	defer c.cancel()
	return c.lockedSink.Write(rows)
}

func TestRun_CancelAfterAllWalksIsSuccess(t *testing.T) {
	rs := testState(t, 4, 10, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stored []results.Result
	var mu sync.Mutex
	opts := quietOptions(io.Discard)
	opts.NewSink = func(int) results.Sink {
		return &cancellingSink{lockedSink: lockedSink{mu: &mu, rows: &stored}, cancel: cancel}
	}

	summary, err := Run(ctx, rs, opts)
	require.NoError(t, err)
	assert.Error(t, ctx.Err())
	assert.Equal(t, int64(4), summary.Completed)
	assert.Len(t, stored, 4)
}

func TestRun_StartIndexAtTopOfRange(t *testing.T) {
	rs := testState(t, 4, 2, 2)
	rs.StartIndex = math.MaxInt64 - 3

	_, err := Run(context.Background(), rs, quietOptions(io.Discard))
	require.NoError(t, err)
	assertExactCover(t, readAll(t, rs), rs.StartIndex, 4)
}
