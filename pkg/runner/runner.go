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
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/drunkard/pkg/progress"
	"github.com/cardinalhq/drunkard/pkg/results"
	"github.com/cardinalhq/drunkard/pkg/state"
)

type Options struct {
	// Reporter receives progress lines. Defaults to stdout.
	Reporter *progress.Reporter
	// NewSink builds the output sink for a worker. Defaults to a
	// FileSink at results.FileName(OutputPrefix, id).
	NewSink func(workerID int) results.Sink
	Logger  *slog.Logger
}

type Summary struct {
	// Threads is the number of workers that actually ran.
	Threads   int
	Completed int64
	Elapsed   time.Duration
	Workers   []WorkerStats
}

type WorkerStats struct {
	ID         int
	Completed  int64
	Flushes    int
	TotalSteps uint64
	MaxSteps   uint64
	Draws      uint64
}

// Run simulates every index in [0, rs.NumSimulations) across rs.Threads
// workers and returns once all of them have made their final flush.
//
// A flush failure stops the run: the other workers stop claiming work,
// flush what they hold and exit. The first error is returned together
// with the summary of what was completed.
func Run(ctx context.Context, rs *state.RunState, opts Options) (*Summary, error) {
	opts = withDefaults(rs, opts)

	cursor := NewCursor(rs.NumSimulations, rs.ChunkSize)
	stats := make([]WorkerStats, rs.Threads)

	var (
		once    sync.Once
		threads int
		active  atomic.Int64
		started sync.WaitGroup
	)
	started.Add(rs.Threads)

	g, gctx := errgroup.WithContext(ctx)
	for id := range rs.Threads {
		w := newWorker(id, rs, cursor, opts)
		g.Go(func() error {
			active.Add(1)
			started.Done()
			// The first worker in records the pool size once everyone is up.
			once.Do(func() {
				started.Wait()
				threads = int(active.Load())
			})
			err := w.run(gctx)
			stats[id] = w.stats()
			return err
		})
	}
	err := g.Wait()

	summary := &Summary{
		Threads: threads,
		Elapsed: rs.Elapsed(),
		Workers: stats,
	}
	for _, ws := range stats {
		summary.Completed += ws.Completed
	}
	if err == nil && summary.Completed < rs.NumSimulations {
		// Cancelled by the caller: everything claimed was flushed, but
		// the range was not finished.
		err = ctx.Err()
	}
	return summary, err
}

func withDefaults(rs *state.RunState, opts Options) Options {
	if opts.Reporter == nil {
		opts.Reporter = progress.New(os.Stdout)
	}
	if opts.NewSink == nil {
		prefix := rs.OutputPrefix
		opts.NewSink = func(workerID int) results.Sink {
			return results.NewFileSink(results.FileName(prefix, workerID))
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
