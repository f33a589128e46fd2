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

	"github.com/cardinalhq/drunkard/pkg/bitstream"
	"github.com/cardinalhq/drunkard/pkg/hangover"
	"github.com/cardinalhq/drunkard/pkg/progress"
	"github.com/cardinalhq/drunkard/pkg/results"
	"github.com/cardinalhq/drunkard/pkg/state"
	"github.com/cardinalhq/drunkard/pkg/walk"
)

// worker owns its bit stream, buffer and sink outright. Only the cursor
// is shared.
type worker struct {
	id       int
	rs       *state.RunState
	cursor   *Cursor
	bits     *bitstream.BitStream
	sink     results.Sink
	buf      *results.Buffer
	reporter *progress.Reporter
	logger   *slog.Logger

	totalSteps uint64
	maxSteps   uint64
}

func newWorker(id int, rs *state.RunState, cursor *Cursor, opts Options) *worker {
	sink := opts.NewSink(id)
	return &worker{
		id:       id,
		rs:       rs,
		cursor:   cursor,
		bits:     bitstream.ForWorker(rs.Seed, id),
		sink:     sink,
		buf:      results.NewBuffer(sink, rs.ProgressInterval),
		reporter: opts.Reporter,
		logger:   opts.Logger.With(slog.Int("worker", id)),
	}
}

func (w *worker) run(ctx context.Context) error {
	w.reporter.Report(w.id, "Started.")

	for ctx.Err() == nil {
		lo, hi, ok := w.cursor.Claim()
		if !ok {
			break
		}
		for i := lo; i < hi; i++ {
			steps := walk.Run(w.bits)
			w.totalSteps += steps
			w.maxSteps = max(w.maxSteps, steps)

			w.buf.Append(w.rs.StartIndex+i, steps)
			flushed, err := w.buf.FlushIfDue()
			if err != nil {
				return w.flushError(err)
			}
			if flushed {
				w.reporter.Report(w.id, "Wrote %d results at %.2f minutes.",
					w.buf.Count(), w.rs.Elapsed().Minutes())
			}
		}
	}

	if err := w.buf.FinalFlush(); err != nil {
		return w.flushError(err)
	}
	w.reporter.Report(w.id, "Finished with %d results at %.2f minutes.",
		w.buf.Count(), w.rs.Elapsed().Minutes())
	w.logger.Debug("Worker finished",
		slog.Int64("completed", w.buf.Count()),
		slog.Int("flushes", w.buf.Flushes()),
		slog.Uint64("draws", w.bits.Draws()))
	return nil
}

func (w *worker) flushError(err error) error {
	fe := &hangover.FlushError{
		WorkerID: w.id,
		Rows:     w.buf.Len(),
		Err:      err,
	}
	if p, ok := w.sink.(interface{ Path() string }); ok {
		fe.Path = p.Path()
	}
	w.logger.Error("Flush failed", slog.Int("rows", fe.Rows), slog.Any("error", err))
	return fe
}

func (w *worker) stats() WorkerStats {
	return WorkerStats{
		ID:         w.id,
		Completed:  w.buf.Count(),
		Flushes:    w.buf.Flushes(),
		TotalSteps: w.totalSteps,
		MaxSteps:   w.maxSteps,
		Draws:      w.bits.Draws(),
	}
}
