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

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/drunkard/pkg/config"
	"github.com/cardinalhq/drunkard/pkg/hangover"
	"github.com/cardinalhq/drunkard/pkg/progress"
	"github.com/cardinalhq/drunkard/pkg/runner"
	"github.com/cardinalhq/drunkard/pkg/state"
	"github.com/cardinalhq/drunkard/pkg/telemetry"
)

type runFlags struct {
	simulations    int64
	interval       int64
	threads        int
	chunk          int64
	startIndex     int64
	prefix         string
	seed           uint64
	debugTelemetry bool
	otlpEndpoint   string
	dryrun         bool
}

func NewRunCmd() *cobra.Command {
	return newRunCmd(&runFlags{})
}

func newRunCmd(f *runFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config files...]",
		Short: "Run the random walk simulations",
		Long:  `Run the random walk simulations. Config files are merged in order; environment variables and flags override them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, threadSource, err := buildConfig(cmd, args, f, os.LookupEnv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, cfg, threadSource, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Int64VarP(&f.simulations, "simulations", "n", config.DefaultSimulations, "number of walks to run")
	flags.Int64Var(&f.interval, "interval", config.DefaultProgressInterval, "walks per worker between flushes")
	flags.IntVarP(&f.threads, "threads", "t", config.DefaultThreads, "number of workers")
	flags.Int64Var(&f.chunk, "chunk", config.DefaultChunkSize, "indices claimed per work request")
	flags.Int64Var(&f.startIndex, "start-index", 0, "offset added to every written index")
	flags.StringVar(&f.prefix, "prefix", config.DefaultOutputPrefix, "output file prefix")
	flags.Uint64Var(&f.seed, "seed", 0, "base seed; 0 reads one from the system entropy source")
	flags.BoolVar(&f.debugTelemetry, "debug-telemetry", false, "print run metrics as OTLP JSON")
	flags.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP endpoint for run metrics")
	flags.BoolVar(&f.dryrun, "dryrun", false, "validate and print the effective config without running")
	return cmd
}

// buildConfig layers defaults, config files, environment and flags, in
// that order. It returns where the thread count came from.
func buildConfig(cmd *cobra.Command, files []string, f *runFlags, lookup func(string) (string, bool)) (*config.Config, string, error) {
	cfg, err := config.LoadConfigs(files)
	if err != nil {
		return nil, "", fmt.Errorf("error loading config files: %w", err)
	}

	threadSource, err := config.ApplyEnv(cfg, lookup)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("simulations") {
		cfg.Simulations = f.simulations
	}
	if flags.Changed("interval") {
		cfg.ProgressInterval = f.interval
	}
	if flags.Changed("threads") {
		cfg.Threads = f.threads
		threadSource = "--threads"
	}
	if flags.Changed("chunk") {
		cfg.ChunkSize = f.chunk
	}
	if flags.Changed("start-index") {
		cfg.StartIndex = f.startIndex
	}
	if flags.Changed("prefix") {
		cfg.OutputPrefix = f.prefix
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("debug-telemetry") {
		cfg.DebugTelemetry = f.debugTelemetry
	}
	if flags.Changed("otlp-endpoint") {
		cfg.OTLPDestination.Endpoint = f.otlpEndpoint
	}
	if flags.Changed("dryrun") {
		cfg.Dryrun = f.dryrun
	}
	return cfg, threadSource, nil
}

// Run executes a whole run: validation, output directory, workers,
// summary and telemetry. A dry run stops after validation and prints the
// effective config.
func Run(ctx context.Context, cfg *config.Config, threadSource string, out io.Writer) error {
	rs, err := state.NewRunState(cfg)
	if err != nil {
		return err
	}
	emitters, err := telemetry.FromConfig(cfg, out)
	if err != nil {
		return err
	}

	if cfg.Dryrun {
		b, err := config.MarshalYAML(cfg)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	reporter := progress.New(out)
	if err := ensureOutputDir(rs.OutputPrefix, reporter); err != nil {
		return err
	}

	if threadSource == "" {
		reporter.Status("Using default thread limit: %d", rs.Threads)
	} else {
		reporter.Status("Using thread count from %s: %d", threadSource, rs.Threads)
	}

	summary, runErr := runner.Run(ctx, rs, runner.Options{Reporter: reporter})
	if runErr != nil {
		written, unflushed := flushedWalks(summary, runErr)
		reporter.Status("Run stopped with %d walks written and %d unflushed: %v", written, unflushed, runErr)
	} else {
		reporter.Status("Finished all walks.")
	}
	reporter.Status("Used %d threads.", summary.Threads)
	reporter.Status("Total runtime: %g seconds", summary.Elapsed.Seconds())

	if err := emitTelemetry(ctx, emitters, summary); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// flushedWalks splits the completed walks into those on disk and those
// still held by a worker whose flush failed.
func flushedWalks(summary *runner.Summary, runErr error) (written, unflushed int64) {
	var fe *hangover.FlushError
	if errors.As(runErr, &fe) {
		unflushed = int64(fe.Rows)
	}
	return summary.Completed - unflushed, unflushed
}

func ensureOutputDir(prefix string, reporter *progress.Reporter) error {
	dir := filepath.Dir(prefix)
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	reporter.Status("Created %s directory.", dir)
	return nil
}

func emitTelemetry(ctx context.Context, emitters telemetry.Multi, summary *runner.Summary) error {
	if len(emitters) == 0 {
		return nil
	}
	md, err := telemetry.BuildMetrics(summary, time.Now())
	if err != nil {
		return err
	}
	// The run context may already be cancelled; still report what was done.
	return emitters.Emit(context.WithoutCancel(ctx), md)
}
