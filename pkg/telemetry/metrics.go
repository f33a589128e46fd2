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

package telemetry

import (
	"fmt"
	"time"

	"github.com/cardinalhq/oteltools/signalbuilder"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"

	"github.com/cardinalhq/drunkard/pkg/runner"
)

const (
	ServiceName = "drunkard"
	scopeName   = "github.com/cardinalhq/drunkard"
)

// Metric names.
const (
	MetricWalksCompleted = "drunkard.walks.completed"
	MetricStepsTotal     = "drunkard.walks.steps.total"
	MetricStepsMax       = "drunkard.walks.steps.max"
	MetricRNGDraws       = "drunkard.rng.draws"
	MetricRunThreads     = "drunkard.run.threads"
	MetricRunElapsed     = "drunkard.run.elapsed"
)

// BuildMetrics turns a run summary into gauges, one datapoint per worker
// plus run-level totals.
func BuildMetrics(summary *runner.Summary, at time.Time) (pmetric.Metrics, error) {
	mb := signalbuilder.NewMetricsBuilder()

	rattr := pcommon.NewMap()
	rattr.PutStr("service.name", ServiceName)
	r := mb.Resource(rattr)

	sattr := pcommon.NewMap()
	sattr.PutStr("scope.name", scopeName)
	s := r.Scope(sattr)

	ts := pcommon.NewTimestampFromTime(at)

	perWorker := []struct {
		name  string
		unit  string
		value func(runner.WorkerStats) int64
	}{
		{MetricWalksCompleted, "{walk}", func(ws runner.WorkerStats) int64 { return ws.Completed }},
		{MetricStepsTotal, "{step}", func(ws runner.WorkerStats) int64 { return clampInt64(ws.TotalSteps) }},
		{MetricStepsMax, "{step}", func(ws runner.WorkerStats) int64 { return clampInt64(ws.MaxSteps) }},
		{MetricRNGDraws, "{draw}", func(ws runner.WorkerStats) int64 { return clampInt64(ws.Draws) }},
	}
	for _, pm := range perWorker {
		mm, err := s.Metric(pm.name, pm.unit, pmetric.MetricTypeGauge)
		if err != nil {
			return pmetric.Metrics{}, fmt.Errorf("failed to create metric %s: %w", pm.name, err)
		}
		for _, ws := range summary.Workers {
			dattr := pcommon.NewMap()
			dattr.PutInt("worker.id", int64(ws.ID))
			dp, _, _ := mm.Datapoint(dattr, ts)
			dp.SetIntValue(pm.value(ws))
		}
	}

	threads, err := s.Metric(MetricRunThreads, "{thread}", pmetric.MetricTypeGauge)
	if err != nil {
		return pmetric.Metrics{}, fmt.Errorf("failed to create metric %s: %w", MetricRunThreads, err)
	}
	dp, _, _ := threads.Datapoint(pcommon.NewMap(), ts)
	dp.SetIntValue(int64(summary.Threads))

	elapsed, err := s.Metric(MetricRunElapsed, "s", pmetric.MetricTypeGauge)
	if err != nil {
		return pmetric.Metrics{}, fmt.Errorf("failed to create metric %s: %w", MetricRunElapsed, err)
	}
	dp, _, _ = elapsed.Datapoint(pcommon.NewMap(), ts)
	dp.SetDoubleValue(summary.Elapsed.Seconds())

	return mb.Build(), nil
}

func clampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
