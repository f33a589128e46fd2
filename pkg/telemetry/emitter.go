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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.uber.org/multierr"

	"github.com/cardinalhq/drunkard/pkg/config"
	"github.com/cardinalhq/drunkard/pkg/hangover"
)

const (
	metricsPath = "/v1/metrics"
	// Collector error bodies are cut to this many bytes.
	maxErrorBody = 512
)

type Emitter interface {
	Emit(ctx context.Context, md pmetric.Metrics) error
}

// FromConfig returns the emitters the run asked for. The result is empty
// when telemetry is off.
func FromConfig(cfg *config.Config, out io.Writer) (Multi, error) {
	var m Multi
	if cfg.DebugTelemetry {
		m = append(m, NewDebugEmitter(out))
	}
	if cfg.OTLPDestination.Endpoint != "" {
		e, err := NewOTLPEmitter(cfg.OTLPDestination)
		if err != nil {
			return nil, err
		}
		m = append(m, e)
	}
	return m, nil
}

// DebugEmitter prints the run metrics as one OTLP JSON line next to the
// run's status lines.
type DebugEmitter struct {
	out io.Writer
}

var _ Emitter = (*DebugEmitter)(nil)

func NewDebugEmitter(out io.Writer) *DebugEmitter {
	return &DebugEmitter{out: out}
}

func (e *DebugEmitter) Emit(_ context.Context, md pmetric.Metrics) error {
	if md.DataPointCount() == 0 {
		return nil
	}
	var m pmetric.JSONMarshaler
	line, err := m.MarshalMetrics(md)
	if err != nil {
		return fmt.Errorf("failed to marshal run metrics: %w", err)
	}
	// One write, so the line cannot be split by other output.
	if _, err := e.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write run metrics: %w", err)
	}
	return nil
}

// OTLPEmitter pushes the run metrics once to an OTLP/HTTP collector.
type OTLPEmitter struct {
	client  *http.Client
	url     string
	headers map[string]string
}

var _ Emitter = (*OTLPEmitter)(nil)

// NewOTLPEmitter accepts either the collector base URL or the full
// metrics URL ending in /v1/metrics.
func NewOTLPEmitter(dest config.OTLPDestination) (*OTLPEmitter, error) {
	u, err := url.Parse(dest.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: %w", dest.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: scheme must be http or https", dest.Endpoint)
	}
	if !strings.HasSuffix(u.Path, metricsPath) {
		u.Path = strings.TrimRight(u.Path, "/") + metricsPath
	}
	return &OTLPEmitter{
		client:  &http.Client{Timeout: dest.Timeout},
		url:     u.String(),
		headers: dest.Headers,
	}, nil
}

func (e *OTLPEmitter) URL() string {
	return e.url
}

func (e *OTLPEmitter) Emit(ctx context.Context, md pmetric.Metrics) error {
	points := md.DataPointCount()
	if points == 0 {
		return nil
	}
	exportErr := func(err error) error {
		return &hangover.ExportError{Endpoint: e.url, DataPoints: points, Err: err}
	}

	body, err := pmetricotlp.NewExportRequestFromMetrics(md).MarshalProto()
	if err != nil {
		return exportErr(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return exportErr(err)
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := e.client.Do(req)
	if err != nil {
		return exportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &hangover.ExportError{
			Endpoint:   e.url,
			DataPoints: points,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Multi sends to every emitter, even after one fails, and returns all
// failures combined.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, md pmetric.Metrics) error {
	var err error
	for _, e := range m {
		err = multierr.Append(err, e.Emit(ctx, md))
	}
	return err
}
