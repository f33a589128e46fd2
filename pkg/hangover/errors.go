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

package hangover

import (
	"errors"
	"fmt"
)

// Configuration errors. These are reported before any worker starts.
var (
	ErrInvalidSimulations = errors.New("simulation count must be positive")
	ErrInvalidInterval    = errors.New("progress interval must be positive")
	ErrInvalidThreads     = errors.New("thread count must be positive")
	ErrInvalidChunkSize   = errors.New("chunk size must be positive")
	ErrInvalidStartIndex  = errors.New("start index out of range")
	ErrInvalidPrefix      = errors.New("output prefix must not be empty")
)

// ErrEntropy is returned when the entropy source used to seed the
// workers cannot be read.
var ErrEntropy = errors.New("unable to read entropy source")

// FlushError is returned when a worker fails to append its buffered
// results to its output file. The rows are still held in memory.
type FlushError struct {
	WorkerID int
	Path     string
	Rows     int
	Err      error
}

func (e *FlushError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("worker %d: unable to flush %d rows: %v", e.WorkerID, e.Rows, e.Err)
	}
	return fmt.Sprintf("worker %d: unable to flush %d rows to %q: %v", e.WorkerID, e.Rows, e.Path, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

type DecodeError struct {
	File string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode config %q: %v", e.File, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExportError is returned when run metrics could not be delivered to a
// collector. StatusCode is zero when no response was received.
type ExportError struct {
	Endpoint   string
	DataPoints int
	StatusCode int
	Body       string
	Err        error
}

func (e *ExportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unable to export %d data points to %s: collector returned %d: %s",
			e.DataPoints, e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unable to export %d data points to %s: %v", e.DataPoints, e.Endpoint, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
