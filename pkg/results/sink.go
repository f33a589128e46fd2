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

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Result is the outcome of one walk.
type Result struct {
	Index int64
	Steps uint64
}

// Sink receives flushed rows. A Write either stores every row or
// returns an error.
type Sink interface {
	Write(rows []Result) error
}

// FileName returns the output file for a worker, e.g.
// "data/thread_3_output.csv" for prefix "data/thread_".
func FileName(prefix string, workerID int) string {
	return prefix + strconv.Itoa(workerID) + "_output.csv"
}

// FileSink appends rows to a CSV file. The file is opened for each
// Write and closed again before Write returns.
type FileSink struct {
	path string
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Write(rows []Result) (err error) {
	if len(rows) == 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.Write(AppendRows(nil, rows))
	return err
}

// AppendRows renders rows as "index,steps\n" lines onto dst.
func AppendRows(dst []byte, rows []Result) []byte {
	for _, r := range rows {
		dst = strconv.AppendInt(dst, r.Index, 10)
		dst = append(dst, ',')
		dst = strconv.AppendUint(dst, r.Steps, 10)
		dst = append(dst, '\n')
	}
	return dst
}

// ReadFile parses an output file back into results, in file order.
func ReadFile(path string) ([]Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) ([]Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	var out []Result
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		idx, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad index %q: %w", rec[0], err)
		}
		steps, err := strconv.ParseUint(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad step count %q: %w", rec[1], err)
		}
		out = append(out, Result{Index: idx, Steps: steps})
	}
}
