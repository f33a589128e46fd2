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

package progress

import (
	"fmt"
	"io"
	"strconv"
	"sync"
)

// Reporter writes status lines shared by all workers. Each line goes out
// in a single Write under the lock, so lines never interleave. Lines
// from different workers are not ordered.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Report writes a line attributed to a worker.
func (r *Reporter) Report(workerID int, format string, args ...any) {
	prefix := "[Worker " + strconv.Itoa(workerID) + "] "
	r.write(prefix + fmt.Sprintf(format, args...))
}

// Status writes a run-level line.
func (r *Reporter) Status(format string, args ...any) {
	r.write(fmt.Sprintf(format, args...))
}

func (r *Reporter) write(line string) {
	b := make([]byte, 0, len(line)+1)
	b = append(b, line...)
	b = append(b, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.out.Write(b)
}
