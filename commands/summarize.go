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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/drunkard/pkg/config"
	"github.com/cardinalhq/drunkard/pkg/results"
)

func NewSummarizeCmd() *cobra.Command {
	var (
		threads    int
		simulation int64
		startIndex int64
	)
	cmd := &cobra.Command{
		Use:   "summarize [prefix]",
		Short: "Summarize the output files of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := config.DefaultOutputPrefix
			if len(args) == 1 {
				prefix = args[0]
			}
			st, err := results.Summarize(prefix, threads, startIndex, simulation)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Files: %d\n", st.Files)
			fmt.Fprintf(out, "Rows: %d\n", st.Rows)
			fmt.Fprintf(out, "Duplicate indices: %d\n", st.Duplicates)
			if simulation > 0 {
				fmt.Fprintf(out, "Missing indices: %d\n", st.Missing)
			}
			fmt.Fprintf(out, "Mean steps: %.4f\n", st.MeanSteps)
			fmt.Fprintf(out, "Max steps: %d\n", st.MaxSteps)
			return nil
		},
	}
	cmd.Flags().IntVarP(&threads, "threads", "t", config.DefaultThreads, "number of worker files to read")
	cmd.Flags().Int64VarP(&simulation, "simulations", "n", 0, "expected number of walks; enables the missing index check")
	cmd.Flags().Int64Var(&startIndex, "start-index", 0, "first expected index")
	return cmd
}
