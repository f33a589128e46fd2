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

import "github.com/spf13/cobra"

// version is set at build time with -ldflags "-X".
var version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "drunkard",
		Short:   "Drunkard runs random walk simulations",
		Long:    `Drunkard runs many independent symmetric random walks in parallel and records how many steps each one takes to reach zero.`,
		Version: version,

		SilenceUsage: true,
	}
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewSummarizeCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
