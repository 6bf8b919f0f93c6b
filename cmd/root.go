// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd implements the flowtap command-line entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/common"
)

var (
	version   = common.Version
	gitHash   string
	buildTime string
)

var rootCmd = &cobra.Command{
	Use:   "flowtap",
	Short: "flowtap passively decodes HTTP traffic off the wire",
	Long: `flowtap sniffs Ethernet frames, reassembles TCP half-streams and
incrementally parses HTTP/1.x requests and responses without ever
terminating a connection.`,
	Version: fmt.Sprintf("%s (git=%s, built=%s)", version, gitHash, buildTime),
}

// Execute 是程序入口调用的唯一函数
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
