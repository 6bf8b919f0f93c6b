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

package cmd

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowtap/flowtap/agent"
	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/confengine"
	"github.com/flowtap/flowtap/internal/sigs"
)

type logCmdConfig struct {
	Console        bool
	File           string
	Ifaces         string
	NoPromiscuous  bool
	BPFFilter      string
	MessagesFile   string
	MessagesSize   int
	MessagesBackup int
}

func (c *logCmdConfig) Yaml() []byte {
	text := `
agent:
  sinks: [jsonlines]

logger:
  stdout: true

server:
  enabled: false

source:
  ifaces: {{ .Ifaces }}
  file: {{ .File }}
  bpfFilter: {{ .BPFFilter }}
  noPromiscuous: {{ .NoPromiscuous }}

sink:
  jsonlines:
    enabled: true
    console: {{ .Console }}
    filename: {{ .MessagesFile }}
    maxSize: {{ .MessagesSize }}
    maxBackups: {{ .MessagesBackup }}
    maxAge: 7
`
	tpl, err := template.New("config").Parse(text)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, c); err != nil {
		return nil
	}
	return buf.Bytes()
}

var logConfig logCmdConfig

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Capture traffic and log decoded HTTP messages until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadContent(logConfig.Yaml())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		a, err := agent.New(cfg, common.BuildInfo{Version: version, GitHash: gitHash, Time: buildTime})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create agent: %v\n"+
				"Note: This operation may require root privileges (try running with 'sudo')\n", err)
			os.Exit(1)
		}
		if err := a.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start agent: %v\n", err)
			os.Exit(1)
		}

		<-sigs.Terminate()
		a.Stop()
	},
	Example: "# flowtap log --ifaces any --console",
}

func init() {
	logCmd.Flags().BoolVar(&logConfig.Console, "console", false, "Enable console logging")
	logCmd.Flags().BoolVar(&logConfig.NoPromiscuous, "no-promiscuous", false, "Don't put the interface into promiscuous mode")
	logCmd.Flags().StringVar(&logConfig.File, "pcap.file", "", "Path to pcap file to read from")
	logCmd.Flags().StringVar(&logConfig.Ifaces, "ifaces", "any", "Network interfaces to monitor (supports regex), 'any' for all interfaces")
	logCmd.Flags().StringVar(&logConfig.BPFFilter, "bpf", "tcp", "BPF filter expression applied to the capture")
	logCmd.Flags().StringVar(&logConfig.MessagesFile, "messages.file", "flowtap.messages", "Path to the messages log file")
	logCmd.Flags().IntVar(&logConfig.MessagesSize, "messages.size", 100, "Maximum size of the messages log file in MB")
	logCmd.Flags().IntVar(&logConfig.MessagesBackup, "messages.backups", 10, "Maximum number of old messages log files to retain")
	rootCmd.AddCommand(logCmd)
}
