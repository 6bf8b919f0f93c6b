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

//go:build !linux

package pcapsrc

import (
	"time"

	"github.com/gopacket/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/flowtap/flowtap/source"
)

// liveSource 基于 pcap.OpenLive 在非 Linux 平台上实时捕获帧
type liveSource struct {
	handle *pcap.Handle
}

// NewLive 为单个设备创建实时捕获 Source
func NewLive(device string, bpfFilter string, promiscuous bool) (source.Source, error) {
	handle, err := pcap.OpenLive(device, defaultCaptureLength, promiscuous, pcap.BlockForever)
	if err != nil {
		return nil, errors.Wrapf(err, "open live handle for %s failed", device)
	}

	if bpfFilter != "" {
		if err := handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, errors.Wrapf(err, "set bpf-filter (%s) failed", bpfFilter)
		}
	}

	return &liveSource{handle: handle}, nil
}

func (l *liveSource) ReadFrame() (source.Frame, error) {
	data, ci, err := l.handle.ZeroCopyReadPacketData()
	if err != nil {
		return source.Frame{}, err
	}
	if ci.Timestamp.IsZero() {
		ci.Timestamp = time.Now()
	}
	return source.Frame{Data: data, Timestamp: ci.Timestamp}, nil
}

func (l *liveSource) Close() error {
	l.handle.Close()
	return nil
}
