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

package pcapsrc

import (
	"github.com/gopacket/gopacket/afpacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"
	"github.com/pkg/errors"
	"golang.org/x/net/bpf"

	"github.com/flowtap/flowtap/source"
)

// liveSource 基于 afpacket.TPacket 在 Linux 上实时捕获帧
//
// 支持 device == "any" 监听所有网卡 其余平台走 live_other.go 的 pcap.OpenLive 实现
type liveSource struct {
	tp *afpacket.TPacket
}

// NewLive 为单个设备创建实时捕获 Source
//
// afpacket 不支持混杂模式开关 promiscuous 参数在 Linux 上被忽略 仅保留签名一致性
func NewLive(device string, bpfFilter string, promiscuous bool) (source.Source, error) {
	_ = promiscuous

	var tp *afpacket.TPacket
	var err error
	if device == deviceAny {
		tp, err = afpacket.NewTPacket(afpacket.OptPollTimeout(defaultPollTimeout))
	} else {
		tp, err = afpacket.NewTPacket(afpacket.OptInterface(device), afpacket.OptPollTimeout(defaultPollTimeout))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open afpacket handle for %s failed", device)
	}

	if bpfFilter != "" {
		if err := setBPFFilter(tp, bpfFilter); err != nil {
			tp.Close()
			return nil, err
		}
	}

	return &liveSource{tp: tp}, nil
}

func setBPFFilter(tp *afpacket.TPacket, filter string) error {
	raw, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, defaultCaptureLength, filter)
	if err != nil {
		return errors.Wrapf(err, "compile bpf-filter (%s) failed", filter)
	}

	ins := make([]bpf.RawInstruction, 0, len(raw))
	for _, i := range raw {
		ins = append(ins, bpf.RawInstruction{Op: i.Code, Jt: i.Jt, Jf: i.Jf, K: i.K})
	}
	return tp.SetBPF(ins)
}

func (l *liveSource) ReadFrame() (source.Frame, error) {
	data, ci, err := l.tp.ZeroCopyReadPacketData()
	if err != nil {
		return source.Frame{}, err
	}
	return source.Frame{Data: data, Timestamp: ci.Timestamp}, nil
}

func (l *liveSource) Close() error {
	l.tp.Close()
	return nil
}
