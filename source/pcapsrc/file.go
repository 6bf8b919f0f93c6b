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
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/pcap"

	"github.com/flowtap/flowtap/source"
)

// fileSource 从一个 pcap 文件中顺序读取帧 跨平台通用
type fileSource struct {
	handle *pcap.Handle
	src    *gopacket.PacketSource
}

// NewFile 创建并返回从 pcap 文件读取帧的 source.Source
func NewFile(path string, bpfFilter string) (source.Source, error) {
	handle, err := openFileHandle(path, bpfFilter)
	if err != nil {
		return nil, err
	}

	ps := gopacket.NewPacketSource(handle, handle.LinkType())
	ps.Lazy = true
	ps.NoCopy = true

	return &fileSource{handle: handle, src: ps}, nil
}

func (f *fileSource) ReadFrame() (source.Frame, error) {
	pkt, ok := <-f.src.Packets()
	if !ok {
		return source.Frame{}, errEOF
	}
	return source.Frame{Data: pkt.Data(), Timestamp: time.Now()}, nil
}

func (f *fileSource) Close() error {
	f.handle.Close()
	return nil
}
