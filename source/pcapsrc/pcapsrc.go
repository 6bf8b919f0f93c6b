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

// Package pcapsrc is the default source.Source implementation: it acquires
// raw Ethernet frames through gopacket/pcap (and afpacket on Linux) but
// never uses gopacket to decode them — decoding is the decode package's job.
package pcapsrc

import (
	"net"
	"regexp"
	"time"

	"github.com/gopacket/gopacket/pcap"
	"github.com/pkg/errors"

	"github.com/flowtap/flowtap/common/socket"
	"github.com/flowtap/flowtap/source"
)

const (
	// deviceAny 代表 Linux 上的 "监听所有网卡"
	deviceAny = "any"

	defaultPollTimeout = 500 * time.Millisecond

	defaultCaptureLength = socket.MaxIPPacketSize
)

// Config 描述一个 pcap Source 的创建参数
type Config struct {
	// Ifaces 网卡名正则 "any" 代表所有网卡 (仅 Linux)
	Ifaces string `config:"ifaces"`

	// File 若非空 则从 pcap 文件中读取帧 而不是实时网卡
	File string `config:"file"`

	// BPFFilter 可选的 BPF 过滤表达式 例如 "tcp"
	BPFFilter string `config:"bpfFilter"`

	// NoPromiscuous 是否禁用混杂模式
	NoPromiscuous bool `config:"noPromiscuous"`
}

func hasIPv4Addr(iface net.Interface) bool {
	addrs, err := iface.Addrs()
	if err != nil || len(addrs) == 0 {
		return false
	}
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip != nil && ip.To4() != nil {
			return true
		}
	}
	return false
}

// filterInterfaces 过滤出匹配 pattern 的网卡
func filterInterfaces(pattern string) ([]net.Interface, error) {
	if pattern == "" || pattern == deviceAny {
		return []net.Interface{{Name: deviceAny}}, nil
	}

	r, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "compile iface pattern (%s) failed", pattern)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var matched []net.Interface
	for _, iface := range ifaces {
		if !r.MatchString(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}
		matched = append(matched, iface)
	}
	if len(matched) == 0 {
		return nil, errors.Errorf("no interfaces match pattern (%s)", pattern)
	}
	return matched, nil
}

// New 按 cfg 创建一个 Source
//
// cfg.File 非空时从文件读取 否则按 cfg.Ifaces 匹配到的每个网卡各开一路实时捕获
// 并把它们汇聚为一个 Source 任意一路打开失败时 已打开的各路都会被关闭并返回错误
// 汇聚后任意一路读取出错 该错误都会由 ReadFrame 返回
func New(cfg Config) (source.Source, error) {
	if cfg.File != "" {
		return NewFile(cfg.File, cfg.BPFFilter)
	}

	ifaces, err := filterInterfaces(cfg.Ifaces)
	if err != nil {
		return nil, err
	}

	sources := make([]source.Source, 0, len(ifaces))
	for _, iface := range ifaces {
		s, err := NewLive(iface.Name, cfg.BPFFilter, !cfg.NoPromiscuous)
		if err != nil {
			for _, opened := range sources {
				_ = opened.Close()
			}
			return nil, errors.Wrapf(err, "open live source on %s failed", iface.Name)
		}
		sources = append(sources, s)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return newMultiSource(sources), nil
}

func openFileHandle(path, bpfFilter string) (*pcap.Handle, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, err
	}
	if bpfFilter != "" {
		if err := handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, errors.Wrapf(err, "set bpf-filter (%s) failed", bpfFilter)
		}
	}
	return handle, nil
}
