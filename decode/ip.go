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

package decode

import (
	"encoding/binary"
	"net/netip"
)

// IPVersion IP 版本标识
type IPVersion uint8

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

const (
	// ProtocolTCP IP 协议号 6 代表 TCP
	ProtocolTCP = 6

	ipv4MinHeaderLen = 20
	ipv6HeaderLen    = 40
)

// NetHeader 对 IPv4/IPv6 头部解码结果的统一视图
//
// 两种协议版本共用此结构体 字段含义保持一致: SrcIP/DstIP/Protocol/Payload
// Protocol 对应 IPv4 的 Protocol 字段或 IPv6 的 Next Header 字段
//
// 注意: IPv6 扩展头不会被展开 若 NextHeader 不直接是传输层协议号
// (即存在逐跳选项/路由头等扩展头) Payload 不会被进一步剥离 这是已知限制
type NetHeader struct {
	Version  IPVersion
	SrcIP    netip.Addr
	DstIP    netip.Addr
	Protocol uint8
	Payload  []byte
}

func (h NetHeader) IsV4() bool {
	return h.Version == IPv4
}

func (h NetHeader) IsV6() bool {
	return h.Version == IPv6
}

// IPv4Header 解码一个 IPv4 头部
//
// raw 至少要有 20 字节固定头部 IHL 指定的头部长度必须 >= 20 且不超过 raw 长度
func IPv4Header(raw []byte) (NetHeader, error) {
	var h NetHeader
	if len(raw) < ipv4MinHeaderLen {
		return h, ErrShortHeader
	}

	versionIHL := raw[0]
	version := versionIHL >> 4
	if version != 4 {
		return h, ErrBadVersion
	}

	ihl := int(versionIHL&0x0F) * 4
	if ihl < ipv4MinHeaderLen || ihl > len(raw) {
		return h, ErrBadIHL
	}

	srcIP, _ := netip.AddrFromSlice(raw[12:16])
	dstIP, _ := netip.AddrFromSlice(raw[16:20])

	h.Version = IPv4
	h.SrcIP = srcIP
	h.DstIP = dstIP
	h.Protocol = raw[9]
	h.Payload = raw[ihl:]
	return h, nil
}

// IPv6Header 解码一个 IPv6 固定头部 (不解析扩展头)
func IPv6Header(raw []byte) (NetHeader, error) {
	var h NetHeader
	if len(raw) < ipv6HeaderLen {
		return h, ErrShortHeader
	}

	version := raw[0] >> 4
	if version != 6 {
		return h, ErrBadVersion
	}

	payloadLen := int(binary.BigEndian.Uint16(raw[4:6]))
	nextHeader := raw[6]

	srcIP, _ := netip.AddrFromSlice(raw[8:24])
	dstIP, _ := netip.AddrFromSlice(raw[24:40])

	end := ipv6HeaderLen + payloadLen
	if end > len(raw) {
		end = len(raw)
	}

	h.Version = IPv6
	h.SrcIP = srcIP
	h.DstIP = dstIP
	h.Protocol = nextHeader
	h.Payload = raw[ipv6HeaderLen:end]
	return h, nil
}

// Net 依据 EtherType 分派到对应版本的 IP 解码器
func Net(etherType uint16, raw []byte) (NetHeader, error) {
	switch etherType {
	case EtherTypeIPv4:
		return IPv4Header(raw)
	case EtherTypeIPv6:
		return IPv6Header(raw)
	default:
		return NetHeader{}, newError("unsupported ethertype 0x%04x", etherType)
	}
}

// IsTCP 返回该 IP 负载是否为 TCP
func (h NetHeader) IsTCP() bool {
	return h.Protocol == ProtocolTCP
}
