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

// Package decode implements the hand-rolled binary decoders for the frames
// this program ever looks at: Ethernet II, IPv4, IPv6 and TCP.
//
// Every decoder here is a pure function over a byte slice: no decoder
// copies payload bytes or retains state between calls. Fixed-size address
// fields are copied into the returned struct, while Payload is a slice into
// the caller's buffer, so the caller owns the buffer's lifetime.
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "decode: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrShortFrame 以太网帧长度不足以容纳 Ethernet II 固定头部
	ErrShortFrame = newError("frame too short")

	// ErrShortHeader IPv4/IPv6/TCP 头部长度不足以容纳该层的最小头部
	ErrShortHeader = newError("header too short")

	// ErrBadVersion IP 版本号非法
	ErrBadVersion = newError("bad ip version")

	// ErrBadIHL IPv4 IHL 字段非法 小于最小头部长度
	ErrBadIHL = newError("bad ip header length")

	// ErrBadDataOffset TCP Data Offset 字段非法 小于最小头部长度
	ErrBadDataOffset = newError("bad tcp data offset")
)

const (
	// EthernetHeaderLen Ethernet II 固定头部长度: 目的 MAC(6) + 源 MAC(6) + EtherType(2)
	EthernetHeaderLen = 14

	// EtherTypeIPv4 IPv4 的 EtherType 值
	EtherTypeIPv4 = 0x0800

	// EtherTypeIPv6 IPv6 的 EtherType 值
	EtherTypeIPv6 = 0x86DD
)

// EthernetFrame 已解码的 Ethernet II 帧
type EthernetFrame struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16
	Payload   []byte
}

// Ethernet 解码一个 Ethernet II 帧
//
// raw 必须至少包含 EthernetHeaderLen 字节 否则返回 ErrShortFrame
func Ethernet(raw []byte) (EthernetFrame, error) {
	var f EthernetFrame
	if len(raw) < EthernetHeaderLen {
		return f, ErrShortFrame
	}

	copy(f.DstMAC[:], raw[0:6])
	copy(f.SrcMAC[:], raw[6:12])
	f.EtherType = binary.BigEndian.Uint16(raw[12:14])
	f.Payload = raw[EthernetHeaderLen:]
	return f, nil
}

func macString(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// SrcMACString 返回源 MAC 地址的冒号分隔十六进制表示
func (f EthernetFrame) SrcMACString() string {
	return macString(f.SrcMAC)
}

// DstMACString 返回目的 MAC 地址的冒号分隔十六进制表示
func (f EthernetFrame) DstMACString() string {
	return macString(f.DstMAC)
}

// IsIPv4 返回该帧是否承载 IPv4 负载
func (f EthernetFrame) IsIPv4() bool {
	return f.EtherType == EtherTypeIPv4
}

// IsIPv6 返回该帧是否承载 IPv6 负载
func (f EthernetFrame) IsIPv6() bool {
	return f.EtherType == EtherTypeIPv6
}
