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
)

/*
 * TCP Layout
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |          Source Port           |       Destination Port       |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |                        Sequence Number                        |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |                    Acknowledgment Number                      |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |  Data |           |U|A|P|R|S|F|                               |
 | Offset| Reserved  |R|C|S|S|Y|I|            Window             |
 |       |           |G|K|H|T|N|N|                               |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |           Checksum            |         Urgent Pointer        |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
 |                    Options                    |    Padding    |
 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
*/

const tcpMinHeaderLen = 20

// TCPHeader 已解码的 TCP 段 不包含 checksum/window/urgent pointer 等不影响重组的字段
type TCPHeader struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	SYN     bool
	ACK     bool
	FIN     bool
	RST     bool
	Payload []byte
}

// TCP 解码一个 TCP 段 raw 必须至少包含 20 字节的固定头部
//
// Data Offset 字段指定的头部长度必须 >= 20 且不超过 raw 长度
func TCP(raw []byte) (TCPHeader, error) {
	var h TCPHeader
	if len(raw) < tcpMinHeaderLen {
		return h, ErrShortHeader
	}

	h.SrcPort = binary.BigEndian.Uint16(raw[0:2])
	h.DstPort = binary.BigEndian.Uint16(raw[2:4])
	h.Seq = binary.BigEndian.Uint32(raw[4:8])
	h.Ack = binary.BigEndian.Uint32(raw[8:12])

	offsetAndFlags := binary.BigEndian.Uint16(raw[12:14])
	dataOffset := int(offsetAndFlags>>12) * 4
	if dataOffset < tcpMinHeaderLen || dataOffset > len(raw) {
		return h, ErrBadDataOffset
	}

	h.ACK = offsetAndFlags&0x10 != 0
	h.RST = offsetAndFlags&0x04 != 0
	h.SYN = offsetAndFlags&0x02 != 0
	h.FIN = offsetAndFlags&0x01 != 0
	h.Payload = raw[dataOffset:]
	return h, nil
}
