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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEthernetIPv4TCP(payload []byte) []byte {
	buf := make([]byte, 0, EthernetHeaderLen+ipv4MinHeaderLen+tcpMinHeaderLen+len(payload))

	// ethernet: dst mac, src mac, ethertype
	buf = append(buf, []byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}...)
	buf = append(buf, []byte{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb}...)
	buf = binary.BigEndian.AppendUint16(buf, EtherTypeIPv4)

	// ipv4 header (20 bytes, no options)
	ipStart := len(buf)
	buf = append(buf, make([]byte, ipv4MinHeaderLen)...)
	buf[ipStart] = 0x45 // version 4, ihl 5
	buf[ipStart+9] = ProtocolTCP
	copy(buf[ipStart+12:ipStart+16], []byte{10, 0, 0, 1})
	copy(buf[ipStart+16:ipStart+20], []byte{10, 0, 0, 2})

	// tcp header (20 bytes, no options)
	tcpStart := len(buf)
	buf = append(buf, make([]byte, tcpMinHeaderLen)...)
	binary.BigEndian.PutUint16(buf[tcpStart:tcpStart+2], 51000)
	binary.BigEndian.PutUint16(buf[tcpStart+2:tcpStart+4], 80)
	binary.BigEndian.PutUint32(buf[tcpStart+4:tcpStart+8], 1000)
	buf[tcpStart+12] = 5 << 4 // data offset 5, no flags

	buf = append(buf, payload...)
	return buf
}

func TestEthernetDecode(t *testing.T) {
	raw := buildEthernetIPv4TCP(nil)
	f, err := Ethernet(raw)
	require.NoError(t, err)
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", f.DstMACString())
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", f.SrcMACString())
	assert.True(t, f.IsIPv4())
	assert.False(t, f.IsIPv6())
}

func TestEthernetDecodeShortFrame(t *testing.T) {
	_, err := Ethernet(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestIPv4HeaderDecode(t *testing.T) {
	raw := buildEthernetIPv4TCP([]byte("hello"))
	eth, err := Ethernet(raw)
	require.NoError(t, err)

	h, err := IPv4Header(eth.Payload)
	require.NoError(t, err)
	assert.Equal(t, IPv4, h.Version)
	assert.True(t, h.IsTCP())
	assert.Equal(t, "10.0.0.1", h.SrcIP.String())
	assert.Equal(t, "10.0.0.2", h.DstIP.String())
}

func TestIPv4HeaderShortHeader(t *testing.T) {
	_, err := IPv4Header(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestIPv4HeaderBadVersion(t *testing.T) {
	raw := make([]byte, ipv4MinHeaderLen)
	raw[0] = 0x55 // version 5
	_, err := IPv4Header(raw)
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestIPv4HeaderBadIHL(t *testing.T) {
	raw := make([]byte, ipv4MinHeaderLen)
	raw[0] = 0x43 // version 4, ihl 3 (< 20 bytes)
	_, err := IPv4Header(raw)
	assert.ErrorIs(t, err, ErrBadIHL)
}

func TestIPv6HeaderDecode(t *testing.T) {
	raw := make([]byte, ipv6HeaderLen+5)
	raw[0] = 0x60 // version 6
	binary.BigEndian.PutUint16(raw[4:6], 5)
	raw[6] = ProtocolTCP // next header
	raw[7] = 64          // hop limit
	src := make([]byte, 16)
	src[0] = 0xfe
	src[1] = 0x80
	src[15] = 0x01
	dst := make([]byte, 16)
	dst[0] = 0xfe
	dst[1] = 0x80
	dst[15] = 0x02
	copy(raw[8:24], src)
	copy(raw[24:40], dst)
	copy(raw[40:], []byte("hello"))

	h, err := IPv6Header(raw)
	require.NoError(t, err)
	assert.Equal(t, IPv6, h.Version)
	assert.True(t, h.IsTCP())
	assert.Equal(t, []byte("hello"), h.Payload)
}

func TestIPv6HeaderShortHeader(t *testing.T) {
	_, err := IPv6Header(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestTCPDecode(t *testing.T) {
	raw := buildEthernetIPv4TCP([]byte("payload"))
	eth, err := Ethernet(raw)
	require.NoError(t, err)
	ip, err := IPv4Header(eth.Payload)
	require.NoError(t, err)

	tcp, err := TCP(ip.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint16(51000), tcp.SrcPort)
	assert.Equal(t, uint16(80), tcp.DstPort)
	assert.Equal(t, uint32(1000), tcp.Seq)
	assert.False(t, tcp.SYN)
	assert.False(t, tcp.FIN)
	assert.Equal(t, []byte("payload"), tcp.Payload)
}

func TestTCPDecodeShortHeader(t *testing.T) {
	_, err := TCP(make([]byte, 10))
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestTCPDecodeBadDataOffset(t *testing.T) {
	raw := make([]byte, tcpMinHeaderLen)
	raw[12] = 2 << 4 // data offset 2 (< 20 bytes)
	_, err := TCP(raw)
	assert.ErrorIs(t, err, ErrBadDataOffset)
}

func TestTCPDecodeFlags(t *testing.T) {
	raw := make([]byte, tcpMinHeaderLen)
	raw[12] = 5 << 4
	raw[13] = 0x01 | 0x02 | 0x10 // FIN, SYN, ACK
	tcp, err := TCP(raw)
	require.NoError(t, err)
	assert.True(t, tcp.FIN)
	assert.True(t, tcp.SYN)
	assert.True(t, tcp.ACK)
	assert.False(t, tcp.RST)
}
