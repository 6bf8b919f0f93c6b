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

package dispatcher

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtap/flowtap/decode"
	"github.com/flowtap/flowtap/reassembly"
)

func buildFrame(seq uint32, fin bool, payload []byte) []byte {
	buf := make([]byte, 0, decode.EthernetHeaderLen+40+20+len(payload))
	buf = append(buf, make([]byte, 12)...)
	buf = binary.BigEndian.AppendUint16(buf, decode.EtherTypeIPv4)

	ipStart := len(buf)
	buf = append(buf, make([]byte, 20)...)
	buf[ipStart] = 0x45
	buf[ipStart+9] = 6 // TCP
	copy(buf[ipStart+12:ipStart+16], []byte{10, 0, 0, 1})
	copy(buf[ipStart+16:ipStart+20], []byte{10, 0, 0, 2})

	tcpStart := len(buf)
	buf = append(buf, make([]byte, 20)...)
	binary.BigEndian.PutUint16(buf[tcpStart:tcpStart+2], 51000)
	binary.BigEndian.PutUint16(buf[tcpStart+2:tcpStart+4], 80)
	binary.BigEndian.PutUint32(buf[tcpStart+4:tcpStart+8], seq)
	flags := uint16(5 << 12)
	if fin {
		flags |= 0x01
	}
	binary.BigEndian.PutUint16(buf[tcpStart+12:tcpStart+14], flags)

	return append(buf, payload...)
}

func TestDispatchCompletesMessage(t *testing.T) {
	table := reassembly.NewTable(false)
	frame := buildFrame(1000, false, []byte("GET / HTTP/1.1\r\nContent-Length: 0\r\n\r\n"))

	msg, ok := Dispatch(table, frame, time.Now())
	require.True(t, ok)
	assert.Equal(t, "GET", msg.Method)
}

func TestDispatchDropsNonIPFrame(t *testing.T) {
	table := reassembly.NewTable(false)
	frame := make([]byte, 14)
	binary.BigEndian.PutUint16(frame[12:14], 0x9999)

	_, ok := Dispatch(table, frame, time.Now())
	assert.False(t, ok)
}
