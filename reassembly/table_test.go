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

package reassembly

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtap/flowtap/common/socket"
)

func testTuple() socket.Tuple {
	return socket.Tuple{
		SrcIP:   socket.ToIPV4(netip.MustParseAddr("10.0.0.1").AsSlice()),
		DstIP:   socket.ToIPV4(netip.MustParseAddr("10.0.0.2").AsSlice()),
		SrcPort: 51000,
		DstPort: 80,
	}
}

func TestTableRejectsNonHTTPFirstSegment(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: []byte("\x16\x03\x01")})
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableInOrderReassembly(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	req := "GET / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello"
	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: []byte(req)})
	require.True(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableOutOfOrderReassembly(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	part1 := []byte("GET / HTTP/1.1\r\n")
	part2 := []byte("Content-Length: 5\r\n\r\n")
	part3 := []byte("hello")

	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: part1})
	require.False(t, ok)

	// part3 arrives before part2: out of order, buffered
	_, ok = tbl.Feed(socket.TCPSegment{
		Tuple:   tuple,
		Seq:     1000 + uint32(len(part1)) + uint32(len(part2)),
		Payload: part3,
	})
	require.False(t, ok)
	require.Equal(t, 1, tbl.Len())

	msg, ok := tbl.Feed(socket.TCPSegment{
		Tuple:   tuple,
		Seq:     1000 + uint32(len(part1)),
		Payload: part2,
	})
	require.True(t, ok)
	assert.Equal(t, "hello", string(msg.Body))
}

func TestTableDropsRetransmission(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	first := []byte("GET / HTTP/1.1\r\n")
	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: first})
	require.False(t, ok)

	// retransmit of the same bytes at the same seq
	_, ok = tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: first})
	assert.False(t, ok)
	require.Equal(t, 1, tbl.Len())

	rest := []byte("Host: a\r\n\r\n")
	msg, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000 + uint32(len(first)), Payload: rest})
	require.True(t, ok)
	assert.Equal(t, "GET", msg.Method)
}

func TestTableFINFinalizesIncompleteMessage(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	_, ok := tbl.Feed(socket.TCPSegment{
		Tuple:   tuple,
		Seq:     1000,
		Payload: []byte("GET / HTTP/1.1\r\n"),
	})
	require.False(t, ok)

	msg, ok := tbl.Feed(socket.TCPSegment{
		Tuple:   tuple,
		Seq:     1000 + 16,
		Payload: []byte("Host: a\r\n"),
		FIN:     true,
	})
	require.True(t, ok)
	assert.Equal(t, "GET", msg.Method)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableDropsMalformedConnection(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	req := "GET / HTTP/1.1\r\nBadHeader\r\n\r\n"
	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: []byte(req)})
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableDropsMalformedConnectionEvenWithFIN(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	req := "GET / HTTP/1.1\r\nBadHeader\r\n\r\n"
	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: []byte(req), FIN: true})
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableSweepExpiresIdleFlow(t *testing.T) {
	tbl := NewTable(false)
	tuple := testTuple()

	_, ok := tbl.Feed(socket.TCPSegment{Tuple: tuple, Seq: 1000, Payload: []byte("GET / HTTP/1.1\r\n")})
	require.False(t, ok)
	require.Equal(t, 1, tbl.Len())

	msgs := tbl.Sweep(time.Hour)
	assert.Empty(t, msgs)
	assert.Equal(t, 1, tbl.Len())

	tbl.conns[tuple].active -= int64((2 * time.Minute) / time.Second)
	msgs = tbl.Sweep(time.Minute)
	require.Len(t, msgs, 1)
	assert.Equal(t, "GET", msgs[0].Method)
	assert.Equal(t, 0, tbl.Len())
}

func TestSeqLessHandlesWraparound(t *testing.T) {
	var max32 uint32 = 1<<32 - 1
	assert.True(t, seqLess(max32, 5))
	assert.False(t, seqLess(5, max32))
	assert.True(t, seqLessEq(5, 5))
}
