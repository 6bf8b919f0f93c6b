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

package phttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserRequestNoBody(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET /index.html HTTP/1.1\r\nHost: localhost:5000\r\nUser-Agent: curl/7.69.1\r\nAccept: */*\r\n\r\n"))

	require.True(t, p.Done())
	m := p.Message()
	assert.Equal(t, DirectionRequest, m.Direction)
	assert.Equal(t, "GET", m.Method)
	assert.Equal(t, "/index.html", m.URL)
	assert.Equal(t, "HTTP/1.1", m.Version)

	host, ok := m.Get("Host")
	require.True(t, ok)
	assert.Equal(t, "localhost:5000", host)
	assert.Empty(t, m.Body)
}

func TestParserRequestWithBodyAcrossFeeds(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("POST /submit HTTP/1.1\r\n"))
	assert.False(t, p.Done())

	p.Feed([]byte("Host: example.com\r\nContent-Length: 11\r\n\r\n"))
	assert.False(t, p.Done())

	p.Feed([]byte("hello"))
	assert.False(t, p.Done())

	p.Feed([]byte(" world"))
	require.True(t, p.Done())

	m := p.Message()
	assert.Equal(t, "POST", m.Method)
	assert.Equal(t, "hello world", string(m.Body))
}

func TestParserResponse(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"))

	require.True(t, p.Done())
	m := p.Message()
	assert.Equal(t, DirectionResponse, m.Direction)
	assert.Equal(t, 404, m.StatusCode)
	assert.Equal(t, "Not Found", m.StatusMessage)
	assert.Empty(t, m.Body)
}

func TestParserDuplicateHeadersPreserveOrder(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET / HTTP/1.1\r\nX-Trace: a\r\nX-Trace: b\r\n\r\n"))
	require.True(t, p.Done())

	m := p.Message()
	require.Len(t, m.Headers, 2)
	assert.Equal(t, "a", m.Headers[0].Value)
	assert.Equal(t, "b", m.Headers[1].Value)
}

func TestParserCloseTerminatesIncompleteMessage(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("POST /x HTTP/1.1\r\nContent-Length: 100\r\n\r\npartial"))
	assert.False(t, p.Done())

	p.Close()
	require.True(t, p.Done())
	m := p.Message()
	assert.Equal(t, "partial", string(m.Body))
}

func TestParserMalformedStartLineTooFewTokens(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET\r\nHost: x\r\n\r\n"))
	require.True(t, p.Malformed())
	assert.False(t, p.Done())
}

func TestParserMalformedHeaderMissingColonSpace(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET / HTTP/1.1\r\nBadHeader\r\n\r\n"))
	require.True(t, p.Malformed())
	assert.False(t, p.Done())
}

func TestParserMalformedHeaderBareColonNoSpace(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET / HTTP/1.1\r\nHost:localhost\r\n\r\n"))
	require.True(t, p.Malformed())
	assert.False(t, p.Done())
}

func TestParserMalformedContentLengthNotNumeric(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("POST /x HTTP/1.1\r\nContent-Length: notanumber\r\n\r\n"))
	require.True(t, p.Malformed())
	assert.False(t, p.Done())
}

func TestLooksLikeHTTP(t *testing.T) {
	assert.True(t, LooksLikeHTTP([]byte("GET / HTTP/1.1\r\n")))
	assert.True(t, LooksLikeHTTP([]byte("HTTP/1.1 200 OK\r\n")))
	assert.False(t, LooksLikeHTTP([]byte("\x16\x03\x01\x00\xa5"))) // TLS client hello
}

func TestTraceIDExtraction(t *testing.T) {
	p := NewParser(false)
	p.Feed([]byte("GET / HTTP/1.1\r\ntraceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01\r\n\r\n"))
	require.True(t, p.Done())

	m := p.Message()
	assert.True(t, m.HasTraceID)
	assert.False(t, m.TraceID.IsEmpty())
}
