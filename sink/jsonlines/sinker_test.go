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

package jsonlines

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gojson "github.com/goccy/go-json"

	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/sink"
)

type closeBuffer struct {
	bytes.Buffer
}

func (c *closeBuffer) Close() error { return nil }

func newTestSinker() (*Sinker, *closeBuffer) {
	buf := &closeBuffer{}
	var wr io.WriteCloser = buf
	return &Sinker{wr: wr, cfg: &sink.JSONLinesConfig{}, encoder: gojson.NewEncoder(wr)}, buf
}

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	return m
}

func TestSinkerWritesPlainBody(t *testing.T) {
	s, buf := newTestSinker()

	msg := phttp.Message{
		Direction: phttp.DirectionRequest,
		Method:    "GET",
		URL:       "/ping",
		Version:   "HTTP/1.1",
		Body:      []byte("hello"),
	}
	require.NoError(t, s.OnMessage(msg))

	m := decodeLine(t, buf.String())
	assert.Equal(t, "hello", m["body"])
	assert.NotContains(t, m, "bodyEncoding")
}

func TestSinkerCompressesBody(t *testing.T) {
	s, buf := newTestSinker()
	s.cfg.Compress = true

	msg := phttp.Message{Direction: phttp.DirectionResponse, Version: "HTTP/1.1", Body: []byte("payload-body")}
	require.NoError(t, s.OnMessage(msg))

	m := decodeLine(t, buf.String())
	assert.Equal(t, "snappy+base64", m["bodyEncoding"])

	decoded, err := base64.StdEncoding.DecodeString(m["body"].(string))
	require.NoError(t, err)
	raw, err := snappy.Decode(nil, decoded)
	require.NoError(t, err)
	assert.Equal(t, "payload-body", string(raw))
}
