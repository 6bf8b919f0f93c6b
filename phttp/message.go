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
	"go.opentelemetry.io/collector/pdata/pcommon"

	"github.com/flowtap/flowtap/internal/bufbytes"
)

// Direction 标识已解析的 HTTP 消息是请求还是响应
type Direction uint8

const (
	DirectionRequest Direction = iota
	DirectionResponse
)

func (d Direction) String() string {
	if d == DirectionRequest {
		return "request"
	}
	return "response"
}

// Header 保留原始到达顺序与重复项的请求/响应头
//
// 不使用 net/http.Header (map[string][]string) 是因为后者既不保证多个同名
// header 的到达顺序 也不区分 "没有这个 header" 和 "这个 header 值为空字符串"
type Header struct {
	Name  string
	Value string
}

// Message 代表一条完整解析出的 HTTP 请求或响应
type Message struct {
	Direction Direction

	// 请求独有字段
	Method  string
	URL     string
	Version string

	// 响应独有字段
	StatusCode    int
	StatusMessage string

	Headers []Header
	Body    []byte

	// TraceID 从 traceparent header 中提取 未命中时为零值
	TraceID    pcommon.TraceID
	HasTraceID bool

	// Snippet 是裁剪后的 body 片段 供日志/诊断展示 不代表完整 body
	Snippet string
}

// Get 返回首个匹配 name 的 header 值 大小写不敏感
func (m *Message) Get(name string) (string, bool) {
	for _, h := range m.Headers {
		if eqFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// builder 通过回调增量构建 Message 解析状态机不直接触碰 Message 内部字段
//
// body 不设上限: 完整 body 总是要交付给下游 Sink (参见顶层设计)
// snippet 则通过 bufbytes 封顶 仅用于日志/诊断 展示
type builder struct {
	msg     Message
	body    []byte
	snippet *bufbytes.Bytes
	capture bool
}

func newBuilder(captureSnippet bool) *builder {
	b := &builder{capture: captureSnippet}
	if captureSnippet {
		b.snippet = bufbytes.New(snippetSize)
	}
	return b
}

func (b *builder) onRequestLine(method, url, version string) {
	b.msg.Direction = DirectionRequest
	b.msg.Method = method
	b.msg.URL = url
	b.msg.Version = version
}

func (b *builder) onResponseLine(version string, statusCode int, statusMessage string) {
	b.msg.Direction = DirectionResponse
	b.msg.Version = version
	b.msg.StatusCode = statusCode
	b.msg.StatusMessage = statusMessage
}

func (b *builder) onHeader(name, value string) {
	b.msg.Headers = append(b.msg.Headers, Header{Name: name, Value: value})
	if eqFold(name, headerTraceParent) {
		if id, ok := TraceIDFromHeaderValue(value); ok {
			b.msg.TraceID = id
			b.msg.HasTraceID = true
		}
	}
}

func (b *builder) onBody(chunk []byte) {
	b.body = append(b.body, chunk...)
	if b.capture {
		b.snippet.Write(chunk)
	}
}

func (b *builder) build() Message {
	m := b.msg
	m.Body = b.body
	if b.capture {
		m.Snippet = b.snippet.Text()
	}
	return m
}

const snippetSize = 100 * 1024
