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
	"bytes"
	"strconv"
	"strings"
)

// phase 解析器所处阶段
type phase uint8

const (
	phaseStart phase = iota
	phaseHeaders
	phaseBody
	phaseComplete
	phaseMalformed
)

var crlf = []byte("\r\n")
var headerSep = []byte(": ")

var httpMethods = [][]byte{
	[]byte("GET"), []byte("POST"), []byte("PUT"), []byte("DELETE"),
	[]byte("HEAD"), []byte("OPTIONS"), []byte("PATCH"), []byte("TRACE"), []byte("CONNECT"),
}

// LooksLikeHTTP 判断一段字节是否像 HTTP 请求行或响应行的开头
//
// 用作准入判定: 仅在一条 TCP 流的首个 segment 看起来像 HTTP 时才接纳重组
func LooksLikeHTTP(data []byte) bool {
	for _, m := range httpMethods {
		if bytes.HasPrefix(data, m) {
			return true
		}
	}
	return bytes.HasPrefix(bytes.ToUpper(firstToken(data)), []byte("HTTP"))
}

func firstToken(data []byte) []byte {
	n := len(data)
	if n > 8 {
		n = 8
	}
	return data[:n]
}

// Parser 增量式 HTTP/1.x 消息解析器
//
// 状态机: START -> HEADERS -> BODY -> COMPLETE
// 不依赖 net/http.ReadRequest/ReadResponse: 标准库的 http.Header 是
// map[string][]string 无法保留 header 的到达顺序 也会合并/归一化重复项
type Parser struct {
	buf  *SplitBuffer
	b    *builder
	ph   phase
	want int // 期望的 body 剩余字节数 仅在 Content-Length 存在时有意义
}

// NewParser 创建并返回 *Parser 实例
//
// captureSnippet 为 true 时额外在 Message.Snippet 中保留一份封顶的 body 拷贝 用于日志展示
func NewParser(captureSnippet bool) *Parser {
	return &Parser{
		buf: NewSplitBuffer(),
		b:   newBuilder(captureSnippet),
	}
}

// Feed 向解析器追加字节并尽可能推进状态机
func (p *Parser) Feed(data []byte) {
	p.buf.Feed(data)
	p.advance()
}

// Done 返回消息是否已解析完成
func (p *Parser) Done() bool {
	return p.ph == phaseComplete
}

// Malformed 返回解析是否因不可恢复的格式错误终止
//
// header 行缺少 ": "、Content-Length 非数字、起始行 token 数不足 2 个
// 均视为该连接已损坏: 连接状态被销毁 不产出任何消息
func (p *Parser) Malformed() bool {
	return p.ph == phaseMalformed
}

// Message 在 Done() 为 true 时返回解析得到的消息
func (p *Parser) Message() Message {
	return p.b.build()
}

// Close 在连接提前终止 (如 FIN) 但消息尚不完整时调用
//
// 将缓冲区中尚未消费的数据作为 body 的尾部冲出 并标记解析完成
func (p *Parser) Close() {
	if p.ph == phaseComplete || p.ph == phaseMalformed {
		return
	}
	if p.ph == phaseBody && !p.buf.IsEmpty() {
		p.b.onBody(p.buf.Flush())
	}
	p.ph = phaseComplete
}

func (p *Parser) advance() {
	for {
		switch p.ph {
		case phaseStart:
			if !p.parseStartLine() {
				return
			}
		case phaseHeaders:
			if !p.parseHeader() {
				return
			}
		case phaseBody:
			if p.want > 0 {
				if p.buf.IsEmpty() {
					return
				}
				chunk := p.buf.Flush()
				if len(chunk) > p.want {
					// 理论上不该发生(同一条流上的管线化请求不受支持) 按 want 截断
					chunk = chunk[:p.want]
				}
				p.want -= len(chunk)
				p.b.onBody(chunk)
				continue
			}
			p.ph = phaseComplete
			return
		case phaseComplete, phaseMalformed:
			return
		}
	}
}

func (p *Parser) parseStartLine() bool {
	line, ok := p.buf.Pop(crlf)
	if !ok {
		return false
	}

	fields := strings.Fields(string(bytes.TrimSpace(line)))
	if len(fields) == 0 {
		// 空行: 容忍前导 CRLF 噪声 继续等待下一行
		return true
	}
	if len(fields) < 2 {
		// 起始行 token 数不足 2 个: 连接已损坏 不产出消息
		p.ph = phaseMalformed
		return true
	}

	if isHTTPMethod(fields[0]) {
		method, url, version := fields[0], "", ""
		if len(fields) > 1 {
			url = fields[1]
		}
		if len(fields) > 2 {
			version = fields[2]
		}
		p.b.onRequestLine(method, url, version)
	} else {
		version := fields[0]
		statusCode := 0
		if len(fields) > 1 {
			statusCode, _ = strconv.Atoi(fields[1])
		}
		statusMessage := ""
		if len(fields) > 2 {
			statusMessage = strings.Join(fields[2:], " ")
		}
		p.b.onResponseLine(version, statusCode, statusMessage)
	}

	p.ph = phaseHeaders
	return true
}

func isHTTPMethod(s string) bool {
	for _, m := range httpMethods {
		if s == string(m) {
			return true
		}
	}
	return false
}

func (p *Parser) parseHeader() bool {
	line, ok := p.buf.Pop(crlf)
	if !ok {
		return false
	}

	if len(line) == 0 {
		// 空行标志 header 区结束
		if p.want > 0 {
			p.ph = phaseBody
		} else {
			p.ph = phaseComplete
		}
		return true
	}

	name, value, found := splitHeaderLine(line)
	if !found {
		// header 行没有 ": " 分隔符: 连接已损坏 不产出消息
		p.ph = phaseMalformed
		return true
	}

	if eqFold(name, "content-length") {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			// Content-Length 非数字: 连接已损坏 不产出消息
			p.ph = phaseMalformed
			return true
		}
		if n > 0 {
			p.want = n
		}
	}
	p.b.onHeader(name, value)
	return true
}

// splitHeaderLine 在首个 ": " 处切分 header 行 而非裸 ":"
//
// 单独一个 ":" (没有跟随空格) 不构成合法分隔符 按 ParseMalformed 处理
func splitHeaderLine(line []byte) (name, value string, ok bool) {
	idx := bytes.Index(line, headerSep)
	if idx < 0 {
		return "", "", false
	}
	name = string(bytes.TrimSpace(line[:idx]))
	value = string(bytes.TrimSpace(line[idx+len(headerSep):]))
	return name, value, true
}
