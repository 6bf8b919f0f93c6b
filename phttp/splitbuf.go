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

// Package phttp implements an incremental HTTP/1.x parser that is fed
// reassembled TCP stream bytes as they arrive, without ever requiring the
// full message to be buffered first.
package phttp

import (
	"bytes"

	"github.com/valyala/bytebufferpool"
)

// SplitBuffer 是一个只追加的字节缓冲区 支持按分隔符弹出已缓冲的数据
//
// 与 bufio.Scanner 不同 SplitBuffer 不要求一次性拥有完整的数据
// feed 可以被多次调用 pop 在分隔符尚未到达时返回 false 而不丢弃已写入的数据
type SplitBuffer struct {
	buf *bytebufferpool.ByteBuffer
}

// NewSplitBuffer 创建并返回 *SplitBuffer 实例
func NewSplitBuffer() *SplitBuffer {
	return &SplitBuffer{buf: bytebufferpool.Get()}
}

// Feed 向缓冲区追加字节 不做任何解析
func (s *SplitBuffer) Feed(p []byte) {
	s.buf.Write(p)
}

// Pop 查找 sep 第一次出现的位置 若找到 返回分隔符之前的数据并将其从缓冲区移除
//
// 若 sep 尚未出现 返回 (nil, false) 且缓冲区内容保持不变
func (s *SplitBuffer) Pop(sep []byte) ([]byte, bool) {
	data := s.buf.Bytes()
	idx := bytes.Index(data, sep)
	if idx < 0 {
		return nil, false
	}

	head := append([]byte(nil), data[:idx]...)
	rest := data[idx+len(sep):]

	next := bytebufferpool.Get()
	next.Write(rest)
	bytebufferpool.Put(s.buf)
	s.buf = next

	return head, true
}

// IsEmpty 返回缓冲区是否为空
func (s *SplitBuffer) IsEmpty() bool {
	return s.buf.Len() == 0
}

// Flush 返回缓冲区当前的全部内容并清空缓冲区
func (s *SplitBuffer) Flush() []byte {
	data := append([]byte(nil), s.buf.Bytes()...)
	s.buf.Reset()
	return data
}

// Release 将底层 buffer 归还给池 SplitBuffer 不应在 Release 后继续使用
func (s *SplitBuffer) Release() {
	bytebufferpool.Put(s.buf)
	s.buf = nil
}
