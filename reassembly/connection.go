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

// Package reassembly reassembles TCP half-streams into ordered byte streams
// and hands the bytes to an HTTP/1.x parser as soon as they are in order.
//
// Each directed socket.Tuple is reassembled independently: there is no
// shared state across tuples, so a Table can be owned by a single goroutine
// without locking.
package reassembly

import (
	"github.com/flowtap/flowtap/common/socket"
	"github.com/flowtap/flowtap/internal/fasttime"
	"github.com/flowtap/flowtap/phttp"
)

// connection 持有单条 TCP 半流的重组状态
type connection struct {
	tuple   socket.Tuple
	nextSeq uint32
	ooo     *oooHeap
	parser  *phttp.Parser
	active  int64 // unix 秒 来自 fasttime 避免在逐包路径上调用 time.Now

	oooBytes  uint64
	dropBytes uint64
}

func newConnection(tuple socket.Tuple, seq uint32, captureSnippet bool) *connection {
	return &connection{
		tuple:   tuple,
		nextSeq: seq,
		ooo:     newOOOHeap(),
		parser:  phttp.NewParser(captureSnippet),
		active:  fasttime.UnixTimestamp(),
	}
}

// feed 将一个到达的段提交给连接 seq 是该段载荷的起始序列号
//
// 顺序到达: 直接喂给解析器 并推进 nextSeq
// 迟到(重传/重叠): 丢弃
// 早到(乱序): 缓存到堆中 等待 gap 被填补
//
// 每次顺序推进之后都要检查堆顶 只要堆顶段的起始序号 <= nextSeq 就继续消费
// 注意: 推进 nextSeq 时要按`被缓冲段的长度`推进 而不是按新到达段的长度推进
func (c *connection) feed(seq uint32, payload []byte) {
	c.active = fasttime.UnixTimestamp()

	if len(payload) == 0 {
		return
	}

	switch {
	case seq == c.nextSeq:
		c.parser.Feed(payload)
		c.nextSeq += uint32(len(payload))
		c.drain()

	case seqLess(seq, c.nextSeq):
		// 完全或部分重传/重叠 uint32 回绕场景下仍然安全 直接丢弃
		c.dropBytes += uint64(len(payload))

	default:
		// payload 引用捕获帧 只在下一次 ReadFrame 之前有效 缓存前必须拷贝
		c.ooo.push(segment{seq: seq, payload: append([]byte(nil), payload...)})
		c.oooBytes += uint64(len(payload))
	}
}

func (c *connection) drain() {
	for {
		top, ok := c.ooo.peek()
		if !ok || !seqLessEq(top.seq, c.nextSeq) {
			return
		}

		buffered := c.ooo.pop()
		if seqLess(buffered.seq, c.nextSeq) {
			// 堆顶段落在已消费区间内 是重传 丢弃并继续检查下一个
			c.dropBytes += uint64(len(buffered.payload))
			continue
		}

		c.parser.Feed(buffered.payload)
		c.nextSeq += uint32(len(buffered.payload))
	}
}

// done 返回该半流的 HTTP 消息是否已经解析完成
func (c *connection) done() bool {
	return c.parser.Done()
}

// malformed 返回该半流是否因不可恢复的解析错误被终止
//
// 为 true 时连接状态应被直接销毁 不产出消息 (见 Parser.Malformed)
func (c *connection) malformed() bool {
	return c.parser.Malformed()
}

// finish 在收到 FIN 或半流空闲过期 (Table.Sweep) 时调用 强制结束解析并返回截至目前的消息
func (c *connection) finish() phttp.Message {
	c.parser.Close()
	return c.parser.Message()
}

// message 返回已完成解析的消息 仅应在 done() 为 true 时调用
func (c *connection) message() phttp.Message {
	return c.parser.Message()
}
