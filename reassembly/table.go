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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/common/socket"
	"github.com/flowtap/flowtap/internal/fasttime"
	"github.com/flowtap/flowtap/phttp"
)

var (
	admittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "admitted_flows_total",
		Help:      "number of TCP half-streams admitted for HTTP reassembly",
	})

	rejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "rejected_flows_total",
		Help:      "number of TCP half-streams rejected because the first segment did not look like HTTP",
	})

	activeFlows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "active_flows",
		Help:      "number of TCP half-streams currently tracked",
	})

	droppedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "dropped_bytes_total",
		Help:      "bytes discarded as retransmissions or overlaps",
	})

	expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "expired_flows_total",
		Help:      "number of half-streams force-finalized for being idle past the expiry threshold",
	})

	malformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: common.App,
		Subsystem: "reassembly",
		Name:      "malformed_flows_total",
		Help:      "number of half-streams dropped without emitting a message because the HTTP parser hit unrecoverable input",
	})
)

// Table 持有一组 TCP 半流的重组状态
//
// Table 不是并发安全的: 设计上每个捕获 goroutine 拥有并且只拥有一个 Table
// 多个捕获源之间没有共享状态 也就不需要加锁
type Table struct {
	conns          map[socket.Tuple]*connection
	captureSnippet bool
}

// NewTable 创建并返回 *Table 实例
func NewTable(captureSnippet bool) *Table {
	return &Table{
		conns:          make(map[socket.Tuple]*connection),
		captureSnippet: captureSnippet,
	}
}

// Feed 提交一个 TCP 段 若该段的到达使某条半流的 HTTP 消息解析完成
// 返回解析得到的消息以及 true
//
// 准入规则: 一条半流只有在其首个到达的段的载荷`看起来像 HTTP`时才会被接纳
// (即匹配已知 HTTP 方法 或以 "HTTP" 开头的响应行) 否则该段被丢弃且不分配任何状态
// 同一四元组的后续段会按同样的规则重新判定
func (t *Table) Feed(seg socket.TCPSegment) (phttp.Message, bool) {
	conn, ok := t.conns[seg.Tuple]
	if !ok {
		if len(seg.Payload) == 0 {
			return phttp.Message{}, false
		}
		if !phttp.LooksLikeHTTP(seg.Payload) {
			rejectedTotal.Inc()
			return phttp.Message{}, false
		}

		conn = newConnection(seg.Tuple, seg.Seq, t.captureSnippet)
		t.conns[seg.Tuple] = conn
		admittedTotal.Inc()
		activeFlows.Set(float64(len(t.conns)))

		conn.feed(seg.Seq, seg.Payload)
	} else {
		conn.feed(seg.Seq, seg.Payload)
	}

	droppedBytesTotal.Add(float64(conn.dropBytes))
	conn.dropBytes = 0

	if conn.malformed() {
		t.remove(seg.Tuple)
		malformedTotal.Inc()
		return phttp.Message{}, false
	}

	if seg.FIN {
		msg := conn.finish()
		t.remove(seg.Tuple)
		return msg, true
	}

	if conn.done() {
		msg := conn.message()
		t.remove(seg.Tuple)
		return msg, true
	}

	return phttp.Message{}, false
}

func (t *Table) remove(tuple socket.Tuple) {
	delete(t.conns, tuple)
	activeFlows.Set(float64(len(t.conns)))
}

// Len 返回当前被追踪的半流数量
func (t *Table) Len() int {
	return len(t.conns)
}

// Sweep 强制结束并移除所有空闲时间超过 maxIdle 的半流 返回它们截至目前解析到的消息
//
// 用于应对永远不会收到 FIN 的连接 (RST 不会结束半流) (对端异常断开/防火墙丢弃), 否则这些半流会
// 在 Table 中无限堆积
func (t *Table) Sweep(maxIdle time.Duration) []phttp.Message {
	now := fasttime.UnixTimestamp()
	maxIdleSecs := int64(maxIdle / time.Second)

	var msgs []phttp.Message
	for tuple, conn := range t.conns {
		if now-conn.active < maxIdleSecs {
			continue
		}
		msgs = append(msgs, conn.finish())
		delete(t.conns, tuple)
		expiredTotal.Inc()
	}
	if len(msgs) > 0 {
		activeFlows.Set(float64(len(t.conns)))
	}
	return msgs
}
