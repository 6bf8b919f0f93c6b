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

// Package dispatcher wires the decode layer to the reassembly layer: every
// captured frame walks Ethernet -> Net -> TCP -> Table.Feed, and is dropped
// as soon as it fails to match a layer this program cares about.
package dispatcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/common/socket"
	"github.com/flowtap/flowtap/decode"
	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/reassembly"
)

var framesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: common.App,
	Subsystem: "dispatcher",
	Name:      "frames_dropped_total",
	Help:      "frames dropped by the dispatcher, labeled by the layer that rejected them",
}, []string{"layer"})

// Dispatch 解码单个捕获帧并将其中的 TCP 段提交给 table
//
// 返回该帧是否产出了一条完整解析的 HTTP 消息
func Dispatch(table *reassembly.Table, raw []byte, arrived time.Time) (phttp.Message, bool) {
	eth, err := decode.Ethernet(raw)
	if err != nil {
		framesDroppedTotal.WithLabelValues("ethernet").Inc()
		return phttp.Message{}, false
	}

	if !eth.IsIPv4() && !eth.IsIPv6() {
		framesDroppedTotal.WithLabelValues("ethertype").Inc()
		return phttp.Message{}, false
	}

	ip, err := decode.Net(eth.EtherType, eth.Payload)
	if err != nil {
		framesDroppedTotal.WithLabelValues("ip").Inc()
		return phttp.Message{}, false
	}

	if !ip.IsTCP() {
		framesDroppedTotal.WithLabelValues("l4proto").Inc()
		return phttp.Message{}, false
	}

	tcp, err := decode.TCP(ip.Payload)
	if err != nil {
		framesDroppedTotal.WithLabelValues("tcp").Inc()
		return phttp.Message{}, false
	}

	seg := socket.TCPSegment{
		Tuple: socket.Tuple{
			SrcIP:   ipvFromAddr(ip, true),
			DstIP:   ipvFromAddr(ip, false),
			SrcPort: socket.Port(tcp.SrcPort),
			DstPort: socket.Port(tcp.DstPort),
		},
		Time:    arrived,
		Seq:     tcp.Seq,
		FIN:     tcp.FIN,
		SYN:     tcp.SYN,
		RST:     tcp.RST,
		Payload: tcp.Payload,
	}

	return table.Feed(seg)
}

func ipvFromAddr(h decode.NetHeader, src bool) socket.IPV {
	addr := h.DstIP
	if src {
		addr = h.SrcIP
	}
	if h.IsV4() {
		return socket.ToIPV4(addr.AsSlice())
	}
	return socket.ToIPV6(addr.AsSlice())
}
