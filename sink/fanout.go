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

package sink

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/internal/pubsub"
	"github.com/flowtap/flowtap/internal/rescue"
	"github.com/flowtap/flowtap/phttp"
)

const popTimeout = time.Second

var writeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: common.App,
	Subsystem: "sink",
	Name:      "write_errors_total",
	Help:      "Errors returned by a sink's OnMessage.",
}, []string{"sink"})

// Fanout 把单个消息源广播给多个 sink.Sink 每个 Sink 拥有独立的 pubsub 队列
// 一个 Sink 写入阻塞或崩溃不会影响其余 Sink 接收消息
type Fanout struct {
	bus      *pubsub.PubSub
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewFanout 为给定的 sink 集合启动广播 每个 Sink 对应一个独立的消费 goroutine
func NewFanout(sinks []Sink, queueSize int) *Fanout {
	f := &Fanout{
		bus:    pubsub.New(),
		stopCh: make(chan struct{}),
	}

	for _, s := range sinks {
		q := f.bus.Subscribe(queueSize)
		f.wg.Add(1)
		go f.consume(s, q)
	}
	return f
}

func (f *Fanout) consume(s Sink, q pubsub.Queue) {
	defer f.wg.Done()
	defer rescue.HandleCrash()
	defer q.Close()

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		data, ok := q.PopTimeout(popTimeout)
		if !ok {
			continue
		}
		msg, ok := data.(phttp.Message)
		if !ok {
			continue
		}
		if err := s.OnMessage(msg); err != nil {
			writeErrorsTotal.WithLabelValues(s.Name()).Inc()
		}
	}
}

// Publish 把一条消息广播给所有已注册的 Sink 非阻塞 队列已满时直接丢弃
func (f *Fanout) Publish(msg phttp.Message) {
	f.bus.Publish(msg)
}

// Close 停止所有消费 goroutine 并关闭底层 Sink
func (f *Fanout) Close(sinks []Sink) {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	f.wg.Wait()
	for _, s := range sinks {
		_ = s.Close()
	}
}
