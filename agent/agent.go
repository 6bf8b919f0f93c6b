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

// Package agent ties configuration, capture sources, the reassembly
// pipeline, sinks and the ops server into a single runnable unit.
package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/confengine"
	"github.com/flowtap/flowtap/internal/pubsub"
	"github.com/flowtap/flowtap/logger"
	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/pipeline"
	"github.com/flowtap/flowtap/server"
	"github.com/flowtap/flowtap/sink"
	_ "github.com/flowtap/flowtap/sink/jsonlines"
	_ "github.com/flowtap/flowtap/sink/mongosink"
	"github.com/flowtap/flowtap/source/pcapsrc"
)

const sinkQueueSize = 256

// Agent 是进程的顶层组件 由 cmd 包创建并驱动
type Agent struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	group  *pipeline.Group
	svr    *server.Server
	fanout *sink.Fanout
	sinks  []sink.Sink
	rtBus  *pubsub.PubSub
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "flowtap.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New 装配一个 Agent: 捕获源, 流水线, sink 扇出, ops server
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Agent, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("agent", &cfg); err != nil {
		return nil, err
	}

	var srcCfg pcapsrc.Config
	if err := conf.UnpackChild("source", &srcCfg); err != nil {
		return nil, err
	}
	src, err := pcapsrc.New(srcCfg)
	if err != nil {
		return nil, err
	}

	svr, err := server.New(conf)
	if err != nil {
		return nil, err
	}

	var sinkCfg sink.Config
	if err := conf.UnpackChild("sink", &sinkCfg); err != nil {
		return nil, err
	}
	sinks, err := buildSinks(cfg.Sinks, sinkCfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		svr:       svr,
		fanout:    sink.NewFanout(sinks, sinkQueueSize),
		sinks:     sinks,
		rtBus:     pubsub.New(),
	}

	p, err := pipeline.New(conf, "default", src, a.onMessage)
	if err != nil {
		return nil, err
	}
	a.group = pipeline.NewGroup(p)

	return a, nil
}

func buildSinks(names []string, cfg sink.Config) ([]sink.Sink, error) {
	sinks := make([]sink.Sink, 0, len(names))
	for _, name := range names {
		create := sink.Get(name)
		if create == nil {
			continue
		}
		s, err := create(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Start 启动捕获流水线 ops server 与指标上报
func (a *Agent) Start() error {
	a.setupServer()

	if a.svr != nil {
		go func() {
			if err := a.svr.ListenAndServe(); err != nil {
				logger.Errorf("ops server stopped: %v", err)
			}
		}()
	}

	a.group.Start()
	return nil
}

func (a *Agent) onMessage(msg phttp.Message) {
	handledMessagesTotal.Inc()
	a.fanout.Publish(msg)

	if b, err := json.Marshal(msg); err == nil {
		a.rtBus.Publish(b)
	}
}

func (a *Agent) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfo.WithLabelValues(a.buildInfo.Version, a.buildInfo.GitHash, a.buildInfo.Time).Inc()
}

func (a *Agent) setupServer() {
	if a.svr == nil {
		return
	}

	a.svr.RegisterGetRoute("/metrics", func(w http.ResponseWriter, r *http.Request) {
		a.recordMetrics()
		promhttp.Handler().ServeHTTP(w, r)
	})
	a.svr.RegisterGetRoute("/watch", a.routeWatch)
	a.svr.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		logger.SetLoggerLevel(r.FormValue("level"))
		w.Write([]byte(`{"status": "success"}`))
	})
}

// routeWatch 以行分隔 JSON 的形式流式返回实时捕获到的消息 便于现场排障
func (a *Agent) routeWatch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	maxMessages := 100
	timeout := 5 * time.Second

	queue := a.rtBus.Subscribe(a.cfg.getWatchQueueSize())
	defer a.rtBus.Unsubscribe(queue)

	for i := 0; i < maxMessages; i++ {
		data, ok := queue.PopTimeout(timeout)
		if !ok {
			return
		}
		w.Write(data.([]byte))
		w.Write([]byte{'\n'})
		flusher.Flush()
	}
}

// Reload 目前仅支持重新加载 logger 等级等轻量配置
func (a *Agent) Reload(conf *confengine.Config) error {
	return setupLogger(conf)
}

// Stop 关闭捕获流水线 ops server 与所有 sink
func (a *Agent) Stop() {
	_ = a.group.Stop()
	if a.svr != nil {
		_ = a.svr.Close()
	}
	a.fanout.Close(a.sinks)
	a.cancel()
}
