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

// Package pipeline owns the per-source capture loop: it pulls frames off a
// source.Source, walks them through the dispatcher into a reassembly.Table,
// and publishes every completed phttp.Message downstream.
package pipeline

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flowtap/flowtap/common"
	"github.com/flowtap/flowtap/confengine"
	"github.com/flowtap/flowtap/dispatcher"
	"github.com/flowtap/flowtap/internal/rescue"
	"github.com/flowtap/flowtap/logger"
	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/reassembly"
	"github.com/flowtap/flowtap/source"
)

const defaultSweepInterval = time.Minute

var framesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: common.App,
	Subsystem: "pipeline",
	Name:      "frames_read_total",
	Help:      "frames successfully read off a capture source",
})

// Config 控制每条流水线的行为
type Config struct {
	// CaptureSnippet 是否为每条消息保留一份截断后的诊断片段
	CaptureSnippet bool `config:"captureSnippet"`

	// ConnExpired 半流在没有 FIN 的情况下被视为失效前的最大空闲时间
	ConnExpired time.Duration `config:"connExpired"`
}

// GetConnExpired 返回生效的过期时间 小于一分钟的配置值被视为未设置
func (c Config) GetConnExpired() time.Duration {
	if c.ConnExpired < time.Minute {
		return 5 * time.Minute
	}
	return c.ConnExpired
}

func loadConfig(conf *confengine.Config) (Config, error) {
	var cfg Config
	if !conf.Has("pipeline") {
		return cfg, nil
	}
	if err := conf.UnpackChild("pipeline", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OnMessage 在流水线产出一条完整的消息时被调用
type OnMessage func(msg phttp.Message)

// Pipeline 驱动单个 source.Source 上的捕获 解码 重组 三阶段循环
type Pipeline struct {
	name   string
	src    source.Source
	table  *reassembly.Table
	cfg    Config
	onMsg  OnMessage
	stopCh chan struct{}
	doneWG sync.WaitGroup
}

// New 为一个命名的捕获源创建 Pipeline
func New(conf *confengine.Config, name string, src source.Source, onMsg OnMessage) (*Pipeline, error) {
	cfg, err := loadConfig(conf)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		name:   name,
		src:    src,
		table:  reassembly.NewTable(cfg.CaptureSnippet),
		cfg:    cfg,
		onMsg:  onMsg,
		stopCh: make(chan struct{}),
	}, nil
}

// Start 启动捕获循环与周期性的半流过期清理 两者各自运行在自己的 goroutine 中
func (p *Pipeline) Start() {
	p.doneWG.Add(2)
	go p.runCapture()
	go p.runSweeper()
}

func (p *Pipeline) runCapture() {
	defer p.doneWG.Done()
	defer rescue.HandleCrash()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		frame, err := p.src.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			logger.Errorf("pipeline(%s): read frame failed: %v", p.name, err)
			return
		}
		framesReadTotal.Inc()

		if msg, ok := dispatcher.Dispatch(p.table, frame.Data, frame.Timestamp); ok {
			p.onMsg(msg)
		}
	}
}

func (p *Pipeline) runSweeper() {
	defer p.doneWG.Done()

	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()

	maxIdle := p.cfg.GetConnExpired()
	for {
		select {
		case <-ticker.C:
			for _, msg := range p.table.Sweep(maxIdle) {
				p.onMsg(msg)
			}

		case <-p.stopCh:
			return
		}
	}
}

// Stop 关闭底层 Source 并等待捕获与清理 goroutine 退出
func (p *Pipeline) Stop() error {
	close(p.stopCh)
	err := p.src.Close()
	p.doneWG.Wait()
	return err
}

// Group 管理多条 Pipeline 的生命周期 通常每个捕获源一条
type Group struct {
	pipelines []*Pipeline
}

// NewGroup 聚合一组已创建好的 Pipeline
func NewGroup(pipelines ...*Pipeline) *Group {
	return &Group{pipelines: pipelines}
}

// Start 启动组内所有 Pipeline
func (g *Group) Start() {
	for _, p := range g.pipelines {
		p.Start()
	}
}

// Stop 停止组内所有 Pipeline 并汇总出现的错误
func (g *Group) Stop() error {
	var result *multierror.Error
	for _, p := range g.pipelines {
		if err := p.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
