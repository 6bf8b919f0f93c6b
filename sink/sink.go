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

// Package sink defines the output boundary: every decoded HTTP message
// produced by the dispatcher is handed to one or more Sink implementations.
package sink

import "github.com/flowtap/flowtap/phttp"

// Sink 负责将解析完成的 phttp.Message 写入指定存储
type Sink interface {
	// Name Sink 名称 用于日志与指标打标
	Name() string

	// OnMessage 写入一条消息 实现必须自行处理好并发写入
	OnMessage(msg phttp.Message) error

	// Close 关闭并释放底层资源
	Close() error
}

// CreateFunc 按配置创建一个 Sink 实例
type CreateFunc func(Config) (Sink, error)

var registry = map[string]CreateFunc{}

// Register 注册一个 Sink 构造函数 通常在 init() 中调用
func Register(name string, fn CreateFunc) {
	registry[name] = fn
}

// Get 按名称取出已注册的构造函数 未注册返回 nil
func Get(name string) CreateFunc {
	return registry[name]
}
