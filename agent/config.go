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

package agent

// Config 是 "agent" 配置段 捕获源配置独立位于顶层的 "source" 段 (见 pcapsrc.Config)
type Config struct {
	// Sinks 启用的 sink 名称 对应 sink.Register 注册的名字 (如 "jsonlines" "mongo")
	Sinks []string `config:"sinks"`

	// WatchQueueSize /watch 端点每个订阅者的缓冲队列长度
	WatchQueueSize int `config:"watchQueueSize"`
}

func (c Config) getWatchQueueSize() int {
	if c.WatchQueueSize <= 0 {
		return 16
	}
	return c.WatchQueueSize
}
