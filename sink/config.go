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

import "time"

const defaultTimeout = 15 * time.Second

// Config 聚合所有内置 Sink 的配置项
type Config struct {
	JSONLines JSONLinesConfig `config:"jsonlines"`
	Mongo     MongoConfig     `config:"mongo"`
}

// JSONLinesConfig 配置按行写入 JSON 文本的 Sink
type JSONLinesConfig struct {
	Enabled bool `config:"enabled"`

	// Console 为 true 时写到标准输出 忽略 Filename 等滚动参数
	Console bool `config:"console"`

	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`

	// Compress 为 true 时对 Body 字段做 snappy 压缩 并以 base64 编码写入; Snippet 字段不压缩
	Compress bool `config:"compress"`
}

// Validate 填充未设置字段的默认值
func (c *JSONLinesConfig) Validate() {
	if c.Filename == "" {
		c.Filename = "messages.log"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
}

// MongoConfig 配置写入 MongoDB 的 Sink
type MongoConfig struct {
	Enabled bool `config:"enabled"`

	URI        string        `config:"uri"`
	Database   string        `config:"database"`
	Collection string        `config:"collection"`
	Timeout    time.Duration `config:"timeout"`
}

// Validate 填充未设置字段的默认值
func (c *MongoConfig) Validate() {
	if c.Database == "" {
		c.Database = "flowtap"
	}
	if c.Collection == "" {
		c.Collection = "messages"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}
