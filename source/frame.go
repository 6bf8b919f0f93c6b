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

// Package source defines the external frame-acquisition boundary: the
// decode/reassembly/phttp core never imports a capture library directly,
// it only ever consumes a Frame.
package source

import "time"

// Frame 是捕获系统提供给核心处理流水线的一个原始以太网帧
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Source 是捕获系统对核心暴露的唯一接口
//
// ReadFrame 是阻塞调用 在没有新帧到达之前不会返回
// 返回的 Frame.Data 只在下一次 ReadFrame 调用之前有效 (零拷贝)
type Source interface {
	// ReadFrame 阻塞读取下一个帧
	ReadFrame() (Frame, error)

	// Close 关闭底层句柄 并使阻塞中的 ReadFrame 尽快返回错误
	Close() error
}
