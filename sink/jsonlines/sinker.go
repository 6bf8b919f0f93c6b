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

// Package jsonlines implements a sink.Sink that writes one JSON object per
// line to a rotated file (or stdout), optionally snappy-compressing the
// body before encoding.
package jsonlines

import (
	"encoding/base64"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/golang/snappy"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/sink"
)

func init() {
	sink.Register("jsonlines", New)
}

// record 是写入单行的 JSON 形状 与 phttp.Message 字段基本对应
//
// Body 在 Compress 开启时以 base64(snappy(...)) 形式写入 BodyEncoding 标注编码方式 Snippet 始终原样写入
type record struct {
	Direction     string          `json:"direction"`
	Method        string          `json:"method,omitempty"`
	URL           string          `json:"url,omitempty"`
	Version       string          `json:"version"`
	StatusCode    int             `json:"statusCode,omitempty"`
	StatusMessage string          `json:"statusMessage,omitempty"`
	Headers       []phttp.Header  `json:"headers"`
	Body          string          `json:"body"`
	BodyEncoding  string          `json:"bodyEncoding,omitempty"`
	Snippet       string          `json:"snippet,omitempty"`
	TraceID       string          `json:"traceId,omitempty"`
}

// Sinker 按行写入 JSON 编码的消息 实现了 sink.Sink
type Sinker struct {
	mu      sync.Mutex
	wr      io.WriteCloser
	encoder *json.Encoder
	cfg     *sink.JSONLinesConfig
}

// New 按配置创建一个 jsonlines Sinker
func New(conf sink.Config) (sink.Sink, error) {
	cfg := &conf.JSONLines
	cfg.Validate()

	var wr io.WriteCloser
	switch {
	case cfg.Console:
		wr = os.Stdout
	default:
		wr = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
	}

	return &Sinker{
		wr:      wr,
		cfg:     cfg,
		encoder: json.NewEncoder(wr),
	}, nil
}

func (s *Sinker) Name() string {
	return "jsonlines"
}

func (s *Sinker) OnMessage(msg phttp.Message) error {
	rec := record{
		Direction:     msg.Direction.String(),
		Method:        msg.Method,
		URL:           msg.URL,
		Version:       msg.Version,
		StatusCode:    msg.StatusCode,
		StatusMessage: msg.StatusMessage,
		Headers:       msg.Headers,
		Snippet:       msg.Snippet,
	}
	if msg.HasTraceID {
		rec.TraceID = msg.TraceID.String()
	}

	if s.cfg.Compress {
		rec.Body = base64.StdEncoding.EncodeToString(snappy.Encode(nil, msg.Body))
		rec.BodyEncoding = "snappy+base64"
	} else {
		rec.Body = string(msg.Body)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoder.Encode(rec)
}

func (s *Sinker) Close() error {
	return s.wr.Close()
}
