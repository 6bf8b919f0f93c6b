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

// Package mongosink implements a sink.Sink that persists messages into a
// MongoDB collection, one document per message.
package mongosink

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowtap/flowtap/phttp"
	"github.com/flowtap/flowtap/sink"
)

func init() {
	sink.Register("mongo", New)
}

// document 是写入 MongoDB 的 BSON 形状
type document struct {
	Direction     string        `bson:"direction"`
	Method        string        `bson:"method,omitempty"`
	URL           string        `bson:"url,omitempty"`
	Version       string        `bson:"version"`
	StatusCode    int           `bson:"statusCode,omitempty"`
	StatusMessage string        `bson:"statusMessage,omitempty"`
	Headers       []headerPair  `bson:"headers"`
	Body          []byte        `bson:"body"`
	Snippet       string        `bson:"snippet,omitempty"`
	TraceID       string        `bson:"traceId,omitempty"`
	InsertedAt    time.Time     `bson:"insertedAt"`
}

type headerPair struct {
	Name  string `bson:"name"`
	Value string `bson:"value"`
}

// Sinker 把消息写入一个 MongoDB 集合 实现了 sink.Sink
type Sinker struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    *sink.MongoConfig
}

// New 按配置创建一个 mongosink Sinker 并建立连接
func New(conf sink.Config) (sink.Sink, error) {
	cfg := &conf.Mongo
	cfg.Validate()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrapf(err, "connect to mongo (%s) failed", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo failed")
	}

	return &Sinker{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		cfg:    cfg,
	}, nil
}

func (s *Sinker) Name() string {
	return "mongo"
}

func (s *Sinker) OnMessage(msg phttp.Message) error {
	doc := document{
		Direction:     msg.Direction.String(),
		Method:        msg.Method,
		URL:           msg.URL,
		Version:       msg.Version,
		StatusCode:    msg.StatusCode,
		StatusMessage: msg.StatusMessage,
		Body:          msg.Body,
		Snippet:       msg.Snippet,
		InsertedAt:    time.Now(),
	}
	for _, h := range msg.Headers {
		doc.Headers = append(doc.Headers, headerPair{Name: h.Name, Value: h.Value})
	}
	if msg.HasTraceID {
		doc.TraceID = msg.TraceID.String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	_, err := s.coll.InsertOne(ctx, doc)
	return err
}

func (s *Sinker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
