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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJSONLinesConfigValidateFillsDefaults(t *testing.T) {
	var c JSONLinesConfig
	c.Validate()

	assert.Equal(t, "messages.log", c.Filename)
	assert.Equal(t, 100, c.MaxSize)
	assert.Equal(t, 7, c.MaxAge)
	assert.Equal(t, 10, c.MaxBackups)
}

func TestJSONLinesConfigValidateKeepsSetFields(t *testing.T) {
	c := JSONLinesConfig{Filename: "custom.log", MaxSize: 5, MaxAge: 1, MaxBackups: 2}
	c.Validate()

	assert.Equal(t, "custom.log", c.Filename)
	assert.Equal(t, 5, c.MaxSize)
	assert.Equal(t, 1, c.MaxAge)
	assert.Equal(t, 2, c.MaxBackups)
}

func TestMongoConfigValidateFillsDefaults(t *testing.T) {
	var c MongoConfig
	c.Validate()

	assert.Equal(t, "flowtap", c.Database)
	assert.Equal(t, "messages", c.Collection)
	assert.Equal(t, defaultTimeout, c.Timeout)
}

func TestMongoConfigValidateKeepsSetFields(t *testing.T) {
	c := MongoConfig{Database: "custom", Collection: "events", Timeout: 3 * time.Second}
	c.Validate()

	assert.Equal(t, "custom", c.Database)
	assert.Equal(t, "events", c.Collection)
	assert.Equal(t, 3*time.Second, c.Timeout)
}
