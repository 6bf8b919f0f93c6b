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

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowtap/flowtap/confengine"
)

func loadTestConfig(t *testing.T, yaml string) *confengine.Config {
	t.Helper()
	conf, err := confengine.LoadContent([]byte(yaml))
	require.NoError(t, err)
	return conf
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	conf := loadTestConfig(t, "server:\n  enabled: false\n")

	s, err := New(conf)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestNewRegistersHealthzRoute(t *testing.T) {
	conf := loadTestConfig(t, "server:\n  enabled: true\n  address: 127.0.0.1:0\n")

	s, err := New(conf)
	require.NoError(t, err)
	require.NotNil(t, s)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRegisterGetRouteIsReachable(t *testing.T) {
	conf := loadTestConfig(t, "server:\n  enabled: true\n  address: 127.0.0.1:0\n")
	s, err := New(conf)
	require.NoError(t, err)

	s.RegisterGetRoute("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	s.router.ServeHTTP(rec, req)

	require.Equal(t, "pong", rec.Body.String())
}
