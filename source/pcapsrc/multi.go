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

package pcapsrc

import (
	"sync"

	"github.com/flowtap/flowtap/source"
)

// multiSource 把多个网卡的 Source 汇聚成一个 ReadFrame 出口
//
// 每个成员 Source 在独立 goroutine 中读取 结果经由一个有缓冲 channel 汇入
type multiSource struct {
	sources []source.Source
	frames  chan source.Frame
	errs    chan error
	closeWG sync.WaitGroup
	closeCh chan struct{}
}

func newMultiSource(sources []source.Source) source.Source {
	m := &multiSource{
		sources: sources,
		frames:  make(chan source.Frame, 1024),
		errs:    make(chan error, len(sources)),
		closeCh: make(chan struct{}),
	}
	for _, s := range sources {
		m.closeWG.Add(1)
		go m.pump(s)
	}
	return m
}

func (m *multiSource) pump(s source.Source) {
	defer m.closeWG.Done()
	for {
		f, err := s.ReadFrame()
		if err != nil {
			select {
			case m.errs <- err:
			default:
			}
			return
		}
		// 成员 Source 的 Frame.Data 在其下一次 ReadFrame 后失效 入队前拷贝
		f.Data = append([]byte(nil), f.Data...)
		select {
		case m.frames <- f:
		case <-m.closeCh:
			return
		}
	}
}

func (m *multiSource) ReadFrame() (source.Frame, error) {
	select {
	case f := <-m.frames:
		return f, nil
	case err := <-m.errs:
		return source.Frame{}, err
	}
}

func (m *multiSource) Close() error {
	close(m.closeCh)
	for _, s := range m.sources {
		_ = s.Close()
	}
	m.closeWG.Wait()
	return nil
}
