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

package reassembly

import "container/heap"

// segment 是缓存在乱序堆中的一个 TCP 段
type segment struct {
	seq     uint32
	payload []byte
}

// seqLess 以序列号回绕安全的方式比较两个序号的先后
//
// 使用有符号 32 位差值技巧: 若 a-b 的补码结果为负 则认为 a 在 b 之前
// 这样可以正确处理 uint32 seq 在 2^32 取模之后的回绕
func seqLess(a, b uint32) bool {
	return int32(a-b) < 0
}

// seqLessEq a 是否先于或等于 b
func seqLessEq(a, b uint32) bool {
	return a == b || seqLess(a, b)
}

// oooHeap 是按序列号排序的最小堆 缓存尚未到达播放点的乱序段
type oooHeap []segment

func (h oooHeap) Len() int { return len(h) }

func (h oooHeap) Less(i, j int) bool { return seqLess(h[i].seq, h[j].seq) }

func (h oooHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *oooHeap) Push(x any) {
	*h = append(*h, x.(segment))
}

func (h *oooHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newOOOHeap() *oooHeap {
	h := &oooHeap{}
	heap.Init(h)
	return h
}

func (h *oooHeap) push(s segment) {
	heap.Push(h, s)
}

func (h *oooHeap) peek() (segment, bool) {
	if h.Len() == 0 {
		return segment{}, false
	}
	return (*h)[0], true
}

func (h *oooHeap) pop() segment {
	return heap.Pop(h).(segment)
}
