// Copyright (c) 2019 The Gnet Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package netpoll is the readiness multiplexer binding for the reactor
// core. It wraps Linux epoll, exposing Add*/Mod*/Delete/Wait with an
// opaque per-watch tag instead of gnet's PollAttachment+callback: the
// reactor, not the poller, owns dispatch.
package netpoll

// IOEvent is the integer type of I/O events reported by epoll.
type IOEvent = uint32

// MaxBatchEvents is the batch size OpenPoller uses when given a
// non-positive batchCap. A Poller's batch size is fixed when it is
// opened rather than growing and shrinking to match load.
const MaxBatchEvents = 64

// PolledEvent is one entry of a Wait() batch: the tag supplied at
// registration time and the readiness mask the kernel reported for it.
type PolledEvent struct {
	Tag  TagPointer
	Mask IOEvent
}
