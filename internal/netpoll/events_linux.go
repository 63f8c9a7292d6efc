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

//go:build linux

package netpoll

import "golang.org/x/sys/unix"

const (
	// ReadEvents is the interest mask used to watch for read-readiness.
	// EPOLLRDHUP is included so a half-closed peer surfaces as read-ready.
	ReadEvents = unix.EPOLLIN | unix.EPOLLRDHUP
	// WriteEvents is the interest mask used to watch for write-readiness.
	WriteEvents = unix.EPOLLOUT
	// ReadWriteEvents combines both interests.
	ReadWriteEvents = ReadEvents | WriteEvents

	// ErrEvents are the events the kernel reports regardless of the
	// requested interest mask.
	ErrEvents = unix.EPOLLERR | unix.EPOLLHUP
	// ReadReadyEvents is the mask the dispatch loop checks to decide
	// whether to invoke a reactable's on-read callback: readability,
	// peer-close and error are all treated as read-readiness.
	ReadReadyEvents = unix.EPOLLIN | unix.EPOLLRDHUP | ErrEvents
	// WriteReadyEvents is the mask checked to invoke the on-write callback.
	WriteReadyEvents = unix.EPOLLOUT
)
