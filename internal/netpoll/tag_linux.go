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

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// TagPointer is an opaque per-watch value round-tripped through the
// kernel's epoll_data union. The reactor stores a *Reactable here (or nil
// for its own control-channel watch); the poller never dereferences it.
type TagPointer = unsafe.Pointer

// setTag packs tag into the 8 contiguous bytes of ev.Fd/ev.Pad, the same
// technique gnet's poll_opt poller uses to stash a *PollAttachment
// directly in epoll_data instead of carrying a bare fd (see
// poller_epoll_ultimate.go's convertPollAttachment). The struct layout of
// unix.EpollEvent guarantees Pad immediately follows Fd with no gap on
// every linux/amd64 and linux/arm64 build, which is as far as this
// module's build matrix goes.
func setTag(ev *unix.EpollEvent, tag TagPointer) {
	*(*TagPointer)(unsafe.Pointer(&ev.Fd)) = tag
}

// getTag unpacks the tag stashed by setTag.
func getTag(ev *unix.EpollEvent) TagPointer {
	return *(*TagPointer)(unsafe.Pointer(&ev.Fd))
}
