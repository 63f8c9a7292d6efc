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
	"golang.org/x/sys/unix"

	"github.com/gobtstack/reactor/pkg/logging"
)

// Poller is a thin wrapper around a single epoll instance. It knows
// nothing about reactables or callbacks; it only moves tags in and out of
// the kernel's watch list and hands back readiness batches.
type Poller struct {
	fd        int
	eventList []unix.EpollEvent
}

// OpenPoller creates a new epoll instance. batchCap bounds the size of a
// single Wait call's readiness batch; a value of 0 or less falls back to
// MaxBatchEvents.
func OpenPoller(batchCap int) (poller *Poller, err error) {
	if batchCap <= 0 {
		batchCap = MaxBatchEvents
	}
	poller = new(Poller)
	if poller.fd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC); err != nil {
		poller = nil
		return
	}
	poller.eventList = make([]unix.EpollEvent, batchCap)
	return
}

// Close closes the underlying epoll file descriptor.
func (p *Poller) Close() error {
	return unix.Close(p.fd)
}

func (p *Poller) ctl(op int, fd int, events uint32, tag TagPointer) error {
	var ev unix.EpollEvent
	ev.Events = events
	setTag(&ev, tag)
	return unix.EpollCtl(p.fd, op, fd, &ev)
}

// AddRead registers fd for read-readiness only.
func (p *Poller) AddRead(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, ReadEvents, tag)
}

// AddWrite registers fd for write-readiness only.
func (p *Poller) AddWrite(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, WriteEvents, tag)
}

// AddReadWrite registers fd for both read- and write-readiness.
func (p *Poller) AddReadWrite(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, ReadWriteEvents, tag)
}

// ModRead changes an existing watch to read-readiness only.
func (p *Poller) ModRead(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, ReadEvents, tag)
}

// ModWrite changes an existing watch to write-readiness only.
func (p *Poller) ModWrite(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, WriteEvents, tag)
}

// ModReadWrite changes an existing watch to both read- and write-readiness.
func (p *Poller) ModReadWrite(fd int, tag TagPointer) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, ReadWriteEvents, tag)
}

// Delete removes fd from the watch list. A missing watch (ENOENT) is
// logged at info level and otherwise ignored, per the benign-race class
// of error: the kernel may have already dropped the watch when the fd
// itself was closed before Delete ran.
func (p *Poller) Delete(fd int) error {
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		logging.Infof("netpoll: EPOLL_CTL_DEL on fd %d: no such watch, ignoring", fd)
		return nil
	}
	return err
}

// Wait blocks for up to timeoutMs milliseconds (-1 blocks indefinitely,
// 0 returns immediately) and returns the readiness batch reported by the
// kernel, transparently retrying on EINTR.
func (p *Poller) Wait(timeoutMs int) ([]PolledEvent, error) {
	for {
		n, err := unix.EpollWait(p.fd, p.eventList, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		out := make([]PolledEvent, n)
		for i := 0; i < n; i++ {
			out[i] = PolledEvent{
				Tag:  getTag(&p.eventList[i]),
				Mask: p.eventList[i].Events,
			}
		}
		return out, nil
	}
}
