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

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

const (
	// ctlStop asks the dispatch loop to return the instant it is observed,
	// without dispatching any event sorted after the control event in the
	// same batch. Events sorted before it in that batch have already been
	// dispatched.
	ctlStop uint64 = 1 << 0
	// ctlWaitForIdle asks the dispatch loop to shorten its block timeout
	// and arm waitingForIdle; idleSignal is closed once a subsequent
	// Wait call under that short timeout returns zero events.
	ctlWaitForIdle uint64 = 1 << 1
)

// controlChannel is the reactor's own internal watch, registered under
// the nil tag so the dispatch loop can tell it apart from any real
// Reactable. It is a plain (non-semaphore) eventfd: writes accumulate
// additively into one counter, so a Stop and a WaitForIdle requested in
// the same batch both survive a single read as the bitwise-OR of their
// bits.
type controlChannel struct {
	fd int
}

func newControlChannel() (*controlChannel, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &controlChannel{fd: fd}, nil
}

func (c *controlChannel) signal(bit uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], bit)
	_, err := unix.Write(c.fd, buf[:])
	return err
}

// drain reads and clears the accumulated bitmask, returning 0 if nothing
// was pending.
func (c *controlChannel) drain() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(c.fd, buf[:])
	if err == unix.EAGAIN {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n != 8 {
		return 0, nil
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (c *controlChannel) close() error {
	return unix.Close(c.fd)
}
