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

	"github.com/gobtstack/reactor/pkg/logging"
)

// Event is a counted, level-triggered notifier independent of any
// Reactor: a callback fires once per Notify call rather than collapsing
// concurrent notifications into one wakeup, because the underlying
// eventfd is created with EFD_SEMAPHORE.
type Event struct {
	fd int
}

// NewEvent creates an Event backed by a semaphore-mode, non-blocking
// eventfd. Failure to allocate the underlying descriptor is a platform
// failure with no meaningful local recovery: it aborts via
// pkg/logging.Fatalf, surfacing the error first for a caller whose
// logger chooses not to terminate the process.
func NewEvent() (*Event, error) {
	fd, err := unix.Eventfd(0, unix.EFD_SEMAPHORE|unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		logging.Fatalf("reactor: eventfd allocation failed, aborting: %v", err)
		return nil, err
	}
	return &Event{fd: fd}, nil
}

// Id returns the underlying descriptor, suitable for passing to Register.
func (e *Event) Id() int {
	return e.fd
}

// Notify increments the eventfd's counter by one, waking one pending
// Read (or queuing one unit of readiness if nothing is waiting yet).
func (e *Event) Notify() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(e.fd, buf[:])
	return err
}

// Read consumes one unit of readiness, returning true if one was
// available. It does not block: the fd is EFD_NONBLOCK, so with no
// pending unit it returns false, nil rather than blocking the caller.
func (e *Event) Read() (bool, error) {
	var buf [8]byte
	_, err := unix.Read(e.fd, buf[:])
	if err == unix.EAGAIN {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear drains every pending unit of readiness, returning the count
// drained. Useful for a callback that wants to catch up after a burst of
// Notify calls rather than handling them one read-readiness at a time.
func (e *Event) Clear() (int, error) {
	n := 0
	for {
		ok, err := e.Read()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}

// Close releases the underlying descriptor. The caller must have already
// unregistered the Event from any Reactor: Close does not do that for
// you; the eventfd's owner and the
// reactor registration are managed independently.
func (e *Event) Close() error {
	return unix.Close(e.fd)
}
