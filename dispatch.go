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
	"time"

	"github.com/gobtstack/reactor/internal/netpoll"
	reactorerrors "github.com/gobtstack/reactor/pkg/errors"
)

// Run starts the dispatch loop and blocks until Stop is called (or the
// poller reports an unrecoverable error). Run may be called only once on
// a given Reactor; a second call, whether concurrent with the first or
// after it returned, is a programmer error: it aborts via the logger's
// Fatalf, surfacing ErrReactorAlreadyRunning for a caller whose logger
// chooses not to terminate the process.
//
// Run is the reactor's single dispatch thread: every callback registered
// via Register or ModifyRegistration executes on this goroutine, one at
// a time, in the order the kernel reports readiness. Never call Run from
// inside a callback.
func (r *Reactor) Run() error {
	r.mu.Lock()
	finished := false
	select {
	case <-r.stopped:
		finished = true
	default:
	}
	if r.running || finished {
		r.mu.Unlock()
		r.logger().Fatalf("reactor: %v", reactorerrors.ErrReactorAlreadyRunning)
		return reactorerrors.ErrReactorAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		close(r.stopped)
		r.mu.Unlock()
	}()

	defaultTimeoutMs := -1
	if r.opts.idlePollTimeout >= 0 {
		defaultTimeoutMs = int(r.opts.idlePollTimeout / time.Millisecond)
	}
	timeoutMs := defaultTimeoutMs

	// waitingForIdle is armed by the control channel's wait-for-idle bit
	// and consulted only by this goroutine, so it needs no lock of its
	// own: a zero-event Wait return while it is set is what idle means.
	waitingForIdle := false

	for {
		// This is the one point in the loop where no batch is in flight:
		// every reactable invalidated by the previous batch has already
		// been torn down, and nothing is currently executing.
		r.mu.Lock()
		r.invalidationList = make(map[*Reactable]struct{})
		r.mu.Unlock()

		events, err := r.poller.Wait(timeoutMs)
		if err != nil {
			r.logger().Fatalf("reactor: epoll_wait failed, aborting: %v", err)
			return err
		}

		if len(events) == 0 {
			if waitingForIdle {
				r.mu.Lock()
				signal := r.idleSignal
				r.idleSignal = nil
				r.mu.Unlock()
				if signal != nil {
					close(signal)
				}
				waitingForIdle = false
				timeoutMs = defaultTimeoutMs
			}
			continue
		}

		for _, ev := range events {
			if ev.Tag == nil {
				bits, derr := r.control.drain()
				if derr != nil {
					r.logger().Fatalf("reactor: control channel read failed, aborting: %v", derr)
					return derr
				}
				if bits&ctlStop != 0 {
					// Return the instant the stop bit is seen: any other
					// event already queued in this same batch, sorted
					// after this control event, must never reach
					// dispatchOne.
					return nil
				}
				handled := false
				if bits&ctlWaitForIdle != 0 {
					waitingForIdle = true
					timeoutMs = 30
					handled = true
				}
				if !handled {
					r.logger().Infof("reactor: control channel fired with no recognized bit set: %#x", bits)
				}
				continue
			}
			r.dispatchOne((*Reactable)(ev.Tag), ev.Mask)
		}
	}
}

// dispatchOne invokes the read and/or write callback for a single
// readiness event, guarding against three benign races at once: the
// reactable may have been unregistered earlier in this same batch (caught
// by the invalidation list), it may have been unregistered by a previous
// batch whose kernel-side delete hasn't taken effect yet (caught by the
// removed flag under its own lock), or it may unregister itself from
// within its own callback (caught by isExecuting, paired with the
// reactor's shared executingReactableFinished field, below).
func (r *Reactor) dispatchOne(reactable *Reactable, mask netpoll.IOEvent) {
	r.mu.Lock()
	_, invalidated := r.invalidationList[reactable]
	r.mu.Unlock()
	if invalidated {
		return
	}

	reactable.mu.Lock()
	if reactable.removed {
		reactable.mu.Unlock()
		return
	}
	reactable.isExecuting = true
	onRead := reactable.onReadReady
	onWrite := reactable.onWriteReady
	reactable.mu.Unlock()

	// Error and hangup are conflated with read-readiness: a callback
	// author sees them as "go read, and discover the error or EOF from
	// the read itself" rather than as a distinct third callback.
	if onRead != nil && mask&netpoll.ReadReadyEvents != 0 {
		onRead()
	}
	if onWrite != nil && mask&netpoll.WriteReadyEvents != 0 {
		onWrite()
	}

	reactable.mu.Lock()
	reactable.isExecuting = false
	removed := reactable.removed
	reactable.mu.Unlock()

	if removed {
		r.mu.Lock()
		delete(r.registry, reactable.fd)
		signal := r.executingReactableFinished
		r.executingReactableFinished = nil
		r.mu.Unlock()
		if signal != nil {
			close(signal)
		}
	}
}
