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

// Package reactor implements a single-threaded, epoll-based event-loop
// core: a set of registered descriptors is watched for readiness, and the
// read/write callbacks registered against each one run serially on the
// one thread that calls Run.
package reactor

import (
	"sync"
	"time"
	"unsafe"

	"github.com/gobtstack/reactor/internal/netpoll"
	reactorerrors "github.com/gobtstack/reactor/pkg/errors"
	"github.com/gobtstack/reactor/pkg/logging"
)

// Reactor multiplexes readiness notifications for a set of registered
// descriptors onto a single dispatch thread. The zero value is not
// usable; construct one with NewReactor.
type Reactor struct {
	opts *options

	poller  *netpoll.Poller
	control *controlChannel

	// mu is the reactor's state_lock: it is always acquired before any
	// Reactable's own mutex, never after. Callbacks are never invoked
	// while mu is held.
	mu sync.Mutex
	// registry holds a live Go reference to every registered reactable,
	// keyed by descriptor. This is what keeps the pointer stashed in the
	// kernel's opaque per-watch tag from being collected out from under
	// the dispatch loop: nothing else in this package holds a plain
	// *Reactable across a call into the kernel.
	registry map[int]*Reactable
	// invalidationList names reactables unregistered during the batch
	// currently being dispatched. It is cleared at the top of each batch,
	// not at the end, so a reactable unregistered by an earlier callback
	// in the same batch is skipped if a later event in that same batch
	// still names it via a stale kernel tag.
	invalidationList map[*Reactable]struct{}

	running bool
	// idleSignal is closed by the dispatch loop once it observes a
	// zero-event Wait return while waitingForIdle is armed. Installed
	// fresh by WaitForIdle on every call; waitingForIdleCaller guards
	// against a second call overlapping the first, which is a programmer
	// error rather than something to queue or coalesce.
	idleSignal           chan struct{}
	waitingForIdleCaller bool
	// executingReactableFinished is non-nil only once Unregister has
	// deferred a reactable's teardown because it was mid-callback; closing
	// it wakes any WaitForUnregisteredReactable caller. Shared across the
	// whole reactor rather than kept per-reactable, because only one
	// reactable can ever be mid-callback at a time: there is exactly one
	// dispatch thread.
	executingReactableFinished chan struct{}

	stopped chan struct{}
}

// NewReactor constructs a Reactor and opens its epoll instance and
// control channel. The dispatch loop does not start until Run is called.
func NewReactor(opts ...Option) (*Reactor, error) {
	o := loadOptions(opts...)

	poller, err := netpoll.OpenPoller(o.batchCap)
	if err != nil {
		return nil, err
	}
	control, err := newControlChannel()
	if err != nil {
		poller.Close()
		return nil, err
	}

	r := &Reactor{
		opts:             o,
		poller:           poller,
		control:          control,
		registry:         make(map[int]*Reactable),
		invalidationList: make(map[*Reactable]struct{}),
		stopped:          make(chan struct{}),
	}

	// The control channel is registered under the nil tag, distinguishing
	// it from any real Reactable's pointer at dispatch time.
	if err = r.poller.AddRead(r.control.fd, nil); err != nil {
		control.close()
		poller.Close()
		return nil, err
	}

	return r, nil
}

// Register adds fd to the set of watched descriptors. At least one of
// onRead/onWrite must be non-nil, or ErrBothCallbacksEmpty is returned.
// The returned Reactable is the handle used by ModifyRegistration,
// Unregister and WaitForUnregisteredReactable.
func (r *Reactor) Register(fd int, onRead, onWrite Callback) (*Reactable, error) {
	if onRead == nil && onWrite == nil {
		// A programmer error, but one caught before anything is touched:
		// the sentinel is surfaced to this call's caller, who is squarely
		// positioned to recover, right alongside the diagnostic abort.
		r.logger().Fatalf("reactor: %v", reactorerrors.ErrBothCallbacksEmpty)
		return nil, reactorerrors.ErrBothCallbacksEmpty
	}

	reactable := newReactable(fd, onRead, onWrite)
	tag := unsafe.Pointer(reactable)

	r.mu.Lock()
	r.registry[fd] = reactable
	r.mu.Unlock()

	var err error
	switch reactable.reactOn() {
	case ReactOnReadOnly:
		err = r.poller.AddRead(fd, tag)
	case ReactOnWriteOnly:
		err = r.poller.AddWrite(fd, tag)
	default:
		err = r.poller.AddReadWrite(fd, tag)
	}
	if err != nil {
		r.mu.Lock()
		delete(r.registry, fd)
		r.mu.Unlock()
		r.logger().Fatalf("reactor: epoll_ctl add failed, aborting: %v", err)
		return nil, err
	}

	return reactable, nil
}

// ModifyRegistration changes which readinesses a reactable is watched
// for. It does not touch the callbacks supplied at Register time: a
// caller switching into ReactOnReadWrite is trusted to have already
// populated onWriteReady (or onReadReady) at Register time, since
// ModifyRegistration only ever recomputes the epoll interest mask. The
// reactor's lock is held only across the registry lookup; the poller
// call itself runs outside mu, matching the lock-ordering discipline
// used everywhere else in this package.
func (r *Reactor) ModifyRegistration(reactable *Reactable, mode ReactOn) error {
	r.mu.Lock()
	if _, ok := r.registry[reactable.fd]; !ok {
		r.mu.Unlock()
		return reactorerrors.ErrReactableNotFound
	}
	r.mu.Unlock()

	fd := reactable.fd
	var err error
	switch mode {
	case ReactOnReadOnly:
		err = r.poller.ModRead(fd, unsafe.Pointer(reactable))
	case ReactOnWriteOnly:
		err = r.poller.ModWrite(fd, unsafe.Pointer(reactable))
	default:
		err = r.poller.ModReadWrite(fd, unsafe.Pointer(reactable))
	}
	if err != nil {
		r.logger().Fatalf("reactor: epoll_ctl mod failed, aborting: %v", err)
	}
	return err
}

// Unregister removes a reactable from the watch list. If the reactor's
// dispatch thread is currently executing this reactable's callback,
// deletion is deferred until the callback returns: Unregister only marks
// the reactable removed and arranges for executingReactableFinished to be
// satisfied once the dispatch loop finishes tearing it down, for whatever
// caller is waiting via WaitForUnregisteredReactable. Since there is only
// one dispatch thread, at most one reactable can ever be mid-callback at
// a time, so one shared field is enough to track it.
func (r *Reactor) Unregister(reactable *Reactable) error {
	r.mu.Lock()
	if _, ok := r.registry[reactable.fd]; !ok {
		r.mu.Unlock()
		return reactorerrors.ErrReactableNotFound
	}
	r.invalidationList[reactable] = struct{}{}
	r.mu.Unlock()

	err := r.poller.Delete(reactable.fd)
	if err != nil {
		r.logger().Fatalf("reactor: epoll_ctl del failed, aborting: %v", err)
		return err
	}

	// mu is held from the isExecuting check until executingReactableFinished
	// is published, so the dispatch loop cannot finish the callback and
	// look for the channel in between.
	r.mu.Lock()
	reactable.mu.Lock()
	reactable.removed = true
	deferred := reactable.isExecuting
	reactable.mu.Unlock()

	if deferred {
		r.executingReactableFinished = make(chan struct{})
	} else {
		delete(r.registry, reactable.fd)
	}
	r.mu.Unlock()
	return nil
}

// WaitForUnregisteredReactable blocks until the most recently deferred
// Unregister call's reactable has finished executing its in-flight
// callback, or until timeout elapses. Timeout is a normal boolean
// outcome, not an error: it returns true immediately if no Unregister
// call is currently deferred, true once the in-flight callback finishes,
// or false if timeout elapses first.
func (r *Reactor) WaitForUnregisteredReactable(timeout time.Duration) bool {
	r.mu.Lock()
	signal := r.executingReactableFinished
	r.mu.Unlock()
	if signal == nil {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-signal:
		return true
	case <-timer.C:
		r.logger().Errorf("reactor: WaitForUnregisteredReactable timed out")
		return false
	}
}

// WaitForIdle blocks until the dispatch loop observes a wait that
// returns no events while idle detection is armed, or until timeout
// elapses. It is implemented via the control channel's wait-for-idle
// bit rather than a lock the dispatch loop might hold while invoking a
// callback: the loop only shortens its block timeout and watches for an
// empty readiness batch, so a busy reactor never falsely reports idle.
// Timeout is a normal boolean outcome, not an error. Only one
// WaitForIdle may be outstanding at a time; a concurrent call is a
// programmer error.
func (r *Reactor) WaitForIdle(timeout time.Duration) bool {
	r.mu.Lock()
	if r.waitingForIdleCaller {
		r.mu.Unlock()
		r.logger().Fatalf("reactor: %v", reactorerrors.ErrWaitForIdleInProgress)
		return false
	}
	r.waitingForIdleCaller = true
	signal := make(chan struct{})
	r.idleSignal = signal
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.waitingForIdleCaller = false
		r.mu.Unlock()
	}()

	if err := r.control.signal(ctlWaitForIdle); err != nil {
		r.logger().Fatalf("reactor: control channel write failed, aborting: %v", err)
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-signal:
		return true
	case <-timer.C:
		return false
	}
}

// Stop asks the dispatch loop to return. The moment the dispatch loop
// observes the stop bit it returns immediately, even if readiness was
// already queued by the kernel for other descriptors in the same batch:
// no further callbacks run after Stop is observed. Stop itself is
// asynchronous: it returns as soon as the request is queued on the
// control channel, not once the loop has actually exited. Callers that
// need to know Run has returned should wait on the channel returned by
// Done.
func (r *Reactor) Stop() error {
	return r.control.signal(ctlStop)
}

// Done returns a channel closed once Run has returned.
func (r *Reactor) Done() <-chan struct{} {
	return r.stopped
}

// Close releases the reactor's epoll instance and control channel. It
// must be called after Run has returned; calling it while the dispatch
// loop is still running is a programmer error: it aborts via the
// logger's Fatalf, surfacing ErrReactorRunning first for a caller whose
// logger chooses not to terminate the process.
func (r *Reactor) Close() error {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if running {
		r.logger().Fatalf("reactor: %v", reactorerrors.ErrReactorRunning)
		return reactorerrors.ErrReactorRunning
	}

	if err := r.control.close(); err != nil {
		return err
	}
	return r.poller.Close()
}

func (r *Reactor) logger() logging.Logger {
	return r.opts.logger
}
