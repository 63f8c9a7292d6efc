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

import "sync"

// Callback is invoked by the dispatch loop when the descriptor a
// Reactable watches becomes ready. It must not block: the reactor has
// exactly one dispatch thread, and a slow callback stalls every other
// registration.
type Callback func()

// ReactOn selects which readiness a Reactable is watched for.
type ReactOn int

const (
	// ReactOnReadOnly watches for read-readiness alone.
	ReactOnReadOnly ReactOn = iota
	// ReactOnWriteOnly watches for write-readiness alone.
	ReactOnWriteOnly
	// ReactOnReadWrite watches for both.
	ReactOnReadWrite
)

// Reactable is the bookkeeping record behind one registered descriptor.
// Its own mutex is always acquired after the owning Reactor's mu, never
// before: reversing that order is the one lock-ordering rule this whole
// package exists to enforce (see DESIGN.md).
type Reactable struct {
	mu sync.Mutex

	fd int

	onReadReady  Callback
	onWriteReady Callback

	// isExecuting is true for the duration of a callback invocation on
	// this reactable. It lets Unregister tell whether it's racing the
	// dispatch loop's own call into this reactable.
	isExecuting bool
	// removed is set by Unregister. Once true, the dispatch loop must not
	// invoke this reactable's callbacks even if a stale kernel tag still
	// names it.
	removed bool
}

func newReactable(fd int, onReadReady, onWriteReady Callback) *Reactable {
	return &Reactable{
		fd:           fd,
		onReadReady:  onReadReady,
		onWriteReady: onWriteReady,
	}
}

// reactOn reports which readiness this reactable should be watched for,
// derived from which callbacks are non-nil, mirroring the original
// source's poll_event_type computation in Reactor::Register.
func (r *Reactable) reactOn() ReactOn {
	switch {
	case r.onReadReady != nil && r.onWriteReady != nil:
		return ReactOnReadWrite
	case r.onWriteReady != nil:
		return ReactOnWriteOnly
	default:
		return ReactOnReadOnly
	}
}

// FD returns the descriptor this reactable watches. Exposed so a
// callback can identify which of several registrations fired without
// reaching back into closures captured at Register time.
func (r *Reactable) FD() int {
	return r.fd
}
