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

// Package errors defines the sentinel errors returned by the reactor.
package errors

import "errors"

var (
	// ErrBothCallbacksEmpty occurs when Register is called with neither
	// a read nor a write callback.
	ErrBothCallbacksEmpty = errors.New("reactor: at least one of onRead/onWrite must be non-nil")
	// ErrReactorAlreadyRunning occurs when Run is called a second time on
	// the same reactor, whether the first call is still running or has
	// returned.
	ErrReactorAlreadyRunning = errors.New("reactor: Run called more than once")
	// ErrReactorRunning occurs when Close is called on a reactor whose
	// dispatch loop has not returned yet.
	ErrReactorRunning = errors.New("reactor: Close called while the dispatch loop is still running")
	// ErrWaitForIdleInProgress occurs when WaitForIdle is called while
	// another WaitForIdle call is still outstanding.
	ErrWaitForIdleInProgress = errors.New("reactor: a WaitForIdle call is already in progress")
	// ErrReactableNotFound occurs when Unregister or ModifyRegistration is
	// called with a handle the reactor no longer recognizes.
	ErrReactableNotFound = errors.New("reactor: reactable is not registered")
)
