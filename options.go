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

	"github.com/gobtstack/reactor/pkg/logging"
)

// Option configures a Reactor at construction time.
type Option func(*options)

type options struct {
	logger          logging.Logger
	idlePollTimeout time.Duration
	batchCap        int
}

func loadOptions(opts ...Option) *options {
	o := &options{
		logger:          logging.GetDefaultLogger(),
		idlePollTimeout: -1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger overrides the logger a Reactor uses for its own messages:
// the Fatalf calls on programmer errors and platform failures, and its
// info and error messages. The poller's info message for a Delete of a
// missing watch goes through the package-level default logger instead.
// The default is logging.GetDefaultLogger().
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIdlePollTimeout bounds how long a single Wait call may block. The
// default, -1, blocks indefinitely until an fd becomes ready or the
// control channel fires; with a non-negative value (truncated to whole
// milliseconds) a Wait that finds nothing ready returns after that long
// and the dispatch loop simply waits again.
func WithIdlePollTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idlePollTimeout = d
	}
}

// WithBatchCap bounds the number of readiness events a single multiplexer
// Wait call may return. The default, internal/netpoll.MaxBatchEvents, is
// used for n <= 0.
func WithBatchCap(n int) Option {
	return func(o *options) {
		o.batchCap = n
	}
}
