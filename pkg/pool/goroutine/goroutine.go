// Copyright (c) 2019 Andy Pan
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

// Package goroutine wraps an ants worker pool for callers that need to
// offload work from a reactor callback without stalling the dispatch
// goroutine. The reactor itself never submits to this pool -- it exists for
// callback authors, the same way gnet's own push example offloads slow work
// away from its event-loop goroutine.
package goroutine

import (
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultPoolSize sets up the capacity of the worker pool.
	DefaultPoolSize = 1 << 12

	// ExpiryDuration is the interval time to clean up expired workers.
	ExpiryDuration = 10 * time.Second

	// Nonblocking decides what to do when submitting a new task to a full
	// worker pool: returning an error immediately instead of waiting for a
	// worker to free up, so a slow downstream never backs up into a
	// reactor callback.
	Nonblocking = true
)

func init() {
	// Release the package-global default pool from ants; callers of this
	// package use Default() instead.
	ants.Release()
}

// Pool is the alias of ants.Pool.
type Pool = ants.Pool

// Default instantiates a non-blocking *Pool with the capacity of DefaultPoolSize.
func Default() *Pool {
	pool, _ := New(DefaultPoolSize)
	return pool
}

// New instantiates a non-blocking *Pool with the given capacity, for
// callers that want to size the pool themselves instead of taking
// DefaultPoolSize.
func New(size int) (*Pool, error) {
	options := ants.Options{ExpiryDuration: ExpiryDuration, Nonblocking: Nonblocking}
	return ants.NewPool(size, ants.WithOptions(options))
}
