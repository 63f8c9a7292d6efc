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

/*
Package reactor is a minimal, single-threaded epoll event loop.

A Reactor owns one epoll instance and one dispatch goroutine. Callers
register a descriptor and up to two callbacks -- one for read-readiness,
one for write-readiness -- and the reactor's Run loop invokes them
serially, in kernel-reported order, for as long as Run is running:

	r, err := reactor.NewReactor()
	if err != nil {
		log.Fatal(err)
	}
	reactable, err := r.Register(fd, onRead, nil)
	if err != nil {
		log.Fatal(err)
	}
	go r.Run()
	// ... later
	r.Unregister(reactable)
	r.Stop()
	<-r.Done()
	r.Close()

Only one goroutine -- the one running Run -- ever touches a registered
descriptor's callbacks. This is what lets callback authors mutate state
shared across registrations without their own locking, at the cost of a
slow callback stalling every other registration on the same Reactor.
*/
package reactor
