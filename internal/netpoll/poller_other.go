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

//go:build !linux

package netpoll

import "errors"

// ErrUnsupportedPlatform is returned by every Poller method on platforms
// other than Linux: the reactor multiplexes on epoll only.
var ErrUnsupportedPlatform = errors.New("netpoll: epoll-based reactor is only supported on linux")

// Poller is the non-Linux stand-in; every method fails with
// ErrUnsupportedPlatform.
type Poller struct{}

// OpenPoller always fails on this platform.
func OpenPoller(batchCap int) (*Poller, error) { return nil, ErrUnsupportedPlatform }

func (p *Poller) Close() error                       { return ErrUnsupportedPlatform }
func (p *Poller) AddRead(int, TagPointer) error      { return ErrUnsupportedPlatform }
func (p *Poller) AddWrite(int, TagPointer) error     { return ErrUnsupportedPlatform }
func (p *Poller) AddReadWrite(int, TagPointer) error { return ErrUnsupportedPlatform }
func (p *Poller) ModRead(int, TagPointer) error      { return ErrUnsupportedPlatform }
func (p *Poller) ModWrite(int, TagPointer) error     { return ErrUnsupportedPlatform }
func (p *Poller) ModReadWrite(int, TagPointer) error { return ErrUnsupportedPlatform }
func (p *Poller) Delete(int) error                   { return ErrUnsupportedPlatform }
func (p *Poller) Wait(int) ([]PolledEvent, error)    { return nil, ErrUnsupportedPlatform }
