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

package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// config is the optional TOML file accepted via --config. Flags passed on
// the command line always win over a value loaded from file.
type config struct {
	Socket          string `toml:"socket"`
	IdlePollTimeout string `toml:"idle_poll_timeout"`
	WorkerPoolSize  int    `toml:"worker_pool_size"`
	BatchCap        int    `toml:"batch_cap"`
}

func loadConfig(path string) (config, error) {
	var c config
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return c, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return c, nil
}
