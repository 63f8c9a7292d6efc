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

// Command reactor-echo registers a listening Unix-domain socket's
// connections on a single Reactor and echoes back whatever a peer sends.
// It exists to exercise the registration/dispatch/self-unregister paths
// end to end outside of the test suite.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	reactorpkg "github.com/gobtstack/reactor"
	"github.com/gobtstack/reactor/pkg/logging"
	"github.com/gobtstack/reactor/pkg/pool/goroutine"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reactor-echo",
		Short: "Run an echo server on top of a single reactor",
		RunE:  runEcho,
	}
	cmd.Flags().String("socket", "/tmp/reactor-echo.sock", "unix-domain socket path to listen on")
	cmd.Flags().String("config", "", "optional TOML config file; flags override it")
	cmd.Flags().Duration("idle-poll-timeout", -1, "bound on a single epoll_wait call; -1 blocks indefinitely")
	cmd.Flags().Int("batch-cap", 0, "max events returned by a single epoll_wait call; 0 uses the library default")
	return cmd
}

func runEcho(cmd *cobra.Command, _ []string) error {
	socketPath, _ := cmd.Flags().GetString("socket")
	configPath, _ := cmd.Flags().GetString("config")
	idleTimeout, _ := cmd.Flags().GetDuration("idle-poll-timeout")
	batchCap, _ := cmd.Flags().GetInt("batch-cap")

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if configPath != "" {
		if cfg.Socket != "" && !cmd.Flags().Changed("socket") {
			socketPath = cfg.Socket
		}
		if cfg.IdlePollTimeout != "" && !cmd.Flags().Changed("idle-poll-timeout") {
			if d, perr := time.ParseDuration(cfg.IdlePollTimeout); perr == nil {
				idleTimeout = d
			}
		}
		if cfg.BatchCap > 0 && !cmd.Flags().Changed("batch-cap") {
			batchCap = cfg.BatchCap
		}
	}

	_ = os.Remove(socketPath)
	listenFD, err := listen(socketPath)
	if err != nil {
		return err
	}
	defer unix.Close(listenFD)

	var pool *goroutine.Pool
	if cfg.WorkerPoolSize > 0 {
		pool, err = goroutine.New(cfg.WorkerPoolSize)
		if err != nil {
			return err
		}
	} else {
		pool = goroutine.Default()
	}
	defer pool.Release()

	r, err := reactorpkg.NewReactor(
		reactorpkg.WithIdlePollTimeout(idleTimeout),
		reactorpkg.WithBatchCap(batchCap),
	)
	if err != nil {
		return err
	}

	if _, err = r.Register(listenFD, acceptHandler(r, listenFD, pool), nil); err != nil {
		return err
	}

	go func() {
		if err := r.Run(); err != nil {
			logging.Fatalf("reactor-echo: dispatch loop aborted: %v", err)
		}
	}()

	logging.Infof("reactor-echo: listening on %s", socketPath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logging.Infof("reactor-echo: shutting down")
	if err := r.Stop(); err != nil {
		return err
	}
	<-r.Done()
	return r.Close()
}

func listen(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err = unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err = unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// acceptHandler returns the on-read callback for the listening socket: it
// accepts every pending connection and registers each one as its own
// reactable, with a closure-captured echo callback.
func acceptHandler(r *reactorpkg.Reactor, listenFD int, pool *goroutine.Pool) reactorpkg.Callback {
	return func() {
		for {
			connFD, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
			if err != nil {
				if err == unix.EAGAIN {
					return
				}
				logging.Warnf("reactor-echo: accept failed: %v", err)
				return
			}
			registerEchoConn(r, connFD, pool)
		}
	}
}

// registerEchoConn echoes back whatever it reads. The write itself is
// submitted to pool rather than called inline, the same way gnet's own
// push examples keep a slow downstream operation off the dispatch
// goroutine: a peer with a slow receive window must never stall every
// other connection on this reactor.
func registerEchoConn(r *reactorpkg.Reactor, connFD int, pool *goroutine.Pool) {
	var reactable *reactorpkg.Reactable
	onRead := func() {
		buf := make([]byte, 4096)
		n, err := unix.Read(connFD, buf)
		if n > 0 {
			payload := buf[:n]
			if submitErr := pool.Submit(func() { unix.Write(connFD, payload) }); submitErr != nil {
				unix.Write(connFD, payload)
			}
		}
		if n == 0 || (err != nil && err != unix.EAGAIN) {
			r.Unregister(reactable)
			unix.Close(connFD)
		}
	}

	var err error
	reactable, err = r.Register(connFD, onRead, nil)
	if err != nil {
		logging.Warnf("reactor-echo: failed to register connection fd %d: %v", connFD, err)
		unix.Close(connFD)
	}
}
