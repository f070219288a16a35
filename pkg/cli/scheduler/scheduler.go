/* Copyright (C) 2025 Quill contributors
 *
 * This file is part of Quill.
 *
 * Quill is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Quill is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Quill.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package scheduler decides when reconciliation runs execute
package scheduler

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"

	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/sync"
)

// Runner performs one reconciliation run. It is satisfied by *sync.Engine.
type Runner interface {
	RunOnce(ctx context.Context) (sync.Report, error)
}

// Connectivity reports the device's last observed connectivity. It is
// satisfied by *connectivity.Monitor.
type Connectivity interface {
	Current() connectivity.State
}

// Gate is a policy check run before a reconciliation starts, for conditions
// like low battery or low storage. A non-nil error defers the run; it is not
// a failure.
type Gate func() error

// deferRetryInterval is how long a gated or offline run is deferred before the
// trigger is re-armed
const deferRetryInterval = time.Minute

// Scheduler serializes reconciliation runs through a single worker, collapses
// bursts of one-shot triggers into one run, and maintains at most one periodic
// job. Together with the engine's syncing flag this guarantees at most one run
// executing at a time.
type Scheduler struct {
	runner Runner
	conn   Connectivity
	gate   Gate

	pending chan struct{}
	done    chan struct{}

	mu       stdsync.Mutex
	periodic *cron.Cron
	closed   bool
}

// New returns a scheduler driving the given runner. gate may be nil.
func New(runner Runner, conn Connectivity, gate Gate) *Scheduler {
	return &Scheduler{
		runner:  runner,
		conn:    conn,
		gate:    gate,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It returns immediately; the worker runs until
// the context is cancelled or Close is called.
func (s *Scheduler) Start(ctx context.Context) {
	go s.work(ctx)
}

// RequestSync requests a one-shot reconciliation. A request made while one is
// already pending replaces it, so bursts of triggers collapse to one run.
func (s *Scheduler) RequestSync() {
	select {
	case s.pending <- struct{}{}:
	default:
		// a run is already pending; this trigger is subsumed by it
	}
}

// SetInterval replaces any periodic job with one at the new cadence, or
// cancels it for the manual policy.
func (s *Scheduler) SetInterval(iv sync.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.periodic != nil {
		s.periodic.Stop()
		s.periodic = nil
	}

	if iv == sync.IntervalManual {
		log.Debug("periodic sync disabled\n")
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", iv.Duration()), s.RequestSync); err != nil {
		return errors.Wrap(err, "adding periodic sync job")
	}
	c.Start()
	s.periodic = c

	log.Debug("periodic sync scheduled every %s\n", iv.Duration())

	return nil
}

// Close stops the periodic job and the worker
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.periodic != nil {
		s.periodic.Stop()
		s.periodic = nil
	}
	close(s.done)
}

func (s *Scheduler) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.pending:
			s.runPending(ctx)
		}
	}
}

func (s *Scheduler) runPending(ctx context.Context) {
	if err := s.preconditions(); err != nil {
		log.Debug("deferring reconciliation: %v\n", err)
		time.AfterFunc(deferRetryInterval, s.RequestSync)
		return
	}

	if _, err := s.runner.RunOnce(ctx); err != nil {
		log.Debug("reconciliation run failed: %v\n", err)
	}
}

func (s *Scheduler) preconditions() error {
	if s.conn.Current() == connectivity.Unavailable {
		return errors.New("network unavailable")
	}

	if s.gate != nil {
		if err := s.gate(); err != nil {
			return errors.Wrap(err, "policy gate")
		}
	}

	return nil
}
