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

package scheduler

import (
	"context"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/assert"
	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/sync"
)

type fakeRunner struct {
	runs    int32
	block   chan struct{}
	started chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan struct{}, 16)}
}

func (r *fakeRunner) RunOnce(ctx context.Context) (sync.Report, error) {
	atomic.AddInt32(&r.runs, 1)
	r.started <- struct{}{}
	if r.block != nil {
		<-r.block
	}
	return sync.Report{}, nil
}

func (r *fakeRunner) count() int32 {
	return atomic.LoadInt32(&r.runs)
}

type fakeConn struct {
	mu    stdsync.Mutex
	state connectivity.State
}

func (c *fakeConn) Current() connectivity.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) set(s connectivity.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func waitFor(t *testing.T, ch chan struct{}, message string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal(message)
	}
}

func TestRequestSyncRuns(t *testing.T) {
	runner := newFakeRunner()
	conn := &fakeConn{state: connectivity.Available}

	s := New(runner, conn, nil)
	s.Start(context.Background())
	defer s.Close()

	s.RequestSync()

	waitFor(t, runner.started, "timed out waiting for a run")
	assert.Equal(t, runner.count(), int32(1), "run count mismatch")
}

func TestBurstCollapses(t *testing.T) {
	runner := newFakeRunner()
	runner.block = make(chan struct{})
	conn := &fakeConn{state: connectivity.Available}

	s := New(runner, conn, nil)
	s.Start(context.Background())
	defer s.Close()

	s.RequestSync()
	waitFor(t, runner.started, "timed out waiting for the first run")

	// while the first run executes, a burst of triggers collapses to one
	for i := 0; i < 5; i++ {
		s.RequestSync()
	}
	close(runner.block)
	runner.block = nil

	waitFor(t, runner.started, "timed out waiting for the collapsed run")

	// no further runs should arrive
	select {
	case <-runner.started:
		t.Fatal("expected the burst to collapse into a single run")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, runner.count(), int32(2), "run count mismatch")
}

func TestOfflineDefersRun(t *testing.T) {
	runner := newFakeRunner()
	conn := &fakeConn{state: connectivity.Unavailable}

	s := New(runner, conn, nil)
	s.Start(context.Background())
	defer s.Close()

	s.RequestSync()

	select {
	case <-runner.started:
		t.Fatal("a run must not start while offline")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, runner.count(), int32(0), "run count mismatch")
}

func TestGateDefersRun(t *testing.T) {
	runner := newFakeRunner()
	conn := &fakeConn{state: connectivity.Available}
	gate := func() error { return errors.New("battery low") }

	s := New(runner, conn, gate)
	s.Start(context.Background())
	defer s.Close()

	s.RequestSync()

	select {
	case <-runner.started:
		t.Fatal("a run must not start while the gate refuses")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, runner.count(), int32(0), "run count mismatch")
}

func TestSetInterval(t *testing.T) {
	runner := newFakeRunner()
	conn := &fakeConn{state: connectivity.Available}

	s := New(runner, conn, nil)
	defer s.Close()

	assert.NoError(t, s.SetInterval(sync.Interval15Min), "setting interval")
	s.mu.Lock()
	first := s.periodic
	s.mu.Unlock()
	if first == nil {
		t.Fatal("a periodic job should exist")
	}

	// changing the cadence replaces the job
	assert.NoError(t, s.SetInterval(sync.IntervalHourly), "changing interval")
	s.mu.Lock()
	second := s.periodic
	s.mu.Unlock()
	if second == nil {
		t.Fatal("a periodic job should exist")
	}
	if second == first {
		t.Error("changing the cadence should replace the periodic job")
	}

	// the manual policy cancels it
	assert.NoError(t, s.SetInterval(sync.IntervalManual), "setting manual interval")
	s.mu.Lock()
	if s.periodic != nil {
		t.Error("the manual policy should cancel the periodic job")
	}
	s.mu.Unlock()
}

func TestCloseIsIdempotent(t *testing.T) {
	runner := newFakeRunner()
	conn := &fakeConn{state: connectivity.Available}

	s := New(runner, conn, nil)
	s.Start(context.Background())

	s.Close()
	s.Close()
}
