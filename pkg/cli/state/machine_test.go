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

package state

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/assert"
	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/session"
	"github.com/quillnote/quill/pkg/cli/sync"
	"github.com/quillnote/quill/pkg/clock"
)

type fakeSched struct {
	mu        stdsync.Mutex
	requests  chan struct{}
	intervals []sync.Interval
}

func newFakeSched() *fakeSched {
	return &fakeSched{requests: make(chan struct{}, 16)}
}

func (s *fakeSched) RequestSync() {
	s.requests <- struct{}{}
}

func (s *fakeSched) SetInterval(iv sync.Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals = append(s.intervals, iv)
	return nil
}

func (s *fakeSched) setIntervals() []sync.Interval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sync.Interval(nil), s.intervals...)
}

type harness struct {
	db      *database.DB
	store   *session.Store
	meta    *sync.MetadataStore
	conn    *connectivity.Monitor
	sched   *fakeSched
	clock   *clock.Mock
	machine *Machine

	signoutErr   error
	signoutCalls int32
	mu           stdsync.Mutex
}

func (h *harness) signout(ctx context.Context, refreshToken string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signoutCalls++
	return h.signoutErr
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db := database.InitTestMemoryDB(t)

	h := &harness{
		db:    db,
		store: session.NewStore(db),
		meta:  sync.NewMetadataStore(db),
		conn:  connectivity.NewMonitor(func(ctx context.Context) error { return nil }, time.Hour),
		sched: newFakeSched(),
		clock: clock.NewMock(),
	}

	h.machine = NewMachine(Config{
		DB:       db,
		Store:    h.store,
		Metadata: h.meta,
		Conn:     h.conn,
		Sched:    h.sched,
		Signout:  h.signout,
		Clock:    h.clock,
	})

	return h
}

// start runs the machine loop for the duration of the test
func (h *harness) start(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		if err := h.machine.Run(ctx); err != nil {
			t.Errorf("running machine: %v", err)
		}
	}()
}

func waitForKind(t *testing.T, ch <-chan SessionState, kind Kind, message string) SessionState {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.Kind == kind {
				return st
			}
		case <-deadline:
			t.Fatal(message)
		}
	}
}

func expectSyncRequest(t *testing.T, h *harness, message string) {
	t.Helper()

	select {
	case <-h.sched.requests:
	case <-time.After(2 * time.Second):
		t.Fatal(message)
	}
}

func expectNoSyncRequest(t *testing.T, h *harness, message string) {
	t.Helper()

	select {
	case <-h.sched.requests:
		t.Fatal(message)
	case <-time.After(100 * time.Millisecond):
	}
}

func testSession() session.Session {
	return session.Session{Username: "mila", AccessToken: "at-1", RefreshToken: "rt-1"}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t)

	st := h.machine.Current()
	assert.Equal(t, st.Kind, KindNotLoggedIn, "initial kind mismatch")
}

func TestLoginTransition(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	assert.NoError(t, h.store.Put(testSession()), "putting session")

	st := waitForKind(t, ch, KindLoggedIn, "timed out waiting for the logged-in state")
	assert.Equal(t, st.Session.Username, "mila", "session username mismatch")

	// the store was never uploaded, so entering the state requests a sync
	expectSyncRequest(t, h, "expected a sync request on login")
}

func TestLoginFreshStoreSkipsSync(t *testing.T) {
	h := newHarness(t)

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	h.clock.SetNow(now)
	assert.NoError(t, h.meta.SetLastUploadedTime(now.Add(-time.Minute)), "setting last uploaded")

	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	assert.NoError(t, h.store.Put(testSession()), "putting session")
	waitForKind(t, ch, KindLoggedIn, "timed out waiting for the logged-in state")

	expectNoSyncRequest(t, h, "a fresh store must not trigger a sync on login")
}

func TestLoginStaleStoreTriggersSync(t *testing.T) {
	h := newHarness(t)

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	h.clock.SetNow(now)
	assert.NoError(t, h.meta.SetLastUploadedTime(now.Add(-10*time.Minute)), "setting last uploaded")

	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	assert.NoError(t, h.store.Put(testSession()), "putting session")
	waitForKind(t, ch, KindLoggedIn, "timed out waiting for the logged-in state")

	expectSyncRequest(t, h, "a stale store must trigger a sync on login")
}

func TestLogoutTransition(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	assert.NoError(t, h.store.Put(testSession()), "putting session")
	waitForKind(t, ch, KindLoggedIn, "timed out waiting for the logged-in state")

	assert.NoError(t, h.store.Clear(), "clearing session")

	st := waitForKind(t, ch, KindNotLoggedIn, "timed out waiting for the logged-out state")
	if st.Session != nil {
		t.Errorf("expected no session in the logged-out state, got %+v", st.Session)
	}
}

func TestReconnectTriggersSyncCheck(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	h.conn.Set(connectivity.Available)
	assert.NoError(t, h.store.Put(testSession()), "putting session")
	waitForKind(t, ch, KindLoggedIn, "timed out waiting for the logged-in state")
	expectSyncRequest(t, h, "expected a sync request on login")

	h.conn.Set(connectivity.Unavailable)
	h.conn.Set(connectivity.Available)

	expectSyncRequest(t, h, "expected a sync request on reconnect")
}

func TestConnectivityUpdatesInPlace(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	id, ch := h.machine.Subscribe()
	defer h.machine.Unsubscribe(id)

	h.conn.Set(connectivity.Available)

	deadline := time.After(2 * time.Second)
	for {
		var st SessionState
		select {
		case st = <-ch:
		case <-deadline:
			t.Fatal("timed out waiting for the connectivity update")
		}

		if st.Connectivity == connectivity.Available {
			// connectivity changes never flip the session variant
			assert.Equal(t, st.Kind, KindNotLoggedIn, "kind mismatch")
			return
		}
	}
}

func TestLogoutRefusedOffline(t *testing.T) {
	h := newHarness(t)

	assert.NoError(t, h.store.Put(testSession()), "putting session")

	err := h.machine.Logout(context.Background())
	assert.Equal(t, errors.Cause(err), ErrOffline, "error mismatch")

	ses, serr := h.store.Get()
	assert.NoError(t, serr, "getting session")
	if ses == nil {
		t.Error("the session must survive a refused logout")
	}
}

func TestLogoutNotLoggedIn(t *testing.T) {
	h := newHarness(t)
	h.conn.Set(connectivity.Available)

	err := h.machine.Logout(context.Background())
	assert.Equal(t, errors.Cause(err), ErrNotLoggedIn, "error mismatch")
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.conn.Set(connectivity.Available)

	assert.NoError(t, h.store.Put(testSession()), "putting session")

	assert.NoError(t, h.machine.Logout(context.Background()), "logging out")

	ses, err := h.store.Get()
	assert.NoError(t, err, "getting session")
	if ses != nil {
		t.Errorf("expected no session after logout, got %+v", ses)
	}
}

func TestLogoutSignoutFailureKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.conn.Set(connectivity.Available)
	h.signoutErr = errors.New("server error")

	assert.NoError(t, h.store.Put(testSession()), "putting session")

	err := h.machine.Logout(context.Background())
	assert.NotEqual(t, err, nil, "expected an error")

	ses, serr := h.store.Get()
	assert.NoError(t, serr, "getting session")
	if ses == nil {
		t.Error("the session must survive a failed signout")
	}
}

func TestLogoutKeepsNotesByDefault(t *testing.T) {
	h := newHarness(t)
	h.conn.Set(connectivity.Available)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	note := database.NewNote("n1", "alpha", "words", ts, ts, true, false)
	assert.NoError(t, note.Insert(h.db), "inserting note")

	assert.NoError(t, h.store.Put(testSession()), "putting session")
	assert.NoError(t, h.machine.Logout(context.Background()), "logging out")

	count, err := database.CountNotes(h.db)
	assert.NoError(t, err, "counting notes")
	assert.Equal(t, count, 1, "notes must be kept by default")
}

func TestLogoutPurgesNotesWhenConfigured(t *testing.T) {
	h := newHarness(t)
	h.conn.Set(connectivity.Available)

	assert.NoError(t, h.meta.SetDeleteLocalNotesOnLogout(true), "setting logout policy")

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	note := database.NewNote("n1", "alpha", "words", ts, ts, true, false)
	assert.NoError(t, note.Insert(h.db), "inserting note")

	assert.NoError(t, h.store.Put(testSession()), "putting session")
	assert.NoError(t, h.machine.Logout(context.Background()), "logging out")

	count, err := database.CountNotes(h.db)
	assert.NoError(t, err, "counting notes")
	assert.Equal(t, count, 0, "notes must be purged when the policy is set")
}

func TestUpdateSyncPolicy(t *testing.T) {
	h := newHarness(t)

	assert.NoError(t, h.machine.UpdateSyncPolicy(sync.Interval30Min), "updating policy")

	meta, err := h.meta.Load()
	assert.NoError(t, err, "loading metadata")
	assert.Equal(t, meta.Interval, sync.Interval30Min, "persisted interval mismatch")

	got := h.sched.setIntervals()
	if len(got) == 0 || got[len(got)-1] != sync.Interval30Min {
		t.Errorf("scheduler should be rescheduled to the new interval, got %v", got)
	}
}
