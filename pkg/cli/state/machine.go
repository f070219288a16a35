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
	"time"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/session"
	"github.com/quillnote/quill/pkg/cli/sync"
	"github.com/quillnote/quill/pkg/clock"
)

// ErrOffline is an error for actions that cannot proceed without connectivity
var ErrOffline = errors.New("network unavailable")

// ErrNotLoggedIn is an error for actions that require a session
var ErrNotLoggedIn = errors.New("not logged in")

// Requester schedules reconciliation runs. It is satisfied by
// *scheduler.Scheduler.
type Requester interface {
	RequestSync()
	SetInterval(iv sync.Interval) error
}

// Observer exposes connectivity observations. It is satisfied by
// *connectivity.Monitor.
type Observer interface {
	Current() connectivity.State
	Subscribe() (int, <-chan connectivity.State)
	Unsubscribe(id int)
}

// SignoutFunc deletes the session on the server side
type SignoutFunc func(ctx context.Context, refreshToken string) error

// Config holds the collaborators of a Machine
type Config struct {
	DB       *database.DB
	Store    *session.Store
	Metadata *sync.MetadataStore
	Conn     Observer
	Sched    Requester
	Signout  SignoutFunc
	Clock    clock.Clock
}

// Machine derives the session state from the session store and the
// connectivity observer. Session emissions flip between the two states;
// connectivity emissions update the state in place without a transition.
// Entering the logged-in state triggers a sync check.
type Machine struct {
	db      *database.DB
	store   *session.Store
	meta    *sync.MetadataStore
	conn    Observer
	sched   Requester
	signout SignoutFunc
	clock   clock.Clock

	mu     stdsync.Mutex
	cur    SessionState
	subs   map[int]chan SessionState
	nextID int
}

// NewMachine returns a machine in the not-logged-in state
func NewMachine(cfg Config) *Machine {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &Machine{
		db:      cfg.DB,
		store:   cfg.Store,
		meta:    cfg.Metadata,
		conn:    cfg.Conn,
		sched:   cfg.Sched,
		signout: cfg.Signout,
		clock:   c,
		cur:     SessionState{Kind: KindNotLoggedIn},
		subs:    map[int]chan SessionState{},
	}
}

// Current returns the current session state
func (m *Machine) Current() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cur
}

// Subscribe registers an observer of session state changes. The returned
// channel first receives the current state, then every subsequent change.
func (m *Machine) Subscribe() (int, <-chan SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	ch := make(chan SessionState, 8)
	ch <- m.cur
	m.subs[id] = ch

	return id, ch
}

// Unsubscribe removes the observer with the given id
func (m *Machine) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}

// Run subscribes to the session store, the connectivity observer and the sync
// metadata, and processes their emissions until the context is cancelled.
func (m *Machine) Run(ctx context.Context) error {
	sessID, sessCh, err := m.store.Subscribe()
	if err != nil {
		return errors.Wrap(err, "subscribing to session store")
	}
	defer m.store.Unsubscribe(sessID)

	connID, connCh := m.conn.Subscribe()
	defer m.conn.Unsubscribe(connID)

	metaID, metaCh, err := m.meta.Subscribe()
	if err != nil {
		return errors.Wrap(err, "subscribing to sync metadata")
	}
	defer m.meta.Unsubscribe(metaID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ses, ok := <-sessCh:
			if !ok {
				return nil
			}
			m.applySession(ses)
		case st, ok := <-connCh:
			if !ok {
				return nil
			}
			m.applyConnectivity(st)
		case meta, ok := <-metaCh:
			if !ok {
				return nil
			}
			m.applyMetadata(meta)
		}
	}
}

func (m *Machine) applySession(ses *session.Session) {
	m.mu.Lock()

	wasLoggedIn := m.cur.Kind == KindLoggedIn

	if ses == nil {
		m.cur = SessionState{
			Kind:         KindNotLoggedIn,
			Connectivity: m.cur.Connectivity,
		}
		m.publishLocked()
		m.mu.Unlock()

		if wasLoggedIn {
			log.Debug("session cleared, state is now %s\n", KindNotLoggedIn)
		}
		return
	}

	meta, err := m.meta.Load()
	if err != nil {
		log.Debug("loading sync metadata: %v\n", err)
	}

	m.cur = SessionState{
		Kind:         KindLoggedIn,
		Connectivity: m.cur.Connectivity,
		Session:      ses,
		Meta:         meta,
	}
	m.publishLocked()
	m.mu.Unlock()

	// a sync check runs on every entry into the logged-in state
	if !wasLoggedIn {
		log.Debug("session established, state is now %s\n", KindLoggedIn)
		m.syncCheck()
	}
}

func (m *Machine) applyConnectivity(st connectivity.State) {
	m.mu.Lock()

	regained := m.cur.Connectivity == connectivity.Unavailable && st == connectivity.Available
	loggedIn := m.cur.Kind == KindLoggedIn

	m.cur.Connectivity = st
	m.publishLocked()
	m.mu.Unlock()

	// a reconnect while logged in re-runs the freshness check
	if regained && loggedIn {
		m.syncCheck()
	}
}

func (m *Machine) applyMetadata(meta sync.Metadata) {
	m.mu.Lock()

	rescheduled := meta.Interval != m.cur.Meta.Interval

	m.cur.Meta = meta
	if m.cur.Kind == KindLoggedIn {
		m.publishLocked()
	}
	m.mu.Unlock()

	if rescheduled && m.sched != nil {
		if err := m.sched.SetInterval(meta.Interval); err != nil {
			log.Debug("rescheduling periodic sync: %v\n", err)
		}
	}
}

// syncCheck requests a one-shot reconciliation if the store was never
// uploaded, or the last upload is older than the freshness threshold, and no
// run is currently in progress.
func (m *Machine) syncCheck() {
	meta, err := m.meta.Load()
	if err != nil {
		log.Debug("sync check: loading metadata: %v\n", err)
		return
	}

	if meta.Syncing {
		return
	}

	if meta.LastUploadedTime == 0 {
		m.sched.RequestSync()
		return
	}

	age := m.clock.Now().Sub(time.Unix(meta.LastUploadedTime, 0))
	if age > consts.FreshnessThreshold {
		m.sched.RequestSync()
	}
}

// Logout deletes the remote session and clears the local one. It cannot
// proceed offline. When the remote call fails the state is unchanged and the
// caller must retry; there is no automatic retry loop.
func (m *Machine) Logout(ctx context.Context) error {
	if m.conn.Current() == connectivity.Unavailable {
		return ErrOffline
	}

	ses, err := m.store.Get()
	if err != nil {
		return errors.Wrap(err, "reading session")
	}
	if ses == nil {
		return ErrNotLoggedIn
	}

	if err := m.signout(ctx, ses.RefreshToken); err != nil {
		return errors.Wrap(err, "requesting signout")
	}

	meta, err := m.meta.Load()
	if err != nil {
		return errors.Wrap(err, "loading sync metadata")
	}
	if meta.DeleteLocalNotesOnLogout {
		if err := database.PurgeNotes(m.db); err != nil {
			return errors.Wrap(err, "purging local notes")
		}
	}

	if err := m.store.Clear(); err != nil {
		return errors.Wrap(err, "clearing session")
	}

	return nil
}

// UpdateSyncPolicy persists the new interval and replaces any periodic job
// with one at the new cadence, or cancels it for the manual policy.
func (m *Machine) UpdateSyncPolicy(iv sync.Interval) error {
	if err := m.meta.SetInterval(iv); err != nil {
		return errors.Wrap(err, "persisting sync interval")
	}

	if err := m.sched.SetInterval(iv); err != nil {
		return errors.Wrap(err, "rescheduling periodic sync")
	}

	return nil
}

// SetDeleteOnLogout persists the logout cleanup policy. It has no scheduling
// side effect.
func (m *Machine) SetDeleteOnLogout(v bool) error {
	return m.meta.SetDeleteLocalNotesOnLogout(v)
}

// publishLocked fans the current state out to subscribers. The caller must
// hold the mutex.
func (m *Machine) publishLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- m.cur:
		default:
			// drop the oldest value when the observer lags
			select {
			case <-ch:
			default:
			}
			ch <- m.cur
		}
	}
}
