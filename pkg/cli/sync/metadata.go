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

package sync

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/database"
)

// Interval is the periodic sync interval policy
type Interval int

const (
	// IntervalManual disables periodic sync
	IntervalManual Interval = iota
	// Interval15Min syncs every 15 minutes
	Interval15Min
	// Interval30Min syncs every 30 minutes
	Interval30Min
	// IntervalHourly syncs every hour
	IntervalHourly
)

// Duration returns the cadence of the interval, or zero for manual
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval15Min:
		return 15 * time.Minute
	case Interval30Min:
		return 30 * time.Minute
	case IntervalHourly:
		return time.Hour
	default:
		return 0
	}
}

func (i Interval) String() string {
	switch i {
	case Interval15Min:
		return "15m"
	case Interval30Min:
		return "30m"
	case IntervalHourly:
		return "1h"
	default:
		return "manual"
	}
}

// ParseInterval parses an interval policy from its string form
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "manual", "":
		return IntervalManual, nil
	case "15m":
		return Interval15Min, nil
	case "30m":
		return Interval30Min, nil
	case "1h":
		return IntervalHourly, nil
	default:
		return IntervalManual, errors.Errorf("unknown sync interval %q", s)
	}
}

// Metadata is the singleton sync state record. It is owned by the engine and
// the scheduler; the UI and the session state machine only read it.
type Metadata struct {
	Syncing                  bool
	LastUploadedTime         int64
	LastDownloadedTime       int64
	Interval                 Interval
	DeleteLocalNotesOnLogout bool
}

// MetadataStore persists the metadata record in the system table and fans out
// changes to observers.
type MetadataStore struct {
	db *database.DB

	mu     sync.Mutex
	subs   map[int]chan Metadata
	nextID int
}

// NewMetadataStore returns a metadata store backed by the given database
func NewMetadataStore(db *database.DB) *MetadataStore {
	return &MetadataStore{
		db:   db,
		subs: map[int]chan Metadata{},
	}
}

// Load reads the metadata record. Missing fields default to zero values.
func (s *MetadataStore) Load() (Metadata, error) {
	var m Metadata
	var syncing, deleteOnLogout int
	var interval string

	if err := database.GetSystemOr(s.db, consts.SystemSyncing, &syncing); err != nil {
		return m, errors.Wrap(err, "reading syncing flag")
	}
	if err := database.GetSystemOr(s.db, consts.SystemLastUploadedAt, &m.LastUploadedTime); err != nil {
		return m, errors.Wrap(err, "reading last uploaded time")
	}
	if err := database.GetSystemOr(s.db, consts.SystemLastDownloadedAt, &m.LastDownloadedTime); err != nil {
		return m, errors.Wrap(err, "reading last downloaded time")
	}
	if err := database.GetSystemOr(s.db, consts.SystemSyncInterval, &interval); err != nil {
		return m, errors.Wrap(err, "reading sync interval")
	}
	if err := database.GetSystemOr(s.db, consts.SystemDeleteOnLogout, &deleteOnLogout); err != nil {
		return m, errors.Wrap(err, "reading delete-on-logout flag")
	}

	m.Syncing = syncing == 1
	m.DeleteLocalNotesOnLogout = deleteOnLogout == 1

	iv, err := ParseInterval(interval)
	if err != nil {
		return m, errors.Wrap(err, "parsing stored sync interval")
	}
	m.Interval = iv

	return m, nil
}

// SetSyncing sets the mutual-exclusion flag
func (s *MetadataStore) SetSyncing(syncing bool) error {
	val := 0
	if syncing {
		val = 1
	}

	if err := database.UpdateSystem(s.db, consts.SystemSyncing, val); err != nil {
		return errors.Wrap(err, "updating syncing flag")
	}

	s.publish()

	return nil
}

// SetLastUploadedTime records when the upload phase last completed
func (s *MetadataStore) SetLastUploadedTime(t time.Time) error {
	if err := database.UpdateSystem(s.db, consts.SystemLastUploadedAt, t.Unix()); err != nil {
		return errors.Wrap(err, "updating last uploaded time")
	}

	s.publish()

	return nil
}

// SetLastDownloadedTime records when the download phase last completed
func (s *MetadataStore) SetLastDownloadedTime(t time.Time) error {
	if err := database.UpdateSystem(s.db, consts.SystemLastDownloadedAt, t.Unix()); err != nil {
		return errors.Wrap(err, "updating last downloaded time")
	}

	s.publish()

	return nil
}

// SetInterval persists the periodic sync interval policy
func (s *MetadataStore) SetInterval(iv Interval) error {
	if err := database.UpdateSystem(s.db, consts.SystemSyncInterval, iv.String()); err != nil {
		return errors.Wrap(err, "updating sync interval")
	}

	s.publish()

	return nil
}

// SetDeleteLocalNotesOnLogout persists the logout cleanup policy
func (s *MetadataStore) SetDeleteLocalNotesOnLogout(v bool) error {
	val := 0
	if v {
		val = 1
	}

	if err := database.UpdateSystem(s.db, consts.SystemDeleteOnLogout, val); err != nil {
		return errors.Wrap(err, "updating delete-on-logout flag")
	}

	s.publish()

	return nil
}

// ResetStuckSyncing clears a syncing flag left behind by a crash. A crash may
// prevent the engine's guaranteed cleanup from running, so this is called once
// at engine construction before any run.
func (s *MetadataStore) ResetStuckSyncing() error {
	m, err := s.Load()
	if err != nil {
		return errors.Wrap(err, "loading metadata")
	}

	if !m.Syncing {
		return nil
	}

	return s.SetSyncing(false)
}

// Subscribe registers an observer of metadata changes. The returned channel
// first receives the current record, then every subsequent change.
func (s *MetadataStore) Subscribe() (int, <-chan Metadata, error) {
	cur, err := s.Load()
	if err != nil {
		return 0, nil, errors.Wrap(err, "loading metadata")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan Metadata, 8)
	ch <- cur
	s.subs[id] = ch

	return id, ch, nil
}

// Unsubscribe removes the observer with the given id
func (s *MetadataStore) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *MetadataStore) publish() {
	m, err := s.Load()
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- m:
		default:
			// drop the oldest value when the observer lags
			select {
			case <-ch:
			default:
			}
			ch <- m
		}
	}
}
