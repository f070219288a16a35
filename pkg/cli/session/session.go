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

// Package session owns the persisted session record and the token refresh
// coordination for authenticated requests
package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/database"
)

// Session is an authenticated user session. A nil *Session means logged out.
type Session struct {
	Username     string
	AccessToken  string
	RefreshToken string
}

// Store reads and writes the session record in the local database. It is the
// single source of truth for login state: there is no separately cached
// current user. Observers receive the last known value at subscription time,
// then every change.
type Store struct {
	db *database.DB

	mu     sync.Mutex
	subs   map[int]chan *Session
	nextID int
}

// NewStore returns a session store backed by the given database
func NewStore(db *database.DB) *Store {
	return &Store{
		db:   db,
		subs: map[int]chan *Session{},
	}
}

// Get returns the current session, or nil when logged out. It never touches
// the network.
func (s *Store) Get() (*Session, error) {
	var ses Session

	if err := database.GetSystemOr(s.db, consts.SystemUsername, &ses.Username); err != nil {
		return nil, errors.Wrap(err, "reading username")
	}
	if err := database.GetSystemOr(s.db, consts.SystemAccessToken, &ses.AccessToken); err != nil {
		return nil, errors.Wrap(err, "reading access token")
	}
	if err := database.GetSystemOr(s.db, consts.SystemRefreshToken, &ses.RefreshToken); err != nil {
		return nil, errors.Wrap(err, "reading refresh token")
	}

	if ses.AccessToken == "" || ses.RefreshToken == "" {
		return nil, nil
	}

	return &ses, nil
}

// Put persists the given session and notifies observers
func (s *Store) Put(ses Session) error {
	if err := database.UpdateSystem(s.db, consts.SystemUsername, ses.Username); err != nil {
		return errors.Wrap(err, "saving username")
	}
	if err := database.UpdateSystem(s.db, consts.SystemAccessToken, ses.AccessToken); err != nil {
		return errors.Wrap(err, "saving access token")
	}
	if err := database.UpdateSystem(s.db, consts.SystemRefreshToken, ses.RefreshToken); err != nil {
		return errors.Wrap(err, "saving refresh token")
	}

	s.notify(&ses)

	return nil
}

// Clear removes the session and notifies observers with nil
func (s *Store) Clear() error {
	for _, key := range []string{consts.SystemUsername, consts.SystemAccessToken, consts.SystemRefreshToken} {
		if err := database.DeleteSystem(s.db, key); err != nil {
			return errors.Wrapf(err, "deleting %s", key)
		}
	}

	s.notify(nil)

	return nil
}

// Subscribe registers an observer. The returned channel first receives the
// current session, then every subsequent change. When an observer lags, older
// values are dropped in favor of the newest.
func (s *Store) Subscribe() (int, <-chan *Session, error) {
	cur, err := s.Get()
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading current session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan *Session, 8)
	ch <- cur
	s.subs[id] = ch

	return id, ch, nil
}

// Unsubscribe removes the observer with the given id
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Store) notify(ses *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		// drop the oldest value when the observer lags
		select {
		case ch <- ses:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ses
		}
	}
}
