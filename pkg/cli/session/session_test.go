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

package session

import (
	"testing"

	"github.com/quillnote/quill/pkg/assert"
	"github.com/quillnote/quill/pkg/cli/database"
)

func TestStoreGetLoggedOut(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	s := NewStore(db)

	ses, err := s.Get()
	assert.NoError(t, err, "getting session")
	if ses != nil {
		t.Errorf("expected nil session, got %+v", ses)
	}
}

func TestStoreRoundtrip(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	s := NewStore(db)

	put := Session{Username: "mila", AccessToken: "at-1", RefreshToken: "rt-1"}
	assert.NoError(t, s.Put(put), "putting session")

	got, err := s.Get()
	assert.NoError(t, err, "getting session")
	if got == nil {
		t.Fatal("expected a session")
	}
	assert.DeepEqual(t, *got, put, "session mismatch")
}

func TestStoreClear(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	s := NewStore(db)

	assert.NoError(t, s.Put(Session{Username: "mila", AccessToken: "at-1", RefreshToken: "rt-1"}), "putting session")
	assert.NoError(t, s.Clear(), "clearing session")

	got, err := s.Get()
	assert.NoError(t, err, "getting session")
	if got != nil {
		t.Errorf("expected nil session after clear, got %+v", got)
	}
}

func TestStoreGetIncomplete(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	s := NewStore(db)

	// a record with empty tokens is not a session
	assert.NoError(t, s.Put(Session{Username: "mila"}), "putting session")

	got, err := s.Get()
	assert.NoError(t, err, "getting session")
	if got != nil {
		t.Errorf("expected nil session for empty tokens, got %+v", got)
	}
}

func TestStoreSubscribe(t *testing.T) {
	db := database.InitTestMemoryDB(t)
	s := NewStore(db)

	id, ch, err := s.Subscribe()
	assert.NoError(t, err, "subscribing")
	defer s.Unsubscribe(id)

	// the current value arrives first
	got := <-ch
	if got != nil {
		t.Fatalf("expected initial nil session, got %+v", got)
	}

	put := Session{Username: "mila", AccessToken: "at-1", RefreshToken: "rt-1"}
	assert.NoError(t, s.Put(put), "putting session")

	got = <-ch
	if got == nil {
		t.Fatal("expected a session emission")
	}
	assert.DeepEqual(t, *got, put, "emitted session mismatch")

	assert.NoError(t, s.Clear(), "clearing session")

	got = <-ch
	if got != nil {
		t.Errorf("expected nil emission after clear, got %+v", got)
	}
}
