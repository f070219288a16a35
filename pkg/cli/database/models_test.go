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

package database

import (
	"testing"
	"time"

	"github.com/quillnote/quill/pkg/assert"
)

func mustInsert(t *testing.T, db *DB, n Note) {
	t.Helper()

	if err := n.Insert(db); err != nil {
		t.Fatalf("inserting note %s: %v", n.UUID, err)
	}
}

func TestNoteRoundtrip(t *testing.T) {
	db := InitTestMemoryDB(t)

	created := time.Date(2025, time.June, 1, 10, 0, 0, 123456789, time.UTC)

	n := NewNote("n1", "alpha", "some words", created, created.Add(time.Hour), false, false)
	mustInsert(t, db, n)

	got, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, found, true, "note not found")
	assert.DeepEqual(t, got, n, "note mismatch")
}

func TestNoteUpdateClearsSynced(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n := NewNote("n1", "alpha", "some words", ts, ts, true, false)
	mustInsert(t, db, n)

	n.Content = "new words"
	n.LastEditedAt = ts.Add(time.Minute)
	assert.NoError(t, n.Update(db), "updating note")

	got, _, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, got.Content, "new words", "content mismatch")
	assert.Equal(t, got.Synced, false, "an edit must clear the synced flag")
}

func TestMarkDeleted(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n := NewNote("n1", "alpha", "some words", ts, ts, true, false)
	mustInsert(t, db, n)

	assert.NoError(t, n.MarkDeleted(db), "marking deleted")

	got, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, found, true, "tombstone should be retained")
	assert.Equal(t, got.MarkedDeleted, true, "marked_deleted mismatch")
}

func TestMarkDeletedNeverSynced(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n := NewNote("n1", "alpha", "some words", ts, ts, false, false)
	mustInsert(t, db, n)

	assert.NoError(t, n.MarkDeleted(db), "marking deleted")

	_, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, found, false, "a never-synced note should be expunged right away")
}

func TestUpdateUUID(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n := NewNote("n1", "alpha", "some words", ts, ts, false, false)
	mustInsert(t, db, n)

	assert.NoError(t, n.UpdateUUID(db, "n2"), "updating uuid")
	assert.Equal(t, n.UUID, "n2", "in-memory uuid mismatch")

	_, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note by old uuid")
	assert.Equal(t, found, false, "old uuid should be gone")

	_, found, err = GetNoteByUUID(db, "n2")
	assert.NoError(t, err, "getting note by new uuid")
	assert.Equal(t, found, true, "new uuid should exist")
}

func TestUpsertRemoteInserts(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	n := NewNote("n1", "alpha", "server words", ts, ts, false, false)

	assert.NoError(t, UpsertRemote(db, n), "upserting")

	got, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, found, true, "note not found")
	assert.Equal(t, got.Synced, true, "a downloaded note is synced by definition")
}

func TestUpsertRemoteOverwritesCleanCopy(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	mustInsert(t, db, NewNote("n1", "alpha", "old words", ts, ts, true, false))

	remote := NewNote("n1", "alpha", "new words", ts, ts.Add(time.Hour), false, false)
	assert.NoError(t, UpsertRemote(db, remote), "upserting")

	got, _, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, got.Content, "new words", "a clean local copy should take the remote version")
}

func TestUpsertRemoteKeepsLocalEdit(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	mustInsert(t, db, NewNote("n1", "alpha", "local words", ts, ts, false, false))

	remote := NewNote("n1", "alpha", "server words", ts, ts.Add(time.Hour), false, false)
	assert.NoError(t, UpsertRemote(db, remote), "upserting")

	got, _, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, got.Content, "local words", "a pending local edit must not be clobbered")
	assert.Equal(t, got.Synced, false, "the pending edit must stay unsynced")
}

func TestUpsertRemoteKeepsTombstone(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	mustInsert(t, db, NewNote("n1", "alpha", "words", ts, ts, true, true))

	remote := NewNote("n1", "alpha", "server words", ts, ts.Add(time.Hour), false, false)
	assert.NoError(t, UpsertRemote(db, remote), "upserting")

	got, found, err := GetNoteByUUID(db, "n1")
	assert.NoError(t, err, "getting note")
	assert.Equal(t, found, true, "tombstone should still exist")
	assert.Equal(t, got.MarkedDeleted, true, "tombstone must not be resurrected")
	assert.Equal(t, got.Content, "words", "tombstone content must not be touched")
}

func TestNoteQueries(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	mustInsert(t, db, NewNote("n1", "clean", "a", ts, ts, true, false))
	mustInsert(t, db, NewNote("n2", "dirty", "b", ts, ts.Add(time.Minute), false, false))
	mustInsert(t, db, NewNote("n3", "gone", "c", ts, ts.Add(2*time.Minute), true, true))

	unsynced, err := GetUnsyncedNotes(db)
	assert.NoError(t, err, "getting unsynced notes")
	assert.Equal(t, len(unsynced), 1, "unsynced count mismatch")
	assert.Equal(t, unsynced[0].UUID, "n2", "unsynced uuid mismatch")

	tombstones, err := GetTombstonedNotes(db)
	assert.NoError(t, err, "getting tombstones")
	assert.Equal(t, len(tombstones), 1, "tombstone count mismatch")
	assert.Equal(t, tombstones[0].UUID, "n3", "tombstone uuid mismatch")

	active, err := GetActiveNotes(db)
	assert.NoError(t, err, "getting active notes")
	assert.Equal(t, len(active), 2, "active count mismatch")
	assert.Equal(t, active[0].UUID, "n2", "active notes should be ordered by last edit, newest first")

	count, err := CountNotes(db)
	assert.NoError(t, err, "counting notes")
	assert.Equal(t, count, 3, "count mismatch")
}

func TestPurgeNotes(t *testing.T) {
	db := InitTestMemoryDB(t)

	ts := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	mustInsert(t, db, NewNote("n1", "alpha", "a", ts, ts, true, false))
	mustInsert(t, db, NewNote("n2", "beta", "b", ts, ts, false, true))

	assert.NoError(t, PurgeNotes(db), "purging notes")

	count, err := CountNotes(db)
	assert.NoError(t, err, "counting notes")
	assert.Equal(t, count, 0, "count mismatch after purge")
}
