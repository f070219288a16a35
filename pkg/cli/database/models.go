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
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Note represents a note in the local store
type Note struct {
	UUID          string    `json:"uuid"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	LastEditedAt  time.Time `json:"last_edited_at"`
	Synced        bool      `json:"synced"`
	MarkedDeleted bool      `json:"marked_deleted"`
}

// NewNote constructs a note with the given data
func NewNote(uuid, title, content string, createdAt, lastEditedAt time.Time, synced, markedDeleted bool) Note {
	return Note{
		UUID:          uuid,
		Title:         title,
		Content:       content,
		CreatedAt:     createdAt,
		LastEditedAt:  lastEditedAt,
		Synced:        synced,
		MarkedDeleted: markedDeleted,
	}
}

// Insert inserts a new note
func (n Note) Insert(db *DB) error {
	_, err := db.Exec("INSERT INTO notes (uuid, title, content, created_at, last_edited_at, synced, marked_deleted) VALUES (?, ?, ?, ?, ?, ?, ?)",
		n.UUID, n.Title, n.Content, formatTime(n.CreatedAt), formatTime(n.LastEditedAt), n.Synced, n.MarkedDeleted)
	if err != nil {
		return errors.Wrapf(err, "inserting note with uuid %s", n.UUID)
	}

	return nil
}

// Update updates the note with the given data. A content change through this
// method clears the synced flag so that the note is picked up by the next
// reconciliation run.
func (n Note) Update(db *DB) error {
	_, err := db.Exec("UPDATE notes SET title = ?, content = ?, last_edited_at = ?, synced = 0 WHERE uuid = ?",
		n.Title, n.Content, formatTime(n.LastEditedAt), n.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating the note with uuid %s", n.UUID)
	}

	return nil
}

// UpdateSynced sets the synced flag of the note
func (n Note) UpdateSynced(db *DB, synced bool) error {
	_, err := db.Exec("UPDATE notes SET synced = ? WHERE uuid = ?", synced, n.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating synced flag of note %s", n.UUID)
	}

	return nil
}

// UpdateUUID updates the uuid of a note
func (n *Note) UpdateUUID(db *DB, newUUID string) error {
	_, err := db.Exec("UPDATE notes SET uuid = ? WHERE uuid = ?", newUUID, n.UUID)
	if err != nil {
		return errors.Wrapf(err, "updating note uuid from '%s' to '%s'", n.UUID, newUUID)
	}

	n.UUID = newUUID

	return nil
}

// MarkDeleted places a tombstone on the note. The row is retained until the
// remote deletion succeeds. A note that was never synced is expunged right
// away because the remote has never seen it.
func (n Note) MarkDeleted(db *DB) error {
	if !n.Synced {
		return n.Expunge(db)
	}

	_, err := db.Exec("UPDATE notes SET marked_deleted = 1 WHERE uuid = ?", n.UUID)
	if err != nil {
		return errors.Wrapf(err, "marking note %s deleted", n.UUID)
	}

	return nil
}

// Expunge hard-deletes the note from the database
func (n Note) Expunge(db *DB) error {
	_, err := db.Exec("DELETE FROM notes WHERE uuid = ?", n.UUID)
	if err != nil {
		return errors.Wrap(err, "expunging a note locally")
	}

	return nil
}

// UpsertRemote writes a note observed on the remote into the local store,
// marking it synced. Used by the download phase. A local copy with pending
// edits or a tombstone is left untouched: the edit is resolved by the upload
// phase, where the local copy wins, and the tombstone by the deletion phase.
func UpsertRemote(db *DB, n Note) error {
	_, err := db.Exec(`INSERT INTO notes (uuid, title, content, created_at, last_edited_at, synced, marked_deleted)
		VALUES (?, ?, ?, ?, ?, 1, 0)
		ON CONFLICT(uuid) DO UPDATE SET title = excluded.title, content = excluded.content,
			created_at = excluded.created_at, last_edited_at = excluded.last_edited_at, synced = 1
		WHERE notes.synced = 1 AND notes.marked_deleted = 0`,
		n.UUID, n.Title, n.Content, formatTime(n.CreatedAt), formatTime(n.LastEditedAt))
	if err != nil {
		return errors.Wrapf(err, "upserting remote note %s", n.UUID)
	}

	return nil
}

// GetNoteByUUID returns the note with the given uuid. The second return value
// indicates whether the note was found.
func GetNoteByUUID(db *DB, uuid string) (Note, bool, error) {
	var n Note
	var createdAt, lastEditedAt string

	err := db.QueryRow("SELECT uuid, title, content, created_at, last_edited_at, synced, marked_deleted FROM notes WHERE uuid = ?", uuid).
		Scan(&n.UUID, &n.Title, &n.Content, &createdAt, &lastEditedAt, &n.Synced, &n.MarkedDeleted)
	if err == sql.ErrNoRows {
		return n, false, nil
	}
	if err != nil {
		return n, false, errors.Wrapf(err, "getting note %s", uuid)
	}

	if err := parseNoteTimes(&n, createdAt, lastEditedAt); err != nil {
		return n, false, err
	}

	return n, true, nil
}

// GetUnsyncedNotes returns all notes whose local copy does not match the
// remote. Tombstoned notes are excluded; they are subject only to the deletion
// phase and must never be re-uploaded.
func GetUnsyncedNotes(db *DB) ([]Note, error) {
	return queryNotes(db, "SELECT uuid, title, content, created_at, last_edited_at, synced, marked_deleted FROM notes WHERE synced = 0 AND marked_deleted = 0 ORDER BY last_edited_at")
}

// GetTombstonedNotes returns all notes awaiting remote deletion
func GetTombstonedNotes(db *DB) ([]Note, error) {
	return queryNotes(db, "SELECT uuid, title, content, created_at, last_edited_at, synced, marked_deleted FROM notes WHERE marked_deleted = 1 ORDER BY last_edited_at")
}

// GetActiveNotes returns all user-facing notes, excluding tombstones
func GetActiveNotes(db *DB) ([]Note, error) {
	return queryNotes(db, "SELECT uuid, title, content, created_at, last_edited_at, synced, marked_deleted FROM notes WHERE marked_deleted = 0 ORDER BY last_edited_at DESC")
}

// CountNotes returns the number of notes in the local store, tombstones included
func CountNotes(db *DB) (int, error) {
	var count int
	if err := db.QueryRow("SELECT count(*) FROM notes").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "counting notes")
	}

	return count, nil
}

// PurgeNotes removes all notes from the local store
func PurgeNotes(db *DB) error {
	if _, err := db.Exec("DELETE FROM notes"); err != nil {
		return errors.Wrap(err, "purging notes")
	}

	return nil
}

func queryNotes(db *DB, query string, args ...interface{}) ([]Note, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	defer rows.Close()

	var ret []Note
	for rows.Next() {
		var n Note
		var createdAt, lastEditedAt string

		if err := rows.Scan(&n.UUID, &n.Title, &n.Content, &createdAt, &lastEditedAt, &n.Synced, &n.MarkedDeleted); err != nil {
			return nil, errors.Wrap(err, "scanning a note row")
		}
		if err := parseNoteTimes(&n, createdAt, lastEditedAt); err != nil {
			return nil, err
		}

		ret = append(ret, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating note rows")
	}

	return ret, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNoteTimes(n *Note, createdAt, lastEditedAt string) error {
	var err error

	n.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return errors.Wrapf(err, "parsing created_at of note %s", n.UUID)
	}
	n.LastEditedAt, err = time.Parse(time.RFC3339Nano, lastEditedAt)
	if err != nil {
		return errors.Wrapf(err, "parsing last_edited_at of note %s", n.UUID)
	}

	return nil
}
