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

	"github.com/quillnote/quill/pkg/assert"
)

func TestInitSchemaIdempotent(t *testing.T) {
	db := InitTestMemoryDB(t)

	// applying the schema again must not fail or lose data
	MustExec(t, "seeding a note", db, "INSERT INTO notes (uuid, title, content, created_at, last_edited_at) VALUES ('n1', 't', 'c', '2025-06-01T10:00:00Z', '2025-06-01T10:00:00Z')")
	assert.NoError(t, db.InitSchema(), "re-applying schema")

	count, err := CountNotes(db)
	assert.NoError(t, err, "counting notes")
	assert.Equal(t, count, 1, "count mismatch")
}

func TestSystemRoundtrip(t *testing.T) {
	db := InitTestMemoryDB(t)

	assert.NoError(t, UpdateSystem(db, "greeting", "hello"), "inserting record")

	var got string
	assert.NoError(t, GetSystem(db, "greeting", &got), "getting record")
	assert.Equal(t, got, "hello", "value mismatch")

	assert.NoError(t, UpdateSystem(db, "greeting", "bonjour"), "updating record")
	assert.NoError(t, GetSystem(db, "greeting", &got), "getting updated record")
	assert.Equal(t, got, "bonjour", "updated value mismatch")
}

func TestGetSystemMissing(t *testing.T) {
	db := InitTestMemoryDB(t)

	var got string
	err := GetSystem(db, "missing", &got)
	assert.NotEqual(t, err, nil, "expected an error for a missing record")
}

func TestGetSystemOr(t *testing.T) {
	db := InitTestMemoryDB(t)

	got := "default"
	assert.NoError(t, GetSystemOr(db, "missing", &got), "getting missing record")
	assert.Equal(t, got, "default", "destination should be left untouched")

	assert.NoError(t, UpdateSystem(db, "present", "stored"), "inserting record")
	assert.NoError(t, GetSystemOr(db, "present", &got), "getting present record")
	assert.Equal(t, got, "stored", "value mismatch")
}

func TestDeleteSystem(t *testing.T) {
	db := InitTestMemoryDB(t)

	assert.NoError(t, UpdateSystem(db, "greeting", "hello"), "inserting record")
	assert.NoError(t, DeleteSystem(db, "greeting"), "deleting record")

	var got string
	err := GetSystem(db, "greeting", &got)
	assert.NotEqual(t, err, nil, "record should be gone")

	// deleting a missing record is a no-op
	assert.NoError(t, DeleteSystem(db, "greeting"), "deleting missing record")
}

func TestSystemIntValue(t *testing.T) {
	db := InitTestMemoryDB(t)

	assert.NoError(t, UpdateSystem(db, "counter", 42), "inserting int record")

	var got int
	assert.NoError(t, GetSystem(db, "counter", &got), "getting int record")
	assert.Equal(t, got, 42, "int value mismatch")
}
