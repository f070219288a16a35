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

// Package database provides the local note store for Quill
package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// DB is a database connection to the local note store
type DB struct {
	*sql.DB
}

// Open opens a database connection at the given path
func Open(dbPath string) (*DB, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s%s_busy_timeout=5000", dbPath, sep))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	return &DB{conn}, nil
}

// InitSchema applies the schema to the database. It is idempotent.
func (db *DB) InitSchema() error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "running schema sql")
	}

	return nil
}

// GetSystem scans the given system configuration record into the destination
func GetSystem(db *DB, key string, dest interface{}) error {
	if err := db.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(dest); err != nil {
		return errors.Wrapf(err, "getting system config for %s", key)
	}

	return nil
}

// GetSystemOr scans the given system configuration record into the destination,
// leaving the destination untouched if the record does not exist
func GetSystemOr(db *DB, key string, dest interface{}) error {
	err := db.QueryRow("SELECT value FROM system WHERE key = ?", key).Scan(dest)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "getting system config for %s", key)
	}

	return nil
}

// UpdateSystem inserts or updates a system configuration record
func UpdateSystem(db *DB, key string, val interface{}) error {
	_, err := db.Exec(`INSERT INTO system (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, val)
	if err != nil {
		return errors.Wrapf(err, "updating system config for %s", key)
	}

	return nil
}

// DeleteSystem removes a system configuration record
func DeleteSystem(db *DB, key string) error {
	if _, err := db.Exec("DELETE FROM system WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "deleting system config for %s", key)
	}

	return nil
}
