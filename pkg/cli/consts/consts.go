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

// Package consts provides definitions of constant values used across Quill
package consts

import "time"

var (
	// QuillDirName is the name of the directory containing quill files
	QuillDirName = "quill"
	// QuillDBFileName is a filename for the Quill SQLite database
	QuillDBFileName = "quill.db"
	// ConfigFilename is the name of the config file
	ConfigFilename = "quillrc"
	// EnvFilename is the name of the optional env overlay file for the daemon
	EnvFilename = ".env"

	// SystemUsername is the name of the logged-in user
	SystemUsername = "username"
	// SystemAccessToken is the access token of the current session
	SystemAccessToken = "access_token"
	// SystemRefreshToken is the refresh token of the current session
	SystemRefreshToken = "refresh_token"
	// SystemSyncing is the mutual-exclusion flag for a reconciliation run
	SystemSyncing = "syncing"
	// SystemLastUploadedAt is the timestamp at which the upload phase last completed
	SystemLastUploadedAt = "last_uploaded_at"
	// SystemLastDownloadedAt is the timestamp at which the download phase last completed
	SystemLastDownloadedAt = "last_downloaded_at"
	// SystemSyncInterval is the periodic sync interval policy
	SystemSyncInterval = "sync_interval"
	// SystemDeleteOnLogout indicates whether local notes are purged on logout
	SystemDeleteOnLogout = "delete_local_notes_on_logout"
)

const (
	// PageSize is the number of notes fetched per page during the download phase
	PageSize = 20
	// SyncItemInterval is the fixed delay between individual delete/upload calls,
	// applied as backpressure to protect the remote service
	SyncItemInterval = 250 * time.Millisecond
	// FreshnessThreshold is the maximum tolerated age of the last upload before
	// a login-triggered sync check forces a new run
	FreshnessThreshold = 5 * time.Minute
	// TokenExpirySkew is the window before access token expiry within which the
	// token is treated as stale and refreshed proactively
	TokenExpirySkew = 30 * time.Second
	// RequestTimeout is the overall timeout for a single remote operation
	RequestTimeout = 30 * time.Second
	// ProbeInterval is the default cadence of connectivity probes
	ProbeInterval = 30 * time.Second
)
