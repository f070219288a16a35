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

// Package state tracks whether a user is authenticated and the device's
// connectivity, and is the sole trigger point for starting reconciliation
package state

import (
	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/session"
	"github.com/quillnote/quill/pkg/cli/sync"
)

// Kind discriminates the session state variants
type Kind int

const (
	// KindNotLoggedIn means no authenticated session exists
	KindNotLoggedIn Kind = iota
	// KindLoggedIn means an authenticated session exists
	KindLoggedIn
)

func (k Kind) String() string {
	if k == KindLoggedIn {
		return "logged in"
	}
	return "not logged in"
}

// SessionState is a tagged union over the machine's states. Session and Meta
// are populated only for KindLoggedIn.
type SessionState struct {
	Kind         Kind
	Connectivity connectivity.State
	Session      *session.Session
	Meta         sync.Metadata
}
