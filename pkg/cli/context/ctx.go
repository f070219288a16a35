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

// Package context defines the quill runtime context
package context

import (
	"fmt"
	"net/http"
	"os"

	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/clock"
)

// Paths contain directory definitions
type Paths struct {
	Home   string
	Config string
	Data   string
	Cache  string
}

// QuillCtx is a context holding the information of the current runtime
type QuillCtx struct {
	Paths       Paths
	APIEndpoint string
	Version     string
	DB          *database.DB
	Clock       clock.Clock
	HTTPClient  *http.Client
}

// InitQuillDirs creates quill directories if missing
func InitQuillDirs(paths Paths, quillDirName string) error {
	for _, base := range []string{paths.Config, paths.Data, paths.Cache} {
		dir := fmt.Sprintf("%s/%s", base, quillDirName)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}

	return nil
}
