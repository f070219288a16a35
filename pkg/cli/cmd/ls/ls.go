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

package ls

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
)

var example = `
 * List all notes
 quill ls`

// NewCmd returns a new ls command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"l", "notes"},
		Short:   "List all notes",
		Example: example,
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		notes, err := database.GetActiveNotes(ctx.DB)
		if err != nil {
			return errors.Wrap(err, "querying notes")
		}

		if len(notes) == 0 {
			log.Plain("no notes\n")
			return nil
		}

		for _, n := range notes {
			suffix := ""
			if !n.Synced {
				suffix = " (unsynced)"
			}

			log.Plainf("%s  %s  %s%s\n", n.UUID, n.LastEditedAt.Format("2006-01-02 15:04"), n.Title, suffix)
		}

		return nil
	}
}
