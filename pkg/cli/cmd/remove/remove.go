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

package remove

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
)

var example = `
 * Remove a note by its uuid
 quill rm 373c5a33-9f8e-4a56-bc3b-cd04c0e2b2e8`

// NewCmd returns a new remove command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <uuid>",
		Aliases: []string{"d", "remove"},
		Short:   "Remove a note",
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE:    newRun(ctx),
	}

	return cmd
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		uuid := args[0]

		note, found, err := database.GetNoteByUUID(ctx.DB, uuid)
		if err != nil {
			return errors.Wrap(err, "finding note")
		}
		if !found || note.MarkedDeleted {
			log.Errorf("note %s not found\n", uuid)
			return nil
		}

		if err := note.MarkDeleted(ctx.DB); err != nil {
			return errors.Wrap(err, "removing note")
		}

		log.Successf("removed %s\n", note.Title)

		return nil
	}
}
