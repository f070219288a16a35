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

package edit

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
)

var contentFlag string
var titleFlag string

var example = `
 * Replace the content of a note
 quill edit 373c5a33-9f8e-4a56-bc3b-cd04c0e2b2e8 -c "new content"

 * Rename a note
 quill edit 373c5a33-9f8e-4a56-bc3b-cd04c0e2b2e8 -t "new title"`

// NewCmd returns a new edit command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <uuid>",
		Aliases: []string{"e"},
		Short:   "Edit a note",
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "The new content for the note")
	f.StringVarP(&titleFlag, "title", "t", "", "The new title for the note")

	return cmd
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		uuid := args[0]

		if contentFlag == "" && titleFlag == "" {
			return errors.New("nothing to change")
		}

		note, found, err := database.GetNoteByUUID(ctx.DB, uuid)
		if err != nil {
			return errors.Wrap(err, "finding note")
		}
		if !found || note.MarkedDeleted {
			log.Errorf("note %s not found\n", uuid)
			return nil
		}

		if contentFlag != "" {
			note.Content = contentFlag
		}
		if titleFlag != "" {
			note.Title = titleFlag
		}
		note.LastEditedAt = ctx.Clock.Now()

		if err := note.Update(ctx.DB); err != nil {
			return errors.Wrap(err, "updating note")
		}

		log.Successf("edited %s\n", note.Title)

		return nil
	}
}
