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

package add

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/ui"
	"github.com/quillnote/quill/pkg/cli/utils"
)

var contentFlag string

var example = `
 * Add a note with content
 quill add standup -c "demo the import flow on thursday"

 * Send stdin content to a note
 echo "pull is fetch with a merge" | quill add git`

func preRun(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.New("Incorrect number of argument")
	}

	return nil
}

// NewCmd returns a new add command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Add a new note",
		Aliases: []string{"a", "n", "new"},
		Example: example,
		PreRunE: preRun,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVarP(&contentFlag, "content", "c", "", "The content for the note")

	return cmd
}

func getContent() (string, error) {
	if contentFlag != "" {
		return contentFlag, nil
	}

	// check for piped content
	fInfo, _ := os.Stdin.Stat()
	if fInfo.Mode()&os.ModeCharDevice == 0 {
		c, err := ui.ReadStdInput()
		if err != nil {
			return "", errors.Wrap(err, "getting piped input")
		}
		return c, nil
	}

	var c string
	if err := ui.PromptInput("content", &c); err != nil {
		return "", errors.Wrap(err, "getting content input")
	}

	return c, nil
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		title := args[0]

		content, err := getContent()
		if err != nil {
			return errors.Wrap(err, "getting content")
		}
		if content == "" {
			return errors.New("Empty content")
		}

		uuid, err := utils.GenerateUUID()
		if err != nil {
			return errors.Wrap(err, "generating uuid")
		}

		now := ctx.Clock.Now()
		note := database.NewNote(uuid, title, content, now, now, false, false)
		if err := note.Insert(ctx.DB); err != nil {
			return errors.Wrap(err, "saving note")
		}

		log.Successf("added %s\n", title)

		return nil
	}
}
