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

package settings

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/sync"
)

var example = `
  * Show the current settings
  quill settings

  * Sync every 15 minutes
  quill settings sync-interval 15m

  * Only sync manually
  quill settings sync-interval manual

  * Remove local notes when logging out
  quill settings delete-on-logout true`

// NewCmd returns a new settings command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "View and change sync settings",
		Example: example,
		RunE:    newRun(ctx),
	}

	cmd.AddCommand(newIntervalCmd(ctx))
	cmd.AddCommand(newDeleteOnLogoutCmd(ctx))

	return cmd
}

func newIntervalCmd(ctx context.QuillCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-interval <manual|15m|30m|1h>",
		Short: "Set how often notes are synced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := sync.ParseInterval(args[0])
			if err != nil {
				return err
			}

			meta := sync.NewMetadataStore(ctx.DB)
			if err := meta.SetInterval(iv); err != nil {
				return errors.Wrap(err, "persisting sync interval")
			}

			log.Successf("sync interval set to %s\n", iv)

			return nil
		},
	}
}

func newDeleteOnLogoutCmd(ctx context.QuillCtx) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-on-logout <true|false>",
		Short: "Set whether local notes are removed on logout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseBool(args[0])
			if err != nil {
				return errors.Wrapf(err, "parsing %s", args[0])
			}

			meta := sync.NewMetadataStore(ctx.DB)
			if err := meta.SetDeleteLocalNotesOnLogout(v); err != nil {
				return errors.Wrap(err, "persisting logout policy")
			}

			log.Successf("delete-on-logout set to %t\n", v)

			return nil
		},
	}
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		meta, err := sync.NewMetadataStore(ctx.DB).Load()
		if err != nil {
			return errors.Wrap(err, "loading sync metadata")
		}

		log.Plainf("sync-interval: %s\n", meta.Interval)
		log.Plainf("delete-on-logout: %t\n", meta.DeleteLocalNotesOnLogout)

		return nil
	}
}
