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

package sync

import (
	stdctx "context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/session"
	syncer "github.com/quillnote/quill/pkg/cli/sync"
)

var example = `
  quill sync`

var apiEndpointFlag string

// NewCmd returns a new sync command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"s"},
		Short:   "Sync notes with the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do performs one reconciliation run and returns its report
func Do(ctx context.QuillCtx) (syncer.Report, error) {
	stack, err := infra.NewSyncStack(ctx)
	if err != nil {
		return syncer.Report{}, errors.Wrap(err, "initializing")
	}

	if _, err := stack.Auth.RequireCredential(); err != nil {
		return syncer.Report{}, err
	}

	return stack.Engine.RunOnce(stdctx.Background())
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		// Override APIEndpoint if flag was provided
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		log.Infof("syncing with the server\n")

		report, err := Do(ctx)
		if errors.Cause(err) == session.ErrNotLoggedIn {
			log.Error("not logged in\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "syncing")
		}

		if report.Skipped {
			log.Warnf("a sync is already in progress\n")
			return nil
		}

		log.Successf("downloaded %d, deleted %d, uploaded %d\n", report.Downloaded, report.Deleted, report.Uploaded)

		if report.Partial {
			log.Warnf("some changes could not be synced and will be retried on the next run\n")
		}

		return nil
	}
}
