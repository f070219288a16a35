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

package logout

import (
	stdctx "context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/state"
)

var example = `
  quill logout`

var apiEndpointFlag string

// NewCmd returns a new logout command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logout",
		Short:   "Logout from the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do performs logout
func Do(ctx context.QuillCtx) error {
	stack, err := infra.NewSyncStack(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing")
	}

	conn := connectivity.NewMonitor(stack.Client.Health, 0)

	machine := state.NewMachine(state.Config{
		DB:       ctx.DB,
		Store:    stack.Sessions,
		Metadata: stack.Metadata,
		Conn:     conn,
		Signout:  stack.Client.Signout,
		Clock:    ctx.Clock,
	})

	reqCtx, cancel := stdctx.WithTimeout(stdctx.Background(), consts.RequestTimeout)
	defer cancel()

	conn.ProbeOnce(reqCtx)

	return machine.Logout(reqCtx)
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		// Override APIEndpoint if flag was provided
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		err := Do(ctx)
		switch errors.Cause(err) {
		case state.ErrNotLoggedIn:
			log.Error("not logged in\n")
			return nil
		case state.ErrOffline:
			log.Error("cannot log out while offline\n")
			return nil
		case nil:
		default:
			return errors.Wrap(err, "logging out")
		}

		log.Success("logged out\n")

		return nil
	}
}
