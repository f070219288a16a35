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

package register

import (
	stdctx "context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/client"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/session"
	"github.com/quillnote/quill/pkg/cli/ui"
	"github.com/quillnote/quill/pkg/cli/validate"
)

var example = `
  quill register`

var apiEndpointFlag string

// NewCmd returns a new register command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Create an account on the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// Do creates an account and logs into it
func Do(ctx context.QuillCtx, username, email, password string) error {
	if err := validate.Register(username, email, password); err != nil {
		return err
	}

	stack, err := infra.NewSyncStack(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing")
	}

	reqCtx, cancel := stdctx.WithTimeout(stdctx.Background(), consts.RequestTimeout)
	defer cancel()

	if err := stack.Client.Register(reqCtx, username, email, password); err != nil {
		return err
	}

	cred, err := stack.Client.Signin(reqCtx, email, password)
	if err != nil {
		return errors.Wrap(err, "logging into the new account")
	}

	if cred.Username == "" {
		cred.Username = username
	}

	err = stack.Sessions.Put(session.Session{
		Username:     cred.Username,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	})
	if err != nil {
		return errors.Wrap(err, "saving session")
	}

	return nil
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		// Override APIEndpoint if flag was provided
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		var username, email, password, confirm string
		if err := ui.PromptInput("username", &username); err != nil {
			return errors.Wrap(err, "getting username input")
		}
		if err := ui.PromptInput("email", &email); err != nil {
			return errors.Wrap(err, "getting email input")
		}
		if err := ui.PromptPassword("password", &password); err != nil {
			return errors.Wrap(err, "getting password input")
		}
		if err := ui.PromptPassword("confirm password", &confirm); err != nil {
			return errors.Wrap(err, "getting password confirmation")
		}
		if password != confirm {
			log.Error("passwords do not match\n")
			return nil
		}

		err := Do(ctx, username, email, password)
		if errors.Cause(err) == client.ErrDuplicateUser {
			log.Error("user already exists\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "registering")
		}

		log.Successf("registered %s\n", username)

		return nil
	}
}
