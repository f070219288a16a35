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

package login

import (
	stdctx "context"
	"net/url"

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
  quill login`

var apiEndpointFlag string

// NewCmd returns a new login command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Login to the server",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// getServerDisplayURL derives a display URL for the server from the
// configured API endpoint
func getServerDisplayURL(ctx context.QuillCtx) string {
	u, err := url.Parse(ctx.APIEndpoint)
	if err != nil {
		return ""
	}
	if u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}

// Do authenticates with the server and saves the resulting session
func Do(ctx context.QuillCtx, email, password string) error {
	if err := validate.Login(email, password); err != nil {
		return err
	}

	stack, err := infra.NewSyncStack(ctx)
	if err != nil {
		return errors.Wrap(err, "initializing")
	}

	reqCtx, cancel := stdctx.WithTimeout(stdctx.Background(), consts.RequestTimeout)
	defer cancel()

	cred, err := stack.Client.Signin(reqCtx, email, password)
	if err != nil {
		return err
	}

	username := cred.Username
	if username == "" {
		username = email
	}

	err = stack.Sessions.Put(session.Session{
		Username:     username,
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

		if display := getServerDisplayURL(ctx); display != "" {
			log.Infof("logging in to %s\n", display)
		}

		var email, password string
		if err := ui.PromptInput("email", &email); err != nil {
			return errors.Wrap(err, "getting email input")
		}
		if err := ui.PromptPassword("password", &password); err != nil {
			return errors.Wrap(err, "getting password input")
		}

		err := Do(ctx, email, password)
		if errors.Cause(err) == client.ErrInvalidLogin {
			log.Error("wrong credentials\n")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "logging in")
		}

		log.Success("logged in\n")

		return nil
	}
}
