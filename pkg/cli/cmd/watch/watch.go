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

package watch

import (
	stdctx "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/quillnote/quill/pkg/cli/connectivity"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/infra"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/cli/scheduler"
	"github.com/quillnote/quill/pkg/cli/state"
	"github.com/quillnote/quill/pkg/cli/utils"
)

var example = `
  quill watch

  * Probe connectivity every 10 seconds
  quill watch --probeInterval 10s`

var probeIntervalFlag time.Duration
var apiEndpointFlag string

// NewCmd returns a new watch command
func NewCmd(ctx context.QuillCtx) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Run the background sync daemon",
		Example: example,
		RunE:    newRun(ctx),
	}

	f := cmd.Flags()
	f.DurationVar(&probeIntervalFlag, "probeInterval", consts.ProbeInterval, "how often to probe the server for connectivity")
	f.StringVar(&apiEndpointFlag, "apiEndpoint", "", "API endpoint to connect to (defaults to value in config)")

	return cmd
}

// loadEnvOverlay applies overrides from an optional env file in the config
// directory. Values already present in the environment win.
func loadEnvOverlay(ctx context.QuillCtx) error {
	path := fmt.Sprintf("%s/%s/%s", ctx.Paths.Config, consts.QuillDirName, consts.EnvFilename)

	ok, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrap(err, "checking env file")
	}
	if !ok {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}

	log.Debug("loaded env overlay from %s\n", path)

	return nil
}

func newRun(ctx context.QuillCtx) infra.RunEFunc {
	return func(cmd *cobra.Command, args []string) error {
		if err := loadEnvOverlay(ctx); err != nil {
			return err
		}

		// Flag wins over env, env wins over config
		if endpoint := os.Getenv("QUILL_API_ENDPOINT"); endpoint != "" {
			ctx.APIEndpoint = endpoint
		}
		if apiEndpointFlag != "" {
			ctx.APIEndpoint = apiEndpointFlag
		}

		stack, err := infra.NewSyncStack(ctx)
		if err != nil {
			return errors.Wrap(err, "initializing")
		}

		conn := connectivity.NewMonitor(stack.Client.Health, probeIntervalFlag)

		gate := func() error {
			_, err := stack.Auth.RequireCredential()
			return err
		}
		sched := scheduler.New(stack.Engine, conn, gate)

		machine := state.NewMachine(state.Config{
			DB:       ctx.DB,
			Store:    stack.Sessions,
			Metadata: stack.Metadata,
			Conn:     conn,
			Sched:    sched,
			Signout:  stack.Client.Signout,
			Clock:    ctx.Clock,
		})

		runCtx, stop := signal.NotifyContext(stdctx.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		meta, err := stack.Metadata.Load()
		if err != nil {
			return errors.Wrap(err, "loading sync metadata")
		}
		if err := sched.SetInterval(meta.Interval); err != nil {
			return errors.Wrap(err, "applying sync interval")
		}

		sched.Start(runCtx)
		defer sched.Close()

		go conn.Run(runCtx)

		log.Infof("watching for changes (interval: %s)\n", meta.Interval)

		if err := machine.Run(runCtx); err != nil {
			return errors.Wrap(err, "running session state machine")
		}

		log.Infof("shutting down\n")

		return nil
	}
}
