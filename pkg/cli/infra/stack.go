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

package infra

import (
	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/client"
	"github.com/quillnote/quill/pkg/cli/context"
	"github.com/quillnote/quill/pkg/cli/session"
	"github.com/quillnote/quill/pkg/cli/sync"
)

// SyncStack bundles the collaborators needed to run a reconciliation
type SyncStack struct {
	Client   *client.Client
	Sessions *session.Store
	Auth     *session.Coordinator
	Metadata *sync.MetadataStore
	Engine   *sync.Engine
}

// NewSyncStack wires a sync engine and its collaborators from the context
func NewSyncStack(ctx context.QuillCtx) (*SyncStack, error) {
	cl := client.New(ctx.APIEndpoint, ctx.Version)
	if ctx.HTTPClient != nil {
		cl.HTTP = ctx.HTTPClient
	}

	sessions := session.NewStore(ctx.DB)
	auth := session.NewCoordinator(sessions, cl.RefreshSession, ctx.Clock)
	meta := sync.NewMetadataStore(ctx.DB)

	engine, err := sync.NewEngine(sync.Config{
		DB:       ctx.DB,
		Metadata: meta,
		Remote:   cl,
		Auth:     auth,
		Clock:    ctx.Clock,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building sync engine")
	}

	return &SyncStack{
		Client:   cl,
		Sessions: sessions,
		Auth:     auth,
		Metadata: meta,
		Engine:   engine,
	}, nil
}
