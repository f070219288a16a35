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

// Package sync implements the reconciliation engine that brings the local
// note store and the remote service into agreement
package sync

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/quillnote/quill/pkg/cli/client"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/database"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/clock"
)

// RemoteAPI is the subset of the server API the engine needs. It is satisfied
// by *client.Client.
type RemoteAPI interface {
	ListNotes(ctx context.Context, token string, page, pageSize int) (client.NotesPage, error)
	CreateNote(ctx context.Context, token string, payload client.CreateNotePayload) (client.RemoteNote, error)
	UpdateNote(ctx context.Context, token, uuid string, payload client.UpdateNotePayload) (client.RemoteNote, error)
	DeleteNote(ctx context.Context, token, uuid string) error
}

// Authenticator runs a call with a valid access token, refreshing it when
// needed. It is satisfied by *session.Coordinator.
type Authenticator interface {
	Do(ctx context.Context, fn func(token string) error) error
}

// Config holds the options for NewEngine
type Config struct {
	DB       *database.DB
	Metadata *MetadataStore
	Remote   RemoteAPI
	Auth     Authenticator
	Clock    clock.Clock
	// PageSize is the number of notes per download page. Defaults to consts.PageSize.
	PageSize int
	// Pacer spaces out individual delete/upload calls. Defaults to one call
	// per consts.SyncItemInterval.
	Pacer *rate.Limiter
}

// Engine performs reconciliation runs against the local store and the remote
// service. A run is an ordered pipeline: download, then deletion, then upload.
type Engine struct {
	db       *database.DB
	meta     *MetadataStore
	remote   RemoteAPI
	auth     Authenticator
	clock    clock.Clock
	pageSize int
	pacer    *rate.Limiter
}

// Report summarizes one reconciliation run
type Report struct {
	// Skipped is true when the run was refused because another run was in progress
	Skipped bool
	// Partial is true when at least one item or page failed and was left for a future run
	Partial    bool
	Downloaded int
	Deleted    int
	Uploaded   int
}

// NewEngine returns an engine for the given configuration. A syncing flag left
// stuck by a crashed run is cleared here, before any run can be refused by it.
func NewEngine(cfg Config) (*Engine, error) {
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = consts.PageSize
	}

	pacer := cfg.Pacer
	if pacer == nil {
		pacer = rate.NewLimiter(rate.Every(consts.SyncItemInterval), 1)
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	e := &Engine{
		db:       cfg.DB,
		meta:     cfg.Metadata,
		remote:   cfg.Remote,
		auth:     cfg.Auth,
		clock:    c,
		pageSize: pageSize,
		pacer:    pacer,
	}

	if err := e.meta.ResetStuckSyncing(); err != nil {
		return nil, errors.Wrap(err, "recovering stuck syncing flag")
	}

	return e, nil
}

// RunOnce performs one reconciliation run. It is idempotent and safe to invoke
// repeatedly. If a run is already in progress it is a no-op. Per-item and
// per-page failures never abort the run; they are retried by a future run.
func (e *Engine) RunOnce(ctx context.Context) (Report, error) {
	var rep Report

	m, err := e.meta.Load()
	if err != nil {
		return rep, errors.Wrap(err, "loading sync metadata")
	}
	if m.Syncing {
		log.Debug("reconciliation already in progress, skipping\n")
		rep.Skipped = true
		return rep, nil
	}

	if err := e.meta.SetSyncing(true); err != nil {
		return rep, errors.Wrap(err, "setting syncing flag")
	}
	defer func() {
		// the mutual-exclusion flag must never stay stuck after a run
		if err := e.meta.SetSyncing(false); err != nil {
			log.Errorf("clearing syncing flag: %v\n", err)
		}
	}()

	remote := e.download(ctx, &rep)
	if err := e.meta.SetLastDownloadedTime(e.clock.Now()); err != nil {
		log.Debug("recording last downloaded time: %v\n", err)
		rep.Partial = true
	}

	e.deleteTombstones(ctx, &rep)
	e.upload(ctx, remote, &rep)

	if err := e.meta.SetLastUploadedTime(e.clock.Now()); err != nil {
		log.Debug("recording last uploaded time: %v\n", err)
		rep.Partial = true
	}

	log.Debug("reconciliation run done: %+v\n", rep)

	return rep, nil
}

// download pages through the remote notes and upserts them locally. A failing
// page stops further downloading for this run but keeps the pages already
// applied; downloading is monotonically progress-making and resumes next run.
// It returns the remote note set as observed, possibly partial.
func (e *Engine) download(ctx context.Context, rep *Report) map[string]client.RemoteNote {
	seen := map[string]client.RemoteNote{}

	for page := 1; ; page++ {
		var pg client.NotesPage
		err := e.auth.Do(ctx, func(token string) error {
			var err error
			pg, err = e.remote.ListNotes(ctx, token, page, e.pageSize)
			return err
		})
		if err != nil {
			log.Debug("downloading page %d failed: %v\n", page, err)
			rep.Partial = true
			return seen
		}

		for _, rn := range pg.Notes {
			n := database.NewNote(rn.UUID, rn.Title, rn.Content, rn.CreatedAt, rn.LastEditedAt, true, false)
			if err := database.UpsertRemote(e.db, n); err != nil {
				log.Debug("upserting note %s failed: %v\n", rn.UUID, err)
				rep.Partial = true
				continue
			}
			seen[rn.UUID] = rn
			rep.Downloaded++
		}

		if len(pg.Notes) == 0 || len(seen) >= pg.Total {
			return seen
		}
	}
}

// deleteTombstones propagates local tombstones to the remote and purges the
// rows whose remote deletion succeeded. Each deletion is attempted
// independently; one failure does not block the rest.
func (e *Engine) deleteTombstones(ctx context.Context, rep *Report) {
	tombstones, err := database.GetTombstonedNotes(e.db)
	if err != nil {
		log.Debug("listing tombstones failed: %v\n", err)
		rep.Partial = true
		return
	}

	for _, n := range tombstones {
		if err := e.pacer.Wait(ctx); err != nil {
			rep.Partial = true
			return
		}

		err := e.auth.Do(ctx, func(token string) error {
			return e.remote.DeleteNote(ctx, token, n.UUID)
		})
		if err != nil && !client.IsNotFoundError(err) {
			log.Debug("deleting note %s remotely failed: %v\n", n.UUID, err)
			rep.Partial = true
			continue
		}

		if err := n.Expunge(e.db); err != nil {
			log.Debug("expunging note %s failed: %v\n", n.UUID, err)
			rep.Partial = true
			continue
		}

		rep.Deleted++
	}
}

// upload sends every unsynced local note to the remote. A note present in the
// observed remote set is updated, otherwise created. The local copy always
// wins once it reaches this phase.
func (e *Engine) upload(ctx context.Context, remote map[string]client.RemoteNote, rep *Report) {
	notes, err := database.GetUnsyncedNotes(e.db)
	if err != nil {
		log.Debug("listing unsynced notes failed: %v\n", err)
		rep.Partial = true
		return
	}

	for _, n := range notes {
		if err := e.pacer.Wait(ctx); err != nil {
			rep.Partial = true
			return
		}

		if _, ok := remote[n.UUID]; ok {
			err = e.updateRemote(ctx, n)
		} else {
			err = e.createRemote(ctx, &n)
		}
		if err != nil {
			log.Debug("uploading note %s failed: %v\n", n.UUID, err)
			rep.Partial = true
			continue
		}

		if err := n.UpdateSynced(e.db, true); err != nil {
			log.Debug("marking note %s synced failed: %v\n", n.UUID, err)
			rep.Partial = true
			continue
		}

		rep.Uploaded++
	}
}

func (e *Engine) updateRemote(ctx context.Context, n database.Note) error {
	payload := client.UpdateNotePayload{
		Title:        n.Title,
		Content:      n.Content,
		LastEditedAt: n.LastEditedAt,
	}

	return e.auth.Do(ctx, func(token string) error {
		_, err := e.remote.UpdateNote(ctx, token, n.UUID, payload)
		return err
	})
}

func (e *Engine) createRemote(ctx context.Context, n *database.Note) error {
	payload := client.CreateNotePayload{
		UUID:         n.UUID,
		Title:        n.Title,
		Content:      n.Content,
		CreatedAt:    n.CreatedAt,
		LastEditedAt: n.LastEditedAt,
	}

	var created client.RemoteNote
	err := e.auth.Do(ctx, func(token string) error {
		var err error
		created, err = e.remote.CreateNote(ctx, token, payload)
		return err
	})
	if err != nil {
		return err
	}

	// adopt a server-assigned uuid, keeping the note's identity
	if created.UUID != "" && created.UUID != n.UUID {
		if err := n.UpdateUUID(e.db, created.UUID); err != nil {
			return err
		}
	}

	return nil
}
