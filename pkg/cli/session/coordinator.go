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

package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/quillnote/quill/pkg/cli/client"
	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/log"
	"github.com/quillnote/quill/pkg/clock"
)

// ErrNotLoggedIn is an error for performing an authenticated call without a session
var ErrNotLoggedIn = errors.New("not logged in")

// RefreshFunc exchanges a refresh token for a new credential pair over the network
type RefreshFunc func(ctx context.Context, refreshToken string) (client.Credential, error)

// refreshCall is one in-flight refresh shared by all concurrent callers
type refreshCall struct {
	done chan struct{}
	ses  *Session
	err  error
}

// Coordinator owns the current credential pair. It hands out valid tokens
// without blocking on the network and single-flights token refreshes: any
// number of concurrent callers share one network refresh.
type Coordinator struct {
	store   *Store
	refresh RefreshFunc
	clock   clock.Clock

	mu       sync.Mutex
	inflight *refreshCall
}

// NewCoordinator returns a coordinator over the given store
func NewCoordinator(store *Store, refresh RefreshFunc, c clock.Clock) *Coordinator {
	return &Coordinator{
		store:   store,
		refresh: refresh,
		clock:   c,
	}
}

// ValidCredential returns the current session if one exists, or nil when
// logged out. It never blocks on the network.
func (c *Coordinator) ValidCredential() (*Session, error) {
	return c.store.Get()
}

// RequireCredential returns the current session, or ErrNotLoggedIn when no
// session exists. It never blocks on the network.
func (c *Coordinator) RequireCredential() (*Session, error) {
	ses, err := c.store.Get()
	if err != nil {
		return nil, errors.Wrap(err, "reading session")
	}
	if ses == nil {
		return nil, ErrNotLoggedIn
	}

	return ses, nil
}

// Stale reports whether the given access token is expired or will expire
// within the skew window. The token is parsed without signature verification;
// only the server can verify it, the client merely avoids sending a request
// that is sure to be rejected.
func (c *Coordinator) Stale(accessToken string) bool {
	exp, ok := expiryOf(accessToken)
	if !ok {
		// not a jwt, or no expiry claim; let the server be the judge
		return false
	}

	return !c.clock.Now().Add(consts.TokenExpirySkew).Before(exp)
}

// Refresh performs a network token refresh. Concurrent callers await the same
// in-flight result. On success the new session is persisted and returned. On
// failure the session is cleared and nil is returned, which forces observers
// of the session store out of the logged-in state.
func (c *Coordinator) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	if call := c.inflight; call != nil {
		c.mu.Unlock()

		select {
		case <-call.done:
			return call.ses, call.err
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for in-flight refresh")
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.mu.Unlock()

	call.ses, call.err = c.doRefresh(ctx)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(call.done)

	return call.ses, call.err
}

func (c *Coordinator) doRefresh(ctx context.Context) (*Session, error) {
	cur, err := c.store.Get()
	if err != nil {
		return nil, errors.Wrap(err, "reading session")
	}
	if cur == nil {
		return nil, ErrNotLoggedIn
	}

	cred, err := c.refresh(ctx, cur.RefreshToken)
	if err != nil {
		log.Debug("token refresh failed, clearing session: %v\n", err)

		if cerr := c.store.Clear(); cerr != nil {
			return nil, errors.Wrap(cerr, "clearing session after failed refresh")
		}

		return nil, errors.Wrap(err, "refreshing token")
	}

	username := cred.Username
	if username == "" {
		username = cur.Username
	}

	ses := Session{
		Username:     username,
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if err := c.store.Put(ses); err != nil {
		return nil, errors.Wrap(err, "saving refreshed session")
	}

	return &ses, nil
}

// Do runs fn with a valid access token. A stale token is refreshed up front.
// If fn fails with an authentication error, the token is refreshed once and fn
// is retried once; a second consecutive authentication failure is fatal for
// the call.
func (c *Coordinator) Do(ctx context.Context, fn func(token string) error) error {
	ses, err := c.store.Get()
	if err != nil {
		return errors.Wrap(err, "reading session")
	}
	if ses == nil {
		return ErrNotLoggedIn
	}

	if c.Stale(ses.AccessToken) {
		ses, err = c.Refresh(ctx)
		if err != nil {
			return errors.Wrap(err, "refreshing stale token")
		}
		if ses == nil {
			return ErrNotLoggedIn
		}
	}

	err = fn(ses.AccessToken)
	if err == nil || !client.IsAuthError(err) {
		return err
	}

	ses, rerr := c.Refresh(ctx)
	if rerr != nil {
		return errors.Wrap(err, "authenticating request")
	}
	if ses == nil {
		return ErrNotLoggedIn
	}

	return fn(ses.AccessToken)
}

// expiryOf returns the expiration claim of the given token, parsed without
// signature verification
func expiryOf(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
