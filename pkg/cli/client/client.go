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

// Package client provides interfaces for interacting with the Quill server
// and the data structures for responses
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/quillnote/quill/pkg/cli/consts"
	"github.com/quillnote/quill/pkg/cli/log"
)

// ErrInvalidLogin is an error for invalid credentials for login
var ErrInvalidLogin = errors.New("wrong credentials")

// ErrDuplicateUser is an error for registering an already existing user
var ErrDuplicateUser = errors.New("user already exists")

// ErrInvalidRefreshToken is an error for a refresh token the server rejected
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// HTTPError represents an HTTP error response from the server
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`response %d "%s"`, e.StatusCode, e.Message)
}

// IsAuth returns true if the error is a 401 Unauthorized error
func (e *HTTPError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsConflict returns true if the error is a 409 Conflict error
func (e *HTTPError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsNotFound returns true if the error is a 404 Not Found error
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsAuthError checks if the given error carries a 401 response from the server
func IsAuthError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsAuth()
	}

	return false
}

// IsConflictError checks if the given error carries a 409 response from the server
func IsConflictError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsConflict()
	}

	return false
}

// IsNotFoundError checks if the given error carries a 404 response from the server
func IsNotFoundError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsNotFound()
	}

	return false
}

const (
	// clientRateLimitPerSecond is the max requests per second the client will make
	clientRateLimitPerSecond = 50
	// clientRateLimitBurst is the burst capacity for rate limiting
	clientRateLimitBurst = 100
)

// rateLimitedTransport wraps an http.RoundTripper with rate limiting
type rateLimitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.transport.RoundTrip(req)
}

// NewRateLimitedHTTPClient creates an HTTP client with rate limiting. The
// client timeout caps every call so that a hung request cannot stall a
// reconciliation run with the syncing flag held.
func NewRateLimitedHTTPClient() *http.Client {
	interval := time.Second / time.Duration(clientRateLimitPerSecond)

	transport := &rateLimitedTransport{
		transport: http.DefaultTransport,
		limiter:   rate.NewLimiter(rate.Every(interval), clientRateLimitBurst),
	}
	return &http.Client{
		Transport: transport,
		Timeout:   consts.RequestTimeout,
	}
}

// Client is a client to the Quill server API
type Client struct {
	// Endpoint is the base URL of the API, without a trailing slash
	Endpoint string
	// Version is the client version reported to the server
	Version string
	// HTTP is the underlying http client. If nil, a rate-limited client is used.
	HTTP *http.Client
}

// New returns a client for the given endpoint
func New(endpoint, version string) *Client {
	return &Client{
		Endpoint: endpoint,
		Version:  version,
		HTTP:     NewRateLimitedHTTPClient(),
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	return &http.Client{Timeout: consts.RequestTimeout}
}

func (c *Client) getReq(ctx context.Context, method, path, token, body string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s%s", c.Endpoint, path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "constructing http request")
	}

	req.Header.Set("CLI-Version", c.Version)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	return req, nil
}

// checkRespErr checks if the given http response indicates an error. It returns
// a decoded error message if so.
func checkRespErr(res *http.Response) error {
	if res.StatusCode < 400 {
		return nil
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "server responded with %d but client could not read the response body", res.StatusCode)
	}

	return &HTTPError{
		StatusCode: res.StatusCode,
		Message:    strings.TrimRight(string(body), "\n"),
	}
}

// doReq does a http request to the given path in the api endpoint
func (c *Client) doReq(ctx context.Context, method, path, token, body string) (*http.Response, error) {
	req, err := c.getReq(ctx, method, path, token, body)
	if err != nil {
		return nil, errors.Wrap(err, "getting request")
	}

	log.Debug("HTTP %s %s\n", method, path)

	res, err := c.httpClient().Do(req)
	if err != nil {
		return res, errors.Wrap(err, "making http request")
	}

	log.Debug("HTTP %d %s\n", res.StatusCode, res.Status)

	if err = checkRespErr(res); err != nil {
		return res, errors.Wrap(err, "server responded with an error")
	}

	return res, nil
}

func decodeResp(res *http.Response, dest interface{}) error {
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return errors.Wrap(err, "decoding response payload")
	}

	return nil
}

// Credential is an access/refresh token pair for an authenticated session
type Credential struct {
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SigninPayload is a payload for the signin endpoint
type SigninPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signin requests a new session
func (c *Client) Signin(ctx context.Context, email, password string) (Credential, error) {
	b, err := json.Marshal(SigninPayload{Email: email, Password: password})
	if err != nil {
		return Credential{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq(ctx, "POST", "/v1/signin", "", string(b))
	if err != nil {
		if IsAuthError(err) {
			return Credential{}, ErrInvalidLogin
		}
		return Credential{}, errors.Wrap(err, "making http request")
	}

	var cred Credential
	if err := decodeResp(res, &cred); err != nil {
		return Credential{}, err
	}

	return cred, nil
}

// RegisterPayload is a payload for the register endpoint
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	b, err := json.Marshal(RegisterPayload{Username: username, Email: email, Password: password})
	if err != nil {
		return errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq(ctx, "POST", "/v1/register", "", string(b))
	if err != nil {
		if IsConflictError(err) {
			return ErrDuplicateUser
		}
		return errors.Wrap(err, "making http request")
	}
	res.Body.Close()

	return nil
}

type refreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshSession exchanges a refresh token for a new credential pair
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (Credential, error) {
	b, err := json.Marshal(refreshPayload{RefreshToken: refreshToken})
	if err != nil {
		return Credential{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq(ctx, "POST", "/v1/token/refresh", "", string(b))
	if err != nil {
		if IsAuthError(err) {
			return Credential{}, ErrInvalidRefreshToken
		}
		return Credential{}, errors.Wrap(err, "making http request")
	}

	var cred Credential
	if err := decodeResp(res, &cred); err != nil {
		return Credential{}, err
	}

	return cred, nil
}

// Signout deletes the session on the server side
func (c *Client) Signout(ctx context.Context, refreshToken string) error {
	b, err := json.Marshal(refreshPayload{RefreshToken: refreshToken})
	if err != nil {
		return errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq(ctx, "POST", "/v1/signout", "", string(b))
	if err != nil {
		return errors.Wrap(err, "making http request")
	}
	res.Body.Close()

	return nil
}

// RemoteNote is a note as represented by the server
type RemoteNote struct {
	UUID         string    `json:"uuid"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

// NotesPage is one page of the server's note listing
type NotesPage struct {
	Notes []RemoteNote `json:"notes"`
	Total int          `json:"total"`
}

// ListNotes fetches one page of the server's notes
func (c *Client) ListNotes(ctx context.Context, token string, page, pageSize int) (NotesPage, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(pageSize))

	path := fmt.Sprintf("/v1/notes?%s", v.Encode())
	res, err := c.doReq(ctx, "GET", path, token, "")
	if err != nil {
		return NotesPage{}, errors.Wrap(err, "listing notes")
	}

	var ret NotesPage
	if err := decodeResp(res, &ret); err != nil {
		return NotesPage{}, err
	}

	return ret, nil
}

// CreateNotePayload is a payload for creating a note
type CreateNotePayload struct {
	UUID         string    `json:"uuid"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

// CreateNote creates a note in the server. The server echoes the note it
// stored; it may assign a different uuid, in which case the caller must adopt
// the server's.
func (c *Client) CreateNote(ctx context.Context, token string, payload CreateNotePayload) (RemoteNote, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return RemoteNote{}, errors.Wrap(err, "marshaling payload")
	}

	res, err := c.doReq(ctx, "POST", "/v1/notes", token, string(b))
	if err != nil {
		return RemoteNote{}, errors.Wrap(err, "posting a note to the server")
	}

	var note RemoteNote
	if err := decodeResp(res, &note); err != nil {
		return RemoteNote{}, err
	}

	return note, nil
}

// UpdateNotePayload is a payload for updating a note
type UpdateNotePayload struct {
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

// UpdateNote updates a note in the server
func (c *Client) UpdateNote(ctx context.Context, token, uuid string, payload UpdateNotePayload) (RemoteNote, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return RemoteNote{}, errors.Wrap(err, "marshaling payload")
	}

	endpoint := fmt.Sprintf("/v1/notes/%s", uuid)
	res, err := c.doReq(ctx, "PATCH", endpoint, token, string(b))
	if err != nil {
		return RemoteNote{}, errors.Wrap(err, "patching a note in the server")
	}

	var note RemoteNote
	if err := decodeResp(res, &note); err != nil {
		return RemoteNote{}, err
	}

	return note, nil
}

// DeleteNote removes a note in the server
func (c *Client) DeleteNote(ctx context.Context, token, uuid string) error {
	endpoint := fmt.Sprintf("/v1/notes/%s", uuid)
	res, err := c.doReq(ctx, "DELETE", endpoint, token, "")
	if err != nil {
		return errors.Wrap(err, "deleting a note in the server")
	}
	res.Body.Close()

	return nil
}

// Health checks whether the server is reachable. It is used as the
// connectivity probe.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.doReq(ctx, "GET", "/v1/health", "", "")
	if err != nil {
		return errors.Wrap(err, "checking server health")
	}
	res.Body.Close()

	return nil
}
