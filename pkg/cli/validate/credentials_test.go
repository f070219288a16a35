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

package validate

import (
	"fmt"
	"testing"

	"github.com/quillnote/quill/pkg/assert"
)

func TestLogin(t *testing.T) {
	testCases := []struct {
		email    string
		password string
		expected error
	}{
		{
			email:    "mila@example.com",
			password: "oldpassword",
			expected: nil,
		},
		{
			email:    "",
			password: "oldpassword",
			expected: ErrEmailInvalid,
		},
		{
			email:    "not-an-email",
			password: "oldpassword",
			expected: ErrEmailInvalid,
		},
		{
			email:    "mila@example.com",
			password: "",
			expected: ErrPasswordTooShort,
		},
		{
			email:    "mila@example.com",
			password: "short",
			expected: ErrPasswordTooShort,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			err := Login(tc.email, tc.password)

			assert.Equal(t, err, tc.expected, "error mismatch")
		})
	}
}

func TestRegister(t *testing.T) {
	testCases := []struct {
		username string
		email    string
		password string
		expected error
	}{
		{
			username: "mila",
			email:    "mila@example.com",
			password: "oldpassword",
			expected: nil,
		},
		{
			username: "",
			email:    "mila@example.com",
			password: "oldpassword",
			expected: ErrUsernameInvalid,
		},
		{
			username: "ab",
			email:    "mila@example.com",
			password: "oldpassword",
			expected: ErrUsernameInvalid,
		},
		{
			username: "has spaces",
			email:    "mila@example.com",
			password: "oldpassword",
			expected: ErrUsernameInvalid,
		},
		{
			username: "mila",
			email:    "not-an-email",
			password: "oldpassword",
			expected: ErrEmailInvalid,
		},
		{
			username: "mila",
			email:    "mila@example.com",
			password: "short",
			expected: ErrPasswordTooShort,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			err := Register(tc.username, tc.email, tc.password)

			assert.Equal(t, err, tc.expected, "error mismatch")
		})
	}
}
