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

// Package validate validates user input before it reaches the network
package validate

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrEmailInvalid is an error for an invalid email address
var ErrEmailInvalid = errors.New("invalid email address")

// ErrPasswordTooShort is an error for a password shorter than 8 characters
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ErrUsernameInvalid is an error for an invalid username
var ErrUsernameInvalid = errors.New("username must be 3-32 alphanumeric characters")

var v = validator.New()

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type registerInput struct {
	Username string `validate:"required,min=3,max=32,alphanum"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

// Login validates login credentials
func Login(email, password string) error {
	err := v.Struct(loginInput{Email: email, Password: password})
	if err == nil {
		return nil
	}

	return translate(err)
}

// Register validates registration input
func Register(username, email, password string) error {
	err := v.Struct(registerInput{Username: username, Email: email, Password: password})
	if err == nil {
		return nil
	}

	return translate(err)
}

func translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validating input")
	}

	switch fieldErrs[0].Field() {
	case "Email":
		return ErrEmailInvalid
	case "Password":
		return ErrPasswordTooShort
	case "Username":
		return ErrUsernameInvalid
	default:
		return errors.Wrap(err, "validating input")
	}
}
