// Package adminfix restores the built-in admin account in the flat-file user
// store: it marks the account verified and admin and clears any pending
// verification code.
package adminfix

import (
	"context"
	"errors"
	"fmt"

	"bloom/internal/flatfile"
)

// ErrUserNotFound is returned when no record carries the target email.
var ErrUserNotFound = errors.New("user not found")

// Result describes a successful fix.
type Result struct {
	Path  string
	Email string
	// Index is the position of the patched record in the array.
	Index int
}

// Fix patches the first record in path whose email equals email and rewrites
// the file. When no record matches, the file is left untouched and the error
// wraps ErrUserNotFound.
func Fix(ctx context.Context, path, email string) (*Result, error) {
	f, err := flatfile.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rec, idx := f.FindByEmail(email)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	if err := Promote(rec); err != nil {
		return nil, err
	}
	if err := f.Save(); err != nil {
		return nil, err
	}
	return &Result{Path: path, Email: email, Index: idx}, nil
}

// Promote sets the admin fields on rec and leaves every other field as is.
func Promote(rec *flatfile.Record) error {
	updates := []struct {
		key   string
		value any
	}{
		{"emailVerified", true},
		{"isAdmin", true},
		{"verificationCode", nil},
		{"verificationCodeExpiry", nil},
	}
	for _, u := range updates {
		if err := rec.Set(u.key, u.value); err != nil {
			return err
		}
	}
	return nil
}

// Admin is a summary of an admin record.
type Admin struct {
	Email    string
	Verified bool
}

// ListAdmins returns every record with isAdmin set, under a shared lock.
func ListAdmins(ctx context.Context, path string) ([]Admin, error) {
	f, err := flatfile.OpenReadOnly(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var admins []Admin
	for _, rec := range f.Records {
		if rec == nil {
			continue
		}
		if isAdmin, _ := rec.Bool("isAdmin"); !isAdmin {
			continue
		}
		email, _ := rec.String("email")
		verified, _ := rec.Bool("emailVerified")
		admins = append(admins, Admin{Email: email, Verified: verified})
	}
	return admins, nil
}
