// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// ConfirmOptions configures the Confirm component.
type ConfirmOptions struct {
	// Title is the question displayed to the user.
	Title string
	// Description provides additional context below the title.
	Description string
	// Affirmative is the label for the "yes" answer.
	Affirmative string
	// Negative is the label for the "no" answer.
	Negative string
	// Default is the pre-selected answer.
	Default bool
	// Config holds common TUI configuration.
	Config Config
}

// Confirm asks a yes/no question. Cancelling the prompt answers "no".
func Confirm(ctx context.Context, opts ConfirmOptions) (bool, error) {
	result := opts.Default

	affirmative, negative := opts.Affirmative, opts.Negative
	if affirmative == "" {
		affirmative = "Yes"
	}
	if negative == "" {
		negative = "No"
	}

	field := huh.NewConfirm().
		Title(opts.Title).
		Description(opts.Description).
		Affirmative(affirmative).
		Negative(negative).
		Value(&result)

	if err := newForm(opts.Config, field).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}

	return result, nil
}
