// SPDX-License-Identifier: EPL-2.0

package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

var (
	// ErrNoOptions is returned when a prompt has nothing to choose from.
	ErrNoOptions = errors.New("no options to choose from")
	// ErrAborted is returned when the user cancels a prompt.
	ErrAborted = errors.New("user aborted")
)

// Option represents a selectable option with a display title and value.
type Option[T comparable] struct {
	// Title is the display text for the option.
	Title string
	// Value is the underlying value of the option.
	Value T
}

// ChooseOptions configures the Choose component.
type ChooseOptions[T comparable] struct {
	// Title is the title/prompt displayed above the options.
	Title string
	// Description provides additional context below the title.
	Description string
	// Options is the list of options to choose from.
	Options []Option[T]
	// Height limits the number of visible options (0 for auto).
	Height int
	// Config holds common TUI configuration.
	Config Config
}

// Choose prompts the user to select one option from a list.
// Returns the selected value, ErrAborted if the prompt was cancelled, or
// the context error if ctx ends first.
func Choose[T comparable](ctx context.Context, opts ChooseOptions[T]) (T, error) {
	var result T

	if len(opts.Options) == 0 {
		return result, ErrNoOptions
	}

	huhOpts := make([]huh.Option[T], len(opts.Options))
	for i, opt := range opts.Options {
		huhOpts[i] = huh.NewOption(opt.Title, opt.Value)
	}

	sel := huh.NewSelect[T]().
		Title(opts.Title).
		Description(opts.Description).
		Options(huhOpts...).
		Value(&result)

	if opts.Height > 0 {
		sel = sel.Height(opts.Height)
	}

	if err := newForm(opts.Config, sel).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return result, ErrAborted
		}
		return result, err
	}

	return result, nil
}

// ChooseStrings is a convenience function for choosing from string options.
// The option titles and values are the same.
func ChooseStrings(ctx context.Context, title string, options []string, config Config) (string, error) {
	opts := make([]Option[string], len(options))
	for i, o := range options {
		opts[i] = Option[string]{Title: o, Value: o}
	}
	return Choose(ctx, ChooseOptions[string]{
		Title:   title,
		Options: opts,
		Config:  config,
	})
}

// Chooser prompts for one entry of a list and reports its index.
// A single option is returned without prompting.
type Chooser struct {
	Config Config
	// Height limits the number of visible options (0 for auto).
	Height int
}

// NewChooser returns a Chooser using DefaultConfig.
func NewChooser() *Chooser {
	return &Chooser{Config: DefaultConfig()}
}

// Choose implements the selection facade's chooser contract.
func (c *Chooser) Choose(ctx context.Context, title string, options []string) (int, error) {
	switch len(options) {
	case 0:
		return -1, ErrNoOptions
	case 1:
		return 0, nil
	}

	opts := make([]Option[int], len(options))
	for i, o := range options {
		opts[i] = Option[int]{Title: o, Value: i}
	}

	idx, err := Choose(ctx, ChooseOptions[int]{
		Title:   title,
		Options: opts,
		Height:  c.Height,
		Config:  c.Config,
	})
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(options) {
		return -1, fmt.Errorf("selection %d out of range [0, %d)", idx, len(options))
	}
	return idx, nil
}
