// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh/spinner"
)

// RunWithSpinner runs action while a spinner titled title is shown on
// stderr. In accessible mode, or when stderr is not a terminal, the action
// runs without a spinner.
func RunWithSpinner(ctx context.Context, title string, cfg Config, action func(context.Context) error) error {
	if cfg.Accessible || !IsOutputTerminal() {
		return action(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- action(ctx)
	}()

	var actionErr error
	spinErr := spinner.New().
		Title(title).
		Action(func() {
			select {
			case actionErr = <-errCh:
			case <-ctx.Done():
				actionErr = ctx.Err()
			}
		}).
		Run()
	if spinErr != nil {
		return fmt.Errorf("spinner error: %w", spinErr)
	}

	return actionErr
}
