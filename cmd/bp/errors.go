// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/battery-pack-rs/battery-pack/internal/issue"
	"github.com/battery-pack-rs/battery-pack/internal/registry"
	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/pkg/batterypack"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
	"github.com/battery-pack-rs/battery-pack/pkg/namespace"
)

// errorRule maps a sentinel to catalog guidance. Rules are checked in
// order, so more specific sentinels come first.
type errorRule struct {
	target      error
	id          issue.Id
	code        ExitCode
	suggestions []string
}

var errorRules = []errorRule{
	{composition.ErrCyclicExtension, issue.CyclicExtensionId, ExitUsage, []string{
		"Remove one of the extends entries listed in the cycle",
	}},
	{namespace.ErrNameCollision, issue.NameCollisionId, ExitUsage, []string{
		"Give one of the crates an alias in the extending pack",
		"Declare the crate in the root pack with override = true to replace the inherited one",
	}},
	{namespace.ErrUnknownPlacement, issue.ManifestParseErrorId, ExitUsage, []string{
		"Place only dependencies the pack declares, or packs it extends",
		"Check that the key is spelled as in [dependencies]",
	}},
	{namespace.ErrEmptyNamespace, issue.EmptyNamespaceId, ExitUsage, []string{
		"Add at least one crate or extends entry to the manifest",
		"Check that exclude does not remove every inherited crate",
	}},
	{batterypack.ErrMalformedManifest, issue.ManifestParseErrorId, ExitUsage, []string{
		"Check the field named in the error against the manifest schema",
	}},
	{batterypack.ErrInvalidName, issue.InvalidPackNameId, ExitUsage, []string{
		"Pack names are lowercase crate names ending in -battery-pack",
	}},
	{batterypack.ErrInvalidCrateName, issue.InvalidPackNameId, ExitUsage, nil},
	{batterypack.ErrInvalidCrateAlias, issue.InvalidPackNameId, ExitUsage, nil},
	{batterypack.ErrInvalidVersionConstraint, issue.VersionNotFoundId, ExitUsage, []string{
		"Use a cargo requirement such as 0.3, ^1.2 or >=1.0, <2",
	}},
	{templates.ErrIntegrityFailure, issue.IntegrityFailureId, ExitIntegrity, []string{
		"Retry; a corrupted download is discarded and fetched again",
		"Run 'bp cache invalidate <pack>' if the problem persists",
	}},
	{registry.ErrUpstreamDown, issue.RegistryUnavailableId, ExitUnavailable, []string{
		"Retry in a minute; bp stops calling an unhealthy registry for a while",
	}},
	{registry.ErrRateLimited, issue.RegistryUnavailableId, ExitUnavailable, []string{
		"Wait before retrying; crates.io limits request rates",
	}},
	{composition.ErrPackNotFound, issue.PackNotFoundId, ExitUsage, []string{
		"Use 'bp search' to find published battery packs",
		"Pass --packs-dir to resolve unpublished packs from a local directory",
	}},
	{composition.ErrUnresolvedExtension, issue.PackNotFoundId, ExitUsage, nil},
	{templates.ErrNotPublished, issue.PackNotFoundId, ExitUsage, []string{
		"Use 'bp search' to find published battery packs",
	}},
	{registry.ErrCrateNotFound, issue.PackNotFoundId, ExitUsage, []string{
		"Use 'bp search' to find published battery packs",
	}},
	{templates.ErrVersionNotFound, issue.VersionNotFoundId, ExitUsage, []string{
		"Drop --version to use the newest release",
	}},
	{templates.ErrNoVersions, issue.VersionNotFoundId, ExitUsage, nil},
	{batterypack.ErrNoMatchingVersion, issue.VersionNotFoundId, ExitUsage, nil},
	{batterypack.ErrTemplateAmbiguous, issue.TemplateChoiceId, ExitUsage, []string{
		"Pass --template with one of the listed names",
	}},
	{batterypack.ErrTemplateNotFound, issue.TemplateChoiceId, ExitUsage, []string{
		"Run 'bp show <pack>' to list its templates",
	}},
	{batterypack.ErrNoTemplates, issue.TemplateChoiceId, ExitUsage, nil},
	{selection.ErrTemplateOutsidePack, issue.TemplateChoiceId, ExitUsage, nil},
	{batterypack.ErrDependencyExists, 0, ExitUsage, []string{
		"Edit the existing entry in Cargo.toml, or rewrite it as key = { ... } on one line",
	}},
	{selection.ErrDestinationNotEmpty, 0, ExitUsage, []string{
		"Choose another --dir or empty the destination first",
	}},
	{templates.ErrFetchFailed, issue.FetchFailedId, ExitUnavailable, []string{
		"Check your network connection",
		"Run with --verbose to see the failing request",
	}},
	{fs.ErrPermission, issue.PermissionDeniedId, ExitFailure, nil},
	{fs.ErrNotExist, issue.ManifestNotFoundId, ExitUsage, nil},
}

// classifyError wraps err in an ActionableError for operation on resource,
// attaching the catalog entry and suggestions of the first matching rule.
// An err that already is an ActionableError is kept.
func classifyError(operation, resource string, err error) (*issue.ActionableError, ExitCode) {
	code := ExitFailure
	var rule *errorRule
	for i := range errorRules {
		if errors.Is(err, errorRules[i].target) {
			rule = &errorRules[i]
			code = rule.code
			break
		}
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae, code
	}

	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)
	if rule != nil {
		ctx = ctx.WithIssue(rule.id).WithSuggestions(rule.suggestions...)
	}
	return ctx.Build(), code
}

// fail reports err to the user and returns the ExitError the command
// should return. Suggestions are printed here; fang prints the message.
func (a *App) fail(operation, resource string, err error) error {
	if err == nil {
		return nil
	}
	ae, code := classifyError(operation, resource, err)
	renderGuidance(a.stderr, ae, a.verbose)
	return &ExitError{Code: code, Err: ae}
}

// renderGuidance prints the suggestions. In verbose mode it prints the full
// error chain and the catalog entry instead.
func renderGuidance(w io.Writer, ae *issue.ActionableError, verbose bool) {
	if !verbose {
		for _, s := range ae.Suggestions {
			fmt.Fprintln(w, SubtitleStyle.Render("  • "+s))
		}
		return
	}

	fmt.Fprintln(w, ae.Format(true))

	if guidance := ae.Guidance(); guidance != nil {
		rendered, err := guidance.Render("dark")
		if err != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", guidance.Id(), "error", err)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
