// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	InvalidPackNameId
	PackNotFoundId
	CyclicExtensionId
	NameCollisionId
	EmptyNamespaceId
	FetchFailedId
	IntegrityFailureId
	VersionNotFoundId
	TemplateChoiceId
	RegistryUnavailableId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // project documentation about this issue type
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown with the given glamour style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
		for _, link := range i.extLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

const docsBase = "https://github.com/battery-pack-rs/battery-pack/blob/main/docs/"

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No pack manifest found!

A battery pack is described either by a ` + "`<name>.cue`" + ` file or by the
` + "`Cargo.toml`" + ` of a crate carrying a ` + "`[package.metadata.battery]`" + ` table.

## Things you can try:
- Point ` + "`bp resolve`" + ` at the manifest file or the pack directory:
~~~
$ bp resolve ./cli-battery-pack/Cargo.toml
~~~
- Pass ` + "`--packs-dir`" + ` when parent packs live next to each other on disk`,
		docLinks: []HttpLink{docsBase + "manifest.md"},
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the pack manifest!

The manifest does not match the battery pack schema.

## Minimal CUE manifest:
~~~cue
name:    "cli-battery-pack"
crates:  [{name: "clap", version: "4"}]
extends: ["error-battery-pack"]
~~~

## Things you can try:
- Check the field named in the error above
- Crate names start with a letter and use only letters, digits, ` + "`-`" + ` and ` + "`_`" + `
- Versions are Cargo requirements such as ` + "`1`" + `, ` + "`^0.3`" + ` or ` + "`>=1.2, <2`",
		docLinks: []HttpLink{docsBase + "manifest.md"},
	}

	invalidPackNameIssue = &Issue{
		id: InvalidPackNameId,
		mdMsg: `
# Invalid pack name!

Pack names end in ` + "`-battery-pack`" + ` (for example ` + "`cli-battery-pack`" + `). The
bare name ` + "`battery-pack`" + ` is reserved for the root facade crate.

## Things you can try:
- Use the short form on the command line; ` + "`bp show cli`" + ` expands to ` + "`cli-battery-pack`" + `
- Rename the pack so that it carries the suffix`,
	}

	packNotFoundIssue = &Issue{
		id: PackNotFoundId,
		mdMsg: `
# Pack not found!

A pack named in ` + "`extends`" + ` (or on the command line) could not be located.

## Things you can try:
- Check the spelling; ` + "`bp search <query>`" + ` lists published packs
- For unpublished packs, pass the directory that holds them:
~~~
$ bp resolve my-battery-pack.cue --packs-dir ./packs
~~~`,
	}

	cyclicExtensionIssue = &Issue{
		id: CyclicExtensionId,
		mdMsg: `
# Extension cycle detected!

Packs form a chain of ` + "`extends`" + ` references that leads back to itself. The
full cycle is shown above.

## Things you can try:
- Remove one ` + "`extends`" + ` entry on the cycle
- Move the shared crates into a new pack that both sides extend`,
	}

	nameCollisionIssue = &Issue{
		id: NameCollisionId,
		mdMsg: `
# Name collision in the flattened namespace!

Two crates would be re-exported under the same name. The error above names both
owners.

## Things you can try:
- Give one of the crates an alias:
~~~cue
crates: [{name: "tracing-log", version: "0.2", alias: "trace_log"}]
~~~
- Drop an inherited crate with ` + "`exclude`" + `
- Redeclare the crate in the root pack with ` + "`override: true`" + ` to take it over`,
	}

	emptyNamespaceIssue = &Issue{
		id: EmptyNamespaceId,
		mdMsg: `
# The pack exposes nothing!

After inheritance and exclusions the pack re-exports no crates at all.

## Things you can try:
- Add at least one entry to ` + "`crates`" + `
- Check that ` + "`exclude`" + ` does not drop every inherited crate`,
	}

	fetchFailedIssue = &Issue{
		id: FetchFailedId,
		mdMsg: `
# Failed to fetch the pack archive!

The distribution point could not be reached or refused the download. Nothing was
written to the cache.

## Things you can try:
- Check your network connection and retry
- Use another registry mirror via ` + "`registry.url`" + ` in your config
- Switch to the git distribution:
~~~cue
distribution: "git"
~~~`,
	}

	integrityFailureIssue = &Issue{
		id: IntegrityFailureId,
		mdMsg: `
# Integrity check failed!

The downloaded archive does not match the checksum published by the registry. It
has been discarded and was not cached.

## Things you can try:
- Retry; transient proxy corruption is the usual cause
- Clear the cache entry and fetch again:
~~~
$ bp cache invalidate <pack> <version>
~~~`,
	}

	versionNotFoundIssue = &Issue{
		id: VersionNotFoundId,
		mdMsg: `
# No matching version!

No published, non-yanked version satisfies the requested requirement.

## Things you can try:
- List the versions with ` + "`bp show <pack>`" + `
- Relax the requirement (` + "`^0.3`" + ` instead of ` + "`=0.3.2`" + `) or drop ` + "`--version`",
	}

	templateChoiceIssue = &Issue{
		id: TemplateChoiceId,
		mdMsg: `
# Which template?

The pack ships several templates and none is called ` + "`default`" + `, or the
requested template does not exist.

## Things you can try:
- Pick one of the templates listed above with ` + "`--template <name>`" + `
- Run ` + "`bp new`" + ` in a terminal to choose interactively`,
	}

	registryUnavailableIssue = &Issue{
		id: RegistryUnavailableId,
		mdMsg: `
# The registry is unavailable!

Repeated failures opened the circuit breaker for this host; further requests are
refused until it cools down.

## Things you can try:
- Wait a minute and retry
- Check https://status.crates.io`,
		extLinks: []HttpLink{"https://status.crates.io"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file is not valid CUE or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ bp config show
~~~
- Regenerate a default file with ` + "`bp config init --force`",
		docLinks: []HttpLink{docsBase + "configuration.md"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

bp could not write to the cache, config or destination directory.

## Things you can try:
- Check the permissions of the directory in the error above
- Point the cache elsewhere with ` + "`BATTERY_PACK_CACHE`" + ` or ` + "`cache.dir`",
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():    manifestNotFoundIssue,
		manifestParseErrorIssue.Id():  manifestParseErrorIssue,
		invalidPackNameIssue.Id():     invalidPackNameIssue,
		packNotFoundIssue.Id():        packNotFoundIssue,
		cyclicExtensionIssue.Id():     cyclicExtensionIssue,
		nameCollisionIssue.Id():       nameCollisionIssue,
		emptyNamespaceIssue.Id():      emptyNamespaceIssue,
		fetchFailedIssue.Id():         fetchFailedIssue,
		integrityFailureIssue.Id():    integrityFailureIssue,
		versionNotFoundIssue.Id():     versionNotFoundIssue,
		templateChoiceIssue.Id():      templateChoiceIssue,
		registryUnavailableIssue.Id(): registryUnavailableIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, v := range issues {
		values = append(values, v)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
