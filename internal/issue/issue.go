// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	MalformedManifestId Id = iota + 1
	UnresolvableArtifactId
	TransportErrorId
	IntegrityErrorId
	ResolverLimitExceededId
	InvalidDescriptorId
	SymbolNotFoundId
	InstantiationErrorId
	LibraryOpenFailedId
	NotAnApplicationId
	DeadlineExceededId
	ConfigLoadFailedId
	CacheAccessFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	name     string      // stable kebab-case name used by `bootstrap-loader explain`
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	malformedManifestIssue = &Issue{
		id:   MalformedManifestId,
		name: "malformed-manifest",
		mdMsg: `
# Malformed bootstrap manifest!

The dependency manifest could not be read or does not match the expected shape.

## Expected format
~~~json
{
  "dependencies": ["org.example:core:1.2.0"],
  "repositories": [
    {"id": "central", "url": "https://repo.example.org/releases/"}
  ]
}
~~~

- Every dependency is a ` + "`group:name:version`" + ` coordinate with no blanks.
- Repository ids must be unique and urls must be absolute.
- An omitted ` + "`repositories`" + ` list means the default repository.

## Things you can try
- Validate the file on its own:
~~~
$ bootstrap-loader manifest validate bootstrap-dependencies.json
~~~
- Regenerate it from the command line:
~~~
$ bootstrap-loader manifest generate --dep org.example:core:1.2.0 --repo central=https://repo.example.org/releases/
~~~`,
	}

	unresolvableArtifactIssue = &Issue{
		id:   UnresolvableArtifactId,
		name: "unresolvable-artifact",
		mdMsg: `
# Artifact not found in any repository!

Every configured repository answered "not found" for an artifact in the
dependency closure. Repositories are tried in the order they are declared.

## Things you can try
- Check the coordinate for typos in the group, name or version.
- Make sure the artifact was published to one of the listed repositories.
- Add the repository that hosts it to the manifest's ` + "`repositories`" + ` list.
- If the artifact is a transitive dependency, check the descriptor of the
  artifact that pulls it in.`,
	}

	transportErrorIssue = &Issue{
		id:   TransportErrorId,
		name: "transport-error",
		mdMsg: `
# Download failed!

A repository could not be reached or returned an unexpected response.
Unlike a plain "not found", this stops the resolution immediately.

## Things you can try
- Check network access and proxy settings (HTTPS_PROXY, NO_PROXY).
- Open the repository url in a browser or with curl.
- For s3:// repositories, check AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY and
  the endpoint setting:
~~~
$ bootstrap-loader run -D s3.endpoint=minio.internal:9000 ...
~~~
- Retry; partially downloaded files are never published into the cache.`,
	}

	integrityErrorIssue = &Issue{
		id:   IntegrityErrorId,
		name: "integrity-error",
		mdMsg: `
# Artifact failed its integrity check!

The downloaded bytes did not match the checksum published next to the
artifact, or the download was empty.

## Things you can try
- Retry the download; the bad copy was discarded.
- Check that the repository serves matching ` + "`.sha256`" + ` files.
- Clear the cache entry if a proxy served stale content:
~~~
$ bootstrap-loader cache purge
~~~`,
	}

	resolverLimitExceededIssue = &Issue{
		id:   ResolverLimitExceededId,
		name: "resolver-limit-exceeded",
		mdMsg: `
# Dependency graph too large!

The resolver stopped after reaching its artifact limit. This usually means a
descriptor lists an unexpectedly wide dependency tree.

## Things you can try
- Inspect the closure resolved so far:
~~~
$ bootstrap-loader --verbose resolve --manifest bootstrap-dependencies.json
~~~
- Mark test or build-only dependencies with a non-compile scope, or as optional.`,
	}

	invalidDescriptorIssue = &Issue{
		id:   InvalidDescriptorId,
		name: "invalid-descriptor",
		mdMsg: `
# Invalid artifact descriptor!

An artifact carries a ` + "`BOOTSTRAP-INF/artifact.json`" + ` descriptor that cannot be
parsed or that names a different coordinate. Plugins and other artifacts
that cannot embed one are described by a ` + "`<name>-<version>.descriptor.json`" + `
file next to them in the repository, which must match its ` + "`.sha256`" + `.

## Expected format
~~~json
{
  "coordinate": "org.example:core:1.2.0",
  "dependencies": [
    {"coordinate": "org.example:util:2.0.0"},
    {"coordinate": "org.example:test-kit:1.0.0", "scope": "test"}
  ]
}
~~~`,
	}

	symbolNotFoundIssue = &Issue{
		id:   SymbolNotFoundId,
		name: "symbol-not-found",
		mdMsg: `
# Symbol not found!

The isolation context could not resolve a name in any library or in the host
namespace.

## Lookup order
1. Reserved names (` + "`go.`" + `, ` + "`bootstrap.`" + `) come only from the host.
2. Libraries, in closure order with the application bundle first.
3. The host namespace.

## Things you can try
- Check that the artifact exporting the name is in the closure:
~~~
$ bootstrap-loader resolve --manifest bootstrap-dependencies.json
~~~
- Check the spelling of the entry name.
- Reserved names cannot be provided by libraries.`,
	}

	instantiationErrorIssue = &Issue{
		id:   InstantiationErrorId,
		name: "instantiation-error",
		mdMsg: `
# Could not construct the application!

The symbol was found but its factory failed, panicked, or the symbol has no
factory at all.

## Things you can try
- Run with ` + "`--verbose`" + ` to see the underlying error chain.
- Make sure the exported symbol was declared with a constructor.`,
	}

	libraryOpenFailedIssue = &Issue{
		id:   LibraryOpenFailedId,
		name: "library-open-failed",
		mdMsg: `
# Could not open a library!

A Go plugin in the closure failed to load or does not export
` + "`Exports`" + `.

## Things you can try
- Rebuild the plugin with the same Go toolchain and module versions as the
  launcher binary:
~~~
$ go build -buildmode=plugin -o app.so ./plugin
~~~
- Make sure the plugin exports ` + "`var Exports []isolation.Symbol`" + ` or
  ` + "`func Exports() []isolation.Symbol`" + `.`,
	}

	notAnApplicationIssue = &Issue{
		id:   NotAnApplicationId,
		name: "not-an-application",
		mdMsg: `
# Entry point is not an application!

The entry symbol was constructed but does not implement
` + "`Start(ctx context.Context, args []string) error`" + `.`,
	}

	deadlineExceededIssue = &Issue{
		id:   DeadlineExceededId,
		name: "deadline-exceeded",
		mdMsg: `
# Resolution timed out!

Downloading the dependency closure took longer than the configured timeout.

## Things you can try
- Raise the timeout:
~~~
$ bootstrap-loader --timeout 15m run ...
$ export BOOTSTRAP_LOADER_TRANSPORT_TIMEOUT=15m
~~~
- Use a closer repository mirror.`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-error",
		mdMsg: `
# Failed to load configuration!

Settings come from, in order of precedence:
1. ` + "`--property key=value`" + ` flags and launcher options
2. ` + "`BOOTSTRAP_LOADER_*`" + ` environment variables
3. ` + "`bootstrap-loader.cue`" + ` in the working directory or user config directory
4. Built-in defaults

## Example configuration
~~~cue
bootstraploader: {
	cache: dir: "/var/cache/bootstrap-loader"
	transport: timeout: "5m"
	resolver: workers: 4
	progress: "console"
}
~~~`,
	}

	cacheAccessFailedIssue = &Issue{
		id:   CacheAccessFailedId,
		name: "cache-access-failed",
		mdMsg: `
# Cache directory not usable!

The local cache could not be created or written.

## Things you can try
- Check permissions on the cache directory:
~~~
$ bootstrap-loader cache path
~~~
- Point the cache somewhere writable:
~~~
$ export BOOTSTRAP_LOADER_CACHE_DIR=$HOME/.cache/bootstrap-loader
~~~`,
	}

	issues = map[Id]*Issue{
		malformedManifestIssue.Id():     malformedManifestIssue,
		unresolvableArtifactIssue.Id():  unresolvableArtifactIssue,
		transportErrorIssue.Id():        transportErrorIssue,
		integrityErrorIssue.Id():        integrityErrorIssue,
		resolverLimitExceededIssue.Id(): resolverLimitExceededIssue,
		invalidDescriptorIssue.Id():     invalidDescriptorIssue,
		symbolNotFoundIssue.Id():        symbolNotFoundIssue,
		instantiationErrorIssue.Id():    instantiationErrorIssue,
		libraryOpenFailedIssue.Id():     libraryOpenFailedIssue,
		notAnApplicationIssue.Id():      notAnApplicationIssue,
		deadlineExceededIssue.Id():      deadlineExceededIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		cacheAccessFailedIssue.Id():     cacheAccessFailedIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup finds an issue by its explain name.
func Lookup(name string) *Issue {
	values := Values()
	idx := slices.IndexFunc(values, func(i *Issue) bool { return i.name == name })
	if idx < 0 {
		return nil
	}
	return values[idx]
}

// Names lists the explain names in id order.
func Names() []string {
	values := Values()
	names := make([]string, len(values))
	for n, i := range values {
		names[n] = i.name
	}
	return names
}
