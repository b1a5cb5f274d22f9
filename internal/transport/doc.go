// SPDX-License-Identifier: MPL-2.0

// Package transport fetches a single artifact blob from a single repository.
//
// Repositories are addressed by base URL and share one path layout:
//
//	<base>/<group-with-slashes>/<name>/<version>/<name>-<version>.<ext>
//
// A repository may publish a "<file>.sha256" digest next to the blob. The
// scheme of the base URL selects the implementation: [HTTP] for http and
// https, [File] for file and [S3] for s3. [Mux] dispatches between them.
//
// Two outcomes are distinguished for the resolver: [ErrNotInRepository]
// means "this repository does not have it, try the next one"; every other
// failure is reported as an [*Error] wrapping [ErrTransport] and is terminal.
package transport
