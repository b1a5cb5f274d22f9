// SPDX-License-Identifier: MPL-2.0

// Package isolation presents a resolved closure to application code as a
// single symbol namespace.
//
// Every artifact of the closure becomes a [Library]: a table of named
// [Symbol] values. Libraries come from units linked into the binary with
// [Link], from Go plugins (".so" artifacts exporting "Exports"), or are
// resource-only when neither applies.
//
// A [Context] resolves names child-first: the libraries, in closure order,
// are consulted before the launcher's outer namespace, except for names under
// a reserved prefix (see [ReservedPrefixes]). Reserved names always come from
// the outer namespace, so contract types such as the application entrypoint
// have exactly one identity on both sides of the boundary.
//
// Resolution is monotonic: the first successful resolution of a name is
// cached and returned for the life of the Context, and concurrent first
// lookups agree on a single winner.
//
// Symbols carry a [Factory] instead of relying on reflection to construct
// values; [Type] builds a symbol whose factory returns a new zero value.
package isolation
