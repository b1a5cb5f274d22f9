// SPDX-License-Identifier: MPL-2.0

// Package manifest parses the declarative dependency manifest shipped next to
// a bootstrapped application.
//
// The manifest is a small structured document with two optional keys:
//
//	{
//	  "dependencies": ["group:name:version", ...],
//	  "repositories": [{"id": "<id>", "url": "<base-url>"}, ...]
//	}
//
// Documents are validated against an embedded CUE schema; any deviation
// (unknown keys, malformed coordinates, missing or duplicate repository ids)
// is reported as a [MalformedManifestError] before any network I/O happens.
// TOML documents with the same shape are accepted by [ParseTOML].
package manifest
