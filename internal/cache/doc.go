// SPDX-License-Identifier: MPL-2.0

// Package cache owns the on-disk artifact tree shared by every bootstrap
// invocation on a host.
//
// Layout:
//
//	<root>/<group-with-slashes>/<name>/<version>/<name>-<version>.<ext>
//	<root>/<group-with-slashes>/<name>/<version>/<name>-<version>.<ext>.sha256
//	<root>/<group-with-slashes>/<name>/<version>/<name>-<version>.deps
//
// The only mutation protocol is "exclusive temp file in the target directory,
// fsync, atomic rename". Readers never trust a final path without checking it
// is complete (see [Layout.Verify]), so a crashed or concurrent writer can
// never expose a partial artifact.
package cache
